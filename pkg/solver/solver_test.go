package solver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
	"github.com/nav-solutions/gnss-rtk-go/pkg/validate"
)

func f64(v float64) *float64 { return &v }

type fakeOrbits struct {
	positions map[candidate.SV]candidate.Vector3
}

func (f fakeOrbits) NextAt(_ time.Time, sv candidate.SV, _ int) (candidate.OrbitalState, bool) {
	pos, ok := f.positions[sv]
	if !ok {
		return candidate.OrbitalState{}, false
	}
	return candidate.OrbitalState{Position: pos}, true
}

func staticTestConfig() config.Config {
	cfg := config.StaticPreset(config.SPP)
	cfg.Modeling.EarthRotation = false
	cfg.Modeling.RelativisticClockBias = false
	cfg.Modeling.TropoDelay = false
	cfg.Modeling.IonoDelay = false
	cfg.Modeling.SVClockBias = false
	cfg.Modeling.SVTotalGroupDelay = false
	cfg.Thresholds.MinSNRdBHz = nil
	cfg.Thresholds.MinSVElevationDeg = nil
	cfg.Thresholds.GDOPThreshold = f64(100.0)
	return cfg
}

func syntheticPool(rx candidate.Vector3, sats map[candidate.SV]candidate.Vector3, t time.Time) []candidate.Candidate {
	var pool []candidate.Candidate
	for sv, pos := range sats {
		rho := pos.Sub(rx).Norm()
		cd := candidate.New(sv, t, []candidate.Observation{
			{Carrier: carrier.L1, PseudoRangeM: f64(rho), SNRdBHz: f64(45)},
		})
		pool = append(pool, cd)
	}
	return pool
}

// syntheticPoolWithClock is syntheticPool plus an on-board clock
// correction on every candidate, flagged per needsRelativistic.
func syntheticPoolWithClock(rx candidate.Vector3, sats map[candidate.SV]candidate.Vector3, t time.Time, needsRelativistic bool) []candidate.Candidate {
	pool := syntheticPool(rx, sats, t)
	for i := range pool {
		pool[i].ClockCorr = &candidate.ClockCorrection{NeedsRelativisticCorrection: needsRelativistic}
	}
	return pool
}

func testSatellites() map[candidate.SV]candidate.Vector3 {
	return map[candidate.SV]candidate.Vector3{
		{PRN: 1}: {X: 20_200_000, Y: 2_000_000, Z: 5_000_000},
		{PRN: 2}: {X: -15_000_000, Y: 18_000_000, Z: 8_000_000},
		{PRN: 3}: {X: 3_000_000, Y: -20_200_000, Z: 10_000_000},
		{PRN: 4}: {X: -8_000_000, Y: -9_000_000, Z: 20_200_000},
		{PRN: 5}: {X: 12_000_000, Y: 14_000_000, Z: -18_000_000},
		{PRN: 6}: {X: -20_200_000, Y: -3_000_000, Z: -6_000_000},
	}
}

func TestResolve_FirstSolutionSuppressed(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := testSatellites()

	cfg := staticTestConfig()
	s := New(cfg, &rx, fakeOrbits{positions: sats}, nil, nil, nil)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := syntheticPool(rx, sats, t0)

	_, err := s.Resolve(t0, pool)
	require.Error(t, err)

	var invalid *validate.InvalidatedSolutionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, validate.FirstSolution, invalid.Cause)
}

func TestResolve_SecondEpochConverges(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := testSatellites()

	cfg := staticTestConfig()
	s := New(cfg, &rx, fakeOrbits{positions: sats}, nil, nil, nil)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Second)

	_, err := s.Resolve(t0, syntheticPool(rx, sats, t0))
	require.Error(t, err)

	sol, err := s.Resolve(t1, syntheticPool(rx, sats, t1))
	require.NoError(t, err)

	assert.InDelta(t, rx.X, sol.Position.X, 20.0)
	assert.InDelta(t, rx.Y, sol.Position.Y, 20.0)
	assert.InDelta(t, rx.Z, sol.Position.Z, 20.0)
}

func TestResolve_NotEnoughCandidates(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := testSatellites()
	cfg := staticTestConfig()
	s := New(cfg, &rx, fakeOrbits{positions: sats}, nil, nil, nil)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.Resolve(t0, syntheticPool(rx, sats, t0)[:2])
	assert.ErrorIs(t, err, ErrNotEnoughCandidates)
}

func TestResolve_MissingPseudoRangeRejectsAllCandidates(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := testSatellites()
	cfg := staticTestConfig()
	s := New(cfg, &rx, fakeOrbits{positions: sats}, nil, nil, nil)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var pool []candidate.Candidate
	for sv := range sats {
		pool = append(pool, candidate.New(sv, t0, []candidate.Observation{
			{Carrier: carrier.L1, PhaseRangeM: f64(1.0)},
		}))
	}

	_, err := s.Resolve(t0, pool)
	assert.ErrorIs(t, err, ErrNotEnoughPreFitCandidates)
}

func TestResolve_RelativisticCorrectionSkippedWhenSVFlagClear(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := testSatellites()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Second)

	cfgGated := staticTestConfig()
	cfgGated.Modeling.RelativisticClockBias = true
	gated := New(cfgGated, &rx, fakeOrbits{positions: sats}, nil, nil, nil)
	_, err := gated.Resolve(t0, syntheticPoolWithClock(rx, sats, t0, false))
	require.Error(t, err)
	solGated, err := gated.Resolve(t1, syntheticPoolWithClock(rx, sats, t1, false))
	require.NoError(t, err)

	cfgDisabled := staticTestConfig()
	cfgDisabled.Modeling.RelativisticClockBias = false
	disabled := New(cfgDisabled, &rx, fakeOrbits{positions: sats}, nil, nil, nil)
	_, err = disabled.Resolve(t0, syntheticPoolWithClock(rx, sats, t0, false))
	require.Error(t, err)
	solDisabled, err := disabled.Resolve(t1, syntheticPoolWithClock(rx, sats, t1, false))
	require.NoError(t, err)

	// cd.ClockCorr.NeedsRelativisticCorrection is false on every candidate,
	// so enabling the global Modeling.RelativisticClockBias switch must not
	// change the resolved clock offset: the per-SV flag gates the
	// correction, not just the global switch.
	assert.Equal(t, solDisabled.Dt, solGated.Dt)
}
