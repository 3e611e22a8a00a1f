package navigation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
)

func f64(v float64) *float64 { return &v }

func syntheticCandidate(prn uint8, satPos, rxPos candidate.Vector3, elevationDeg float64) candidate.Candidate {
	rho := satPos.Sub(rxPos).Norm()
	cd := candidate.New(candidate.SV{PRN: prn}, time.Now(), []candidate.Observation{
		{Carrier: carrier.L1, PseudoRangeM: f64(rho), SNRdBHz: f64(40)},
	})
	cd.Orbit = &candidate.OrbitalState{
		Position: satPos,
		Attitude: &candidate.Attitude{ElevationDeg: elevationDeg, AzimuthDeg: 0},
	}
	cd.ClockCorr = &candidate.ClockCorrection{}
	return cd
}

func TestNewInput_AndLSQResolve(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := []candidate.Vector3{
		{X: 20_200_000, Y: 0, Z: 0},
		{X: -20_200_000, Y: 5_000_000, Z: 8_000_000},
		{X: 3_000_000, Y: 20_200_000, Z: -6_000_000},
		{X: -8_000_000, Y: -15_000_000, Z: 20_200_000},
		{X: 10_000_000, Y: -20_200_000, Z: 3_000_000},
	}

	var pool []candidate.Candidate
	for i, sat := range sats {
		pool = append(pool, syntheticCandidate(uint8(i+1), sat, rx, 45))
	}

	cfg := config.StaticPreset(config.SPP)
	input, err := NewInput(rx, [3]float64{}, cfg, pool, nil, nil)
	require.NoError(t, err)

	nav := New(config.FilterLSQ)
	out, err := nav.Resolve(input)
	require.NoError(t, err)

	x := out.State.LSQ.X
	assert.InDelta(t, 0.0, x.AtVec(0), 1e-4)
	assert.InDelta(t, 0.0, x.AtVec(1), 1e-4)
	assert.InDelta(t, 0.0, x.AtVec(2), 1e-4)
	assert.InDelta(t, 0.0, x.AtVec(3), 1e-4)

	assert.GreaterOrEqual(t, out.GDOP, 0.0)
	assert.GreaterOrEqual(t, out.PDOP, 0.0)
	assert.GreaterOrEqual(t, out.TDOP, 0.0)
}

func TestLSQResolve_WithPrior(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := []candidate.Vector3{
		{X: 20_200_000, Y: 0, Z: 0},
		{X: -20_200_000, Y: 5_000_000, Z: 8_000_000},
		{X: 3_000_000, Y: 20_200_000, Z: -6_000_000},
		{X: -8_000_000, Y: -15_000_000, Z: 20_200_000},
	}
	var pool []candidate.Candidate
	for i, sat := range sats {
		pool = append(pool, syntheticCandidate(uint8(i+1), sat, rx, 45))
	}

	cfg := config.StaticPreset(config.SPP)
	input, err := NewInput(rx, [3]float64{}, cfg, pool, nil, nil)
	require.NoError(t, err)

	nav := New(config.FilterLSQ)
	_, err = nav.Resolve(input)
	require.NoError(t, err)
	nav.Validate()

	out, err := nav.Resolve(input)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.State.LSQ.X.AtVec(3), 1e-3)
}

func TestKalmanResolve_ColdStart(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := []candidate.Vector3{
		{X: 20_200_000, Y: 0, Z: 0},
		{X: -20_200_000, Y: 5_000_000, Z: 8_000_000},
		{X: 3_000_000, Y: 20_200_000, Z: -6_000_000},
		{X: -8_000_000, Y: -15_000_000, Z: 20_200_000},
	}
	var pool []candidate.Candidate
	for i, sat := range sats {
		pool = append(pool, syntheticCandidate(uint8(i+1), sat, rx, 45))
	}

	cfg := config.StaticPreset(config.SPP)
	input, err := NewInput(rx, [3]float64{}, cfg, pool, nil, nil)
	require.NoError(t, err)

	nav := New(config.FilterKalman)
	out, err := nav.Resolve(input)
	require.NoError(t, err)
	assert.NotNil(t, out.State.KF)
	nav.Validate()

	out2, err := nav.Resolve(input)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out2.State.KF.X.AtVec(3), 1e-2)
}

func TestHDOPVDOP_Identity(t *testing.T) {
	q := identity(4)
	hdop, vdop := HDOPVDOP(q, 45, 8)
	assert.InDelta(t, math.Sqrt(2), hdop, 1e-9)
	assert.InDelta(t, 1.0, vdop, 1e-9)
}
