package bancroft

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
)

func TestLorentzProduct(t *testing.T) {
	a := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	b := mat.NewVecDense(4, []float64{5, 6, 7, 8})
	assert.Equal(t, 6.0, lorentz4(a, b))
}

func f64(v float64) *float64 { return &v }

// syntheticCandidate builds a Candidate whose pseudorange is the exact
// geometric range to satPos plus the receiver clock bias expressed in
// meters (c*dt), with a zero SV clock correction so the Bancroft
// algorithm only has the receiver clock term to recover.
func syntheticCandidate(prn uint8, satPos, rxPos candidate.Vector3, clockBiasM float64) candidate.Candidate {
	rho := math.Sqrt(
		(satPos.X-rxPos.X)*(satPos.X-rxPos.X) +
			(satPos.Y-rxPos.Y)*(satPos.Y-rxPos.Y) +
			(satPos.Z-rxPos.Z)*(satPos.Z-rxPos.Z),
	)
	pr := rho + clockBiasM

	cd := candidate.New(candidate.SV{PRN: prn}, time.Now(), []candidate.Observation{
		{Carrier: carrier.L1, PseudoRangeM: f64(pr), SNRdBHz: f64(40)},
	})
	cd.Orbit = &candidate.OrbitalState{Position: satPos}
	cd.ClockCorr = &candidate.ClockCorrection{}
	return cd
}

func TestResolve_BancroftSanity(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	clockBiasSeconds := 1e-6
	clockBiasM := clockBiasSeconds * carrier.SpeedOfLight

	sats := []candidate.Vector3{
		{X: 20_200_000, Y: 0, Z: 0},
		{X: -20_200_000, Y: 5_000_000, Z: 8_000_000},
		{X: 3_000_000, Y: 20_200_000, Z: -6_000_000},
		{X: -8_000_000, Y: -15_000_000, Z: 20_200_000},
	}

	var pool []candidate.Candidate
	for i, sat := range sats {
		pool = append(pool, syntheticCandidate(uint8(i+1), sat, rx, clockBiasM))
	}

	sol, err := Resolve(pool)
	require.NoError(t, err)

	assert.InDelta(t, rx.X, sol.X, 10.0)
	assert.InDelta(t, rx.Y, sol.Y, 10.0)
	assert.InDelta(t, rx.Z, sol.Z, 10.0)
	assert.InDelta(t, clockBiasM, sol.CDt, 5.0)
}

func TestResolve_NotEnoughCandidates(t *testing.T) {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	cd := syntheticCandidate(1, candidate.Vector3{X: 20_200_000}, rx, 0)

	_, err := Resolve([]candidate.Candidate{cd})
	assert.ErrorIs(t, err, ErrBancroftError)
}
