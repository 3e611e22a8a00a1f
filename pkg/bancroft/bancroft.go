// Package bancroft implements the closed-form four-satellite position and
// clock bootstrap (Bancroft, 1985), used by the solver orchestrator to
// seed the iterative navigation filter when no apriori position is known.
//
// The 4x4 linear algebra is carried out with gonum/mat, the same library
// used by the satoshi-pes/gnss Bancroft reference implementation this
// package is grounded on.
package bancroft

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
)

// EarthEquatorialRadiusM is the WGS84 semi-major axis, used to pick
// between the Bancroft quadratic's two roots.
const EarthEquatorialRadiusM = 6378137.0

// Errors surfaced by Resolve, per spec.md section 4.3.
var (
	ErrBancroftError             = errors.New("bancroft: not enough fully resolved candidates, or singular matrix")
	ErrBancroftImaginarySolution = errors.New("bancroft: imaginary solution (negative discriminant)")
)

// Solution is the Bancroft-resolved receiver state: ECEF position plus
// c*dt, the receiver clock offset expressed as a range.
type Solution struct {
	X, Y, Z float64
	CDt     float64
}

// lorentz4 computes the Lorentz (Minkowski) inner product
// a0*b0 + a1*b1 + a2*b2 - a3*b3 used throughout the Bancroft method.
func lorentz4(a, b *mat.VecDense) float64 {
	return a.AtVec(0)*b.AtVec(0) + a.AtVec(1)*b.AtVec(1) + a.AtVec(2)*b.AtVec(2) - a.AtVec(3)*b.AtVec(3)
}

// candidateCorrectedPR returns the pseudorange corrected for the SV clock
// bias and total group delay, as required to populate the B matrix's
// fourth column (spec.md section 4.3).
func candidateCorrectedPR(cd candidate.Candidate) (float64, bool) {
	obs, ok := cd.BestSNRPseudoRange()
	if !ok || obs.PseudoRangeM == nil || cd.ClockCorr == nil || cd.Orbit == nil {
		return 0, false
	}

	pr := *obs.PseudoRangeM
	pr += cd.ClockCorr.Duration.Seconds() * carrier.SpeedOfLight
	if cd.TGD != nil {
		pr -= cd.TGD.Seconds() * carrier.SpeedOfLight
	}
	return pr, true
}

// Resolve bootstraps an ECEF position and clock offset from the first 4
// candidates that present both a resolved orbit and a corrected
// pseudorange.
func Resolve(pool []candidate.Candidate) (Solution, error) {
	b := mat.NewDense(4, 4, nil)
	a := mat.NewVecDense(4, nil)

	found := 0
	for _, cd := range pool {
		if cd.Orbit == nil {
			continue
		}
		pr, ok := candidateCorrectedPR(cd)
		if !ok {
			continue
		}

		x, y, z := cd.Orbit.Position.X, cd.Orbit.Position.Y, cd.Orbit.Position.Z

		b.Set(found, 0, x)
		b.Set(found, 1, y)
		b.Set(found, 2, z)
		b.Set(found, 3, pr)
		a.SetVec(found, 0.5*(x*x+y*y+z*z-pr*pr))

		found++
		if found == 4 {
			break
		}
	}

	if found != 4 {
		return Solution{}, fmt.Errorf("bancroft: found %d usable candidates: %w", found, ErrBancroftError)
	}

	var bInv mat.Dense
	if err := bInv.Inverse(b); err != nil {
		return Solution{}, fmt.Errorf("bancroft: %v: %w", err, ErrBancroftError)
	}

	ones := mat.NewVecDense(4, []float64{1, 1, 1, 1})

	var b1, ba mat.VecDense
	b1.MulVec(&bInv, ones)
	ba.MulVec(&bInv, a)

	alpha := lorentz4(&b1, &b1)
	beta := 2.0 * (lorentz4(&b1, &ba) - 1.0)
	gamma := lorentz4(&ba, &ba)

	discriminant := beta*beta - 4.0*alpha*gamma

	m := [4]float64{1, 1, 1, -1}
	resolveRoot := func(lambda float64) Solution {
		u := mat.NewVecDense(4, nil)
		for i := 0; i < 4; i++ {
			u.SetVec(i, lambda*ones.AtVec(i)+a.AtVec(i))
		}
		var s mat.VecDense
		s.MulVec(&bInv, u)
		for i := 0; i < 4; i++ {
			s.SetVec(i, s.AtVec(i)*m[i])
		}
		return Solution{X: s.AtVec(0), Y: s.AtVec(1), Z: s.AtVec(2), CDt: s.AtVec(3)}
	}

	switch {
	case discriminant > 0:
		sqrtDelta := math.Sqrt(discriminant)
		lambda1 := (-beta + sqrtDelta) / (2 * alpha)
		lambda2 := (-beta - sqrtDelta) / (2 * alpha)

		s1 := resolveRoot(lambda1)
		s2 := resolveRoot(lambda2)

		r1 := math.Abs(math.Sqrt(s1.X*s1.X+s1.Y*s1.Y+s1.Z*s1.Z) - EarthEquatorialRadiusM)
		r2 := math.Abs(math.Sqrt(s2.X*s2.X+s2.Y*s2.Y+s2.Z*s2.Z) - EarthEquatorialRadiusM)

		if r1 <= r2 {
			return s1, nil
		}
		return s2, nil

	case discriminant < 0:
		return Solution{}, ErrBancroftImaginarySolution

	default:
		lambda := -beta / (2 * alpha)
		return resolveRoot(lambda), nil
	}
}
