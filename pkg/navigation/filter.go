package navigation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
)

// LSQState is the LSQ filter's carried state: the covariance P and the
// current state estimate x.
type LSQState struct {
	P *mat.Dense
	X *mat.VecDense
}

// KFState is the Kalman filter's carried state: covariance P, process
// noise Q, transition Φ and the current state estimate x.
type KFState struct {
	P   *mat.Dense
	Q   *mat.Dense
	Phi *mat.Dense
	X   *mat.VecDense
}

// FilterState is a tagged carried state; exactly one of LSQ/KF is set and
// a solver session must never switch which one populates it mid-run.
type FilterState struct {
	LSQ *LSQState
	KF  *KFState
}

// Estimate returns the carried state estimate vector, regardless of which
// filter produced it.
func (s FilterState) Estimate() *mat.VecDense {
	if s.KF != nil {
		return s.KF.X
	}
	return s.LSQ.X
}

// Output is the per-epoch navigation filter result.
type Output struct {
	GDOP, PDOP, TDOP float64
	Q                *mat.Dense
	State            FilterState
}

func invert(m mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMatrixInversion)
	}
	return &inv, nil
}

func dopsFromQ(q *mat.Dense) (gdop, pdop, tdop float64) {
	gdop = math.Sqrt(q.At(0, 0) + q.At(1, 1) + q.At(2, 2) + q.At(3, 3))
	pdop = math.Sqrt(q.At(0, 0) + q.At(1, 1) + q.At(2, 2))
	tdop = math.Sqrt(q.At(3, 3))
	return
}

// lsqResolve implements spec.md section 4.5's LSQ filter, with and without
// a carried prior.
func lsqResolve(input Input, prior *LSQState) (Output, error) {
	n, cols := input.G.Dims()
	gT := mat.NewDense(cols, n, nil)
	gT.CloneFrom(input.G.T())

	var gtg mat.Dense
	gtg.Mul(gT, input.G)
	q, err := invert(&gtg)
	if err != nil {
		return Output{}, err
	}

	var gtw, gtwg mat.Dense
	gtw.Mul(gT, input.W)
	gtwg.Mul(&gtw, input.G)

	var p *mat.Dense
	var x mat.VecDense

	if prior != nil {
		priorPInv, err := invert(prior.P)
		if err != nil {
			return Output{}, err
		}

		var sum mat.Dense
		sum.Add(priorPInv, &gtwg)
		p, err = invert(&sum)
		if err != nil {
			return Output{}, err
		}

		var gtwy, priorTerm, rhs mat.VecDense
		gtwy.MulVec(&gtw, input.Y)
		priorTerm.MulVec(priorPInv, prior.X)
		rhs.AddVec(&priorTerm, &gtwy)
		x.MulVec(p, &rhs)
	} else {
		p, err = invert(&gtwg)
		if err != nil {
			return Output{}, err
		}
		var gtwy mat.VecDense
		gtwy.MulVec(&gtw, input.Y)
		x.MulVec(p, &gtwy)
	}

	if math.IsNaN(x.AtVec(3)) {
		return Output{}, ErrTimeIsNaN
	}

	gdop, pdop, tdop := dopsFromQ(q)
	return Output{
		GDOP: gdop, PDOP: pdop, TDOP: tdop, Q: q,
		State: FilterState{LSQ: &LSQState{P: p, X: &x}},
	}, nil
}

// kfResolve implements spec.md section 4.5's Kalman filter, with and
// without a carried prior. On cold start it degenerates to the LSQ
// estimate, seeding a unit transition and clock-only process noise.
func kfResolve(input Input, prior *KFState) (Output, error) {
	_, cols := input.G.Dims()

	if prior == nil {
		out, err := lsqResolve(input, nil)
		if err != nil {
			return Output{}, err
		}

		phi := identity(cols)
		q := mat.NewDense(cols, cols, nil)
		q.Set(3, 3, 1.0)

		return Output{
			GDOP: out.GDOP, PDOP: out.PDOP, TDOP: out.TDOP, Q: out.Q,
			State: FilterState{KF: &KFState{P: out.State.LSQ.P, Q: q, Phi: phi, X: out.State.LSQ.X}},
		}, nil
	}

	var xBar mat.VecDense
	xBar.MulVec(prior.Phi, prior.X)

	var phiP, phiPPhiT, pBar mat.Dense
	phiP.Mul(prior.Phi, prior.P)
	phiPPhiT.Mul(&phiP, prior.Phi.T())
	pBar.Add(&phiPPhiT, prior.Q)

	pBarInv, err := invert(&pBar)
	if err != nil {
		return Output{}, err
	}

	n, _ := input.G.Dims()
	gT := mat.NewDense(cols, n, nil)
	gT.CloneFrom(input.G.T())

	var gtw, gtwg, sum mat.Dense
	gtw.Mul(gT, input.W)
	gtwg.Mul(&gtw, input.G)
	sum.Add(&gtwg, pBarInv)

	p, err := invert(&sum)
	if err != nil {
		return Output{}, err
	}

	var gtwy, pBarInvXBar, rhs, x mat.VecDense
	gtwy.MulVec(&gtw, input.Y)
	pBarInvXBar.MulVec(pBarInv, &xBar)
	rhs.AddVec(&gtwy, &pBarInvXBar)
	x.MulVec(p, &rhs)

	if math.IsNaN(x.AtVec(3)) {
		return Output{}, ErrTimeIsNaN
	}

	var qN mat.Dense
	qN.Mul(gT, input.G)
	qInv, err := invert(&qN)
	if err != nil {
		return Output{}, err
	}

	gdop, pdop, tdop := dopsFromQ(qInv)
	return Output{
		GDOP: gdop, PDOP: pdop, TDOP: tdop, Q: qInv,
		State: FilterState{KF: &KFState{P: p, Q: prior.Q, Phi: prior.Phi, X: &x}},
	}, nil
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1.0)
	}
	return m
}

// Navigation carries the filter selection and inter-epoch state across
// successive Resolve calls.
type Navigation struct {
	filter  config.Filter
	pending Output
	state   FilterState
}

// New returns a Navigation using the given filter, with no carried state.
func New(filter config.Filter) *Navigation {
	return &Navigation{filter: filter}
}

var errUnknownFilter = errors.New("navigation: unknown filter")

// Resolve runs the configured filter against input, using the previously
// validated carried state (if any).
func (n *Navigation) Resolve(input Input) (Output, error) {
	var out Output
	var err error

	switch n.filter {
	case config.FilterNone:
		out, err = lsqResolve(input, nil)
	case config.FilterLSQ:
		out, err = lsqResolve(input, n.state.LSQ)
	case config.FilterKalman:
		out, err = kfResolve(input, n.state.KF)
	default:
		return Output{}, errUnknownFilter
	}

	if err != nil {
		return Output{}, err
	}

	n.pending = out
	return out, nil
}

// Validate commits the pending filter output's carried state, to be used
// as the prior on the next Resolve call. Must only be invoked once the
// caller's validator has accepted the solution.
func (n *Navigation) Validate() {
	n.state = n.pending.State
}
