// Package navigation assembles the (y, G, W) navigation input from a
// resolved candidate pool and resolves it through the LSQ/Kalman filter,
// producing a state estimate, covariance and dilution-of-precision set.
package navigation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/nav-solutions/gnss-rtk-go/pkg/bias"
	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
)

// Errors surfaced while assembling or resolving a navigation Input.
var (
	ErrUnresolvedState    = errors.New("navigation: candidate carries no resolved orbital state")
	ErrMatrixInversion    = errors.New("navigation: matrix inversion failed")
	ErrTimeIsNaN          = errors.New("navigation: resolved clock offset is NaN")
)

// SVInput is the per-SV bookkeeping attached to a navigation Input,
// surfaced on the solution as its contribution map.
type SVInput struct {
	AzimuthDeg   float64
	ElevationDeg float64
	TropoBias    bias.Value
	IonoBias     bias.Value
}

// Input is the assembled (y, G, W) triple the filter resolves, plus the
// per-SV data used to populate the solution's contribution map.
type Input struct {
	Y  *mat.VecDense
	G  *mat.Dense
	W  *mat.Dense
	SV map[candidate.SV]SVInput

	// order is the PRN-sorted candidate order used to build Y/G/W,
	// exposed through Order().
	order []candidate.Candidate
}

// Order returns the PRN-sorted candidates used to assemble this Input.
func (in Input) Order() []candidate.Candidate { return in.order }

func preferredObservationValue(cd candidate.Candidate, method config.Method) (value, frequency float64, err error) {
	switch method {
	case config.SPP:
		pr, ok := cd.PreferredPseudoRange()
		if !ok {
			return 0, 0, candidate.ErrMissingPseudoRange
		}
		obs, _ := cd.BestSNRPseudoRange()
		return pr, obs.Carrier.Frequency(), nil
	default:
		comb, err := cd.PseudoRangeCombination()
		if err != nil {
			return 0, 0, err
		}
		return comb.Value, comb.ReferenceCarrier.Frequency(), nil
	}
}

// NewInput assembles the navigation Input from the retained pool, per
// spec.md section 4.4. apriori is shifted by cfg.ARPEnuM when configured.
func NewInput(apriori candidate.Vector3, aprioriGeo [3]float64, cfg config.Config, pool []candidate.Candidate, tropo, iono bias.Model) (Input, error) {
	if cfg.ARPEnuM != nil {
		offset := *cfg.ARPEnuM
		apriori.X += offset[0]
		apriori.Y += offset[1]
		apriori.Z += offset[2]
	}

	ordered := make([]candidate.Candidate, len(pool))
	copy(ordered, pool)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SV.Less(ordered[j].SV) })

	n := len(ordered)
	cols := 4
	if cfg.Method == config.PPP && n > 4 {
		cols = 4 + (n - 4)
	}

	y := mat.NewVecDense(n, nil)
	g := mat.NewDense(n, cols, nil)
	svInputs := make(map[candidate.SV]SVInput, n)
	elevations := make([]float64, n)

	for i, cd := range ordered {
		if cd.Orbit == nil || cd.Orbit.Attitude == nil {
			return Input{}, fmt.Errorf("%s: %w", cd.SV, ErrUnresolvedState)
		}

		sx, sy, sz := cd.Orbit.Position.X, cd.Orbit.Position.Y, cd.Orbit.Position.Z
		rho := math.Sqrt((sx-apriori.X)*(sx-apriori.X) + (sy-apriori.Y)*(sy-apriori.Y) + (sz-apriori.Z)*(sz-apriori.Z))

		g.Set(i, 0, (apriori.X-sx)/rho)
		g.Set(i, 1, (apriori.Y-sy)/rho)
		g.Set(i, 2, (apriori.Z-sz)/rho)
		g.Set(i, 3, 1.0)

		models := 0.0
		if cfg.Modeling.SVClockBias && cd.ClockCorr != nil {
			models -= cd.ClockCorr.Duration.Seconds() * carrier.SpeedOfLight
		}
		if cfg.ExternalRefDelaySeconds != nil {
			models -= *cfg.ExternalRefDelaySeconds * carrier.SpeedOfLight
		}

		pr, frequency, err := preferredObservationValue(cd, cfg.Method)
		if err != nil {
			return Input{}, fmt.Errorf("%s: %w", cd.SV, err)
		}

		for _, delay := range cfg.InternalDelays {
			if delay.FrequencyHz == frequency {
				models += delay.DelaySeconds * carrier.SpeedOfLight
			}
		}

		svInput := SVInput{
			AzimuthDeg:   cd.Orbit.Attitude.AzimuthDeg,
			ElevationDeg: cd.Orbit.Attitude.ElevationDeg,
		}

		if cfg.Modeling.TropoDelay && cd.TropoBiasM != nil {
			models += *cd.TropoBiasM
			svInput.TropoBias = bias.Modeled(*cd.TropoBiasM)
		}
		if cfg.Method == config.SPP && cfg.Modeling.IonoDelay && cd.IonoBiasM != nil {
			models += *cd.IonoBiasM
			svInput.IonoBias = bias.Modeled(*cd.IonoBiasM)
		}

		y.SetVec(i, pr-rho-models)

		if i > 3 && cols > 4 {
			ambiguityCol := 4 + (i - 4)
			g.Set(i, ambiguityCol, 1.0)

			if cfg.Method == config.PPP {
				ph, err := cd.PhaseCombination()
				if err != nil {
					return Input{}, fmt.Errorf("%s: %w", cd.SV, err)
				}
				windup := 0.0 // TODO: wire phase windup once attitude/antenna frame is modeled
				y.SetVec(i, ph.Value-rho-models-windup)
			}
		}

		svInputs[cd.SV] = svInput
		elevations[i] = svInput.ElevationDeg
	}

	w := buildWeightMatrix(n, elevations, cfg.Weight)

	return Input{Y: y, G: g, W: w, SV: svInputs, order: ordered}, nil
}

func buildWeightMatrix(n int, elevationsDeg []float64, weight config.WeightMatrix) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		wi := 1.0
		if weight.Kind == config.WeightMappingFunction {
			m := weight.Mapping
			sigma := m.A + m.B*math.Exp(-elevationsDeg[i]/m.C)
			wi = 1.0 / (sigma * sigma)
		}
		w.Set(i, i, wi)
	}
	return w
}
