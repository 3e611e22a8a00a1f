// Package candidate defines the per-(epoch, SV) measurement bundle the
// solver pipeline consumes and the handful of derived quantities
// (transmission time, signal combinations, best-SNR pseudorange) computed
// directly from it.
package candidate

import (
	"errors"
	"fmt"
	"time"

	"github.com/nav-solutions/gnss-rtk-go/pkg/bias"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
)

// Errors surfaced by Candidate operations, per spec.md section 6.
var (
	ErrMissingPseudoRange       = errors.New("candidate: missing pseudorange observation")
	ErrUnknownClockCorrection   = errors.New("candidate: unknown clock correction")
	ErrPhysicalNonSenseRxPriorTx = errors.New("candidate: physical non sense, rx prior tx")
	ErrPseudoRangeCombination   = errors.New("candidate: failed to form pseudorange combination")
	ErrPhaseRangeCombination    = errors.New("candidate: failed to form phase range combination")
	ErrUnresolvedAttitude       = errors.New("candidate: unresolved orbital attitude")
)

// Combination is an ionosphere-free linear combination of two
// same-observable-type measurements on distinct carriers, along with the
// reference carrier used for bookkeeping (weighting, frequency-dependent
// delay lookups, ...).
type Combination struct {
	Value           float64
	ReferenceCarrier carrier.Carrier
}

// Candidate is the per-(epoch, SV) bundle the pipeline resolves against.
type Candidate struct {
	SV SV

	// T is the sampling (receiver clock) epoch.
	T time.Time
	// TTx is the derived transmission epoch; always < T once TransmissionTime
	// has been computed.
	TTx time.Time
	// DtTx is T - TTx.
	DtTx time.Duration

	ClockCorr *ClockCorrection
	TGD       *time.Duration

	Orbit *OrbitalState

	Observations []Observation
	RemoteObs    []Observation

	TropoBiasM *float64
	IonoBiasM  *float64
}

// New builds the bare minimum Candidate definition: an SV identity, a
// sampling epoch and its observations.
func New(sv SV, t time.Time, observations []Observation) Candidate {
	return Candidate{SV: sv, T: t, TTx: t, Observations: observations}
}

// BestSNRPseudoRange returns the observation with the highest SNR that
// also carries a pseudorange. Ties are broken by lowest carrier frequency.
func (c Candidate) BestSNRPseudoRange() (Observation, bool) {
	var best Observation
	found := false
	bestSNR := -1.0

	for _, obs := range c.Observations {
		if !obs.HasPseudoRange() {
			continue
		}
		snr := 0.0
		if obs.SNRdBHz != nil {
			snr = *obs.SNRdBHz
		}
		switch {
		case !found:
			best, bestSNR, found = obs, snr, true
		case snr > bestSNR:
			best, bestSNR = obs, snr
		case snr == bestSNR && obs.Carrier.Frequency() < best.Carrier.Frequency():
			best = obs
		}
	}

	return best, found
}

// PreferredPseudoRange is an alias of BestSNRPseudoRange returning only the
// value, used by the navigation input assembly for the SPP method.
func (c Candidate) PreferredPseudoRange() (float64, bool) {
	obs, ok := c.BestSNRPseudoRange()
	if !ok || obs.PseudoRangeM == nil {
		return 0, false
	}
	return *obs.PseudoRangeM, true
}

// distinctPseudoRangeObs returns up to two observations carrying a
// pseudorange on distinct carrier frequencies, preferring the first two
// encountered.
func (c Candidate) distinctPseudoRangeObs() (Observation, Observation, bool) {
	var first, second Observation
	haveFirst := false
	for _, obs := range c.Observations {
		if !obs.HasPseudoRange() {
			continue
		}
		if !haveFirst {
			first = obs
			haveFirst = true
			continue
		}
		if obs.Carrier.Frequency() != first.Carrier.Frequency() {
			second = obs
			return first, second, true
		}
	}
	return first, second, false
}

func (c Candidate) distinctPhaseRangeObs() (Observation, Observation, bool) {
	var first, second Observation
	haveFirst := false
	for _, obs := range c.Observations {
		if !obs.HasPhaseRange() {
			continue
		}
		if !haveFirst {
			first = obs
			haveFirst = true
			continue
		}
		if obs.Carrier.Frequency() != first.Carrier.Frequency() {
			second = obs
			return first, second, true
		}
	}
	return first, second, false
}

// CPPCompatible reports whether self carries pseudoranges on two distinct
// frequencies.
func (c Candidate) CPPCompatible() bool {
	_, _, ok := c.distinctPseudoRangeObs()
	return ok
}

// PPPCompatible reports whether self carries carrier phase on two distinct
// frequencies.
func (c Candidate) PPPCompatible() bool {
	_, _, ok := c.distinctPhaseRangeObs()
	return ok
}

// ionoFree forms (f1^2*obs1 - f2^2*obs2) / (f1^2 - f2^2), keeping obs1's
// carrier as the combination's reference.
func ionoFree(obs1, obs2 Observation, val1, val2 float64) Combination {
	f1, f2 := obs1.Carrier.Frequency(), obs2.Carrier.Frequency()
	f1sq, f2sq := f1*f1, f2*f2
	return Combination{
		Value:            (f1sq*val1 - f2sq*val2) / (f1sq - f2sq),
		ReferenceCarrier: obs1.Carrier,
	}
}

// PseudoRangeCombination forms the ionosphere-free pseudorange combination
// required by CPP/PPP.
func (c Candidate) PseudoRangeCombination() (Combination, error) {
	obs1, obs2, ok := c.distinctPseudoRangeObs()
	if !ok {
		return Combination{}, ErrPseudoRangeCombination
	}
	return ionoFree(obs1, obs2, *obs1.PseudoRangeM, *obs2.PseudoRangeM), nil
}

// PhaseCombination forms the ionosphere-free carrier phase combination
// required by PPP.
func (c Candidate) PhaseCombination() (Combination, error) {
	obs1, obs2, ok := c.distinctPhaseRangeObs()
	if !ok {
		return Combination{}, ErrPhaseRangeCombination
	}
	return ionoFree(obs1, obs2, *obs1.PhaseRangeM, *obs2.PhaseRangeM), nil
}

// TransmissionTime derives (TTx, DtTx) per spec.md section 4.2: back-date
// the sampling epoch by the best-SNR pseudorange's light time, then by TGD
// and the on-board clock correction when the corresponding modeling flags
// are enabled.
func (c *Candidate) TransmissionTime(cfg config.Config) error {
	pr, ok := c.PreferredPseudoRange()
	if !ok {
		return fmt.Errorf("%s(%s): %w", c.T, c.SV, ErrMissingPseudoRange)
	}

	tTx := c.T.Add(-time.Duration(pr / carrier.SpeedOfLight * float64(time.Second)))

	if cfg.Modeling.SVTotalGroupDelay && c.TGD != nil {
		tTx = tTx.Add(-*c.TGD)
	}

	if cfg.Modeling.SVClockBias {
		if c.ClockCorr == nil {
			return fmt.Errorf("%s(%s): %w", c.T, c.SV, ErrUnknownClockCorrection)
		}
		tTx = tTx.Add(-c.ClockCorr.Duration)
	}

	if !tTx.Before(c.T) {
		return fmt.Errorf("%s(%s): rx=%s tx=%s: %w", c.T, c.SV, c.T, tTx, ErrPhysicalNonSenseRxPriorTx)
	}

	c.TTx = tTx
	c.DtTx = c.T.Sub(tTx)
	return nil
}

// ApplyModels evaluates the troposphere/ionosphere bias models and stores
// the resulting magnitudes on TropoBiasM/IonoBiasM, per spec.md section
// 4.2. The ionosphere model is only invoked for SPP: CPP/PPP already
// cancel first-order ionospheric delay through their signal combination.
func (c *Candidate) ApplyModels(method config.Method, tropo, iono bias.Model, tropoOn, ionoOn bool, aprioriLatLonAltM [3]float64) error {
	if c.Orbit == nil || c.Orbit.Attitude == nil {
		return fmt.Errorf("%s(%s): %w", c.T, c.SV, ErrUnresolvedAttitude)
	}

	frequency := 0.0
	switch method {
	case config.SPP:
		if obs, ok := c.BestSNRPseudoRange(); ok {
			frequency = obs.Carrier.Frequency()
		}
	default:
		if comb, err := c.PseudoRangeCombination(); err == nil {
			frequency = comb.ReferenceCarrier.Frequency()
		}
	}

	rtm := bias.RuntimeParam{
		T:             c.T,
		ElevationDeg:  c.Orbit.Attitude.ElevationDeg,
		AzimuthDeg:    c.Orbit.Attitude.AzimuthDeg,
		FrequencyHz:   frequency,
		AprioriLatDeg: aprioriLatLonAltM[0],
		AprioriLonDeg: aprioriLatLonAltM[1],
		AprioriAltM:   aprioriLatLonAltM[2],
	}

	if tropoOn && tropo != nil {
		if v, ok := tropo.Bias(rtm); ok {
			c.TropoBiasM = &v
		}
	}

	if ionoOn && iono != nil && method == config.SPP {
		if v, ok := iono.Bias(rtm); ok {
			c.IonoBiasM = &v
		}
	}

	return nil
}
