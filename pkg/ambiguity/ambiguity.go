// Package ambiguity tracks the PPP carrier-phase integer ambiguity per SV
// over a rolling time window, smoothing the float estimate derived from
// the phase/code combination before rounding it to the nearest cycle.
package ambiguity

import (
	"time"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
)

// DefaultWindow is the rolling-window duration used unless overridden, per
// spec.md section 4.7 step 12.
const DefaultWindow = 120 * time.Second

// Estimate is a resolved integer ambiguity, in cycles of the reference
// carrier's wavelength.
type Estimate struct {
	ReferenceCarrier carrier.Carrier
	Cycles           float64
}

type sample struct {
	t                time.Time
	cycles           float64
	referenceCarrier carrier.Carrier
}

// Tracker is the owned, per-solver-session ambiguity component: Observe
// feeds it candidates as epochs are processed, Resolve yields the current
// per-SV integer estimate.
type Tracker struct {
	window  time.Duration
	history map[candidate.SV][]sample
}

// NewTracker returns a Tracker with the given rolling window.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window, history: make(map[candidate.SV][]sample)}
}

// Observe folds every PPP-compatible candidate's phase/code float
// ambiguity into the rolling window, evicting samples older than the
// window relative to t.
func (tr *Tracker) Observe(t time.Time, pool []candidate.Candidate) {
	for _, cd := range pool {
		if !cd.PPPCompatible() {
			continue
		}

		ph, err := cd.PhaseCombination()
		if err != nil {
			continue
		}
		pr, err := cd.PseudoRangeCombination()
		if err != nil {
			continue
		}

		wavelength := ph.ReferenceCarrier.Wavelength()
		if wavelength == 0 {
			continue
		}

		cycles := (ph.Value - pr.Value) / wavelength
		tr.history[cd.SV] = append(tr.history[cd.SV], sample{t: t, cycles: cycles, referenceCarrier: ph.ReferenceCarrier})
	}

	cutoff := t.Add(-tr.window)
	for sv, samples := range tr.history {
		kept := samples[:0]
		for _, s := range samples {
			if !s.t.Before(cutoff) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(tr.history, sv)
			continue
		}
		tr.history[sv] = kept
	}
}

// Resolve returns the current per-SV integer ambiguity estimate, averaged
// over the retained window and rounded to the nearest cycle.
func (tr *Tracker) Resolve(t time.Time) map[candidate.SV]Estimate {
	out := make(map[candidate.SV]Estimate, len(tr.history))
	for sv, samples := range tr.history {
		if len(samples) == 0 {
			continue
		}
		sum := 0.0
		for _, s := range samples {
			sum += s.cycles
		}
		mean := sum / float64(len(samples))

		out[sv] = Estimate{
			ReferenceCarrier: samples[len(samples)-1].referenceCarrier,
			Cycles:           roundToNearest(mean),
		}
	}
	return out
}

func roundToNearest(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
