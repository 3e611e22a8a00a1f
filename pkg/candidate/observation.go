package candidate

import (
	"time"

	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
)

// Observation is a single-carrier measurement sampled at one epoch.
//
// At least one of PseudoRangeM or PhaseRangeM must be set for the
// observation to be useful to the solver; SPP additionally requires
// PseudoRangeM.
type Observation struct {
	Carrier carrier.Carrier

	PseudoRangeM *float64
	PhaseRangeM  *float64
	DopplerHz    *float64
	SNRdBHz      *float64

	// Ambiguity is the resolved integer phase ambiguity (in cycles),
	// populated by the PPP ambiguity tracker; nil until resolved.
	Ambiguity *float64
}

// HasPseudoRange reports whether a code measurement was sampled.
func (o Observation) HasPseudoRange() bool {
	return o.PseudoRangeM != nil
}

// HasPhaseRange reports whether a carrier phase measurement was sampled.
func (o Observation) HasPhaseRange() bool {
	return o.PhaseRangeM != nil
}

// Useful reports the per-observation invariant of spec.md section 3: at
// least one of pseudorange/phase must be present.
func (o Observation) Useful() bool {
	return o.HasPseudoRange() || o.HasPhaseRange()
}

// ClockCorrection is the on-board SV clock correction, optionally flagged
// as needing the relativistic correction term applied on top.
type ClockCorrection struct {
	Duration                     time.Duration
	NeedsRelativisticCorrection bool
}
