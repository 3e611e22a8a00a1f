// Package validate gates a resolved navigation solution on
// dilution-of-precision thresholds and post-fit residuals before it is
// allowed to reach the caller or update the solver's carried state.
package validate

import (
	"fmt"
	"math"

	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
	"github.com/nav-solutions/gnss-rtk-go/pkg/navigation"
)

// InvalidationCause classifies why a solution was rejected.
type InvalidationCause int

// Supported causes, per spec.md section 4.6 and 4.7.
const (
	// FirstSolution marks the very first successful internal fix, always
	// suppressed from the caller to hide the bootstrap transient.
	FirstSolution InvalidationCause = iota
	GDOPOutlier
	TDOPOutlier
	InnovationOutlier
	CodeResidual
)

func (c InvalidationCause) String() string {
	switch c {
	case FirstSolution:
		return "FirstSolution"
	case GDOPOutlier:
		return "GDOPOutlier"
	case TDOPOutlier:
		return "TDOPOutlier"
	case InnovationOutlier:
		return "InnovationOutlier"
	case CodeResidual:
		return "CodeResidual"
	default:
		return "Unknown"
	}
}

// InvalidatedSolutionError reports a rejected solution and the value that
// triggered the rejection.
type InvalidatedSolutionError struct {
	Cause InvalidationCause
	Value float64
}

func (e *InvalidatedSolutionError) Error() string {
	return fmt.Sprintf("invalidated solution: %s (%.3f)", e.Cause, e.Value)
}

// Validator gates a navigation Output against configured thresholds.
type Validator struct {
	thresholds config.Thresholds
}

// New returns a Validator bound to the given thresholds.
func New(thresholds config.Thresholds) Validator {
	return Validator{thresholds: thresholds}
}

// Validate checks out against the configured GDOP/TDOP/residual
// thresholds, per spec.md section 4.6. Geometry thresholds (GDOP/TDOP)
// are skipped when solType is TimeOnly.
func (v Validator) Validate(input navigation.Input, out navigation.Output, solType config.SolutionType) error {
	if solType != config.TimeOnly {
		if v.thresholds.GDOPThreshold != nil && out.GDOP > *v.thresholds.GDOPThreshold {
			return &InvalidatedSolutionError{Cause: GDOPOutlier, Value: out.GDOP}
		}
		if v.thresholds.TDOPThreshold != nil && out.TDOP > *v.thresholds.TDOPThreshold {
			return &InvalidatedSolutionError{Cause: TDOPOutlier, Value: out.TDOP}
		}
	}

	if v.thresholds.InnovationThreshold == nil {
		return nil
	}

	residuals := postFitResiduals(input, out)

	if out.State.KF != nil {
		norm := 0.0
		for _, r := range residuals {
			norm += r * r
		}
		norm = math.Sqrt(norm)
		if norm > *v.thresholds.InnovationThreshold {
			return &InvalidatedSolutionError{Cause: InnovationOutlier, Value: norm}
		}
		return nil
	}

	for _, r := range residuals {
		if math.Abs(r) > *v.thresholds.InnovationThreshold {
			return &InvalidatedSolutionError{Cause: CodeResidual, Value: r}
		}
	}

	return nil
}

// postFitResiduals computes rᵢ = (yᵢ − (G·x̂)ᵢ) / wᵢᵢ for every retained
// row: y already carries the pseudorange/combination minus the modeled
// corrections, so the row's predicted value is simply G·x̂.
func postFitResiduals(input navigation.Input, out navigation.Output) []float64 {
	n, _ := input.G.Dims()
	x := out.State.Estimate()

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		var predicted float64
		_, cols := input.G.Dims()
		for j := 0; j < cols; j++ {
			predicted += input.G.At(i, j) * x.AtVec(j)
		}

		wi := input.W.At(i, i)
		if wi == 0 {
			wi = 1
		}
		residuals[i] = (input.Y.AtVec(i) - predicted) / wi
	}

	return residuals
}
