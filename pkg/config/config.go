// Package config carries the solver's immutable, per-session
// configuration: the navigation method, filter, thresholds and modeling
// flags consumed throughout the pipeline.
//
// Config is validated declaratively with
// github.com/go-playground/validator/v10 struct tags, the same way the
// teacher repository validates its Site metadata.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Method selects the positioning technique.
type Method int

// Supported methods.
const (
	// SPP is Single-Frequency Point Positioning (pseudorange only).
	SPP Method = iota
	// CPP is Code-Combined (dual-frequency, ionosphere-free pseudorange).
	CPP
	// PPP is Precise Point Positioning (carrier-phase assisted).
	PPP
)

func (m Method) String() string {
	switch m {
	case SPP:
		return "SPP"
	case CPP:
		return "CPP"
	case PPP:
		return "PPP"
	default:
		return ""
	}
}

// Filter selects the navigation filter used to resolve (y, G, W) into a
// state estimate.
type Filter int

// Supported filters.
const (
	FilterNone Filter = iota
	FilterLSQ
	FilterKalman
)

func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "None"
	case FilterLSQ:
		return "LSQ"
	case FilterKalman:
		return "Kalman"
	default:
		return ""
	}
}

// SolutionType selects whether the solver publishes a full PVT fix or only
// resolves the receiver clock offset.
type SolutionType int

// Supported solution types.
const (
	PositionVelocityTime SolutionType = iota
	TimeOnly
)

func (s SolutionType) String() string {
	switch s {
	case PositionVelocityTime:
		return "PositionVelocityTime"
	case TimeOnly:
		return "TimeOnly"
	default:
		return ""
	}
}

// TimeScale identifies the reference time system solutions are resolved
// against.
type TimeScale int

// Supported time scales.
const (
	GPST TimeScale = iota
	GST
	BDT
	UTC
)

// Modeling toggles the physical corrections applied throughout the
// pipeline.
type Modeling struct {
	SVClockBias            bool
	SVTotalGroupDelay      bool
	SVAPC                  bool
	RelativisticClockBias  bool
	RelativisticPathRange  bool
	TropoDelay             bool
	IonoDelay              bool
	EarthRotation          bool
	CodeSmoothing          bool
}

// DefaultModeling returns the teacher's default set of modeling flags: all
// on except SVAPC and RelativisticPathRange, which need APC/ARP metadata
// the solver does not assume by default, and CodeSmoothing, which is off.
func DefaultModeling() Modeling {
	return Modeling{
		SVClockBias:           true,
		SVTotalGroupDelay:     true,
		SVAPC:                 false,
		RelativisticClockBias: true,
		RelativisticPathRange: false,
		TropoDelay:            true,
		IonoDelay:             true,
		EarthRotation:         true,
		CodeSmoothing:         false,
	}
}

// ElevationMappingFunction is an elevation-dependent pseudorange weighting
// scheme: sigma(elevation) = a + b*e^(-elevation/c), wi = 1/sigma^2.
type ElevationMappingFunction struct {
	A, B, C float64
}

// WeightMatrixKind selects how the navigation filter's diagonal weight
// matrix is built.
type WeightMatrixKind int

// Supported weight matrix strategies.
const (
	// WeightIdentity uses an identity weight matrix (every SV weighted
	// equally).
	WeightIdentity WeightMatrixKind = iota
	// WeightMappingFunction derives per-SV weights from an
	// ElevationMappingFunction.
	WeightMappingFunction
)

// WeightMatrix configures the LSQ/Kalman weight matrix.
type WeightMatrix struct {
	Kind    WeightMatrixKind
	Mapping ElevationMappingFunction
}

// InternalDelay is a frequency-dependent hardware delay (cable, APC offset,
// receiver inner delay), per spec.md section 3.
type InternalDelay struct {
	DelaySeconds float64
	FrequencyHz  float64
}

// Thresholds gates candidate admission and solution validation.
type Thresholds struct {
	MinSNRdBHz          *float64
	MinSVElevationDeg    *float64
	MinSVAzimuthDeg      *float64
	MaxSVAzimuthDeg      *float64
	MinSVSunlightRate    *float64
	GDOPThreshold        *float64
	TDOPThreshold        *float64
	MaxIonoBiasM         *float64
	MaxTropoBiasM        *float64
	InnovationThreshold  *float64
}

// Config is the solver's immutable, per-session configuration.
type Config struct {
	Method       Method
	Filter       Filter
	SolutionType SolutionType `validate:"oneof=0 1"`
	TimeScale    TimeScale

	InterpolationOrder int `validate:"min=1"`
	MaxSV              int `validate:"min=1"`

	Thresholds Thresholds
	Modeling   Modeling
	Weight     WeightMatrix

	FixedAltitudeM  *float64
	ARPEnuM         *[3]float64
	InternalDelays  []InternalDelay
	ExternalRefDelaySeconds *float64
}

// Validate runs struct-level validation; it surfaces any field violating
// its `validate` tag, mirroring how the teacher validates site metadata
// before accepting it.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	if c.MaxSV < 4 && c.SolutionType == PositionVelocityTime && c.FixedAltitudeM == nil {
		return fmt.Errorf("config: max_sv=%d is below the 4-SV minimum required for a PVT fix", c.MaxSV)
	}
	return nil
}

func f64(v float64) *float64 { return &v }

// StaticPreset returns the teacher's canonical configuration for a static
// receiver survey, per spec.md section 6.
func StaticPreset(method Method) Config {
	base := Config{
		Method:             method,
		Filter:             FilterLSQ,
		SolutionType:       PositionVelocityTime,
		TimeScale:          GPST,
		InterpolationOrder: 11,
		MaxSV:              10,
		Modeling:           DefaultModeling(),
		Thresholds: Thresholds{
			MinSNRdBHz:       f64(30.0),
			MinSVElevationDeg: f64(15.0),
			GDOPThreshold:    f64(30.0),
		},
	}

	switch method {
	case PPP:
		base.Thresholds.MinSVSunlightRate = f64(0.75)
		base.InterpolationOrder = 11
	case CPP:
		// Ionosphere-free combination tolerates lower elevations than
		// raw single-frequency SPP.
		base.Thresholds.MinSVElevationDeg = f64(10.0)
	}

	return base
}
