package bias

import "math"

// Niell is a Niell-style troposphere mapping function model: a fixed
// zenith delay (hydrostatic + wet, standard atmosphere) projected onto the
// line of sight through a cosecant-like elevation mapping.
type Niell struct {
	// ZenithDelayM overrides the standard-atmosphere zenith delay
	// estimate (2.3 m) when non-zero; left zero to use the default.
	ZenithDelayM float64
}

// NeedsModeling always reports true: Niell evaluates a theoretical
// mapping function rather than reading a measurement.
func (Niell) NeedsModeling() bool { return true }

// Bias evaluates the Niell mapping function at the candidate's elevation.
func (n Niell) Bias(rtm RuntimeParam) (float64, bool) {
	zenith := n.ZenithDelayM
	if zenith == 0 {
		zenith = standardZenithDelay(rtm.AprioriAltM)
	}

	elevRad := clampElevation(rtm.ElevationDeg) * math.Pi / 180.0
	mapping := nielMappingFunction(elevRad)

	return zenith * mapping, true
}

// standardZenithDelay approximates the combined hydrostatic+wet zenith
// delay for a standard atmosphere, decaying with altitude.
func standardZenithDelay(altitudeM float64) float64 {
	const seaLevelZenithM = 2.30
	const scaleHeightM = 7000.0
	return seaLevelZenithM * math.Exp(-altitudeM/scaleHeightM)
}

// nielMappingFunction is the classic continued-fraction mapping function
// form (Niell, 1996), evaluated with representative mid-latitude
// coefficients since the full coefficient tables are latitude/DOY
// dependent and out of this package's scope.
func nielMappingFunction(elevRad float64) float64 {
	const a, b, c = 0.0012769934, 0.0029153695, 0.0620322172
	sinE := math.Sin(elevRad)

	return (1.0 + a/(1.0+b/(1.0+c))) / (sinE + a/(sinE+b/(sinE+c)))
}
