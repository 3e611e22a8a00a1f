package bias

import "math"

// KlobucharParameters are the eight broadcast coefficients (alpha0..3,
// beta0..3) GPS/QZSS distribute in the navigation message.
type KlobucharParameters struct {
	Alpha [4]float64
	Beta  [4]float64
}

// Klobuchar evaluates the single-frequency ionospheric delay model
// broadcast by GPS/QZSS.
type Klobuchar struct {
	Parameters KlobucharParameters
}

// NeedsModeling always reports true.
func (Klobuchar) NeedsModeling() bool { return true }

// Bias evaluates the Klobuchar model at L1; the result is scaled to the
// candidate's frequency by the standard f^-2 ionospheric dependency.
func (k Klobuchar) Bias(rtm RuntimeParam) (float64, bool) {
	if rtm.FrequencyHz <= 0 {
		return 0, false
	}

	elevSemi := rtm.ElevationDeg / 180.0
	azimRad := rtm.AzimuthDeg * math.Pi / 180.0
	latSemi := rtm.AprioriLatDeg / 180.0
	lonSemi := rtm.AprioriLonDeg / 180.0

	psi := 0.0137/(elevSemi+0.11) - 0.022

	phiI := latSemi + psi*math.Cos(azimRad)
	phiI = clampSemi(phiI)

	lambdaI := lonSemi + psi*math.Sin(azimRad)/math.Cos(phiI*math.Pi)

	phiM := phiI + 0.064*math.Cos((lambdaI-1.617)*math.Pi)

	utc := rtm.T.UTC()
	secondsOfDay := float64(utc.Hour()*3600 + utc.Minute()*60 + utc.Second())
	tLocal := math.Mod(43200.0*lambdaI+secondsOfDay, 86400.0)
	if tLocal < 0 {
		tLocal += 86400.0
	}

	amplitude := poly4(k.Parameters.Alpha, phiM)
	if amplitude < 0 {
		amplitude = 0
	}
	period := poly4(k.Parameters.Beta, phiM)
	if period < 72000 {
		period = 72000
	}

	xPhase := 2 * math.Pi * (tLocal - 50400) / period

	obliquity := 1.0 + 16.0*math.Pow(0.53-elevSemi, 3)

	var delaySec float64
	if math.Abs(xPhase) < 1.57 {
		delaySec = obliquity * (5e-9 + amplitude*(1-xPhase*xPhase/2+xPhase*xPhase*xPhase*xPhase/24))
	} else {
		delaySec = obliquity * 5e-9
	}

	delayL1M := delaySec * 299792458.0

	l1Freq := 1575.42e6
	scaled := delayL1M * (l1Freq * l1Freq) / (rtm.FrequencyHz * rtm.FrequencyHz)

	return scaled, true
}

func poly4(coeffs [4]float64, x float64) float64 {
	return coeffs[0] + coeffs[1]*x + coeffs[2]*x*x + coeffs[3]*x*x*x
}

func clampSemi(v float64) float64 {
	if v > 0.416 {
		return 0.416
	}
	if v < -0.416 {
		return -0.416
	}
	return v
}

// BDGIM is the BeiDou Global Ionospheric delay correction Model, a
// spherical-harmonic expansion broadcast in the BDS-3 navigation message.
// All nine coefficients are evaluated, as a truncated expansion up to the
// second harmonic in latitude and longitude; no higher-order terms exist
// in this form, which is sufficient for single-frequency SPP-grade
// correction.
type BDGIM struct {
	// Coefficients holds the broadcast spherical-harmonic coefficients,
	// indexed degree-major (up to 9 terms broadcast by BDS-3).
	Coefficients [9]float64
}

// NeedsModeling always reports true.
func (BDGIM) NeedsModeling() bool { return true }

// Bias evaluates a truncated spherical-harmonic expansion at the
// receiver's apriori geodetic latitude/longitude.
func (b BDGIM) Bias(rtm RuntimeParam) (float64, bool) {
	if rtm.FrequencyHz <= 0 {
		return 0, false
	}

	latRad := rtm.AprioriLatDeg * math.Pi / 180.0
	lonRad := rtm.AprioriLonDeg * math.Pi / 180.0

	tecu := b.Coefficients[0] +
		b.Coefficients[1]*math.Cos(latRad) +
		b.Coefficients[2]*math.Sin(latRad) +
		b.Coefficients[3]*math.Cos(lonRad) +
		b.Coefficients[4]*math.Sin(lonRad) +
		b.Coefficients[5]*math.Cos(2*latRad) +
		b.Coefficients[6]*math.Sin(2*latRad) +
		b.Coefficients[7]*math.Cos(2*lonRad) +
		b.Coefficients[8]*math.Sin(2*lonRad)

	if tecu < 0 {
		tecu = 0
	}

	const k = 40.3 // m^3/s^2, ionospheric refraction constant
	slant := tecu * 1e16 * k / (rtm.FrequencyHz * rtm.FrequencyHz)

	obliquity := obliquityFactor(rtm.ElevationDeg)
	return slant * obliquity, true
}

// NeQuickG is the Galileo broadcast ionospheric correction model, driven
// by the three Az broadcast coefficients (effective ionization level
// parameters).
type NeQuickG struct {
	Az [3]float64
}

// NeedsModeling always reports true.
func (NeQuickG) NeedsModeling() bool { return true }

// Bias evaluates a simplified single-layer NeQuick-G correction: an
// effective ionization level driven vertical TEC, slant-scaled by
// obliquity.
func (n NeQuickG) Bias(rtm RuntimeParam) (float64, bool) {
	if rtm.FrequencyHz <= 0 {
		return 0, false
	}

	latRad := rtm.AprioriLatDeg * math.Pi / 180.0
	az := n.Az[0] + n.Az[1]*modip(latRad) + n.Az[2]*modip(latRad)*modip(latRad)
	if az < 0 {
		az = 0
	}

	const baseTECU = 0.03
	tecu := baseTECU * az

	const k = 40.3
	slant := tecu * 1e16 * k / (rtm.FrequencyHz * rtm.FrequencyHz)

	return slant * obliquityFactor(rtm.ElevationDeg), true
}

func modip(latRad float64) float64 {
	return math.Sin(latRad)
}

func obliquityFactor(elevationDeg float64) float64 {
	const earthRadiusKm = 6378.137
	const ionoHeightKm = 350.0
	elevRad := clampElevation(elevationDeg) * math.Pi / 180.0
	return 1.0 / math.Cos(math.Asin(earthRadiusKm/(earthRadiusKm+ionoHeightKm)*math.Cos(elevRad)))
}
