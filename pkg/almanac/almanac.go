// Package almanac adapts raw ECEF state vectors to the topocentric and
// illumination quantities the solver pipeline needs: geodetic coordinates,
// azimuth/elevation/range and Earth-eclipse state.
//
// No example repo in the retrieval pack wires a geodesy/ephemeris library
// for this; the conversions below are hand-rolled against WGS84 constants
// and a low-precision solar ephemeris, the same way
// other_examples/anupshinde-goeph's coord package hand-rolls ECEF/geodetic
// conversion with the math stdlib.
package almanac

import (
	"math"
	"time"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
)

// WGS84 ellipsoid constants.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)

	sunRadiusM  = 696_000_000.0
	earthRadius = wgs84A
	astroUnitM  = 1.495978707e11
)

// Almanac is a stateless frame adapter: ECEF/geodetic conversion,
// topocentric azimuth/elevation/range and eclipse state.
type Almanac struct{}

// Geodetic converts an ECEF position to WGS84 geodetic coordinates, using
// Bowring's closed-form iteration.
func (Almanac) Geodetic(ecef candidate.Vector3) (latDeg, lonDeg, altM float64) {
	x, y, z := ecef.X, ecef.Y, ecef.Z
	p := math.Hypot(x, y)
	lon := math.Atan2(y, x)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		alt := p/math.Cos(lat) - n
		lat = math.Atan2(z, p*(1-wgs84E2*n/(n+alt)))
	}

	sinLat := math.Sin(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	alt := p/math.Cos(lat) - n

	return lat * 180 / math.Pi, lon * 180 / math.Pi, alt
}

// ECEF converts WGS84 geodetic coordinates to an ECEF position.
func (Almanac) ECEF(latDeg, lonDeg, altM float64) candidate.Vector3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return candidate.Vector3{
		X: (n + altM) * cosLat * math.Cos(lon),
		Y: (n + altM) * cosLat * math.Sin(lon),
		Z: (n*(1-wgs84E2) + altM) * sinLat,
	}
}

// AzimuthElevationRange resolves the satellite's topocentric attitude as
// seen from rxECEF, via the local SEZ (south-east-zenith) frame.
func (a Almanac) AzimuthElevationRange(rxECEF, svECEF candidate.Vector3) (candidate.Attitude, float64) {
	latDeg, lonDeg, _ := a.Geodetic(rxECEF)
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	d := svECEF.Sub(rxECEF)
	rangeM := d.Norm()
	if rangeM == 0 {
		return candidate.Attitude{}, 0
	}

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	south := sinLat*cosLon*d.X + sinLat*sinLon*d.Y - cosLat*d.Z
	east := -sinLon*d.X + cosLon*d.Y
	zenith := cosLat*cosLon*d.X + cosLat*sinLon*d.Y + sinLat*d.Z

	elevation := math.Asin(zenith / rangeM)
	azimuth := math.Atan2(east, -south)
	if azimuth < 0 {
		azimuth += 2 * math.Pi
	}

	return candidate.Attitude{
		ElevationDeg: elevation * 180 / math.Pi,
		AzimuthDeg:   azimuth * 180 / math.Pi,
	}, rangeM
}

// SunPosition returns a low-precision (few arcmin accuracy) Earth-centered
// ECEF position of the Sun at t, following the USNO/Meeus low-precision
// solar ephemeris rotated from ECI to ECEF by Greenwich mean sidereal time.
func (Almanac) SunPosition(t time.Time) candidate.Vector3 {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	d := t.UTC().Sub(j2000).Hours() / 24.0

	rad := math.Pi / 180

	g := (357.529 + 0.98560028*d) * rad
	q := 280.459 + 0.98564736*d
	l := (q + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * rad
	e := (23.439 - 0.00000036*d) * rad
	r := (1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)) * astroUnitM

	xEci := r * math.Cos(l)
	yEci := r * math.Cos(e) * math.Sin(l)
	zEci := r * math.Sin(e) * math.Sin(l)

	gmstDeg := math.Mod(280.46061837+360.98564736629*d, 360.0)
	gmst := gmstDeg * rad
	cosG, sinG := math.Cos(gmst), math.Sin(gmst)

	return candidate.Vector3{
		X: xEci*cosG + yEci*sinG,
		Y: -xEci*sinG + yEci*cosG,
		Z: zEci,
	}
}

// EclipseKind classifies how much of the Sun's disk a satellite can see,
// as occulted by the Earth.
type EclipseKind int

// Supported eclipse states.
const (
	// Visibilis: the satellite sees the full solar disk.
	Visibilis EclipseKind = iota
	// Penumbra: the satellite sees a partially occulted solar disk; the
	// EclipseState's Ratio carries the visible fraction.
	Penumbra
	// Umbra: the satellite sees none of the solar disk.
	Umbra
)

// EclipseState is the Sun-visibility state of a satellite at a given
// epoch, resolved against the Earth's shadow.
type EclipseState struct {
	Kind EclipseKind
	// Ratio is the fraction of the solar disk visible from the
	// satellite; meaningful only when Kind == Penumbra (Visibilis
	// implies 1.0, Umbra implies 0.0).
	Ratio float64
}

// EclipseState resolves satellite illumination using an angular-disk
// occultation model: compare the apparent angular radii of the Sun and
// the Earth as seen from the satellite against their angular separation.
func (Almanac) EclipseState(svECEF, sunECEF candidate.Vector3) EclipseState {
	toEarth := candidate.Vector3{X: -svECEF.X, Y: -svECEF.Y, Z: -svECEF.Z}
	toSun := sunECEF.Sub(svECEF)

	distEarth := toEarth.Norm()
	distSun := toSun.Norm()
	if distEarth == 0 || distSun == 0 {
		return EclipseState{Kind: Visibilis, Ratio: 1.0}
	}

	radEarth := math.Asin(clamp(earthRadius/distEarth, -1, 1))
	radSun := math.Asin(clamp(sunRadiusM/distSun, -1, 1))

	cosSep := (toEarth.X*toSun.X + toEarth.Y*toSun.Y + toEarth.Z*toSun.Z) / (distEarth * distSun)
	sep := math.Acos(clamp(cosSep, -1, 1))

	switch {
	case sep >= radEarth+radSun:
		return EclipseState{Kind: Visibilis, Ratio: 1.0}
	case sep <= math.Abs(radEarth-radSun):
		if radEarth >= radSun {
			return EclipseState{Kind: Umbra, Ratio: 0.0}
		}
		return EclipseState{Kind: Visibilis, Ratio: 1.0}
	default:
		ratio := sunlitFraction(sep, radSun, radEarth)
		return EclipseState{Kind: Penumbra, Ratio: ratio}
	}
}

// sunlitFraction computes the visible fraction of a disk of radius r1
// (Sun), partially occulted by a disk of radius r2 (Earth) whose center
// is separated by angle d, via the standard circle-circle overlap area.
func sunlitFraction(d, r1, r2 float64) float64 {
	part1 := r1 * r1 * math.Acos(clamp((d*d+r1*r1-r2*r2)/(2*d*r1), -1, 1))
	part2 := r2 * r2 * math.Acos(clamp((d*d+r2*r2-r1*r1)/(2*d*r2), -1, 1))
	triangle := 0.5 * math.Sqrt(math.Max(0, (-d+r1+r2)*(d+r1-r2)*(d-r1+r2)*(d+r1+r2)))

	occultedArea := part1 + part2 - triangle
	sunArea := math.Pi * r1 * r1
	if sunArea == 0 {
		return 1.0
	}

	return clamp(1.0-occultedArea/sunArea, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
