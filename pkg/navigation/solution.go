package navigation

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
)

// PVTSolution is one validated epoch fix, per spec.md section 3.
type PVTSolution struct {
	T time.Time

	// Position and Velocity are zero iff SolutionType == TimeOnly.
	Position candidate.Vector3
	Velocity candidate.Vector3

	// Dt is the receiver clock offset to TimeScale; DDt its drift in s/s.
	Dt        time.Duration
	DDt       float64
	TimeScale config.TimeScale

	Contributions map[candidate.SV]SVInput

	// Q is the 4x4 position/clock covariance (x, y, z, c*dt).
	Q *mat.Dense

	GDOP, PDOP, TDOP float64

	// Ambiguities is a snapshot of the PPP ambiguity tracker's current
	// integer estimates, keyed by SV; empty outside PPP.
	Ambiguities map[candidate.SV]float64
}

// VDOP returns the vertical dilution of precision at the given geodetic
// latitude/longitude, rotating Q's position block into the local ENU
// frame.
func (s PVTSolution) VDOP(latDeg, lonDeg float64) float64 {
	_, vdop := HDOPVDOP(s.Q, latDeg, lonDeg)
	return vdop
}

// HDOP returns the horizontal dilution of precision at the given geodetic
// latitude/longitude.
func (s PVTSolution) HDOP(latDeg, lonDeg float64) float64 {
	hdop, _ := HDOPVDOP(s.Q, latDeg, lonDeg)
	return hdop
}
