package navigation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// enuRotation returns the ECEF->ENU rotation matrix at the given geodetic
// latitude/longitude, in radians.
func enuRotation(latRad, lonRad float64) *mat.Dense {
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinLon, cosLon := math.Sin(lonRad), math.Cos(lonRad)

	return mat.NewDense(3, 3, []float64{
		-sinLon, cosLon, 0,
		-sinLat * cosLon, -sinLat * sinLon, cosLat,
		cosLat * cosLon, cosLat * sinLon, sinLat,
	})
}

// HDOPVDOP rotates the position block of Q into the local ENU frame at
// (latDeg, lonDeg) and returns the horizontal and vertical DOPs, per
// spec.md section 4.5.
func HDOPVDOP(q *mat.Dense, latDeg, lonDeg float64) (hdop, vdop float64) {
	latRad := latDeg * math.Pi / 180
	lonRad := lonDeg * math.Pi / 180

	r := enuRotation(latRad, lonRad)

	q3 := mat.NewDense(3, 3, []float64{
		q.At(0, 0), q.At(0, 1), q.At(0, 2),
		q.At(1, 0), q.At(1, 1), q.At(1, 2),
		q.At(2, 0), q.At(2, 1), q.At(2, 2),
	})

	var rtq, qEnu mat.Dense
	rtq.Mul(r.T(), q3)
	qEnu.Mul(&rtq, r)

	hdop = math.Sqrt(qEnu.At(0, 0) + qEnu.At(1, 1))
	vdop = math.Sqrt(qEnu.At(2, 2))
	return
}
