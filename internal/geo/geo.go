// Package geo holds the great-circle and coordinate helpers shared by the
// city search and the upstream cache keys.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMiles is the mean earth radius used by DistanceMiles.
const EarthRadiusMiles = 3959.0

// Valid reports whether lat/lon are finite and inside [-90,90] x [-180,180].
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lon).IsValid()
}

// DistanceMiles is the spherical law of cosines distance between two points.
// Identical points give exactly 0; the acos argument is clamped to [-1,1].
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	p1 := rad(lat1)
	p2 := rad(lat2)
	dl := rad(lon2 - lon1)
	x := math.Cos(p1)*math.Cos(p2)*math.Cos(dl) + math.Sin(p1)*math.Sin(p2)
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return EarthRadiusMiles * math.Acos(x)
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
