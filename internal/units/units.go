// Package units converts upstream measurements into display units.
package units

import "math"

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func KphToMph(kph float64) float64 { return kph / 1.609344 }

func MphToKph(mph float64) float64 { return mph * 1.609344 }

func MpsToMph(mps float64) float64 { return mps * 2.2369362920544 }

func MetersToMiles(m float64) float64 { return m / 1609.344 }

func PascalToInHg(pa float64) float64 { return pa / 3386.389 }

func HpaToInHg(hpa float64) float64 { return PascalToInHg(hpa * 100) }

func MillimetersToInches(mm float64) float64 { return mm / 25.4 }

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Convert applies fn to an optional value and rounds the result. Upstream
// fields are frequently null, which stays nil.
func Convert(v *float64, fn func(float64) float64, places int) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	if fn != nil {
		out = fn(out)
	}
	out = Round(out, places)
	return &out
}

// Compass maps a bearing in degrees to a 16-point compass direction.
func Compass(deg float64) string {
	dirs := [...]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return dirs[int(math.Round(d/22.5))%16]
}
