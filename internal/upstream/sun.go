package upstream

import (
	"math"
	"time"
)

// SunTimes is computed locally from the sunrise equation; no upstream is called.
type SunTimes struct {
	Date       string    `json:"date"`
	Sunrise    time.Time `json:"sunrise,omitzero"`
	Sunset     time.Time `json:"sunset,omitzero"`
	SolarNoon  time.Time `json:"solarNoon"`
	DayLength  string    `json:"dayLength"`
	PolarDay   bool      `json:"polarDay,omitempty"`
	PolarNight bool      `json:"polarNight,omitempty"`
}

const (
	jd2000    = 2451545.0
	unixEpoch = 2440587.5
	obliquity = 23.4397
)

// ComputeSunTimes returns sunrise and sunset for the local date of now in loc.
// Longitude is east positive.
func ComputeSunTimes(lat, lon float64, now time.Time, loc *time.Location) SunTimes {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	noonUTC := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)

	jstar := julian(noonUTC) - jd2000 - lon/360 + 0.0008
	m := math.Mod(357.5291+0.98560028*jstar, 360)
	mr := rad(m)
	c := 1.9148*math.Sin(mr) + 0.02*math.Sin(2*mr) + 0.0003*math.Sin(3*mr)
	lambda := math.Mod(m+c+180+102.9372, 360)
	lr := rad(lambda)
	transit := jd2000 + jstar + 0.0053*math.Sin(mr) - 0.0069*math.Sin(2*lr)

	sinDecl := math.Sin(lr) * math.Sin(rad(obliquity))
	cosDecl := math.Cos(math.Asin(sinDecl))
	phi := rad(lat)
	cosOmega := (math.Sin(rad(-0.833)) - math.Sin(phi)*sinDecl) / (math.Cos(phi) * cosDecl)

	out := SunTimes{
		Date:      local.Format(time.DateOnly),
		SolarNoon: fromJulian(transit).In(loc),
	}
	switch {
	case cosOmega > 1:
		out.PolarNight = true
		out.DayLength = "0h0m"
		return out
	case cosOmega < -1:
		out.PolarDay = true
		out.DayLength = "24h0m"
		return out
	}

	omega := math.Acos(cosOmega) * 180 / math.Pi
	out.Sunrise = fromJulian(transit - omega/360).In(loc)
	out.Sunset = fromJulian(transit + omega/360).In(loc)
	out.DayLength = out.Sunset.Sub(out.Sunrise).Truncate(time.Minute).String()
	if len(out.DayLength) > 2 && out.DayLength[len(out.DayLength)-2:] == "0s" {
		out.DayLength = out.DayLength[:len(out.DayLength)-2]
	}
	return out
}

func julian(t time.Time) float64 {
	return float64(t.Unix())/86400 + unixEpoch
}

func fromJulian(jd float64) time.Time {
	secs := (jd - unixEpoch) * 86400
	return time.Unix(int64(math.Round(secs)), 0).UTC()
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
