package upstream

import (
	"time"
)

// nextUpdate returns the first time after now on the schedule last, last+interval, ...
// A zero last or a non-positive interval yields now.
func nextUpdate(last time.Time, interval time.Duration, now time.Time) time.Time {
	if last.IsZero() || interval <= 0 {
		return now
	}
	if now.Before(last) {
		return last.Add(interval)
	}
	k := now.Sub(last)/interval + 1
	return last.Add(k * interval)
}

// nextMidnight returns the first local midnight in loc strictly after t.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()+1, 0, 0, 0, 0, loc)
}

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

const (
	pointsTTL = 30 * 24 * time.Hour

	forecastInterval = time.Hour
	forecastMargin   = 5 * time.Minute

	observationInterval = time.Hour
	observationMargin   = 10 * time.Minute

	alertsInterval = 5 * time.Minute
	alertsMargin   = time.Minute

	stationInterval = 5 * time.Minute
	stationMargin   = time.Minute

	airQualityInterval = time.Hour
	airQualityMargin   = 15 * time.Minute

	uvMargin = 30 * time.Minute
)
