package upstream

import (
	"testing"
	"time"

	_ "time/tzdata"
)

func near(t *testing.T, what string, got, want time.Time, tol time.Duration) {
	t.Helper()
	d := got.Sub(want)
	if d < 0 {
		d = -d
	}
	if d > tol {
		t.Fatalf("%s: got=%v want=%v (±%v)", what, got, want, tol)
	}
}

func TestComputeSunTimes_NewYorkSummer(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	now := time.Date(2024, 6, 20, 9, 0, 0, 0, ny)
	st := ComputeSunTimes(40.7128, -74.0060, now, ny)

	if st.Date != "2024-06-20" {
		t.Fatalf("date=%q", st.Date)
	}
	near(t, "sunrise", st.Sunrise, time.Date(2024, 6, 20, 5, 25, 0, 0, ny), 3*time.Minute)
	near(t, "sunset", st.Sunset, time.Date(2024, 6, 20, 20, 31, 0, 0, ny), 3*time.Minute)
	if st.Sunrise.Location() != ny {
		t.Fatalf("sunrise not in city zone: %v", st.Sunrise.Location())
	}
	if st.PolarDay || st.PolarNight {
		t.Fatalf("unexpected polar flags: %+v", st)
	}
}

func TestComputeSunTimes_EquatorEquinox(t *testing.T) {
	st := ComputeSunTimes(0, 0, time.Date(2024, 3, 20, 6, 0, 0, 0, time.UTC), time.UTC)
	length := st.Sunset.Sub(st.Sunrise)
	if length < 11*time.Hour+55*time.Minute || length > 12*time.Hour+20*time.Minute {
		t.Fatalf("day length=%v", length)
	}
	near(t, "solar noon", st.SolarNoon, time.Date(2024, 3, 20, 12, 7, 0, 0, time.UTC), 3*time.Minute)
}

func TestComputeSunTimes_Polar(t *testing.T) {
	summer := ComputeSunTimes(78.2, 15.6, time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), time.UTC)
	if !summer.PolarDay || !summer.Sunrise.IsZero() || summer.DayLength != "24h0m" {
		t.Fatalf("summer=%+v", summer)
	}
	winter := ComputeSunTimes(78.2, 15.6, time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC), time.UTC)
	if !winter.PolarNight || winter.DayLength != "0h0m" {
		t.Fatalf("winter=%+v", winter)
	}
}
