package keys

import (
	"regexp"
	"testing"
	"unicode"
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9:_=/.,\-]+$`)

func TestUpstream_Deterministic(t *testing.T) {
	k1 := Upstream("nws_forecast", 8, "882a100d2bfffff", "OKX/33,35")
	k2 := Upstream("nws_forecast", 8, "882a100d2bfffff", "OKX/33,35")
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !safeKey.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestUpstream_WhitespaceVariantsCollapse(t *testing.T) {
	k1 := Upstream(" sun_times ", 8, "c", "America/New_York   2026-10-14")
	k2 := Upstream("sun_times", 8, "c", "America/New_York 2026-10-14")
	if k1 != k2 {
		t.Fatalf("normalized keys differ:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestUpstream_DifferentInputsDiffer(t *testing.T) {
	base := Upstream("station", 8, "c1", "mac-1")
	for _, k := range []string{
		Upstream("station", 8, "c1", "mac-2"),
		Upstream("station", 8, "c2", "mac-1"),
		Upstream("station", 7, "c1", "mac-1"),
		Upstream("air_quality", 8, "c1", "mac-1"),
	} {
		if k == base {
			t.Fatalf("keys collide: %s", k)
		}
	}
}

func TestUpstream_UnicodeSafeAndHashSuffix(t *testing.T) {
	k := Upstream("uv_index", 8, "c", "Göteborg 雪")
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if !regexp.MustCompile(`:h=[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("missing hash suffix: %s", k)
	}
}

func TestUpstream_LongExtraTruncated(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	k := Upstream("s", 1, "c", string(long))
	if len(k) > 160 {
		t.Fatalf("key too long: %d", len(k))
	}
}

func TestCityAndTierKeys(t *testing.T) {
	if got := City(4930956); got != "city:4930956" {
		t.Fatalf("City=%s", got)
	}
	t1 := Tier("boston, m")
	if t1 != Tier("boston, m") || t1 == Tier("boston, ma") {
		t.Fatalf("tier keys not stable/distinct: %s", t1)
	}
	if !regexp.MustCompile(`^qtier:[0-9a-f]{16}$`).MatchString(t1) {
		t.Fatalf("Tier=%s", t1)
	}
	if got := Coordinates(40.7, -74.0059701); got != "40.700000,-74.005970" {
		t.Fatalf("Coordinates=%s", got)
	}
}
