package citydata

import (
	"compress/gzip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
)

const sample = `[
 {"cityName":"New York City","stateCode":"NY","latitude":"40.71427","longitude":"-74.00597","timeZone":"America/New_York","geonameid":5128581,"population":8804190},
 {"cityName":"Nowhere","stateCode":"XX","latitude":95,"longitude":0,"geonameid":2},
 {"cityName":"Broken","stateCode":"XX","latitude":"abc","longitude":0,"geonameid":3},
 {"cityName":"Boston","stateCode":"MA","latitude":42.35843,"longitude":-71.05977,"timeZone":"America/New_York","geonameid":4930956,"population":617594}
]`

func TestDecodeCities_SkipsInvalid(t *testing.T) {
	cs, rejected, err := DecodeCities(strings.NewReader(sample), logger.Discard())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cs) != 2 || rejected != 2 {
		t.Fatalf("len=%d rejected=%d want 2,2", len(cs), rejected)
	}
	if cs[0].ID != 5128581 || cs[1].ID != 4930956 {
		t.Fatalf("unexpected ids %d,%d", cs[0].ID, cs[1].ID)
	}
}

func TestDecodeCities_NotAnArray(t *testing.T) {
	if _, _, err := DecodeCities(strings.NewReader(`{"a":1}`), logger.Discard()); err == nil {
		t.Fatal("want error")
	}
}

func TestLoadCities_PlainAndGzipFallback(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "cities.json")
	if err := os.WriteFile(plain, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cs, _, err := LoadCities(plain, logger.Discard())
	if err != nil || len(cs) != 2 {
		t.Fatalf("plain: len=%d err=%v", len(cs), err)
	}

	gzPath := filepath.Join(dir, "other.json.gz")
	f, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(sample)); err != nil {
		t.Fatal(err)
	}
	_ = zw.Close()
	_ = f.Close()

	// asking for the uncompressed name finds the .gz sibling
	cs, _, err = LoadCities(filepath.Join(dir, "other.json"), logger.Discard())
	if err != nil || len(cs) != 2 {
		t.Fatalf("gz: len=%d err=%v", len(cs), err)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err=%v want ErrNotExist", err)
	}
}

func TestWriteJSONAtomic_AndLoadTier(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, TierFileName(500))
	in := Tier{"bos": {4930956, 1, 2, 3, 4}, "n": {5128581}}
	if err := WriteJSONAtomic(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadTier(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got["bos"][0] != 4930956 || len(got["n"]) != 1 {
		t.Fatalf("tier=%v", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteJSONAtomic_Cities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.json")
	in := []city.City{{Name: "Boston", StateCode: "MA", Latitude: 42.3, Longitude: -71, ID: 4930956, Population: 1}}
	if err := WriteJSONAtomic(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, rejected, err := LoadCities(path, logger.Discard())
	if err != nil || rejected != 0 || len(out) != 1 || out[0] != in[0] {
		t.Fatalf("out=%+v rejected=%d err=%v", out, rejected, err)
	}
}

func TestTierNames(t *testing.T) {
	if TierFileName(30542) != "query-cache-top30542.json" {
		t.Fatalf("name=%s", TierFileName(30542))
	}
	cases := map[string]int{
		"query-cache-top500.json":       500,
		"/x/query-cache-top5000.json":   5000,
		"query-cache-top30542.json.bz2": 30542,
	}
	for name, want := range cases {
		if n, ok := TierSize(name); !ok || n != want {
			t.Fatalf("TierSize(%q)=%d,%v want %d", name, n, ok, want)
		}
	}
	for _, bad := range []string{"cities.json", "query-cache-top.json", "query-cache-top0.json"} {
		if _, ok := TierSize(bad); ok {
			t.Fatalf("TierSize(%q) should fail", bad)
		}
	}

	dir := t.TempDir()
	for _, n := range []int{500, 30542, 5000} {
		_ = os.WriteFile(filepath.Join(dir, TierFileName(n)), []byte("{}"), 0o644)
	}
	p, n, err := HighestTier(dir)
	if err != nil || n != 30542 || filepath.Base(p) != TierFileName(30542) {
		t.Fatalf("HighestTier=%s,%d,%v", p, n, err)
	}
}
