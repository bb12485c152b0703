package search

import (
	"math/rand/v2"
	"testing"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

func synthCities(n int, seed uint64) []city.City {
	r := rand.New(rand.NewPCG(seed, seed+1))
	letters := []rune("abé")
	states := []string{"AA", "AB"}
	out := make([]city.City, 0, n)
	for i := 0; i < n; i++ {
		l := 1 + r.IntN(4)
		name := make([]rune, l)
		for j := range name {
			name[j] = letters[r.IntN(len(letters))]
		}
		out = append(out, city.City{
			Name:       string(name),
			StateCode:  states[r.IntN(len(states))],
			Latitude:   r.Float64()*180 - 90,
			Longitude:  r.Float64()*360 - 180,
			ID:         int64(i + 1),
			Population: int64(r.IntN(4) * 100),
		})
	}
	return out
}

func ids(cs []city.City) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func sameIDs(a, b []city.City) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func TestPrefixTop_MatchesScanWheneverItApplies(t *testing.T) {
	ix := NewIndex(synthCities(400, 7))
	applied := 0
	for _, key := range ix.keys {
		for _, q := range prefixes(key) {
			got, ok := ix.PrefixTop(q, ResultSize)
			if !ok {
				continue
			}
			applied++
			want := ix.Scan(q, ResultSize)
			if !sameIDs(got, want) {
				t.Fatalf("query %q: prefix=%v scan=%v", q, ids(got), ids(want))
			}
		}
	}
	if applied == 0 {
		t.Fatal("prefix tier never applied; fixture too sparse")
	}
}

func prefixes(s string) []string {
	var out []string
	for i := range s {
		if i > 0 {
			out = append(out, s[:i])
		}
	}
	return append(out, s)
}

func TestPrefixTop_TooFewMatches(t *testing.T) {
	ix := NewIndex([]city.City{
		{Name: "Boston", StateCode: "MA", ID: 1, Population: 10},
		{Name: "Boise", StateCode: "ID", ID: 2, Population: 20},
	})
	if _, ok := ix.PrefixTop("bo", ResultSize); ok {
		t.Fatal("two matches must not satisfy the prefix tier")
	}
	got, ok := ix.PrefixTop("bo", 2)
	if !ok || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("got=%v ok=%v", ids(got), ok)
	}
}

func TestTop_SortedByPopulation(t *testing.T) {
	ix := NewIndex(synthCities(50, 3))
	top := ix.Top(ResultSize)
	if len(top) != ResultSize {
		t.Fatalf("len=%d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i-1].Population < top[i].Population {
			t.Fatalf("not sorted: %+v", top)
		}
	}
	small := NewIndex(synthCities(3, 3))
	if len(small.Top(ResultSize)) != 3 {
		t.Fatal("small dataset should return all cities")
	}
}

func TestNewIndex_DedupesAndLooksUp(t *testing.T) {
	ix := NewIndex([]city.City{
		{Name: "Salem", StateCode: "OR", ID: 9, Population: 100},
		{Name: "Salem", StateCode: "OR", ID: 3, Population: 100},
		{Name: "Salem", StateCode: "MA", ID: 4, Population: 50},
	})
	if ix.Len() != 2 {
		t.Fatalf("Len=%d want 2", ix.Len())
	}
	if _, ok := ix.ByID(9); ok {
		t.Fatal("duplicate with higher id should be dropped")
	}
	if c, ok := ix.ByID(3); !ok || c.StateCode != "OR" {
		t.Fatalf("ByID(3)=%+v ok=%v", c, ok)
	}
}

func TestNewIndex_EqualPopulationOrderIsByID(t *testing.T) {
	ix := NewIndex([]city.City{
		{Name: "Clinton", StateCode: "IA", ID: 30, Population: 100},
		{Name: "Clinton", StateCode: "MS", ID: 10, Population: 100},
		{Name: "Clinton", StateCode: "NJ", ID: 20, Population: 100},
	})
	if got := ids(ix.Cities()); got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("dataset order=%v want [10 20 30]", got)
	}
	if got := ids(ix.Top(2)); got[0] != 10 || got[1] != 20 {
		t.Fatalf("Top=%v", got)
	}
}

func TestClosest_NearestAndTieBreak(t *testing.T) {
	ix := NewIndex([]city.City{
		{Name: "East", StateCode: "XX", Latitude: 0, Longitude: 1, ID: 20},
		{Name: "West", StateCode: "XX", Latitude: 0, Longitude: -1, ID: 10},
		{Name: "Far", StateCode: "XX", Latitude: 50, Longitude: 50, ID: 5},
	})
	c, d, ok := ix.Closest(0, 0)
	if !ok || c.ID != 10 {
		t.Fatalf("tie should go to lowest id, got %+v", c)
	}
	if d != 69.1 {
		t.Fatalf("distance=%v want 69.1", d)
	}

	c, d, ok = ix.Closest(50, 50)
	if !ok || c.ID != 5 || d != 0 {
		t.Fatalf("exact point: %+v d=%v", c, d)
	}

	if _, _, ok := NewIndex(nil).Closest(0, 0); ok {
		t.Fatal("empty dataset has no closest city")
	}
}

func TestAccentedCity_MatchesItsOwnName(t *testing.T) {
	ix := NewIndex([]city.City{
		{Name: "Española", StateCode: "NM", ID: 5468773, Population: 10000},
		{Name: "Espanola", StateCode: "FL", ID: 9, Population: 5},
		{Name: "Santa Fe", StateCode: "NM", ID: 5490263, Population: 84000},
	})
	q := FormatQuery("Española, NM")
	if q != "espanola, nm" {
		t.Fatalf("FormatQuery=%q", q)
	}
	if s := Score(q, ix.keys[ix.byID[5468773]]); s != 0 {
		t.Fatalf("score against own key=%v want 0", s)
	}
	got := ix.Scan(q, ResultSize)
	if len(got) == 0 || got[0].ID != 5468773 {
		t.Fatalf("scan=%v", ids(got))
	}
}
