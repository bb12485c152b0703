package search

import (
	"math"
	"sort"
	"strings"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/geo"
	"github.com/mohammed-shakir/weather-dashboard/internal/units"
)

// Index is the immutable in-memory dataset with a sorted prefix index over
// the lower-cased "name, st" keys. Safe for concurrent readers.
type Index struct {
	cities []city.City
	keys   []string
	byID   map[int64]int
	sorted []int // dataset positions ordered by key
}

// NewIndex dedupes cities (see city.Dedupe) and indexes the result. The
// deduplicated order (population desc, geonameid asc) is the dataset order,
// whatever order the input file had.
func NewIndex(cities []city.City) *Index {
	cs := city.Dedupe(cities)
	ix := &Index{
		cities: cs,
		keys:   make([]string, len(cs)),
		byID:   make(map[int64]int, len(cs)),
		sorted: make([]int, len(cs)),
	}
	for i, c := range cs {
		ix.keys[i] = c.SearchKey()
		ix.byID[c.ID] = i
		ix.sorted[i] = i
	}
	sort.SliceStable(ix.sorted, func(a, b int) bool {
		return ix.keys[ix.sorted[a]] < ix.keys[ix.sorted[b]]
	})
	return ix
}

func (ix *Index) Len() int { return len(ix.cities) }

// Cities returns the dataset in dataset order. Callers must not modify it.
func (ix *Index) Cities() []city.City { return ix.cities }

func (ix *Index) ByID(id int64) (city.City, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return city.City{}, false
	}
	return ix.cities[i], true
}

// Top returns the n most populous cities, dataset order on ties.
func (ix *Index) Top(n int) []city.City {
	pos := make([]int, len(ix.cities))
	for i := range pos {
		pos[i] = i
	}
	return ix.byPopulation(pos, n)
}

// PrefixTop returns the n most populous cities whose key starts with q. ok is
// false when fewer than n cities match; the caller then has to scan.
func (ix *Index) PrefixTop(q string, n int) ([]city.City, bool) {
	lo := sort.Search(len(ix.sorted), func(i int) bool { return ix.keys[ix.sorted[i]] >= q })
	hi := lo
	for hi < len(ix.sorted) && strings.HasPrefix(ix.keys[ix.sorted[hi]], q) {
		hi++
	}
	if hi-lo < n {
		return nil, false
	}
	pos := make([]int, hi-lo)
	copy(pos, ix.sorted[lo:hi])
	return ix.byPopulation(pos, n), true
}

func (ix *Index) byPopulation(pos []int, n int) []city.City {
	sort.Slice(pos, func(a, b int) bool {
		ca, cb := ix.cities[pos[a]], ix.cities[pos[b]]
		if ca.Population != cb.Population {
			return ca.Population > cb.Population
		}
		return pos[a] < pos[b]
	})
	if len(pos) > n {
		pos = pos[:n]
	}
	out := make([]city.City, len(pos))
	for i, p := range pos {
		out[i] = ix.cities[p]
	}
	return out
}

// Scan is the live fuzzy search over every city.
func (ix *Index) Scan(q string, n int) []city.City {
	scored := make([]ScoredCity, len(ix.cities))
	for i := range ix.cities {
		scored[i] = ScoredCity{City: ix.cities[i], Score: Score(q, ix.keys[i])}
	}
	SortByScore(scored)
	return TopGrouped(scored, n)
}

// Closest finds the nearest city by great-circle distance. Equal distances go
// to the lowest geonameid. The distance is rounded to 2 decimals.
func (ix *Index) Closest(lat, lon float64) (city.City, float64, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range ix.cities {
		d := geo.DistanceMiles(lat, lon, c.Latitude, c.Longitude)
		if d < bestDist || (d == bestDist && best >= 0 && c.ID < ix.cities[best].ID) {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return city.City{}, 0, false
	}
	return ix.cities[best], units.Round(bestDist, 2), true
}
