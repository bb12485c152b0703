package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

// ResultSize is the number of cities a search returns.
const ResultSize = 5

// substringScore is given to a query found inside a key at a position > 0.
const substringScore = 0.5

type ScoredCity struct {
	City  city.City
	Score float64
}

// Score rates key (a lower-cased "name, st") against query; lower is better.
// A match further into the key scores 0.5, anything else is the edit distance
// between query and the key prefix of the same rune length.
func Score(query, key string) float64 {
	if strings.Index(key, query) > 0 {
		return substringScore
	}
	prefix := runePrefix(key, utf8.RuneCountInString(query))
	return float64(levenshtein.ComputeDistance(query, prefix))
}

// SortByScore orders scored cities by ascending score, keeping input order on ties.
func SortByScore(sc []ScoredCity) {
	sort.SliceStable(sc, func(i, j int) bool { return sc[i].Score < sc[j].Score })
}

// TopGrouped takes up to n cities from a score-sorted list. Each run of equal
// scores is reordered by population desc before it is appended.
func TopGrouped(sorted []ScoredCity, n int) []city.City {
	out := make([]city.City, 0, min(n, len(sorted)))
	for i := 0; i < len(sorted) && len(out) < n; {
		j := i + 1
		for j < len(sorted) && sorted[j].Score == sorted[i].Score {
			j++
		}
		run := make([]city.City, j-i)
		for k := range run {
			run[k] = sorted[i+k].City
		}
		sort.SliceStable(run, func(a, b int) bool { return run[a].Population > run[b].Population })
		for _, c := range run {
			if len(out) == n {
				break
			}
			out = append(out, c)
		}
		i = j
	}
	return out
}
