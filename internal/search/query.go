package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

// MaxQueryRunes bounds the query length that reaches the scorer.
const MaxQueryRunes = 128

var stateCodes = map[string]string{
	"alabama": "al", "alaska": "ak", "arizona": "az", "arkansas": "ar",
	"california": "ca", "colorado": "co", "connecticut": "ct", "delaware": "de",
	"district of columbia": "dc", "florida": "fl", "georgia": "ga", "hawaii": "hi",
	"idaho": "id", "illinois": "il", "indiana": "in", "iowa": "ia",
	"kansas": "ks", "kentucky": "ky", "louisiana": "la", "maine": "me",
	"maryland": "md", "massachusetts": "ma", "michigan": "mi", "minnesota": "mn",
	"mississippi": "ms", "missouri": "mo", "montana": "mt", "nebraska": "ne",
	"nevada": "nv", "new hampshire": "nh", "new jersey": "nj", "new mexico": "nm",
	"new york": "ny", "north carolina": "nc", "north dakota": "nd", "ohio": "oh",
	"oklahoma": "ok", "oregon": "or", "pennsylvania": "pa", "rhode island": "ri",
	"south carolina": "sc", "south dakota": "sd", "tennessee": "tn", "texas": "tx",
	"utah": "ut", "vermont": "vt", "virginia": "va", "washington": "wa",
	"west virginia": "wv", "wisconsin": "wi", "wyoming": "wy",
	"puerto rico": "pr", "guam": "gu", "american samoa": "as",
	"northern mariana islands": "mp", "virgin islands": "vi",
	"us virgin islands": "vi",
}

// longest names first so "west virginia" wins over "virginia"
var stateNames = func() []string {
	out := make([]string, 0, len(stateCodes))
	for name := range stateCodes {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// FormatQuery normalizes raw user text into the form the search expects:
// folded like city.SearchKey, whitespace collapsed, and a trailing full
// state name rewritten to ", {code}".
func FormatQuery(raw string) string {
	var b strings.Builder
	space := false
	for _, r := range city.Fold(raw) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return rewriteState(b.String())
}

func rewriteState(q string) string {
	for _, name := range stateNames {
		if !strings.HasSuffix(q, name) {
			continue
		}
		rest := q[:len(q)-len(name)]
		// the state name must be its own token
		if rest != "" && !strings.HasSuffix(rest, " ") && !strings.HasSuffix(rest, ",") {
			continue
		}
		rest = strings.TrimRight(rest, " ,")
		if rest == "" {
			return q
		}
		return rest + ", " + stateCodes[name]
	}
	return q
}

// runePrefix returns the first n runes of s.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
