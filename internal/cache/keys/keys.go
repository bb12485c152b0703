// Package keys builds the cache and store keys. Keys are ASCII only and
// carry an xxhash suffix of anything free-form.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	CityPrefix = "city:"
	CityIDs    = "city:ids"
	TierPrefix = "qtier:"
)

// City is the store key of one city record.
func City(id int64) string { return CityPrefix + strconv.FormatInt(id, 10) }

// Tier is the store key of one query tier entry. The query is hashed so any
// user text maps to a bounded key.
func Tier(query string) string {
	return fmt.Sprintf("%s%016x", TierPrefix, xxhash.Sum64String(query))
}

// Upstream keys one upstream source at an H3 cell. extra distinguishes
// requests at the same place, e.g. a station id or a time zone.
func Upstream(source string, res int, cell, extra string) string {
	src := sanitize(strings.TrimSpace(source))
	text := collapseASCIIWhitespace(strings.TrimSpace(extra))
	safe := sanitize(text)

	const maxExtraLen = 96
	if len(safe) > maxExtraLen {
		safe = safe[:maxExtraLen]
	}
	return fmt.Sprintf("%s:%d:%s:x=%s:h=%016x", src, res, cell, safe, xxhash.Sum64String(text))
}

// Coordinates keys raw coordinates at 6 decimal places.
func Coordinates(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '/' || r == '.':
			out = r
		default:
			// anything else, non-ASCII included
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
