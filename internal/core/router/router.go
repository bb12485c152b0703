// Package router parses and validates API query parameters.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/weather-dashboard/internal/geo"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
)

// ParseSearchQuery returns the normalized search text. An over-long query is
// truncated with a warning.
func ParseSearchQuery(r *http.Request) (raw, normalized, warn string) {
	raw = strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(raw) > search.MaxQueryRunes {
		warn = fmt.Sprintf("query longer than %d characters was truncated", search.MaxQueryRunes)
	}
	return raw, search.FormatQuery(raw), warn
}

// ParseCoordinates requires both lat and lon within WGS84 bounds.
func ParseCoordinates(r *http.Request) (lat, lon float64, err error) {
	rawLat := strings.TrimSpace(r.URL.Query().Get("lat"))
	rawLon := strings.TrimSpace(r.URL.Query().Get("lon"))
	if rawLat == "" || rawLon == "" {
		return 0, 0, errors.New("missing required parameters: lat and lon")
	}
	lat, err = parseFloat(rawLat)
	if err != nil {
		return 0, 0, fmt.Errorf("lat: %w", err)
	}
	lon, err = parseFloat(rawLon)
	if err != nil {
		return 0, 0, fmt.Errorf("lon: %w", err)
	}
	if !geo.Valid(lat, lon) {
		return 0, 0, errors.New("latitude must be in [-90,90] and longitude in [-180,180]")
	}
	return lat, lon, nil
}

// ParseResolveRequest collects the id, coordinate and query inputs of the
// weather route. Validation is left to the resolution chain, which warns
// instead of failing.
func ParseResolveRequest(r *http.Request) search.Request {
	q := r.URL.Query()
	return search.Request{
		ID:    strings.TrimSpace(q.Get("id")),
		Lat:   strings.TrimSpace(q.Get("lat")),
		Lon:   strings.TrimSpace(q.Get("lon")),
		Query: strings.TrimSpace(q.Get("q")),
	}
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}
