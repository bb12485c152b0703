// Package city is the City record shared by the dataset, the store and the
// search engine.
package city

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/mohammed-shakir/weather-dashboard/internal/geo"
)

type City struct {
	Name       string  `json:"cityName"`
	StateCode  string  `json:"stateCode"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	TimeZone   string  `json:"timeZone"`
	ID         int64   `json:"geonameid"`
	Population int64   `json:"population"`
}

// CityAndStateCode is the display key, e.g. "Springfield, IL".
func (c City) CityAndStateCode() string { return c.Name + ", " + c.StateCode }

// SearchKey is the folded CityAndStateCode used for matching.
func (c City) SearchKey() string { return Fold(c.CityAndStateCode()) }

// Fold lower-cases s and strips accents (NFKD, combining marks dropped).
// Search keys and user queries both go through it.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Validate checks the invariants enforced when a dataset is loaded.
func (c City) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("city %q: non-positive geonameid %d", c.Name, c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("city %d: empty name", c.ID)
	}
	if !geo.Valid(c.Latitude, c.Longitude) {
		return fmt.Errorf("city %d: coordinates out of range (%v,%v)", c.ID, c.Latitude, c.Longitude)
	}
	return nil
}

// UnmarshalJSON accepts the numeric fields as JSON numbers or strings; the
// source dataset writes both.
func (c *City) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name       string      `json:"cityName"`
		StateCode  string      `json:"stateCode"`
		Latitude   json.Number `json:"latitude"`
		Longitude  json.Number `json:"longitude"`
		TimeZone   string      `json:"timeZone"`
		ID         json.Number `json:"geonameid"`
		Population json.Number `json:"population"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var err error
	out := City{Name: raw.Name, StateCode: raw.StateCode, TimeZone: raw.TimeZone}
	if out.Latitude, err = toFloat(raw.Latitude); err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	if out.Longitude, err = toFloat(raw.Longitude); err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	if out.ID, err = toInt(raw.ID); err != nil {
		return fmt.Errorf("geonameid: %w", err)
	}
	if out.Population, err = toInt(raw.Population); err != nil {
		return fmt.Errorf("population: %w", err)
	}
	*c = out
	return nil
}

var errMissing = errors.New("missing value")

func toFloat(n json.Number) (float64, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0, errMissing
	}
	return strconv.ParseFloat(s, 64)
}

// toInt tolerates integral floats such as "1234.0".
func toInt(n json.Number) (int64, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return int64(f), nil
}

// SortByPopulation orders cities by population desc, then geonameid asc.
func SortByPopulation(cs []City) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Population != cs[j].Population {
			return cs[i].Population > cs[j].Population
		}
		return cs[i].ID < cs[j].ID
	})
}

// Dedupe keeps one city per CityAndStateCode: the most populous, and on equal
// population the lowest geonameid. Repeated geonameids are dropped too. The
// result is in SortByPopulation order and the input is left untouched.
func Dedupe(in []City) []City {
	cs := make([]City, len(in))
	copy(cs, in)
	SortByPopulation(cs)

	seenKey := make(map[string]struct{}, len(cs))
	seenID := make(map[int64]struct{}, len(cs))
	out := cs[:0]
	for _, c := range cs {
		k := c.CityAndStateCode()
		if _, ok := seenKey[k]; ok {
			continue
		}
		if _, ok := seenID[c.ID]; ok {
			continue
		}
		seenKey[k] = struct{}{}
		seenID[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
