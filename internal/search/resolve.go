package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
)

type Source string

const (
	SourceID          Source = "id"
	SourceCoordinates Source = "coordinates"
	SourceQuery       Source = "query"
	SourceDefault     Source = "default"
)

// FallbackCity is used when the configured default id is not in the dataset.
var FallbackCity = city.City{
	Name:       "New York City",
	StateCode:  "NY",
	Latitude:   40.71427,
	Longitude:  -74.00597,
	TimeZone:   "America/New_York",
	ID:         5128581,
	Population: 8804190,
}

// Request holds raw caller input. Empty fields are not supplied.
type Request struct {
	ID    string
	Lat   string
	Lon   string
	Query string
}

type Resolution struct {
	City          city.City `json:"city"`
	Source        Source    `json:"resolvedBy"`
	DistanceMiles *float64  `json:"distanceMiles,omitempty"`
	Warnings      []string  `json:"warnings"`
}

// Resolve tries id, then coordinates, then the query, then the default city.
// Every failed step adds a warning. It always returns a city.
func (e *Engine) Resolve(ctx context.Context, req Request) Resolution {
	res := Resolution{Warnings: []string{}}
	warn := func(format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	if raw := strings.TrimSpace(req.ID); raw != "" {
		if c, ok := e.resolveID(ctx, raw, warn); ok {
			return res.done(c, SourceID)
		}
	}

	if strings.TrimSpace(req.Lat) != "" || strings.TrimSpace(req.Lon) != "" {
		if cl, ok := e.resolveCoordinates(ctx, req.Lat, req.Lon, warn); ok {
			d := cl.DistanceMiles
			res.DistanceMiles = &d
			return res.done(cl.City, SourceCoordinates)
		}
	}

	if strings.TrimSpace(req.Query) != "" {
		if c, ok := e.resolveQuery(ctx, req.Query, warn); ok {
			return res.done(c, SourceQuery)
		}
	}

	c := e.defaultCity(ctx)
	if len(res.Warnings) == 0 {
		warn("no city specified; using default city %s", c.CityAndStateCode())
	} else {
		warn("using default city %s", c.CityAndStateCode())
	}
	return res.done(c, SourceDefault)
}

func (r Resolution) done(c city.City, src Source) Resolution {
	r.City = c
	r.Source = src
	observability.IncResolution(string(src))
	return r
}

func (e *Engine) resolveID(ctx context.Context, raw string, warn func(string, ...any)) (city.City, bool) {
	id, err := ParseCityID(raw)
	if err != nil {
		warn("invalid city id %q", raw)
		return city.City{}, false
	}
	c, ok, err := e.GetCityByID(ctx, id)
	switch {
	case err != nil:
		warn("city id %d could not be looked up", id)
		return city.City{}, false
	case !ok:
		warn("no city with id %d", id)
		return city.City{}, false
	}
	return c, true
}

func (e *Engine) resolveCoordinates(ctx context.Context, rawLat, rawLon string, warn func(string, ...any)) (Closest, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if errLat != nil || errLon != nil {
		warn("invalid coordinates %q,%q", rawLat, rawLon)
		return Closest{}, false
	}
	cl, ok, err := e.GetClosestCity(ctx, lat, lon)
	switch {
	case err != nil:
		warn("closest city lookup failed for %v,%v", lat, lon)
		e.log.Warn("closest city lookup failed", "lat", lat, "lon", lon, "err", err)
		return Closest{}, false
	case !ok:
		warn("no city found near %v,%v", lat, lon)
		return Closest{}, false
	}
	return cl, true
}

func (e *Engine) resolveQuery(ctx context.Context, raw string, warn func(string, ...any)) (city.City, bool) {
	q := FormatQuery(raw)
	if q == "" {
		warn("query %q is empty after normalization", raw)
		return city.City{}, false
	}
	cs, _, err := e.SearchFor(ctx, q)
	if err != nil {
		warn("search for %q failed", q)
		e.log.Warn("search failed", "query", q, "err", err)
		return city.City{}, false
	}
	if len(cs) == 0 {
		warn("no city matches %q", q)
		return city.City{}, false
	}
	return cs[0], true
}

func (e *Engine) defaultCity(ctx context.Context) city.City {
	if e.cfg.DefaultCityID > 0 {
		c, ok, err := e.GetCityByID(ctx, e.cfg.DefaultCityID)
		if err == nil && ok {
			return c
		}
	}
	return FallbackCity
}
