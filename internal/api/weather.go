package api

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/weather-dashboard/internal/core/router"
	"github.com/mohammed-shakir/weather-dashboard/internal/expcache"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
	"github.com/mohammed-shakir/weather-dashboard/internal/upstream"
)

// SourceResult is one upstream's slot in the weather envelope.
type SourceResult struct {
	Data       any    `json:"data,omitempty"`
	ValidUntil int64  `json:"validUntil"`
	Available  bool   `json:"available"`
	Warning    string `json:"warning,omitempty"`
}

type Envelope struct {
	search.Resolution
	Sources map[string]SourceResult `json:"sources"`
}

const fanOut = 6

func (h *Handlers) weather(w http.ResponseWriter, r *http.Request) {
	res := h.cities.Resolve(r.Context(), router.ParseResolveRequest(r))

	sources := h.collect(r.Context(), upstream.PlaceOf(res.City))
	if r.Context().Err() != nil {
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Resolution: res, Sources: sources})
}

// collect reads every source concurrently. A failing source only fills its
// own slot with a warning.
func (h *Handlers) collect(ctx context.Context, p upstream.Place) map[string]SourceResult {
	var (
		mu  sync.Mutex
		out = make(map[string]SourceResult, 8)
	)
	set := func(name string, sr SourceResult) {
		mu.Lock()
		out[name] = sr
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(fanOut)

	g.Go(func() error {
		ctx := logger.WithSource(ctx, upstream.SourcePoints)
		pe, err := h.sources.Points(ctx, p)
		set(upstream.SourcePoints, sourceResult(ctx, h, upstream.SourcePoints, pe, err))
		if err != nil || pe.Item == nil {
			const msg = "no forecast office data for this location"
			set(upstream.SourceForecast, SourceResult{Warning: msg})
			set(upstream.SourceObservation, SourceResult{Warning: msg})
			return nil
		}
		pts := *pe.Item

		var inner sync.WaitGroup
		inner.Add(2)
		go func() {
			defer inner.Done()
			fe, err := h.sources.Forecast(logger.WithSource(ctx, upstream.SourceForecast), pts)
			set(upstream.SourceForecast, sourceResult(ctx, h, upstream.SourceForecast, fe, err))
		}()
		go func() {
			defer inner.Done()
			if pts.StationID == "" {
				set(upstream.SourceObservation, SourceResult{Warning: "no observation station near this location"})
				return
			}
			oe, err := h.sources.Observation(logger.WithSource(ctx, upstream.SourceObservation), pts.StationID)
			set(upstream.SourceObservation, sourceResult(ctx, h, upstream.SourceObservation, oe, err))
		}()
		inner.Wait()
		return nil
	})
	g.Go(func() error {
		e, err := h.sources.Alerts(logger.WithSource(ctx, upstream.SourceAlerts), p)
		set(upstream.SourceAlerts, sourceResult(ctx, h, upstream.SourceAlerts, e, err))
		return nil
	})
	g.Go(func() error {
		e, err := h.sources.Station(logger.WithSource(ctx, upstream.SourceStation))
		set(upstream.SourceStation, sourceResult(ctx, h, upstream.SourceStation, e, err))
		return nil
	})
	g.Go(func() error {
		e, err := h.sources.AirQuality(logger.WithSource(ctx, upstream.SourceAirQuality), p)
		set(upstream.SourceAirQuality, sourceResult(ctx, h, upstream.SourceAirQuality, e, err))
		return nil
	})
	g.Go(func() error {
		e, err := h.sources.UVIndex(logger.WithSource(ctx, upstream.SourceUVIndex), p)
		set(upstream.SourceUVIndex, sourceResult(ctx, h, upstream.SourceUVIndex, e, err))
		return nil
	})
	g.Go(func() error {
		e, err := h.sources.SunTimes(logger.WithSource(ctx, upstream.SourceSunTimes), p)
		set(upstream.SourceSunTimes, sourceResult(ctx, h, upstream.SourceSunTimes, e, err))
		return nil
	})
	_ = g.Wait()
	return out
}

// sourceResult fills one slot from a cache read. An item whose expiration
// could not be computed is served but flagged.
func sourceResult[T any](ctx context.Context, h *Handlers, source string, e expcache.Entry[T], err error) SourceResult {
	switch {
	case err != nil:
		if ctx.Err() == nil {
			h.log.WarnContext(ctx, "source read failed", "source", source, "err", err)
		}
		return SourceResult{Warning: source + " could not be read"}
	case e.Item == nil:
		return SourceResult{Warning: source + " data is unavailable"}
	}
	sr := SourceResult{Data: e.Item, ValidUntil: e.ValidUntil, Available: true}
	if !e.ValidAt(h.now().Unix()) {
		sr.Warning = source + " data may be stale"
	}
	return sr
}
