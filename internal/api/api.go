// Package api serves the city and weather routes of the dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/router"
	"github.com/mohammed-shakir/weather-dashboard/internal/expcache"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
	"github.com/mohammed-shakir/weather-dashboard/internal/searchevents"
	"github.com/mohammed-shakir/weather-dashboard/internal/upstream"
)

// Cities is the part of the search engine the handlers use.
type Cities interface {
	SearchFor(ctx context.Context, query string) ([]city.City, search.Tier, error)
	GetCityByID(ctx context.Context, id int64) (city.City, bool, error)
	GetClosestCity(ctx context.Context, lat, lon float64) (search.Closest, bool, error)
	Resolve(ctx context.Context, req search.Request) search.Resolution
}

// Sources is the cache-backed upstream layer.
type Sources interface {
	Points(ctx context.Context, p upstream.Place) (expcache.Entry[upstream.Points], error)
	Forecast(ctx context.Context, pts upstream.Points) (expcache.Entry[upstream.Forecast], error)
	Observation(ctx context.Context, stationID string) (expcache.Entry[upstream.Observation], error)
	Alerts(ctx context.Context, p upstream.Place) (expcache.Entry[upstream.Alerts], error)
	Station(ctx context.Context) (expcache.Entry[upstream.Station], error)
	AirQuality(ctx context.Context, p upstream.Place) (expcache.Entry[upstream.AirQuality], error)
	UVIndex(ctx context.Context, p upstream.Place) (expcache.Entry[upstream.UVIndex], error)
	SunTimes(ctx context.Context, p upstream.Place) (expcache.Entry[upstream.SunTimes], error)
}

type Handlers struct {
	cities  Cities
	sources Sources
	events  searchevents.Sink
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Handlers)

func WithEvents(s searchevents.Sink) Option {
	return func(h *Handlers) {
		if s != nil {
			h.events = s
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(h *Handlers) { h.log = l } }

func WithClock(now func() time.Time) Option { return func(h *Handlers) { h.now = now } }

func New(cities Cities, sources Sources, opts ...Option) *Handlers {
	h := &Handlers{
		cities:  cities,
		sources: sources,
		events:  searchevents.Nop{},
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes mounts the API under r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/api/cities/search", h.searchCities)
	r.Get("/api/cities/closest", h.closestCity)
	r.Get("/api/cities/{id}", h.cityByID)
	r.Get("/api/weather", h.weather)
}

type searchResponse struct {
	Query    string      `json:"query"`
	Tier     search.Tier `json:"tier"`
	Cities   []city.City `json:"cities"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (h *Handlers) searchCities(w http.ResponseWriter, r *http.Request) {
	raw, q, warn := router.ParseSearchQuery(r)
	cs, tier, err := h.cities.SearchFor(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	h.events.Publish(searchevents.NewEvent(raw, q, string(tier), ids))

	out := searchResponse{Query: q, Tier: tier, Cities: cs}
	if out.Cities == nil {
		out.Cities = []city.City{}
	}
	if warn != "" {
		out.Warnings = []string{warn}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) closestCity(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := router.ParseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cl, ok, err := h.cities.GetClosestCity(r.Context(), lat, lon)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no city found near the given coordinates")
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

func (h *Handlers) cityByID(w http.ResponseWriter, r *http.Request) {
	id, err := search.ParseCityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, ok, err := h.cities.GetCityByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "city not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, search.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "city dataset is not loaded")
	case r.Context().Err() != nil:
		// client went away
	default:
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "city lookup failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
