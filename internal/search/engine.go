// Package search resolves free text, geonameids and coordinates to cities.
//
// Text search runs three tiers in order: the precomputed query tier, the
// prefix index, and a full fuzzy scan. All tiers rank equal matches by
// population, so the tiers agree wherever they overlap.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/citystore"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/keys"
	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/citydata"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
	"github.com/mohammed-shakir/weather-dashboard/internal/expcache"
	"github.com/mohammed-shakir/weather-dashboard/internal/geo"
)

type Tier string

const (
	TierEmpty Tier = "empty"
	TierCache Tier = "cache"
	TierIndex Tier = "index"
	TierScan  Tier = "scan"
)

var ErrNotLoaded = errors.New("search: dataset not loaded")

type Config struct {
	DatasetPath string
	// TierPath is the query tier file. Ignored when a tier is injected with WithTier.
	TierPath      string
	DefaultCityID int64
	ClosestTTL    time.Duration
	// ClosestMaxEntries bounds the closest-city cache. <= 0 uses DefaultClosestMaxEntries.
	ClosestMaxEntries int
}

const DefaultClosestMaxEntries = 10000

// Closest is a coordinate lookup result.
type Closest struct {
	City          city.City `json:"city"`
	DistanceMiles float64   `json:"distanceMiles"`
}

type point struct{ lat, lon float64 }

type Engine struct {
	cfg   Config
	log   *slog.Logger
	store citystore.Store
	tier  QueryTier
	now   func() time.Time

	ix      atomic.Pointer[Index]
	closest *expcache.Cache[point, Closest]
}

type Option func(*Engine)

// WithStore sets the persistent store consulted before the in-memory dataset.
func WithStore(s citystore.Store) Option { return func(e *Engine) { e.store = s } }

// WithTier replaces the tier file with another tier, e.g. Redis.
func WithTier(t QueryTier) Option { return func(e *Engine) { e.tier = t } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.ClosestTTL <= 0 {
		cfg.ClosestTTL = 90 * 24 * time.Hour
	}
	if cfg.ClosestMaxEntries <= 0 {
		cfg.ClosestMaxEntries = DefaultClosestMaxEntries
	}
	e := &Engine{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	closest, err := expcache.New[point, Closest](e.fetchClosest, e.expireClosest,
		expcache.WithName("closest_city"),
		expcache.WithLogger(e.log),
		expcache.WithClock(e.now),
		expcache.WithMaxEntries(cfg.ClosestMaxEntries),
	)
	if err != nil {
		return nil, err
	}
	e.closest = closest
	return e, nil
}

// Load reads the dataset and, unless a tier was injected, the tier file.
// It must complete before the engine serves requests.
func (e *Engine) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cities, rejected, err := citydata.LoadCities(e.cfg.DatasetPath, e.log)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if rejected > 0 {
		e.log.Warn("dataset records rejected", "count", rejected)
	}

	if e.tier == nil && e.cfg.TierPath != "" {
		t, err := citydata.LoadTier(e.cfg.TierPath)
		if err != nil {
			return fmt.Errorf("load query tier: %w", err)
		}
		e.tier = MemoryTier(t)
		e.log.Info("query tier loaded", "path", e.cfg.TierPath, "queries", len(t))
	}

	e.SetCities(cities)
	return nil
}

// SetCities indexes cities in place of any loaded dataset.
func (e *Engine) SetCities(cities []city.City) {
	ix := NewIndex(cities)
	if dropped := len(cities) - ix.Len(); dropped > 0 {
		e.log.Info("duplicate cities dropped", "count", dropped)
	}
	e.ix.Store(ix)
	observability.SetDatasetSize(ix.Len())
	e.log.Info("city dataset loaded", "cities", ix.Len())
}

// Index returns the loaded dataset, or nil before Load.
func (e *Engine) Index() *Index { return e.ix.Load() }

func (e *Engine) Ready() bool { return e.ix.Load() != nil }

func (e *Engine) index() (*Index, error) {
	ix := e.ix.Load()
	if ix == nil {
		return nil, ErrNotLoaded
	}
	return ix, nil
}

// SearchFor returns up to 5 cities for an already normalized query.
func (e *Engine) SearchFor(ctx context.Context, query string) ([]city.City, Tier, error) {
	ix, err := e.index()
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	q := runePrefix(query, MaxQueryRunes)

	if q == "" {
		observability.IncSearch(string(TierEmpty))
		return ix.Top(ResultSize), TierEmpty, nil
	}

	if e.tier != nil {
		if cs, ok := e.fromTier(ctx, ix, q); ok {
			observability.IncSearch(string(TierCache))
			return cs, TierCache, nil
		}
	}

	if cs, ok := ix.PrefixTop(q, ResultSize); ok {
		observability.IncSearch(string(TierIndex))
		return cs, TierIndex, nil
	}

	observability.IncSearch(string(TierScan))
	return ix.Scan(q, ResultSize), TierScan, nil
}

func (e *Engine) fromTier(ctx context.Context, ix *Index, q string) ([]city.City, bool) {
	ids, ok, err := e.tier.Lookup(ctx, q)
	if err != nil {
		e.log.Warn("query tier lookup failed", "query", q, "err", err)
		return nil, false
	}
	if !ok || len(ids) != ResultSize {
		return nil, false
	}
	cs := e.resolveIDs(ctx, ix, ids)
	if len(cs) != ResultSize {
		e.log.Warn("query tier entry incomplete", "query", q, "resolved", len(cs))
		return nil, false
	}
	return cs, true
}

// resolveIDs keeps the order of ids. The store is asked first; the dataset
// fills whatever the store lacks.
func (e *Engine) resolveIDs(ctx context.Context, ix *Index, ids []int64) []city.City {
	found := make(map[int64]city.City, len(ids))
	if e.store != nil {
		cs, err := e.store.GetByIDs(ctx, ids)
		if err != nil {
			e.log.Warn("store lookup failed", "ids", len(ids), "err", err)
		}
		for _, c := range cs {
			found[c.ID] = c
		}
	}
	out := make([]city.City, 0, len(ids))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			out = append(out, c)
			continue
		}
		if c, ok := ix.ByID(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// ParseCityID accepts a positive base-10 geonameid.
func ParseCityID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New("empty city id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("city id %q is not an integer", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("city id %d is not positive", id)
	}
	return id, nil
}

// GetCityByID looks id up in the store, then in the dataset. Non-positive ids
// are not found without any lookup. A store error is returned only when the
// dataset does not have the city either.
func (e *Engine) GetCityByID(ctx context.Context, id int64) (city.City, bool, error) {
	if id <= 0 {
		return city.City{}, false, nil
	}
	ix, err := e.index()
	if err != nil {
		return city.City{}, false, err
	}

	var storeErr error
	if e.store != nil {
		c, ok, err := e.store.GetByID(ctx, id)
		switch {
		case err != nil:
			storeErr = fmt.Errorf("store get %d: %w", id, err)
			e.log.Warn("store lookup failed", "id", id, "err", err)
		case ok:
			return c, true, nil
		}
	}
	if c, ok := ix.ByID(id); ok {
		return c, true, nil
	}
	return city.City{}, false, storeErr
}

// GetClosestCity returns the nearest city to lat/lon. Invalid coordinates
// are not found without scanning. Results are cached per coordinate.
func (e *Engine) GetClosestCity(ctx context.Context, lat, lon float64) (Closest, bool, error) {
	if !geo.Valid(lat, lon) {
		return Closest{}, false, nil
	}
	if _, err := e.index(); err != nil {
		return Closest{}, false, err
	}
	ent, err := e.closest.Get(ctx, keys.Coordinates(lat, lon), point{lat, lon})
	if err != nil {
		return Closest{}, false, err
	}
	if ent.Item == nil {
		return Closest{}, false, nil
	}
	return *ent.Item, true, nil
}

func (e *Engine) fetchClosest(_ context.Context, p point) (*Closest, error) {
	ix, err := e.index()
	if err != nil {
		return nil, err
	}
	c, d, ok := ix.Closest(p.lat, p.lon)
	if !ok {
		return nil, nil
	}
	return &Closest{City: c, DistanceMiles: d}, nil
}

func (e *Engine) expireClosest(context.Context, string, *Closest) (int64, error) {
	return e.now().Add(e.cfg.ClosestTTL).Unix(), nil
}
