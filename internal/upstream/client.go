// Package upstream fetches provider JSON into small typed items and caches
// each source with an expiration derived from the item's own timestamps.
//
// Fetch failures are logged and become nil items, which the cache treats as
// always stale. Context cancellation is returned so nothing is cached.
package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/keys"
	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/config"
	"github.com/mohammed-shakir/weather-dashboard/internal/expcache"
	"github.com/mohammed-shakir/weather-dashboard/internal/geo"
)

type Client struct {
	cfg config.UpstreamCfg
	get *Getter
	log *slog.Logger
	now func() time.Time

	points      *expcache.Cache[Place, Points]
	forecast    *expcache.Cache[Points, Forecast]
	observation *expcache.Cache[string, Observation]
	alerts      *expcache.Cache[Place, Alerts]
	station     *expcache.Cache[struct{}, Station]
	airQuality  *expcache.Cache[Place, AirQuality]
	uv          *expcache.Cache[Place, UVIndex]
	sun         *expcache.Cache[Place, SunTimes]
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func New(cfg config.UpstreamCfg, httpc *http.Client, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "upstream")
	c.get = NewGetter(httpc, c.log)

	base := []expcache.Option{
		expcache.WithLogger(c.log),
		expcache.WithClock(c.now),
		expcache.WithMaxEntries(cfg.CacheMaxEntries),
	}
	if cfg.Coalesce {
		base = append(base, expcache.WithCoalescing())
	}

	var err error
	if c.points, err = newCache[Place, Points](SourcePoints, c.fetchPoints, c.expirePoints, base); err != nil {
		return nil, err
	}
	if c.forecast, err = newCache[Points, Forecast](SourceForecast, c.fetchForecast, c.expireForecast, base); err != nil {
		return nil, err
	}
	if c.observation, err = newCache[string, Observation](SourceObservation, c.fetchObservation, c.expireObservation, base); err != nil {
		return nil, err
	}
	if c.alerts, err = newCache[Place, Alerts](SourceAlerts, c.fetchAlerts, c.expireAlerts, base); err != nil {
		return nil, err
	}
	if c.station, err = newCache[struct{}, Station](SourceStation, c.fetchStation, c.expireStation, base); err != nil {
		return nil, err
	}
	if c.airQuality, err = newCache[Place, AirQuality](SourceAirQuality, c.fetchAirQuality, c.expireAirQuality, base); err != nil {
		return nil, err
	}
	if c.uv, err = newCache[Place, UVIndex](SourceUVIndex, c.fetchUVIndex, c.expireUVIndex, base); err != nil {
		return nil, err
	}
	if c.sun, err = newCache[Place, SunTimes](SourceSunTimes, c.fetchSunTimes, c.expireSunTimes, base); err != nil {
		return nil, err
	}
	return c, nil
}

func newCache[O, T any](name string, fetch expcache.FetchFunc[O, T], expire expcache.ExpireFunc[T], base []expcache.Option) (*expcache.Cache[O, T], error) {
	opts := append([]expcache.Option{expcache.WithName(name)}, base...)
	return expcache.New[O, T](fetch, expire, opts...)
}

// PlaceOf is the place a city's sources are fetched for.
func PlaceOf(c city.City) Place {
	return Place{Lat: c.Latitude, Lon: c.Longitude, TimeZone: c.TimeZone, Name: c.Name, StateCode: c.StateCode}
}

func (c *Client) Points(ctx context.Context, p Place) (expcache.Entry[Points], error) {
	return c.points.Get(ctx, c.cellKey(SourcePoints, p, ""), p)
}

// Forecast reads the forecast behind pts.ForecastURL.
func (c *Client) Forecast(ctx context.Context, pts Points) (expcache.Entry[Forecast], error) {
	return c.forecast.Get(ctx, keys.Upstream(SourceForecast, 0, "", pts.ForecastURL), pts)
}

// Observation reads the latest observation of one NWS station.
func (c *Client) Observation(ctx context.Context, stationID string) (expcache.Entry[Observation], error) {
	return c.observation.Get(ctx, keys.Upstream(SourceObservation, 0, "", stationID), stationID)
}

func (c *Client) Alerts(ctx context.Context, p Place) (expcache.Entry[Alerts], error) {
	return c.alerts.Get(ctx, c.cellKeyAt(SourceAlerts, c.alertsRes(), p, ""), p)
}

// Station reads the configured weather-station account's devices.
func (c *Client) Station(ctx context.Context) (expcache.Entry[Station], error) {
	return c.station.Get(ctx, keys.Upstream(SourceStation, 0, "", "devices"), struct{}{})
}

func (c *Client) AirQuality(ctx context.Context, p Place) (expcache.Entry[AirQuality], error) {
	return c.airQuality.Get(ctx, c.cellKey(SourceAirQuality, p, p.TimeZone), p)
}

func (c *Client) UVIndex(ctx context.Context, p Place) (expcache.Entry[UVIndex], error) {
	return c.uv.Get(ctx, keys.Upstream(SourceUVIndex, 0, "", p.Name+","+p.StateCode+","+p.TimeZone), p)
}

func (c *Client) SunTimes(ctx context.Context, p Place) (expcache.Entry[SunTimes], error) {
	return c.sun.Get(ctx, c.cellKey(SourceSunTimes, p, p.TimeZone), p)
}

// cellKey keys p by its H3 cell, or by raw coordinates when p has no cell.
func (c *Client) cellKey(source string, p Place, extra string) string {
	return c.cellKeyAt(source, c.cfg.H3Res, p, extra)
}

// cellKeyAt keys p by the ancestor at res of its H3Res cell, so every place
// under that ancestor shares one entry.
func (c *Client) cellKeyAt(source string, res int, p Place, extra string) string {
	cell, err := geo.Cell(p.Lat, p.Lon, c.cfg.H3Res)
	if err == nil && res < c.cfg.H3Res {
		cell, err = geo.Parent(cell, res)
	}
	if err != nil {
		return keys.Upstream(source, res, "", keys.Coordinates(p.Lat, p.Lon)+extra)
	}
	return keys.Upstream(source, res, cell, extra)
}

func (c *Client) alertsRes() int {
	if r := c.cfg.AlertsH3Res; r >= 0 && r < c.cfg.H3Res {
		return r
	}
	return c.cfg.H3Res
}

// degrade turns a fetch failure into a nil item unless ctx is done.
func (c *Client) degrade(ctx context.Context, source string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.log.Warn("upstream fetch failed", "source", source, "err", err)
	return nil
}
