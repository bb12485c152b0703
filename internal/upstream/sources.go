package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/units"
)

type quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

// NWS points and stations.

type nwsPoints struct {
	Properties struct {
		Forecast            string `json:"forecast"`
		ForecastHourly      string `json:"forecastHourly"`
		ObservationStations string `json:"observationStations"`
		TimeZone            string `json:"timeZone"`
		GridID              string `json:"gridId"`
		GridX               int    `json:"gridX"`
		GridY               int    `json:"gridY"`
	} `json:"properties"`
}

type nwsStations struct {
	Features []struct {
		Properties struct {
			StationIdentifier string `json:"stationIdentifier"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *Client) fetchPoints(ctx context.Context, p Place) (*Points, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.cfg.NWSBaseURL, p.Lat, p.Lon)
	var raw nwsPoints
	if err := c.get.GetJSON(ctx, SourcePoints, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourcePoints, err)
	}
	pr := raw.Properties
	if pr.Forecast == "" {
		return nil, c.degrade(ctx, SourcePoints, errors.New("points response has no forecast url"))
	}
	out := &Points{
		ForecastURL:       pr.Forecast,
		ForecastHourlyURL: pr.ForecastHourly,
		TimeZone:          pr.TimeZone,
		GridID:            pr.GridID,
		GridX:             pr.GridX,
		GridY:             pr.GridY,
	}

	if pr.ObservationStations != "" {
		var st nwsStations
		err := c.get.GetJSON(ctx, SourcePoints, pr.ObservationStations, single, &st)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			c.log.Warn("observation stations lookup failed", "err", err)
		case len(st.Features) > 0:
			out.StationID = st.Features[0].Properties.StationIdentifier
		}
	}
	return out, nil
}

func (c *Client) expirePoints(_ context.Context, _ string, _ *Points) (int64, error) {
	return c.now().Add(pointsTTL).Unix(), nil
}

// NWS forecast.

type nwsForecast struct {
	Properties struct {
		UpdateTime time.Time `json:"updateTime"`
		Periods    []struct {
			Number                     int       `json:"number"`
			Name                       string    `json:"name"`
			StartTime                  time.Time `json:"startTime"`
			EndTime                    time.Time `json:"endTime"`
			IsDaytime                  bool      `json:"isDaytime"`
			Temperature                *float64  `json:"temperature"`
			TemperatureUnit            string    `json:"temperatureUnit"`
			ProbabilityOfPrecipitation quantity  `json:"probabilityOfPrecipitation"`
			WindSpeed                  string    `json:"windSpeed"`
			WindDirection              string    `json:"windDirection"`
			Icon                       string    `json:"icon"`
			ShortForecast              string    `json:"shortForecast"`
			DetailedForecast           string    `json:"detailedForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

func (c *Client) fetchForecast(ctx context.Context, pts Points) (*Forecast, error) {
	if pts.ForecastURL == "" {
		return nil, nil
	}
	b := Backoff{Attempts: c.cfg.RetryAttempts, Initial: c.cfg.RetryInitial}
	var raw nwsForecast
	if err := c.get.GetJSON(ctx, SourceForecast, pts.ForecastURL, b, &raw); err != nil {
		return nil, c.degrade(ctx, SourceForecast, err)
	}

	out := &Forecast{UpdateTime: raw.Properties.UpdateTime}
	for _, rp := range raw.Properties.Periods {
		p := Period{
			Number:              rp.Number,
			Name:                rp.Name,
			StartTime:           rp.StartTime,
			EndTime:             rp.EndTime,
			IsDaytime:           rp.IsDaytime,
			PrecipitationChance: rp.ProbabilityOfPrecipitation.Value,
			WindSpeed:           rp.WindSpeed,
			WindDirection:       rp.WindDirection,
			ShortForecast:       rp.ShortForecast,
			DetailedForecast:    rp.DetailedForecast,
			Icon:                rp.Icon,
		}
		if strings.EqualFold(rp.TemperatureUnit, "C") {
			p.TemperatureC = units.Convert(rp.Temperature, nil, 1)
			p.TemperatureF = units.Convert(rp.Temperature, units.CelsiusToFahrenheit, 0)
		} else {
			p.TemperatureF = units.Convert(rp.Temperature, nil, 0)
			p.TemperatureC = units.Convert(rp.Temperature, units.FahrenheitToCelsius, 1)
		}
		out.Periods = append(out.Periods, p)
	}
	return out, nil
}

func (c *Client) expireForecast(_ context.Context, _ string, f *Forecast) (int64, error) {
	if f.UpdateTime.IsZero() {
		return 0, errors.New("forecast has no updateTime")
	}
	return nextUpdate(f.UpdateTime, forecastInterval, c.now()).Add(forecastMargin).Unix(), nil
}

// NWS latest observation.

type nwsObservation struct {
	Properties struct {
		Timestamp          time.Time `json:"timestamp"`
		TextDescription    string    `json:"textDescription"`
		Temperature        quantity  `json:"temperature"`
		Dewpoint           quantity  `json:"dewpoint"`
		RelativeHumidity   quantity  `json:"relativeHumidity"`
		WindSpeed          quantity  `json:"windSpeed"`
		WindGust           quantity  `json:"windGust"`
		WindDirection      quantity  `json:"windDirection"`
		BarometricPressure quantity  `json:"barometricPressure"`
		Visibility         quantity  `json:"visibility"`
	} `json:"properties"`
}

func (c *Client) fetchObservation(ctx context.Context, stationID string) (*Observation, error) {
	if stationID == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/stations/%s/observations/latest", c.cfg.NWSBaseURL, url.PathEscape(stationID))
	var raw nwsObservation
	if err := c.get.GetJSON(ctx, SourceObservation, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourceObservation, err)
	}
	pr := raw.Properties
	out := &Observation{
		StationID:       stationID,
		Timestamp:       pr.Timestamp,
		Description:     pr.TextDescription,
		TemperatureF:    units.Convert(pr.Temperature.Value, units.CelsiusToFahrenheit, 1),
		DewpointF:       units.Convert(pr.Dewpoint.Value, units.CelsiusToFahrenheit, 1),
		Humidity:        units.Convert(pr.RelativeHumidity.Value, nil, 0),
		WindMph:         units.Convert(pr.WindSpeed.Value, units.KphToMph, 1),
		WindGustMph:     units.Convert(pr.WindGust.Value, units.KphToMph, 1),
		PressureInHg:    units.Convert(pr.BarometricPressure.Value, units.PascalToInHg, 2),
		VisibilityMiles: units.Convert(pr.Visibility.Value, units.MetersToMiles, 1),
	}
	if d := pr.WindDirection.Value; d != nil {
		out.WindDirection = units.Compass(*d)
	}
	return out, nil
}

func (c *Client) expireObservation(_ context.Context, _ string, o *Observation) (int64, error) {
	if o.Timestamp.IsZero() {
		return 0, errors.New("observation has no timestamp")
	}
	return nextUpdate(o.Timestamp, observationInterval, c.now()).Add(observationMargin).Unix(), nil
}

// NWS active alerts.

type nwsAlerts struct {
	Updated  time.Time `json:"updated"`
	Features []struct {
		Properties struct {
			ID          string    `json:"id"`
			Event       string    `json:"event"`
			Headline    string    `json:"headline"`
			Severity    string    `json:"severity"`
			Description string    `json:"description"`
			Onset       time.Time `json:"onset"`
			Ends        time.Time `json:"ends"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *Client) fetchAlerts(ctx context.Context, p Place) (*Alerts, error) {
	u := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.cfg.NWSBaseURL, p.Lat, p.Lon)
	var raw nwsAlerts
	if err := c.get.GetJSON(ctx, SourceAlerts, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourceAlerts, err)
	}
	out := &Alerts{Updated: raw.Updated, Alerts: []Alert{}}
	for _, f := range raw.Features {
		pr := f.Properties
		out.Alerts = append(out.Alerts, Alert{
			ID: pr.ID, Event: pr.Event, Headline: pr.Headline, Severity: pr.Severity,
			Description: pr.Description, Onset: pr.Onset, Ends: pr.Ends,
		})
	}
	return out, nil
}

func (c *Client) expireAlerts(_ context.Context, _ string, a *Alerts) (int64, error) {
	if a.Updated.IsZero() {
		return 0, errors.New("alerts have no updated time")
	}
	return nextUpdate(a.Updated, alertsInterval, c.now()).Add(alertsMargin).Unix(), nil
}

// Weather station vendor devices.

type stationDevice struct {
	MacAddress string `json:"macAddress"`
	Info       struct {
		Name string `json:"name"`
	} `json:"info"`
	LastData struct {
		DateUTC      int64    `json:"dateutc"`
		TempF        *float64 `json:"tempf"`
		Humidity     *float64 `json:"humidity"`
		WindSpeedMph *float64 `json:"windspeedmph"`
		WindGustMph  *float64 `json:"windgustmph"`
		WindDir      *float64 `json:"winddir"`
		BaromRelIn   *float64 `json:"baromrelin"`
		DailyRainIn  *float64 `json:"dailyrainin"`
	} `json:"lastData"`
}

func (c *Client) fetchStation(ctx context.Context, _ struct{}) (*Station, error) {
	if c.cfg.StationAPIKey == "" || c.cfg.StationAppKey == "" {
		c.log.Debug("station keys not configured")
		return nil, nil
	}
	q := url.Values{}
	q.Set("apiKey", c.cfg.StationAPIKey)
	q.Set("applicationKey", c.cfg.StationAppKey)
	u := c.cfg.StationBaseURL + "/devices?" + q.Encode()

	var raw []stationDevice
	if err := c.get.GetJSON(ctx, SourceStation, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourceStation, err)
	}
	out := &Station{Devices: []Device{}}
	for _, d := range raw {
		ld := d.LastData
		dev := Device{
			MAC:          d.MacAddress,
			Name:         d.Info.Name,
			TemperatureF: ld.TempF,
			Humidity:     ld.Humidity,
			WindMph:      ld.WindSpeedMph,
			WindGustMph:  ld.WindGustMph,
			PressureInHg: ld.BaromRelIn,
			DailyRainIn:  ld.DailyRainIn,
		}
		if ld.DateUTC > 0 {
			dev.LastUpdated = time.UnixMilli(ld.DateUTC).UTC()
		}
		if ld.WindDir != nil {
			dev.WindDirection = units.Compass(*ld.WindDir)
		}
		out.Devices = append(out.Devices, dev)
	}
	return out, nil
}

func (c *Client) expireStation(_ context.Context, _ string, s *Station) (int64, error) {
	var last time.Time
	for _, d := range s.Devices {
		if d.LastUpdated.After(last) {
			last = d.LastUpdated
		}
	}
	if last.IsZero() {
		return 0, errors.New("station has no device data")
	}
	return nextUpdate(last, stationInterval, c.now()).Add(stationMargin).Unix(), nil
}

// Air quality observations.

type airNowObservation struct {
	DateObserved  string `json:"DateObserved"`
	HourObserved  int    `json:"HourObserved"`
	ReportingArea string `json:"ReportingArea"`
	ParameterName string `json:"ParameterName"`
	AQI           int    `json:"AQI"`
	Category      struct {
		Name string `json:"Name"`
	} `json:"Category"`
}

func (c *Client) fetchAirQuality(ctx context.Context, p Place) (*AirQuality, error) {
	if c.cfg.AirNowAPIKey == "" {
		c.log.Debug("air quality key not configured")
		return nil, nil
	}
	q := url.Values{}
	q.Set("format", "application/json")
	q.Set("latitude", strconv.FormatFloat(p.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(p.Lon, 'f', 4, 64))
	q.Set("distance", "25")
	q.Set("API_KEY", c.cfg.AirNowAPIKey)
	u := c.cfg.AirNowBaseURL + "/aq/observation/latLong/current/?" + q.Encode()

	var raw []airNowObservation
	if err := c.get.GetJSON(ctx, SourceAirQuality, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourceAirQuality, err)
	}
	loc := location(p.TimeZone)
	out := &AirQuality{Observations: []AQObservation{}}
	for _, o := range raw {
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(o.DateObserved), loc)
		if err != nil {
			c.log.Warn("air quality observation has bad date", "date", o.DateObserved)
			continue
		}
		at := day.Add(time.Duration(o.HourObserved) * time.Hour)
		if at.After(out.Observed) {
			out.Observed = at
		}
		out.Observations = append(out.Observations, AQObservation{
			Parameter:     o.ParameterName,
			AQI:           o.AQI,
			Category:      o.Category.Name,
			ReportingArea: o.ReportingArea,
			Observed:      at,
		})
	}
	return out, nil
}

func (c *Client) expireAirQuality(_ context.Context, _ string, a *AirQuality) (int64, error) {
	if a.Observed.IsZero() {
		return 0, errors.New("air quality has no observation time")
	}
	return nextUpdate(a.Observed, airQualityInterval, c.now()).Add(airQualityMargin).Unix(), nil
}

// Hourly UV index forecast.

const uvLayout = "Jan/02/2006 03 PM"

type uvHourly struct {
	Order    int     `json:"ORDER"`
	DateTime string  `json:"DATE_TIME"`
	UVValue  float64 `json:"UV_VALUE"`
}

func (c *Client) fetchUVIndex(ctx context.Context, p Place) (*UVIndex, error) {
	if p.Name == "" || p.StateCode == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/getEnvirofactsUVHOURLY/CITY/%s/STATE/%s/JSON",
		c.cfg.UVBaseURL, url.PathEscape(p.Name), url.PathEscape(p.StateCode))
	var raw []uvHourly
	if err := c.get.GetJSON(ctx, SourceUVIndex, u, single, &raw); err != nil {
		return nil, c.degrade(ctx, SourceUVIndex, err)
	}
	loc := location(p.TimeZone)
	out := &UVIndex{Hours: []UVHour{}}
	for _, h := range raw {
		at, err := time.ParseInLocation(uvLayout, h.DateTime, loc)
		if err != nil {
			c.log.Warn("uv forecast has bad time", "time", h.DateTime)
			continue
		}
		out.Hours = append(out.Hours, UVHour{Time: at, Value: h.UVValue})
	}
	return out, nil
}

func (c *Client) expireUVIndex(_ context.Context, _ string, uv *UVIndex) (int64, error) {
	if len(uv.Hours) == 0 {
		return 0, errors.New("uv forecast is empty")
	}
	first := uv.Hours[0].Time
	return nextMidnight(first, first.Location()).Add(uvMargin).Unix(), nil
}

// Locally computed sun times.

func (c *Client) fetchSunTimes(_ context.Context, p Place) (*SunTimes, error) {
	st := ComputeSunTimes(p.Lat, p.Lon, c.now(), location(p.TimeZone))
	return &st, nil
}

func (c *Client) expireSunTimes(_ context.Context, _ string, s *SunTimes) (int64, error) {
	return nextMidnight(c.now(), s.SolarNoon.Location()).Unix(), nil
}
