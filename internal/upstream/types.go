package upstream

import "time"

const (
	SourcePoints      = "nws_points"
	SourceForecast    = "nws_forecast"
	SourceObservation = "nws_observation"
	SourceAlerts      = "nws_alerts"
	SourceStation     = "station"
	SourceAirQuality  = "air_quality"
	SourceUVIndex     = "uv_index"
	SourceSunTimes    = "sun_times"
)

// Place is where a source is fetched for.
type Place struct {
	Lat       float64
	Lon       float64
	TimeZone  string
	Name      string
	StateCode string
}

type Points struct {
	ForecastURL       string `json:"forecastUrl"`
	ForecastHourlyURL string `json:"forecastHourlyUrl,omitempty"`
	StationID         string `json:"stationId,omitempty"`
	TimeZone          string `json:"timeZone"`
	GridID            string `json:"gridId"`
	GridX             int    `json:"gridX"`
	GridY             int    `json:"gridY"`
}

type Period struct {
	Number              int       `json:"number"`
	Name                string    `json:"name"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	IsDaytime           bool      `json:"isDaytime"`
	TemperatureF        *float64  `json:"temperatureF"`
	TemperatureC        *float64  `json:"temperatureC"`
	PrecipitationChance *float64  `json:"precipitationChance"`
	WindSpeed           string    `json:"windSpeed"`
	WindDirection       string    `json:"windDirection"`
	ShortForecast       string    `json:"shortForecast"`
	DetailedForecast    string    `json:"detailedForecast"`
	Icon                string    `json:"icon,omitempty"`
}

type Forecast struct {
	UpdateTime time.Time `json:"updateTime"`
	Periods    []Period  `json:"periods"`
}

type Observation struct {
	StationID       string    `json:"stationId"`
	Timestamp       time.Time `json:"timestamp"`
	Description     string    `json:"description"`
	TemperatureF    *float64  `json:"temperatureF"`
	DewpointF       *float64  `json:"dewpointF"`
	Humidity        *float64  `json:"humidity"`
	WindMph         *float64  `json:"windMph"`
	WindGustMph     *float64  `json:"windGustMph"`
	WindDirection   string    `json:"windDirection,omitempty"`
	PressureInHg    *float64  `json:"pressureInHg"`
	VisibilityMiles *float64  `json:"visibilityMiles"`
}

type Alert struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Onset       time.Time `json:"onset,omitzero"`
	Ends        time.Time `json:"ends,omitzero"`
}

type Alerts struct {
	Updated time.Time `json:"updated"`
	Alerts  []Alert   `json:"alerts"`
}

type Device struct {
	MAC           string    `json:"macAddress"`
	Name          string    `json:"name"`
	LastUpdated   time.Time `json:"lastUpdated"`
	TemperatureF  *float64  `json:"temperatureF"`
	Humidity      *float64  `json:"humidity"`
	WindMph       *float64  `json:"windMph"`
	WindGustMph   *float64  `json:"windGustMph"`
	WindDirection string    `json:"windDirection,omitempty"`
	PressureInHg  *float64  `json:"pressureInHg"`
	DailyRainIn   *float64  `json:"dailyRainIn"`
}

type Station struct {
	Devices []Device `json:"devices"`
}

type AQObservation struct {
	Parameter     string    `json:"parameter"`
	AQI           int       `json:"aqi"`
	Category      string    `json:"category"`
	ReportingArea string    `json:"reportingArea"`
	Observed      time.Time `json:"observed"`
}

type AirQuality struct {
	Observed     time.Time       `json:"observed"`
	Observations []AQObservation `json:"observations"`
}

type UVHour struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type UVIndex struct {
	Hours []UVHour `json:"hours"`
}
