package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// openMeteoForecastURL is the upstream this client speaks to. No API
// key or account is required for non-commercial use.
const openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements Provider against the Open-Meteo
// forecast API over plain net/http, matching the teacher's own
// http.Client{Timeout: ...} convention rather than pulling in a
// third-party HTTP client.
type OpenMeteoProvider struct {
	client *http.Client
}

// NewOpenMeteoProvider builds a Provider with a bounded request
// timeout.
func NewOpenMeteoProvider(timeout time.Duration) *OpenMeteoProvider {
	return &OpenMeteoProvider{client: &http.Client{Timeout: timeout}}
}

type openMeteoResponse struct {
	Current struct {
		Time                string  `json:"time"`
		Temperature2m       float64 `json:"temperature_2m"`
		RelativeHumidity2m  float64 `json:"relative_humidity_2m"`
		PrecipitationProb   float64 `json:"precipitation_probability"`
		CloudCover          float64 `json:"cloud_cover"`
		SurfacePressure     float64 `json:"surface_pressure"`
		WindSpeed10m        float64 `json:"wind_speed_10m"`
		WindDirection10m    float64 `json:"wind_direction_10m"`
		Visibility          float64 `json:"visibility"`
	} `json:"current"`
	Hourly struct {
		Time               []string  `json:"time"`
		Temperature2m      []float64 `json:"temperature_2m"`
		RelativeHumidity2m []float64 `json:"relative_humidity_2m"`
		PrecipitationProb  []float64 `json:"precipitation_probability"`
		CloudCover         []float64 `json:"cloud_cover"`
		SurfacePressure    []float64 `json:"surface_pressure"`
		WindSpeed10m       []float64 `json:"wind_speed_10m"`
		WindDirection10m   []float64 `json:"wind_direction_10m"`
		Visibility         []float64 `json:"visibility"`
	} `json:"hourly"`
}

const (
	currentFields = "temperature_2m,relative_humidity_2m,precipitation_probability,cloud_cover,surface_pressure,wind_speed_10m,wind_direction_10m,visibility"
	hourlyFields  = currentFields
)

func (p *OpenMeteoProvider) Current(ctx context.Context, loc types.Point) (types.WeatherSample, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 6, 64))
	q.Set("current", currentFields)
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")

	resp, err := p.fetch(ctx, q)
	if err != nil {
		return types.WeatherSample{}, err
	}

	return types.WeatherSample{
		Location:             loc,
		ObservationTime:      time.Now(),
		TemperatureF:         resp.Current.Temperature2m,
		HumidityPct:          resp.Current.RelativeHumidity2m,
		WindSpeedMph:         resp.Current.WindSpeed10m,
		WindDirectionDeg:     resp.Current.WindDirection10m,
		PressureInHg:         hpaToInHg(resp.Current.SurfacePressure),
		CloudCoverPct:        resp.Current.CloudCover,
		PrecipitationProbPct: resp.Current.PrecipitationProb,
		VisibilityMi:         metersToMiles(resp.Current.Visibility),
		Reliability:          "normal",
	}, nil
}

func (p *OpenMeteoProvider) Forecast(ctx context.Context, loc types.Point, horizonHours int) ([]types.WeatherSample, error) {
	forecastDays := (horizonHours + 23) / 24
	if forecastDays < 1 {
		forecastDays = 1
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 6, 64))
	q.Set("hourly", hourlyFields)
	q.Set("forecast_days", strconv.Itoa(forecastDays))
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")

	resp, err := p.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	n := len(resp.Hourly.Time)
	samples := make([]types.WeatherSample, 0, n)
	for i := 0; i < n && i < horizonHours; i++ {
		obsTime, err := time.Parse("2006-01-02T15:04", resp.Hourly.Time[i])
		if err != nil {
			continue
		}
		samples = append(samples, types.WeatherSample{
			Location:             loc,
			ObservationTime:      obsTime,
			TemperatureF:         at(resp.Hourly.Temperature2m, i),
			HumidityPct:          at(resp.Hourly.RelativeHumidity2m, i),
			WindSpeedMph:         at(resp.Hourly.WindSpeed10m, i),
			WindDirectionDeg:     at(resp.Hourly.WindDirection10m, i),
			PressureInHg:         hpaToInHg(at(resp.Hourly.SurfacePressure, i)),
			CloudCoverPct:        at(resp.Hourly.CloudCover, i),
			PrecipitationProbPct: at(resp.Hourly.PrecipitationProb, i),
			VisibilityMi:         metersToMiles(at(resp.Hourly.Visibility, i)),
			Reliability:          "normal",
		})
	}
	return samples, nil
}

func (p *OpenMeteoProvider) fetch(ctx context.Context, q url.Values) (*openMeteoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openMeteoForecastURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("open-meteo returned %d: %s", resp.StatusCode, body)
	}

	var out openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode open-meteo response: %w", err)
	}
	return &out, nil
}

func at(vals []float64, i int) float64 {
	if i < 0 || i >= len(vals) {
		return 0
	}
	return vals[i]
}

func hpaToInHg(hpa float64) float64 {
	return hpa * 0.0295299830714
}

func metersToMiles(m float64) float64 {
	return m * 0.000621371
}
