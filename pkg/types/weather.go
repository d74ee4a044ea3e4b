package types

import "time"

// WeatherSample is a single meteorological observation or forecast point.
type WeatherSample struct {
	Location             Point     `json:"location"`
	ObservationTime      time.Time `json:"observation_time"`
	TemperatureF         float64   `json:"temperature_f"`
	HumidityPct          float64   `json:"humidity_pct"`
	WindSpeedMph         float64   `json:"wind_speed_mph"`
	WindDirectionDeg     float64   `json:"wind_direction_deg"`
	PressureInHg         float64   `json:"pressure_in_hg"`
	CloudCoverPct        float64   `json:"cloud_cover_pct"`
	PrecipitationProbPct float64   `json:"precipitation_prob_pct"`
	VisibilityMi         float64   `json:"visibility_mi"`

	// Reliability is "normal" for a fresh upstream sample, or "low"
	// when served from the last-known-good fallback during a provider
	// outage (spec.md §4.2).
	Reliability string `json:"reliability"`
}

// BurnWindow is a maximal run of forecast slots meeting the suitability
// thresholds in spec.md §4.2, covering at least 6 hours.
type BurnWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeatherAnalysis is the Weather Analyzer's output for one burn request.
type WeatherAnalysis struct {
	BurnRequestID int64           `json:"burn_request_id"`
	Current       WeatherSample   `json:"current"`
	Forecast      []WeatherSample `json:"forecast"`
	Suitability   float64         `json:"suitability"` // 0-1
	BurnWindows   []BurnWindow    `json:"burn_windows"`
}
