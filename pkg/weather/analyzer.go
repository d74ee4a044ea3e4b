package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

const stageName = "weather"

// Analyzer implements the Weather Analyzer stage contract:
// analyze(location, date, window) -> (current, forecast, suitability,
// burnWindows) (spec.md §4.2).
type Analyzer struct {
	provider   Provider
	cache      *Cache
	currentCB  *gobreaker.CircuitBreaker
	forecastCB *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// New builds an Analyzer with a TTL cache and circuit breaker around
// provider calls (spec.md §5: 5 failures -> 60s open -> 1 probe).
func New(provider Provider, cacheTTL time.Duration, breakerMaxFailures uint32, breakerOpenFor time.Duration, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		provider:   provider,
		cache:      NewCache(cacheTTL),
		currentCB:  newBreaker("weather.current", breakerMaxFailures, breakerOpenFor, logger),
		forecastCB: newBreaker("weather.forecast", breakerMaxFailures, breakerOpenFor, logger),
		logger:     logger,
	}
}

// Analyze fetches current + forecast weather for loc, scores
// suitability, and extracts acceptable burn windows within the
// requested date/window (spec.md §4.2).
func (a *Analyzer) Analyze(ctx context.Context, loc types.Point, date time.Time, window types.TimeWindow, requestID int64) (types.WeatherAnalysis, error) {
	fetchCurrent := guardedFetch(a.currentCB, func() (types.WeatherSample, error) {
		return a.provider.Current(ctx, loc)
	})
	current, err := a.cache.Get(loc, fetchCurrent)
	if err != nil {
		return types.WeatherAnalysis{}, cerrors.Unavailable(stageName, requestID, "weather provider unavailable", err)
	}

	forecast, err := a.fetchForecast(ctx, loc)
	if err != nil {
		// Degrade to current-only: suitability can still be derived
		// from the current sample, but no burn windows can be
		// extracted without a forecast.
		a.logger.Warn("forecast unavailable, degrading to current sample only", "request_id", requestID, "error", err)
		forecast = nil
	}

	suitability := Suitability(current)
	windows := BurnWindows(forecast, date)

	return types.WeatherAnalysis{
		BurnRequestID: requestID,
		Current:       current,
		Forecast:      forecast,
		Suitability:   suitability,
		BurnWindows:   windows,
	}, nil
}

// fetchForecast wraps the provider's Forecast call with the forecast
// circuit breaker. Forecasts aren't single-flight cached: they are
// requested once per analysis and the 72h horizon is fixed.
func (a *Analyzer) fetchForecast(ctx context.Context, loc types.Point) ([]types.WeatherSample, error) {
	result, err := a.forecastCB.Execute(func() (interface{}, error) {
		return a.provider.Forecast(ctx, loc, 72)
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.WeatherSample), nil
}

// Suitability scores a WeatherSample 0..1 per the additive rubric in
// spec.md §4.2.
func Suitability(s types.WeatherSample) float64 {
	score := 0.5

	switch {
	case s.WindSpeedMph >= 2 && s.WindSpeedMph <= 15:
		score += 0.2
	case s.WindSpeedMph < 1 || s.WindSpeedMph > 20:
		score -= 0.3
	}

	switch {
	case s.HumidityPct >= 30 && s.HumidityPct <= 70:
		score += 0.2
	case s.HumidityPct > 80 || s.HumidityPct < 20:
		score -= 0.2
	}

	switch {
	case s.PrecipitationProbPct < 20:
		score += 0.1
	case s.PrecipitationProbPct > 50:
		score -= 0.3
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// isSuitableSlot reports whether a 3-hourly forecast slot meets the
// burn-window thresholds of spec.md §4.2 (stricter than Suitability's
// scoring rubric: a hard gate, not a weighted score).
func isSuitableSlot(s types.WeatherSample) bool {
	return s.WindSpeedMph >= 2 && s.WindSpeedMph <= 15 &&
		s.HumidityPct >= 30 && s.HumidityPct <= 70 &&
		s.PrecipitationProbPct < 20
}

// BurnWindows extracts maximal runs of suitable 3-hourly forecast
// slots of length >= 2 (>= 6 hours), per spec.md §4.2.
func BurnWindows(forecast []types.WeatherSample, date time.Time) []types.BurnWindow {
	var windows []types.BurnWindow
	runStart := -1

	flush := func(endIdx int) {
		if runStart < 0 {
			return
		}
		if endIdx-runStart >= 2 {
			windows = append(windows, types.BurnWindow{
				Start: forecast[runStart].ObservationTime,
				End:   forecast[endIdx-1].ObservationTime.Add(3 * time.Hour),
			})
		}
		runStart = -1
	}

	for i, s := range forecast {
		if isSuitableSlot(s) {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(forecast))

	return windows
}
