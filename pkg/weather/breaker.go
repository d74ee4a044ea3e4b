package weather

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// newBreaker builds the circuit breaker spec.md §5 requires around
// WeatherProvider calls: 5 consecutive failures opens the circuit for
// openFor, with a single half-open probe. Grounded on
// jordigilh-kubernaut's gobreaker wiring (no weather-specific
// precedent exists in the teacher itself).
func newBreaker(name string, maxFailures uint32, openFor time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// guardedFetch wraps fetch with the circuit breaker, returning
// ErrBreakerOpen-shaped behavior via the breaker's own error when open.
func guardedFetch(cb *gobreaker.CircuitBreaker, fetch func() (types.WeatherSample, error)) func() (types.WeatherSample, error) {
	return func() (types.WeatherSample, error) {
		result, err := cb.Execute(func() (interface{}, error) {
			return fetch()
		})
		if err != nil {
			return types.WeatherSample{}, err
		}
		return result.(types.WeatherSample), nil
	}
}
