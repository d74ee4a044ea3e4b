// Package weather implements the Weather Analyzer stage (spec.md
// §4.2): provider fetch with a TTL + single-flight cache and circuit
// breaker, suitability scoring, burn window extraction, and a
// deterministic hash-based embedding fallback.
package weather

import (
	"context"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// Provider is the external WeatherProvider capability (spec.md §6).
// Production wiring injects a real upstream client; tests inject a
// deterministic fake.
type Provider interface {
	Current(ctx context.Context, loc types.Point) (types.WeatherSample, error)
	Forecast(ctx context.Context, loc types.Point, horizonHours int) ([]types.WeatherSample, error)
}

// Embedder is the external embedding capability (spec.md §6, §9).
type Embedder interface {
	Embed(ctx context.Context, text string, dims int) ([]float64, error)
}
