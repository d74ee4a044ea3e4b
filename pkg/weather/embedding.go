package weather

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

// WeatherEmbeddingDims is the fixed dimensionality of a weather
// embedding vector (spec.md §4.2, §9).
const WeatherEmbeddingDims = 128

// HashEmbedder is a deterministic, dependency-free fallback for the
// external Embedder capability: it derives a 128-dim unit vector from
// a blake2b digest of the sample's text representation, so the same
// sample always embeds to the same vector without a network call.
// Used when no embedding service is configured, and in tests.
type HashEmbedder struct{}

// Embed hashes text into WeatherEmbeddingDims float64 components via
// blake2b-512 output expansion (one digest per 64-byte block), then
// L2-normalizes the result. ctx is accepted to satisfy Embedder but
// unused: hashing never blocks.
func (HashEmbedder) Embed(_ context.Context, text string, dims int) ([]float64, error) {
	out := make([]float64, dims)
	block := 0
	filled := 0
	for filled < dims {
		h, err := blake2b.New512([]byte(fmt.Sprintf("block-%d", block)))
		if err != nil {
			return nil, err
		}
		h.Write([]byte(text))
		sum := h.Sum(nil)
		for i := 0; i+8 <= len(sum) && filled < dims; i += 8 {
			bits := binary.BigEndian.Uint64(sum[i : i+8])
			// Map to [-1, 1]: reduce modulo 2000001, scale by 1e-6, shift by -1.
			out[filled] = (float64(bits%2000001) / 1000000.0) - 1.0
			filled++
		}
		block++
	}
	return vector.Normalize(out), nil
}

// EmbedSample renders a WeatherSample into the canonical text form
// used for embedding, then hashes it into a unit vector.
func EmbedSample(ctx context.Context, s types.WeatherSample) ([]float64, error) {
	text := fmt.Sprintf(
		"temp=%.2f humidity=%.2f wind=%.2f dir=%.2f pressure=%.2f cloud=%.2f precip=%.2f vis=%.2f",
		s.TemperatureF, s.HumidityPct, s.WindSpeedMph, s.WindDirectionDeg,
		s.PressureInHg, s.CloudCoverPct, s.PrecipitationProbPct, s.VisibilityMi,
	)
	return HashEmbedder{}.Embed(ctx, text, WeatherEmbeddingDims)
}
