package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	currentCalls  int32
	currentErr    error
	currentSample types.WeatherSample
	forecastErr   error
	forecastSamples []types.WeatherSample
}

func (f *fakeProvider) Current(ctx context.Context, loc types.Point) (types.WeatherSample, error) {
	atomic.AddInt32(&f.currentCalls, 1)
	if f.currentErr != nil {
		return types.WeatherSample{}, f.currentErr
	}
	return f.currentSample, nil
}

func (f *fakeProvider) Forecast(ctx context.Context, loc types.Point, horizonHours int) ([]types.WeatherSample, error) {
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return f.forecastSamples, nil
}

func goodSample(t time.Time) types.WeatherSample {
	return types.WeatherSample{
		ObservationTime:      t,
		TemperatureF:         70,
		HumidityPct:          45,
		WindSpeedMph:         8,
		WindDirectionDeg:     180,
		PressureInHg:         29.9,
		CloudCoverPct:        20,
		PrecipitationProbPct: 5,
		VisibilityMi:         10,
		Reliability:          "normal",
	}
}

func badSample(t time.Time) types.WeatherSample {
	return types.WeatherSample{
		ObservationTime:      t,
		TemperatureF:         95,
		HumidityPct:          85,
		WindSpeedMph:         25,
		PrecipitationProbPct: 70,
		Reliability:          "normal",
	}
}

func TestSuitabilityGoodSampleScoresHigh(t *testing.T) {
	s := Suitability(goodSample(time.Now()))
	assert.GreaterOrEqual(t, s, 0.9)
}

func TestSuitabilityBadSampleScoresLow(t *testing.T) {
	s := Suitability(badSample(time.Now()))
	assert.LessOrEqual(t, s, 0.1)
}

func TestSuitabilityClampedToUnitInterval(t *testing.T) {
	extreme := badSample(time.Now())
	extreme.WindSpeedMph = 60
	extreme.HumidityPct = 99
	extreme.PrecipitationProbPct = 100
	s := Suitability(extreme)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
}

func TestBurnWindowsExtractsSixHourRun(t *testing.T) {
	base := time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC)
	forecast := []types.WeatherSample{
		goodSample(base),
		goodSample(base.Add(3 * time.Hour)),
		badSample(base.Add(6 * time.Hour)),
	}
	windows := BurnWindows(forecast, base)
	require.Len(t, windows, 1)
	assert.Equal(t, base, windows[0].Start)
	assert.Equal(t, base.Add(6*time.Hour), windows[0].End)
}

func TestBurnWindowsDropsSingleSlotRuns(t *testing.T) {
	base := time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC)
	forecast := []types.WeatherSample{
		badSample(base),
		goodSample(base.Add(3 * time.Hour)),
		badSample(base.Add(6 * time.Hour)),
	}
	windows := BurnWindows(forecast, base)
	assert.Empty(t, windows)
}

func TestCacheCoalescesConcurrentFetches(t *testing.T) {
	c := NewCache(time.Minute)
	loc := types.Point{Lat: 38.5, Lon: -121.5}
	var calls int32
	fetch := func() (types.WeatherSample, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return goodSample(time.Now()), nil
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			_, err := c.Get(loc, fetch)
			require.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	// Concurrent callers wait on the in-flight fetch and later callers
	// hit the cached entry, so the 8 callers cause one upstream call.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheFallsBackToLastGoodOnFailure(t *testing.T) {
	c := NewCache(0) // zero TTL forces re-fetch every call
	loc := types.Point{Lat: 10, Lon: 20}

	_, err := c.Get(loc, func() (types.WeatherSample, error) {
		return goodSample(time.Now()), nil
	})
	require.NoError(t, err)

	sample, err := c.Get(loc, func() (types.WeatherSample, error) {
		return types.WeatherSample{}, errors.New("upstream down")
	})
	require.NoError(t, err)
	assert.Equal(t, "low", sample.Reliability)
}

func TestCacheReturnsErrorWithNoLastGood(t *testing.T) {
	c := NewCache(time.Minute)
	loc := types.Point{Lat: 1, Lon: 1}
	_, err := c.Get(loc, func() (types.WeatherSample, error) {
		return types.WeatherSample{}, errors.New("upstream down")
	})
	require.Error(t, err)
}

func TestAnalyzeDegradesWhenForecastFails(t *testing.T) {
	provider := &fakeProvider{
		currentSample: goodSample(time.Now()),
		forecastErr:   errors.New("forecast unavailable"),
	}
	a := New(provider, time.Minute, 5, time.Second, discardLogger())
	analysis, err := a.Analyze(context.Background(), types.Point{Lat: 1, Lon: 1}, time.Now(), types.TimeWindow{}, 42)
	require.NoError(t, err)
	assert.Empty(t, analysis.Forecast)
	assert.Equal(t, int64(42), analysis.BurnRequestID)
}

func TestAnalyzeReturnsErrorWhenCurrentFailsWithNoFallback(t *testing.T) {
	provider := &fakeProvider{currentErr: errors.New("down")}
	a := New(provider, time.Minute, 5, time.Second, discardLogger())
	_, err := a.Analyze(context.Background(), types.Point{Lat: 2, Lon: 2}, time.Now(), types.TimeWindow{}, 1)
	require.Error(t, err)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := HashEmbedder{}
	v1, err := e.Embed(context.Background(), "temp=70", WeatherEmbeddingDims)
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "temp=70", WeatherEmbeddingDims)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, WeatherEmbeddingDims)
	assert.True(t, vector.AllFinite(v1))
}

func TestHashEmbedderDistinctInputsDiffer(t *testing.T) {
	e := HashEmbedder{}
	v1, err := e.Embed(context.Background(), "temp=70", WeatherEmbeddingDims)
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "temp=90", WeatherEmbeddingDims)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestEmbedSampleUnitNorm(t *testing.T) {
	v, err := EmbedSample(context.Background(), goodSample(time.Now()))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vector.Norm(v), 1e-9)
}
