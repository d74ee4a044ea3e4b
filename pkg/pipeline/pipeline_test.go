package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/burnwise/pkg/alerts"
	"github.com/khryptorgraphics/burnwise/pkg/coordinator"
	"github.com/khryptorgraphics/burnwise/pkg/optimizer"
	"github.com/khryptorgraphics/burnwise/pkg/smoke"
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/weather"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func squarePolygon() types.Polygon {
	return types.Polygon{Points: []types.Point{
		{Lat: 38.50, Lon: -121.50},
		{Lat: 38.51, Lon: -121.50},
		{Lat: 38.51, Lon: -121.49},
		{Lat: 38.50, Lon: -121.49},
		{Lat: 38.50, Lon: -121.50},
	}}
}

func goodWeather() types.WeatherSample {
	return types.WeatherSample{
		TemperatureF:         65,
		HumidityPct:          50,
		WindSpeedMph:         8,
		WindDirectionDeg:     270,
		PressureInHg:         30.1,
		CloudCoverPct:        20,
		PrecipitationProbPct: 5,
		VisibilityMi:         10,
		Reliability:          "normal",
	}
}

type fakeWeatherProvider struct {
	sample types.WeatherSample
	err    error
}

func (f *fakeWeatherProvider) Current(ctx context.Context, loc types.Point) (types.WeatherSample, error) {
	if f.err != nil {
		return types.WeatherSample{}, f.err
	}
	return f.sample, nil
}

func (f *fakeWeatherProvider) Forecast(ctx context.Context, loc types.Point, horizonHours int) ([]types.WeatherSample, error) {
	return []types.WeatherSample{f.sample}, nil
}

type fakeAlertTransport struct{ sent int }

func (f *fakeAlertTransport) Send(ctx context.Context, alert types.Alert) error {
	f.sent++
	return nil
}

func buildPipeline(t *testing.T, provider weather.Provider) (*Pipeline, *fakeAlertTransport) {
	t.Helper()
	logger := discardLogger()

	coord := coordinator.New(logger, nil)
	weatherAn := weather.New(provider, time.Minute, 5, time.Minute, logger)
	predictor := smoke.New(logger)
	opt := optimizer.New(logger)
	transport := &fakeAlertTransport{}
	dispatcher := alerts.New(transport, logger)

	recipients := map[int64]types.RecipientPreference{
		10: {RecipientID: 10, PreferredChannel: types.ChannelSMS},
		20: {RecipientID: 20, PreferredChannel: types.ChannelSMS},
		30: {RecipientID: 30, PreferredChannel: types.ChannelSMS},
	}
	channelStates := map[types.AlertChannel]bool{
		types.ChannelSMS: true, types.ChannelVoice: true,
		types.ChannelEmail: true, types.ChannelPush: true,
	}

	return New(coord, weatherAn, predictor, opt, dispatcher, recipients, channelStates, logger), transport
}

func burnRequest(id int64, startHour, endHour time.Duration) types.BurnRequest {
	return types.BurnRequest{
		ID:            id,
		FarmID:        id * 10,
		FieldBoundary: squarePolygon(),
		Acres:         100,
		CropType:      types.CropWheat,
		BurnDate:      time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		TimeWindow:    types.TimeWindow{Start: startHour * time.Hour, End: endHour * time.Hour},
	}
}

func TestCoordinateBatchSchedulesSingleSafeBurn(t *testing.T) {
	p, transport := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})

	result, err := p.CoordinateBatch(context.Background(), "2025-09-15",
		[]types.BurnRequest{burnRequest(1, 9, 13)},
		Options{Seed: 42, AlertsEnabled: true})

	require.NoError(t, err)
	require.Len(t, result.Schedule.Assignments, 1)
	assert.Empty(t, result.Schedule.Unscheduled)
	assert.Equal(t, 1, transport.sent)
	assert.Equal(t, 1, result.AlertsQueued)

	// spec.md §8 scenario 1: a lone 100-acre burn with good weather
	// is scheduled for its full requested 09:00-13:00 window (4h at
	// 2 slots/hour = 8 slots, 0 conflicts, overall score >= 0.85).
	a := result.Schedule.Assignments[1]
	assert.Equal(t, 6, a.StartSlot, "expected 09:00 (slot 6)")
	assert.Equal(t, 14, a.EndSlot, "expected 13:00 (slot 14)")
	assert.Equal(t, 0.0, result.Metrics.AvgConflictScore, "expected 0 conflicts")
	assert.GreaterOrEqual(t, result.Metrics.OverallScore, 0.85)
}

func TestCoordinateBatchExcludesInvalidRequestAsWarning(t *testing.T) {
	p, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})

	bad := burnRequest(2, 9, 13)
	bad.Acres = 0
	good := burnRequest(1, 9, 13)

	result, err := p.CoordinateBatch(context.Background(), "2025-09-15",
		[]types.BurnRequest{good, bad}, Options{Seed: 1})

	require.NoError(t, err)
	assert.Len(t, result.Schedule.Assignments, 1)
	assert.NotEmpty(t, result.Warnings)
	found := false
	for _, w := range result.Warnings {
		if w.RequestID == 2 && w.Stage == "coordinator" {
			found = true
		}
	}
	assert.True(t, found, "expected a coordinator warning for request 2")
}

func TestCoordinateBatchMarksOutsideOperatingWindowUnscheduled(t *testing.T) {
	p, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})

	req := burnRequest(1, 21, 23) // entirely after 20:00
	result, err := p.CoordinateBatch(context.Background(), "2025-09-15",
		[]types.BurnRequest{req}, Options{Seed: 1})

	require.NoError(t, err)
	reason, ok := result.Schedule.Unscheduled[1]
	require.True(t, ok)
	assert.Equal(t, "outside operating window", reason)
}

func TestCoordinateBatchDegradesOnWeatherOutage(t *testing.T) {
	p, _ := buildPipeline(t, &fakeWeatherProvider{err: assertErr{"provider down"}})

	result, err := p.CoordinateBatch(context.Background(), "2025-09-15",
		[]types.BurnRequest{burnRequest(1, 9, 13)}, Options{Seed: 1})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
	assert.Empty(t, result.Schedule.Assignments)
}

func TestCoordinateBatchTwoConflictingBurnsGetSeparatedOrOffset(t *testing.T) {
	p, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})

	a := burnRequest(1, 9, 17)
	b := burnRequest(2, 9, 17)
	b.FieldBoundary = squarePolygon() // identical location: forces a spatial conflict

	result, err := p.CoordinateBatch(context.Background(), "2025-09-15",
		[]types.BurnRequest{a, b}, Options{Seed: 7})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Schedule.Assignments), 2)
	require.Len(t, result.Schedule.Assignments, 2)
	first, second := result.Schedule.Assignments[1], result.Schedule.Assignments[2]
	assert.True(t, first.EndSlot <= second.StartSlot || second.EndSlot <= first.StartSlot,
		"conflicting burns overlap: %+v vs %+v", first, second)
}

func TestCoordinateBatchIsDeterministicGivenSameSeed(t *testing.T) {
	reqs := []types.BurnRequest{burnRequest(1, 9, 13), burnRequest(2, 10, 18), burnRequest(3, 8, 16)}

	p1, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})
	r1, err := p1.CoordinateBatch(context.Background(), "2025-09-15", reqs, Options{Seed: 99})
	require.NoError(t, err)

	p2, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})
	r2, err := p2.CoordinateBatch(context.Background(), "2025-09-15", reqs, Options{Seed: 99})
	require.NoError(t, err)

	assert.Equal(t, r1.Schedule.Assignments, r2.Schedule.Assignments)
	assert.Equal(t, r1.Metrics.OverallScore, r2.Metrics.OverallScore)
	// spec.md §8 requires byte-identical runs given the same seed, not
	// just the same final assignments.
	assert.Equal(t, r1.Metrics.Iterations, r2.Metrics.Iterations)
	assert.Equal(t, r1.Metrics.Reheats, r2.Metrics.Reheats)
	assert.Equal(t, r1.Metrics.FinalTemperature, r2.Metrics.FinalTemperature)
	assert.Equal(t, r1.Metrics.ImprovementHistory, r2.Metrics.ImprovementHistory)
}

func TestCoordinateBatchHonorsCancellation(t *testing.T) {
	p, _ := buildPipeline(t, &fakeWeatherProvider{sample: goodWeather()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.CoordinateBatch(ctx, "2025-09-15", []types.BurnRequest{burnRequest(1, 9, 13)}, Options{Seed: 1})
	require.NoError(t, err)
	_ = result // best-so-far, never a surprise error
}

func TestTimeWindowToSlotsClampsAndRejectsOutOfRange(t *testing.T) {
	start, end, ok := timeWindowToSlots(types.TimeWindow{Start: 9 * time.Hour, End: 13 * time.Hour})
	require.True(t, ok)
	assert.Equal(t, 6, start) // (9-6)*2
	assert.Equal(t, 14, end)  // (13-6)*2

	_, _, ok = timeWindowToSlots(types.TimeWindow{Start: 21 * time.Hour, End: 23 * time.Hour})
	assert.False(t, ok)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
