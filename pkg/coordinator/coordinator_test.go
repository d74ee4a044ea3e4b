package coordinator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
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
		{Lat: 38.50, Lon: -121.50}, // closes the ring
	}}
}

func baseRequest() types.BurnRequest {
	return types.BurnRequest{
		ID:            1,
		FarmID:        10,
		FieldBoundary: squarePolygon(),
		Acres:         100,
		CropType:      types.CropWheat,
		BurnDate:      time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		TimeWindow:    types.TimeWindow{Start: 9 * time.Hour, End: 13 * time.Hour},
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	c := New(discardLogger(), nil)
	vr, err := c.Validate(context.Background(), baseRequest(), time.Now().Unix())
	require.NoError(t, err)
	assert.Len(t, vr.FeatureVector, BurnFeatureDims)
	assert.True(t, vector.AllFinite(vr.FeatureVector))
	assert.False(t, vr.LowConfidence)
}

func TestValidateRejectsBadAcreage(t *testing.T) {
	c := New(discardLogger(), nil)
	req := baseRequest()
	req.Acres = 0
	_, err := c.Validate(context.Background(), req, time.Now().Unix())
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.InvalidInput))
}

func TestValidateRejectsShortWindow(t *testing.T) {
	c := New(discardLogger(), nil)
	req := baseRequest()
	req.TimeWindow = types.TimeWindow{Start: 8 * time.Hour, End: 9*time.Hour + 30*time.Minute}
	_, err := c.Validate(context.Background(), req, time.Now().Unix())
	require.Error(t, err)
}

func TestValidateAcceptsExactlyTwoHourWindow(t *testing.T) {
	c := New(discardLogger(), nil)
	req := baseRequest()
	req.TimeWindow = types.TimeWindow{Start: 8 * time.Hour, End: 10 * time.Hour}
	_, err := c.Validate(context.Background(), req, time.Now().Unix())
	require.NoError(t, err)
}

func TestValidateRejectsSparsePolygon(t *testing.T) {
	c := New(discardLogger(), nil)
	req := baseRequest()
	req.FieldBoundary = types.Polygon{Points: []types.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}
	_, err := c.Validate(context.Background(), req, time.Now().Unix())
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.InvalidInput))
}

func TestValidateRejectsUnknownCrop(t *testing.T) {
	c := New(discardLogger(), nil)
	req := baseRequest()
	req.CropType = types.CropType("kelp")
	_, err := c.Validate(context.Background(), req, time.Now().Unix())
	require.Error(t, err)
}

func TestValidateIsIdempotent(t *testing.T) {
	c := New(discardLogger(), nil)
	now := time.Now().Unix()
	first, err := c.Validate(context.Background(), baseRequest(), now)
	require.NoError(t, err)
	second, err := c.Validate(context.Background(), first.Request, now)
	require.NoError(t, err)
	assert.Equal(t, first.PriorityScore, second.PriorityScore)
}

func TestPriorityScoreAcreageCapSaturates(t *testing.T) {
	low := baseRequest()
	low.Acres = 10
	high := baseRequest()
	high.Acres = 5000
	now := time.Now().Unix()
	assert.Greater(t, PriorityScore(high, now), PriorityScore(low, now))
	atCap := baseRequest()
	atCap.Acres = acreageCapAcres
	assert.Equal(t, PriorityScore(atCap, now), PriorityScore(high, now))
}

func TestPriorityScoreWithinBounds(t *testing.T) {
	req := baseRequest()
	score := PriorityScore(req, time.Now().Unix())
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
}

func TestBurnFeatureVectorNilHistoryLeavesZeros(t *testing.T) {
	req := baseRequest()
	v := BurnFeatureVector(req, 50, nil)
	require.Len(t, v, BurnFeatureDims)
	// With no history, dims 23-31 are never written, and normalization
	// keeps zeros at zero.
	for i := 23; i < BurnFeatureDims; i++ {
		assert.Equal(t, 0.0, v[i], "dim %d", i)
	}
}

func TestBurnFeatureVectorUnitNorm(t *testing.T) {
	req := baseRequest()
	v := BurnFeatureVector(req, 80, &types.HistoricalFeatures{SuccessRate: 0.9})
	assert.InDelta(t, 1.0, vector.Norm(v), 1e-9)
}
