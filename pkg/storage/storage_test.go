package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

func TestFakeRelationalRoundTripsBurnRequest(t *testing.T) {
	r := NewFakeRelational()
	req := types.BurnRequest{ID: 1, FarmID: 10, Acres: 50, CropType: types.CropWheat}
	require.NoError(t, r.InsertBurnRequest(context.Background(), req))
	assert.Equal(t, req, r.requests[req.ID])
}

func TestFakeRelationalHistoricalFeaturesAbsentByDefault(t *testing.T) {
	r := NewFakeRelational()
	hist, ok, err := r.HistoricalFeatures(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, hist)
}

func TestFakeRelationalHistoricalFeaturesReturnsSeeded(t *testing.T) {
	r := NewFakeRelational()
	r.SetHistory(5, types.HistoricalFeatures{SuccessRate: 0.8})
	hist, ok, err := r.HistoricalFeatures(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.8, hist.SuccessRate)
}

func TestFakeRelationalRecordOutcomeUpdatesHistory(t *testing.T) {
	r := NewFakeRelational()
	require.NoError(t, r.RecordOutcome(context.Background(), 7, true, 4, false, true))
	hist, ok, err := r.HistoricalFeatures(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, hist.SuccessRate, 0.0)
}

func TestFakeVectorStoreRejectsWrongDims(t *testing.T) {
	v := NewFakeVectorStore()
	err := v.Upsert(context.Background(), VectorKindBurn, 1, make([]float64, 10))
	assert.Error(t, err)
}

func TestFakeVectorStoreRejectsNonFinite(t *testing.T) {
	v := NewFakeVectorStore()
	bad := make([]float64, 32)
	bad[0] = math.Inf(1)
	err := v.Upsert(context.Background(), VectorKindBurn, 1, bad)
	assert.Error(t, err)
}

func TestFakeVectorStoreUpsertAndSearch(t *testing.T) {
	v := NewFakeVectorStore()
	a := make([]float64, 32)
	a[0] = 1
	b := make([]float64, 32)
	b[0] = 1
	b[1] = 0.01

	require.NoError(t, v.Upsert(context.Background(), VectorKindBurn, 1, a))
	require.NoError(t, v.Upsert(context.Background(), VectorKindBurn, 2, b))

	matches, err := v.Search(context.Background(), VectorKindBurn, a, 2, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(1), matches[0].ID)
}

func TestFakeVectorStoreSearchRespectsMinSim(t *testing.T) {
	v := NewFakeVectorStore()
	a := make([]float64, 32)
	a[0] = 1
	orthogonal := make([]float64, 32)
	orthogonal[1] = 1

	require.NoError(t, v.Upsert(context.Background(), VectorKindBurn, 1, a))
	require.NoError(t, v.Upsert(context.Background(), VectorKindBurn, 2, orthogonal))

	matches, err := v.Search(context.Background(), VectorKindBurn, a, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].ID)
}

func TestSlotToHHMMMatchesSixAMBase(t *testing.T) {
	assert.Equal(t, "06:00", slotToHHMM(0))
	assert.Equal(t, "06:30", slotToHHMM(1))
	assert.Equal(t, "20:00", slotToHHMM(28))
}
