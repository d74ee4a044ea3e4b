package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

// FakeRelational is an in-memory Relational used by tests and by
// callers that haven't wired a real Postgres instance yet.
type FakeRelational struct {
	mu        sync.Mutex
	requests  map[int64]types.BurnRequest
	schedules map[string]types.Schedule
	history   map[int64]types.HistoricalFeatures
}

// NewFakeRelational builds an empty FakeRelational.
func NewFakeRelational() *FakeRelational {
	return &FakeRelational{
		requests:  make(map[int64]types.BurnRequest),
		schedules: make(map[string]types.Schedule),
		history:   make(map[int64]types.HistoricalFeatures),
	}
}

func (f *FakeRelational) InsertBurnRequest(_ context.Context, req types.BurnRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = req
	return nil
}

func (f *FakeRelational) SaveSchedule(_ context.Context, scheduleID string, _ string, schedule types.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[scheduleID] = schedule
	return nil
}

func (f *FakeRelational) HistoricalFeatures(_ context.Context, farmID int64) (*types.HistoricalFeatures, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hist, ok := f.history[farmID]
	if !ok {
		return nil, false, nil
	}
	return &hist, true, nil
}

func (f *FakeRelational) RecordOutcome(_ context.Context, farmID int64, success bool, durationHours float64, hadConflict bool, onTime bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hist := f.history[farmID]
	if success {
		hist.SuccessRate = (hist.SuccessRate + 1) / 2
	}
	if hadConflict {
		hist.ConflictRate = (hist.ConflictRate + 1) / 2
	}
	if onTime {
		hist.OnTimeRate = (hist.OnTimeRate + 1) / 2
	}
	hist.AvgDurationHours = (hist.AvgDurationHours + durationHours) / 2
	f.history[farmID] = hist
	return nil
}

// SetHistory seeds a farm's historical features directly, for tests.
func (f *FakeRelational) SetHistory(farmID int64, hist types.HistoricalFeatures) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[farmID] = hist
}

// FakeVectorStore is an in-memory VectorStore with the same
// finite/dimension validation as jsonbVectorStore, for tests.
type FakeVectorStore struct {
	mu      sync.Mutex
	vectors map[VectorKind]map[int64][]float64
}

// NewFakeVectorStore builds an empty FakeVectorStore.
func NewFakeVectorStore() *FakeVectorStore {
	return &FakeVectorStore{vectors: make(map[VectorKind]map[int64][]float64)}
}

func (f *FakeVectorStore) Upsert(_ context.Context, kind VectorKind, id int64, v []float64) error {
	dims, ok := vectorKindDims[kind]
	if !ok || len(v) != dims || !vector.AllFinite(v) {
		return errInvalidVector
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vectors[kind] == nil {
		f.vectors[kind] = make(map[int64][]float64)
	}
	stored := make([]float64, len(v))
	copy(stored, v)
	f.vectors[kind][id] = stored
	return nil
}

func (f *FakeVectorStore) Search(_ context.Context, kind VectorKind, query []float64, k int, minSim float64) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []Match
	for id, candidate := range f.vectors[kind] {
		sim := vector.CosineSimilarity(query, candidate)
		if sim >= minSim {
			matches = append(matches, Match{ID: id, Similarity: sim})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

var errInvalidVector = &vectorError{"invalid vector for kind"}

type vectorError struct{ msg string }

func (e *vectorError) Error() string { return e.msg }
