package optimizer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInputs() []Input {
	return []Input{
		{RequestID: 1, PriorityScore: 90, DurationSlots: 4, WindowStartSlot: 0, WindowEndSlot: 20, Suitability: 0.8},
		{RequestID: 2, PriorityScore: 70, DurationSlots: 4, WindowStartSlot: 0, WindowEndSlot: 20, Suitability: 0.6},
		{RequestID: 3, PriorityScore: 50, DurationSlots: 4, WindowStartSlot: 0, WindowEndSlot: 20, Suitability: 0.5},
	}
}

func TestOptimizeEmptyInputProducesEmptySchedule(t *testing.T) {
	o := New(discardLogger())
	result := o.Optimize(context.Background(), "2025-09-15", nil, nil, 1)
	assert.Equal(t, 0.0, result.Metrics.OverallScore)
	assert.NotEmpty(t, result.Metrics.Reason)
	assert.Empty(t, result.Schedule.Assignments)
}

func TestOptimizeDeterministicGivenSameSeed(t *testing.T) {
	o := New(discardLogger())
	r1 := o.Optimize(context.Background(), "2025-09-15", sampleInputs(), nil, 42)
	r2 := o.Optimize(context.Background(), "2025-09-15", sampleInputs(), nil, 42)
	assert.Equal(t, r1.Schedule.Assignments, r2.Schedule.Assignments)
	assert.Equal(t, r1.Metrics.OverallScore, r2.Metrics.OverallScore)
	// spec.md §8 requires byte-identical runs given the same seed, not
	// just the same final assignments.
	assert.Equal(t, r1.Metrics.Iterations, r2.Metrics.Iterations)
	assert.Equal(t, r1.Metrics.Reheats, r2.Metrics.Reheats)
	assert.Equal(t, r1.Metrics.FinalTemperature, r2.Metrics.FinalTemperature)
	assert.Equal(t, r1.Metrics.ImprovementHistory, r2.Metrics.ImprovementHistory)
}

func TestOptimizeRespectsSlotOccupancyCeiling(t *testing.T) {
	inputs := make([]Input, 0, 60)
	for i := int64(1); i <= 60; i++ {
		inputs = append(inputs, Input{
			RequestID: i, PriorityScore: int(i), DurationSlots: 2,
			WindowStartSlot: 0, WindowEndSlot: 4, Suitability: 0.7,
		})
	}
	o := New(discardLogger())
	result := o.Optimize(context.Background(), "2025-09-15", inputs, nil, 7)

	occ := make(map[int]int)
	for _, a := range result.Schedule.Assignments {
		for slot := a.StartSlot; slot < a.EndSlot; slot++ {
			occ[slot]++
		}
	}
	for _, count := range occ {
		assert.LessOrEqual(t, count, types.MaxDailyBurns)
	}
}

func TestOptimizeNoRequestScheduledTwice(t *testing.T) {
	o := New(discardLogger())
	result := o.Optimize(context.Background(), "2025-09-15", sampleInputs(), nil, 3)
	seen := make(map[int64]bool)
	for id := range result.Schedule.Assignments {
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestOptimizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(discardLogger())
	result := o.Optimize(ctx, "2025-09-15", sampleInputs(), nil, 1)
	// Even cancelled mid-run, the best-known solution so far must be
	// returned, never a panic or an empty/garbage schedule.
	assert.GreaterOrEqual(t, result.Metrics.OverallScore, 0.0)
}

func TestScoreWeightsSumToOne(t *testing.T) {
	sum := weightSmokeConflicts + weightTimeWindowViolations + weightWeatherConditions +
		weightPriorityScores + weightResourceUtilization
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSolutionFeasibleRejectsOverCapacity(t *testing.T) {
	s := NewSolution([]int64{1, 2})
	for i := int64(1); i <= types.MaxDailyBurns; i++ {
		s.Assignments[i] = types.Assignment{StartSlot: 0, EndSlot: 1}
	}
	assert.False(t, s.Feasible(999, types.Assignment{StartSlot: 0, EndSlot: 1}))
}

func TestSolutionCloneIsIndependent(t *testing.T) {
	s := NewSolution([]int64{1})
	s2 := s.WithAssignment(1, types.Assignment{StartSlot: 0, EndSlot: 2})
	assert.Empty(t, s.Assignments)
	assert.NotEmpty(t, s2.Assignments)
}
