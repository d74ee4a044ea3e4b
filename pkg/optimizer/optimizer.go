package optimizer

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

const stageName = "optimizer"

// Annealing parameters, fixed by spec.md §4.4.
const (
	initialTemperature = 1000.0
	coolingRate        = 0.95
	minTemperature     = 0.01
	maxIterations      = 10000
	maxIterNoImprove   = 1000
	maxReheats         = 3
	reheatFraction     = 0.5

	cancelCheckEvery = 256
)

// Optimizer runs the greedy-then-annealing schedule search (spec.md
// §4.4). It holds no per-run state between calls: everything a run
// needs is threaded through Optimize's arguments.
type Optimizer struct {
	logger *slog.Logger

	// MaxIterations overrides the annealing loop's iteration cap when
	// positive, for the CLI's --max-iter operator knob. Zero uses the
	// spec-fixed default of 10000.
	MaxIterations int
}

// New builds an Optimizer using the spec-fixed annealing parameters.
func New(logger *slog.Logger) *Optimizer {
	return &Optimizer{logger: logger}
}

// Input bundles one request's scheduling-relevant data.
type Input struct {
	RequestID       int64
	PriorityScore   int
	DurationSlots   int
	WindowStartSlot int
	WindowEndSlot   int
	Suitability     float64
}

// Result is the Optimizer's output: a completed Schedule plus its
// metrics.
type Result struct {
	Schedule types.Schedule
	Metrics  types.OptimizationMetrics
}

// Optimize runs the full contract: greedy initial solution, then
// simulated annealing, seeded for determinism. conflictSeverity keys
// are (min(id), max(id)) pairs with their smoke-conflict severity
// weight. Empty or invalid input produces an empty schedule with
// overallScore=0 and a reason, not an error (spec.md §4.4).
func (o *Optimizer) Optimize(ctx context.Context, date string, inputs []Input, conflictSeverity map[[2]int64]float64, seed int64) Result {
	if len(inputs) == 0 {
		return emptyResult(date, "no burn requests to schedule")
	}

	contexts := make(map[int64]RequestContext, len(inputs))
	durationFor := make(map[int64]int, len(inputs))
	requestIDs := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		if in.DurationSlots <= 0 || in.WindowStartSlot >= in.WindowEndSlot || in.WindowEndSlot > types.SlotsPerDay {
			continue
		}
		contexts[in.RequestID] = RequestContext{
			WindowStartSlot: in.WindowStartSlot,
			WindowEndSlot:   in.WindowEndSlot,
			PriorityScore:   in.PriorityScore,
			Suitability:     in.Suitability,
		}
		durationFor[in.RequestID] = in.DurationSlots
		requestIDs = append(requestIDs, in.RequestID)
	}
	if len(requestIDs) == 0 {
		return emptyResult(date, "no valid burn requests after filtering malformed windows")
	}

	scoreInputs := ScoreInputs{Contexts: contexts, ConflictSeverity: conflictSeverity}
	rng := rand.New(rand.NewSource(seed))

	initial := greedyInitial(requestIDs, contexts, scoreInputs, durationFor)
	best, metrics := anneal(ctx, initial, requestIDs, contexts, scoreInputs, durationFor, rng, o.logger, o.MaxIterations)

	for _, id := range requestIDs {
		if _, ok := best.Assignments[id]; !ok {
			if _, ok := best.Unscheduled[id]; !ok {
				best.Unscheduled[id] = "could not be feasibly scheduled"
			}
		}
	}

	_, breakdown := Score(best, scoreInputs)
	metrics.AvgConflictScore = 1 - breakdown.SmokeConflicts
	metrics.TimeWindowCompliance = breakdown.TimeWindowCompliance
	metrics.WeatherScore = breakdown.WeatherConditions
	metrics.PriorityScore = breakdown.PriorityScores
	metrics.ResourceUtilization = breakdown.ResourceUtilization

	return Result{Schedule: best.ToSchedule(date), Metrics: metrics}
}

// greedyInitial assigns requests in descending priority order, each to
// the best feasible slot in its window (spec.md §4.4). Ties are broken
// by id ascending per spec.md §4.1.
func greedyInitial(requestIDs []int64, contexts map[int64]RequestContext, in ScoreInputs, durationFor map[int64]int) Solution {
	ordered := make([]int64, len(requestIDs))
	copy(ordered, requestIDs)
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := contexts[ordered[i]].PriorityScore, contexts[ordered[j]].PriorityScore
		if pi != pj {
			return pi > pj
		}
		return ordered[i] < ordered[j]
	})

	s := NewSolution(requestIDs)
	for _, id := range ordered {
		ctx := contexts[id]
		best, ok := bestFeasibleSlot(id, ctx, s, in, durationFor[id])
		if !ok {
			s.Unscheduled[id] = "no feasible slot in window"
			continue
		}
		s = s.WithAssignment(id, best)
	}
	return s
}

// anneal runs the simulated annealing loop per spec.md §4.4's
// temperature schedule, acceptance rule, and reheat policy. maxIter
// overrides the package default iteration cap when positive.
func anneal(ctx context.Context, initial Solution, requestIDs []int64, contexts map[int64]RequestContext, in ScoreInputs, durationFor map[int64]int, rng *rand.Rand, logger *slog.Logger, maxIter int) (Solution, types.OptimizationMetrics) {
	current := initial
	currentScore, _ := Score(current, in)

	best := current
	bestScore := currentScore

	temperature := initialTemperature
	iterationsSinceImprove := 0
	reheats := 0
	iteration := 0

	if maxIter <= 0 {
		maxIter = maxIterations
	}

	var history []types.ImprovementSample
	history = append(history, types.ImprovementSample{Iteration: 0, Score: bestScore, Temperature: temperature})

	for iteration < maxIter && temperature >= minTemperature {
		if iteration%cancelCheckEvery == 0 {
			select {
			case <-ctx.Done():
				logger.Warn("optimizer cancelled mid-run", "iteration", iteration)
				return finalizeAnneal(best, bestScore, iteration, reheats, temperature, history)
			default:
			}
		}

		candidate := Neighbor(current, requestIDs, contexts, in, durationFor, rng)
		candidateScore, _ := Score(candidate, in)

		delta := candidateScore - currentScore
		accept := delta > 0
		if !accept && temperature > 0 {
			accept = rng.Float64() < math.Exp(delta/temperature)
		}

		if accept {
			current = candidate
			currentScore = candidateScore
		}

		if currentScore > bestScore {
			best = current
			bestScore = currentScore
			iterationsSinceImprove = 0
			history = append(history, types.ImprovementSample{Iteration: iteration, Score: bestScore, Temperature: temperature})
		} else {
			iterationsSinceImprove++
		}

		if iterationsSinceImprove >= maxIterNoImprove {
			if reheats < maxReheats {
				temperature = reheatFraction * initialTemperature
				iterationsSinceImprove = 0
				reheats++
				logger.Debug("optimizer reheating", "iteration", iteration, "reheats", reheats)
			} else {
				break
			}
		} else {
			temperature *= coolingRate
		}

		iteration++
	}

	return finalizeAnneal(best, bestScore, iteration, reheats, temperature, history)
}

func finalizeAnneal(best Solution, bestScore float64, iterations, reheats int, finalTemperature float64, history []types.ImprovementSample) (Solution, types.OptimizationMetrics) {
	return best, types.OptimizationMetrics{
		OverallScore:       bestScore,
		ScheduledCount:     len(best.Assignments),
		UnscheduledCount:   len(best.Unscheduled),
		Iterations:         iterations,
		Reheats:            reheats,
		FinalTemperature:   finalTemperature,
		ImprovementHistory: history,
	}
}

// emptyResult builds the emptySchedule spec.md §4.4 requires on
// empty/invalid input: a zero-score schedule with an explanatory
// reason, not an error.
func emptyResult(date, reason string) Result {
	return Result{
		Schedule: types.Schedule{Date: date, Assignments: map[int64]types.Assignment{}, Unscheduled: map[int64]string{}},
		Metrics:  types.OptimizationMetrics{OverallScore: 0, Reason: reason},
	}
}

// ValidateRequestCount is a fast-path guard batch callers can use
// before invoking Optimize, surfacing a structured error for
// observability even though Optimize itself never errors on empty
// input.
func ValidateRequestCount(count int) error {
	if count < 0 {
		return cerrors.Invariant(stageName, 0, "negative request count", nil)
	}
	return nil
}
