package optimizer

import (
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// weights are the fixed score component weights from spec.md §4.4.
// Asserted to sum to 1 at package init so a typo fails loudly instead
// of silently skewing every run.
const (
	weightSmokeConflicts       = 0.35
	weightTimeWindowViolations = 0.25
	weightWeatherConditions    = 0.20
	weightPriorityScores       = 0.15
	weightResourceUtilization  = 0.05

	morningBumpStart = 2  // 07:00 as a slot offset from 06:00 (07:00-06:00)/30min
	morningBumpEnd   = 10 // 11:00 as a slot offset
	morningBump      = 0.1
)

func init() {
	sum := weightSmokeConflicts + weightTimeWindowViolations + weightWeatherConditions +
		weightPriorityScores + weightResourceUtilization
	if sum < 0.999 || sum > 1.001 {
		panic("optimizer: score weights must sum to 1")
	}
}

// RequestContext bundles the per-request data the scorer needs that
// isn't carried on Solution itself: the request's window (in slots),
// its priority score, and its weather suitability.
type RequestContext struct {
	WindowStartSlot int
	WindowEndSlot   int
	PriorityScore   int
	Suitability     float64
}

// ScoreInputs is everything Score needs besides the candidate solution:
// the full universe of requests under consideration, and each pair's
// conflict severity for temporally-overlapping scheduled burns.
type ScoreInputs struct {
	Contexts        map[int64]RequestContext
	ConflictSeverity map[[2]int64]float64 // symmetric key (min(id),max(id)) -> severity weight
}

func conflictKey(a, b int64) [2]int64 {
	if a < b {
		return [2]int64{a, b}
	}
	return [2]int64{b, a}
}

// Score computes the weighted composite score in [0,1] for s, per
// spec.md §4.4's five-component rubric. Higher is better.
func Score(s Solution, in ScoreInputs) (float64, Breakdown) {
	total := len(in.Contexts)
	if total == 0 {
		return 0, Breakdown{}
	}

	smoke := smokeConflictScore(s, in)
	window := timeWindowScore(s, in)
	weather := weatherScore(s, in)
	priority := priorityScore(s, in)
	utilization := float64(len(s.Assignments)) / float64(total)

	overall := weightSmokeConflicts*smoke +
		weightTimeWindowViolations*window +
		weightWeatherConditions*weather +
		weightPriorityScores*priority +
		weightResourceUtilization*utilization

	return overall, Breakdown{
		SmokeConflicts:       smoke,
		TimeWindowCompliance: window,
		WeatherConditions:    weather,
		PriorityScores:       priority,
		ResourceUtilization:  utilization,
	}
}

// Breakdown reports each weighted component's raw (pre-weight) value,
// used to populate OptimizationMetrics.
type Breakdown struct {
	SmokeConflicts       float64
	TimeWindowCompliance float64
	WeatherConditions    float64
	PriorityScores       float64
	ResourceUtilization  float64
}

func smokeConflictScore(s Solution, in ScoreInputs) float64 {
	if len(in.ConflictSeverity) == 0 {
		return 1
	}
	maxPairs := float64(len(in.ConflictSeverity))
	var penalized float64
	for key, severity := range in.ConflictSeverity {
		aAssign, aOK := s.Assignments[key[0]]
		bAssign, bOK := s.Assignments[key[1]]
		if !aOK || !bOK {
			continue
		}
		if slotsOverlap(aAssign, bAssign) {
			penalized += severity
		}
	}
	score := 1 - penalized/maxPairs
	if score < 0 {
		score = 0
	}
	return score
}

func slotsOverlap(a, b types.Assignment) bool {
	return a.StartSlot < b.EndSlot && b.StartSlot < a.EndSlot
}

func timeWindowScore(s Solution, in ScoreInputs) float64 {
	if len(s.Assignments) == 0 {
		return 1
	}
	compliant := 0
	for id, a := range s.Assignments {
		ctx, ok := in.Contexts[id]
		if !ok {
			continue
		}
		if a.StartSlot >= ctx.WindowStartSlot && a.EndSlot <= ctx.WindowEndSlot {
			compliant++
		}
	}
	return float64(compliant) / float64(len(s.Assignments))
}

func weatherScore(s Solution, in ScoreInputs) float64 {
	if len(s.Assignments) == 0 {
		return 0
	}
	var sum float64
	for id := range s.Assignments {
		sum += in.Contexts[id].Suitability
	}
	return sum / float64(len(s.Assignments))
}

func priorityScore(s Solution, in ScoreInputs) float64 {
	var scheduled, all float64
	for id, ctx := range in.Contexts {
		all += float64(ctx.PriorityScore)
		if _, ok := s.Assignments[id]; ok {
			scheduled += float64(ctx.PriorityScore)
		}
	}
	if all == 0 {
		return 0
	}
	return scheduled / all
}

// localSlotScore scores a single candidate slot for the greedy initial
// solution: weather suitability plus priority influence plus a
// morning-preference bump, minus concurrent-slot conflict severity.
func localSlotScore(candidate types.Assignment, ctx RequestContext, s Solution, id int64, in ScoreInputs) float64 {
	score := ctx.Suitability + float64(ctx.PriorityScore)/100.0*0.2

	if candidate.StartSlot >= morningBumpStart && candidate.StartSlot < morningBumpEnd {
		score += morningBump
	}

	for otherID, otherAssign := range s.Assignments {
		if otherID == id {
			continue
		}
		if slotsOverlap(candidate, otherAssign) {
			if sev, ok := in.ConflictSeverity[conflictKey(id, otherID)]; ok {
				score -= sev
			}
		}
	}

	return score
}
