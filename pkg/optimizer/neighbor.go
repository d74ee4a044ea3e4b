package optimizer

import (
	"math/rand"
	"sort"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// moveKind enumerates the three neighbor-generation moves spec.md
// §4.4 requires.
type moveKind int

const (
	moveReschedule moveKind = iota
	moveSwap
	movePromote
)

// bestFeasibleSlot scans ctx's window for the highest-localSlotScore
// feasible assignment, excluding id's own current slot from the
// occupancy check. Returns ok=false if no feasible slot exists.
func bestFeasibleSlot(id int64, ctx RequestContext, s Solution, in ScoreInputs, durationSlots int) (types.Assignment, bool) {
	best := types.Assignment{}
	bestScore := -1.0
	found := false

	for start := ctx.WindowStartSlot; start+durationSlots <= ctx.WindowEndSlot; start++ {
		candidate := types.Assignment{StartSlot: start, EndSlot: start + durationSlots}
		if !s.Feasible(id, candidate) {
			continue
		}
		score := localSlotScore(candidate, ctx, s, id, in)
		if !found || score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	return best, found
}

func durationSlotsOf(a types.Assignment) int {
	return a.EndSlot - a.StartSlot
}

// Neighbor produces one candidate Solution by applying a uniformly
// chosen move to s. durationFor supplies each request's slot duration
// (fixed per request, derived from its predicted burn duration).
func Neighbor(s Solution, requestIDs []int64, contexts map[int64]RequestContext, in ScoreInputs, durationFor map[int64]int, rng *rand.Rand) Solution {
	switch moveKind(rng.Intn(3)) {
	case moveReschedule:
		return rescheduleMove(s, requestIDs, contexts, in, durationFor, rng)
	case moveSwap:
		return swapMove(s, contexts, in, rng)
	default:
		return promoteMove(s, requestIDs, contexts, in, durationFor, rng)
	}
}

// scheduledIDs returns the scheduled request IDs in ascending order so
// that indexing the slice with a seeded rng.Intn pick is deterministic;
// map iteration order is not.
func scheduledIDs(s Solution) []int64 {
	ids := make([]int64, 0, len(s.Assignments))
	for id := range s.Assignments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// unscheduledIDs returns the unscheduled request IDs in ascending order;
// see scheduledIDs for why the order must be stable.
func unscheduledIDs(s Solution) []int64 {
	ids := make([]int64, 0, len(s.Unscheduled))
	for id := range s.Unscheduled {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// rescheduleMove moves a random scheduled request to its currently
// best slot, which may be its existing slot or none (unscheduling it)
// if no feasible improvement exists once its own occupancy is freed.
func rescheduleMove(s Solution, requestIDs []int64, contexts map[int64]RequestContext, in ScoreInputs, durationFor map[int64]int, rng *rand.Rand) Solution {
	ids := scheduledIDs(s)
	if len(ids) == 0 {
		return s
	}
	id := ids[rng.Intn(len(ids))]
	ctx := contexts[id]

	freed := s.WithUnscheduled(id, "rescheduling")
	best, ok := bestFeasibleSlot(id, ctx, freed, in, durationFor[id])
	if !ok {
		return freed
	}
	return freed.WithAssignment(id, best)
}

// swapMove exchanges two scheduled requests' assignments, re-snapping
// each to its own window; if the swap would violate either request's
// window or C1, the move is discarded (same Solution returned).
func swapMove(s Solution, contexts map[int64]RequestContext, in ScoreInputs, rng *rand.Rand) Solution {
	ids := scheduledIDs(s)
	if len(ids) < 2 {
		return s
	}
	i := rng.Intn(len(ids))
	j := rng.Intn(len(ids))
	for j == i {
		j = rng.Intn(len(ids))
	}
	idA, idB := ids[i], ids[j]
	assignA, assignB := s.Assignments[idA], s.Assignments[idB]

	durA, durB := durationSlotsOf(assignA), durationSlotsOf(assignB)
	candA := types.Assignment{StartSlot: assignB.StartSlot, EndSlot: assignB.StartSlot + durA}
	candB := types.Assignment{StartSlot: assignA.StartSlot, EndSlot: assignA.StartSlot + durB}

	ctxA, ctxB := contexts[idA], contexts[idB]
	if candA.StartSlot < ctxA.WindowStartSlot || candA.EndSlot > ctxA.WindowEndSlot {
		return s
	}
	if candB.StartSlot < ctxB.WindowStartSlot || candB.EndSlot > ctxB.WindowEndSlot {
		return s
	}

	freed := s.WithUnscheduled(idA, "swap").WithUnscheduled(idB, "swap")
	if !freed.Feasible(idA, candA) || !freed.Feasible(idB, candB) {
		return s
	}
	return freed.WithAssignment(idA, candA).WithAssignment(idB, candB)
}

// promoteMove assigns a random unscheduled request to its best
// feasible slot, leaving it unscheduled if none exists.
func promoteMove(s Solution, requestIDs []int64, contexts map[int64]RequestContext, in ScoreInputs, durationFor map[int64]int, rng *rand.Rand) Solution {
	ids := unscheduledIDs(s)
	if len(ids) == 0 {
		return s
	}
	id := ids[rng.Intn(len(ids))]
	ctx := contexts[id]

	best, ok := bestFeasibleSlot(id, ctx, s, in, durationFor[id])
	if !ok {
		return s
	}
	return s.WithAssignment(id, best)
}
