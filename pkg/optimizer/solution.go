// Package optimizer implements the Schedule Optimizer stage (spec.md
// §4.4): a greedy initial solution refined by simulated annealing over
// a fixed 29-slot day, subject to per-slot occupancy and no-double-
// booking constraints.
package optimizer

import (
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// bufferSlots is the accounting-only padding applied before and after
// an assignment for occupancy reporting (spec.md §4.4: "1-hour buffer
// ... non-hard"). 1 hour / 30 min per slot = 2 slots.
const bufferSlots = 2

// Solution is the optimizer's working representation of a schedule in
// progress: a slot assignment per scheduled request, plus reasons for
// anything left unscheduled. Every mutating method returns a new
// Solution (copy-on-write) so the annealing loop can cheaply roll back
// a rejected move.
type Solution struct {
	Assignments map[int64]types.Assignment
	Unscheduled map[int64]string
}

// NewSolution builds an empty Solution with every request unscheduled.
func NewSolution(requestIDs []int64) Solution {
	s := Solution{
		Assignments: make(map[int64]types.Assignment),
		Unscheduled: make(map[int64]string, len(requestIDs)),
	}
	for _, id := range requestIDs {
		s.Unscheduled[id] = "not yet scheduled"
	}
	return s
}

// Clone deep-copies the Solution so the caller can mutate the result
// without affecting the original.
func (s Solution) Clone() Solution {
	out := Solution{
		Assignments: make(map[int64]types.Assignment, len(s.Assignments)),
		Unscheduled: make(map[int64]string, len(s.Unscheduled)),
	}
	for k, v := range s.Assignments {
		out.Assignments[k] = v
	}
	for k, v := range s.Unscheduled {
		out.Unscheduled[k] = v
	}
	return out
}

// WithAssignment returns a copy of s with requestID scheduled at a,
// removed from Unscheduled.
func (s Solution) WithAssignment(requestID int64, a types.Assignment) Solution {
	out := s.Clone()
	out.Assignments[requestID] = a
	delete(out.Unscheduled, requestID)
	return out
}

// WithUnscheduled returns a copy of s with requestID removed from
// Assignments and marked unscheduled with reason.
func (s Solution) WithUnscheduled(requestID int64, reason string) Solution {
	out := s.Clone()
	delete(out.Assignments, requestID)
	out.Unscheduled[requestID] = reason
	return out
}

// occupancyWithBuffer returns, for each slot, the count of requests
// occupying it including the accounting-only buffer. It is never used
// for constraint checks; Optimize does not call it and no
// OptimizationMetrics field reports it.
func (s Solution) occupancyWithBuffer() map[int]int {
	occ := make(map[int]int, types.SlotsPerDay)
	for _, a := range s.Assignments {
		start := a.StartSlot - bufferSlots
		end := a.EndSlot + bufferSlots
		if start < 0 {
			start = 0
		}
		if end > types.SlotsPerDay {
			end = types.SlotsPerDay
		}
		for slot := start; slot < end; slot++ {
			occ[slot]++
		}
	}
	return occ
}

// Feasible reports whether every slot in [a.StartSlot, a.EndSlot)
// would stay at or under MaxDailyBurns if requestID were assigned a,
// ignoring requestID's own current assignment if any (C1), and that
// requestID isn't already scheduled elsewhere under a different
// assignment being double-counted (C2 is structural: Assignments is a
// map keyed by request ID, so a request can never hold two slots at
// once).
func (s Solution) Feasible(requestID int64, a types.Assignment) bool {
	if a.StartSlot < 0 || a.EndSlot > types.SlotsPerDay || a.StartSlot >= a.EndSlot {
		return false
	}
	occ := s.SlotOccupancyExcluding(requestID)
	for slot := a.StartSlot; slot < a.EndSlot; slot++ {
		if occ[slot]+1 > types.MaxDailyBurns {
			return false
		}
	}
	return true
}

// SlotOccupancyExcluding returns hard per-slot occupancy (no buffer)
// as if requestID were not currently scheduled.
func (s Solution) SlotOccupancyExcluding(requestID int64) map[int]int {
	occ := make(map[int]int, types.SlotsPerDay)
	for id, a := range s.Assignments {
		if id == requestID {
			continue
		}
		for slot := a.StartSlot; slot < a.EndSlot; slot++ {
			occ[slot]++
		}
	}
	return occ
}

// ToSchedule renders the Solution as the stage's public output type.
func (s Solution) ToSchedule(date string) types.Schedule {
	return types.Schedule{
		Date:        date,
		Assignments: s.Assignments,
		Unscheduled: s.Unscheduled,
	}
}
