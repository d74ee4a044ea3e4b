package types

// SlotsPerDay is the number of 30-minute slots between 06:00 and 20:00
// inclusive: (20:00-06:00)/30min + 1 = 29.
const SlotsPerDay = 29

// SlotMinutes is the width of one scheduling slot, in minutes.
const SlotMinutes = 30

// MaxDailyBurns is the hard per-slot occupancy ceiling (spec.md §3, C1).
const MaxDailyBurns = 50

// Assignment is a scheduled burn's slot range, [StartSlot, EndSlot).
type Assignment struct {
	StartSlot int `json:"start_slot"`
	EndSlot   int `json:"end_slot"`
}

// Schedule is a partial function from burn request ID to Assignment,
// plus the set of requests left unscheduled and why.
type Schedule struct {
	Date         string                `json:"date"` // YYYY-MM-DD
	Assignments  map[int64]Assignment  `json:"assignments"`
	Unscheduled  map[int64]string      `json:"unscheduled"` // id -> reason
}

// SlotOccupancy derives, for each slot, the set of burn IDs occupying it.
func (s *Schedule) SlotOccupancy() map[int][]int64 {
	occ := make(map[int][]int64, SlotsPerDay)
	for id, a := range s.Assignments {
		for slot := a.StartSlot; slot < a.EndSlot; slot++ {
			occ[slot] = append(occ[slot], id)
		}
	}
	return occ
}

// ImprovementSample is one recorded point in the annealing run's
// best-score history.
type ImprovementSample struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Temperature float64 `json:"temperature"`
}

// OptimizationMetrics summarizes one optimizer run.
type OptimizationMetrics struct {
	OverallScore          float64             `json:"overall_score"`
	ScheduledCount        int                 `json:"scheduled_count"`
	UnscheduledCount      int                 `json:"unscheduled_count"`
	AvgConflictScore      float64             `json:"avg_conflict_score"`
	TimeWindowCompliance  float64             `json:"time_window_compliance"`
	Iterations            int                 `json:"iterations"`
	Reheats                int                 `json:"reheats"`
	FinalTemperature       float64             `json:"final_temperature"`
	ImprovementHistory     []ImprovementSample `json:"improvement_history"`
	WeatherScore           float64             `json:"weather_score"`
	PriorityScore          float64             `json:"priority_score"`
	ResourceUtilization    float64             `json:"resource_utilization"`
	Reason                 string              `json:"reason,omitempty"` // set on emptySchedule
}
