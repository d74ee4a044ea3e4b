package coordinator

import (
	"math"
	"time"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// cropEmissivityRank orders crops from most emissive (rice) to least
// (other), per spec.md §4.1. Rank 0 is most emissive.
var cropEmissivityRank = map[types.CropType]int{
	types.CropRice:      0,
	types.CropCotton:    1,
	types.CropSorghum:   2,
	types.CropCorn:      3,
	types.CropWheat:     4,
	types.CropBarley:    5,
	types.CropOats:      6,
	types.CropSunflower: 7,
	types.CropSoybeans:  8,
	types.CropOther:     9,
}

const maxCropRank = 9

// acreageCapAcres is the acreage at which the acreage-band component
// of the priority score saturates.
const acreageCapAcres = 500.0

// PriorityScore computes the integer 0-100 priority score for req, as
// of nowUnix (seconds since epoch). Ties across requests are broken
// by the caller sorting on ID ascending (spec.md §4.1).
func PriorityScore(req types.BurnRequest, nowUnix int64) int {
	acreageComponent := vClamp(req.Acres/acreageCapAcres, 0, 1)

	rank := cropEmissivityRank[req.CropType]
	cropComponent := 1 - float64(rank)/float64(maxCropRank)

	proximityComponent := proximityToNow(req, nowUnix)

	hintComponent := 0.5 // neutral when no hint is supplied
	if req.PriorityHint != nil {
		hintComponent = vClamp(float64(*req.PriorityHint)/100, 0, 1)
	}

	weighted := 0.35*acreageComponent + 0.25*cropComponent + 0.25*proximityComponent + 0.15*hintComponent

	score := int(math.Round(weighted * 100))
	return int(vClamp(float64(score), 0, 100))
}

// proximityToNow scores how soon the requested window starts relative
// to now: windows starting within the next 24h score highest, decaying
// smoothly for windows further out, and windows already in the past
// (relative to now) score a fixed 0.2.
func proximityToNow(req types.BurnRequest, nowUnix int64) float64 {
	windowStart := req.BurnDate.Add(req.TimeWindow.Start)
	now := time.Unix(nowUnix, 0).UTC()
	hoursUntil := windowStart.Sub(now).Hours()

	if hoursUntil <= 0 {
		return 0.2
	}
	if hoursUntil <= 24 {
		return 1.0
	}
	// Decay from 1.0 at 24h to ~0.1 by two weeks out.
	const decayHorizonHours = 14 * 24.0
	decayed := 1.0 - (hoursUntil-24)/decayHorizonHours
	return vClamp(decayed, 0.1, 1.0)
}

func vClamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
