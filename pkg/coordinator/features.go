package coordinator

import (
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

// BurnFeatureDims is the fixed dimensionality of the burn feature
// vector (spec.md §4.1).
const BurnFeatureDims = 32

// cropOneHotIndex places exactly the five crops spec.md §4.1 names in
// the one-hot block (indices 18-22); everything else leaves zeros.
var cropOneHotIndex = map[types.CropType]int{
	types.CropWheat:    18,
	types.CropCorn:     19,
	types.CropSoybeans: 20,
	types.CropRice:     21,
	// index 22 is reserved for "grass", which has no BurnRequest
	// CropType analogue and is therefore never set.
}

// BurnFeatureVector computes the 32-dim, L2-normalized burn feature
// vector for req (spec.md §4.1). hist may be nil, meaning no burn
// history exists for the farm; dims 23-31 are then left zero.
func BurnFeatureVector(req types.BurnRequest, priorityScore int, hist *types.HistoricalFeatures) []float64 {
	v := make([]float64, BurnFeatureDims)

	month := int(req.BurnDate.Month())
	v[month%8] = 1

	dow := int(req.BurnDate.Weekday())
	v[8+dow] = 1

	v[15] = vector.Clamp(req.Acres/500, 0, 1)
	v[16] = float64(priorityScore) / 100
	v[17] = vector.Clamp(req.TimeWindow.Duration().Hours()/24, 0, 1)

	if idx, ok := cropOneHotIndex[req.CropType]; ok {
		v[idx] = 1
	}

	if hist != nil {
		v[23] = vector.Clamp(hist.SuccessRate, 0, 1)
		v[24] = vector.Clamp(hist.AvgDurationHours/8, 0, 1)
		v[25] = vector.Clamp(1-hist.ConflictRate, 0, 1)
		v[26] = vector.Clamp(hist.GoodWeatherRate, 0, 1)
		v[27] = vector.Clamp(hist.OnTimeRate, 0, 1)
		v[28] = vector.Clamp(hist.ExperienceScore, 0, 1)
		v[29] = vector.Clamp(hist.NoViolationRate, 0, 1)
		v[30] = vector.Clamp(hist.RecentSuccessScore, 0, 1)
		v[31] = vector.Clamp(hist.SeasonalSuccess, 0, 1)
	}

	return vector.Normalize(v)
}
