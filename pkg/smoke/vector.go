package smoke

import (
	"math"

	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/vector"
)

// PlumeFeatureDims is the fixed dimensionality of a plume feature
// vector (spec.md §4.3).
const PlumeFeatureDims = 64

var stabilityOneHotIndex = map[types.StabilityClass]int{
	types.StabilityA: 0,
	types.StabilityB: 1,
	types.StabilityC: 2,
	types.StabilityD: 3,
	types.StabilityE: 4,
	types.StabilityF: 5,
}

// PlumeFeatureVector encodes a Prediction's physics outputs into a
// fixed 64-dim, unit-normalized vector (spec.md §4.3). Equal emissions
// and identical wind must produce identical vectors, since every
// component here is a pure function of its physics inputs.
func PlumeFeatureVector(emissionRateGramsPerSec, totalEmissionsKg, windSpeedMs, windDirectionDeg, effectiveHeightM float64, class types.StabilityClass, field []types.ConcentrationSample, durationHours float64) []float64 {
	v := make([]float64, PlumeFeatureDims)

	// 0-1: emissions magnitude (log-compressed to keep scale sane).
	v[0] = math.Log1p(emissionRateGramsPerSec)
	v[1] = math.Log1p(totalEmissionsKg)

	// 2-9: PM2.5 at the 8 key grid distances (log-compressed).
	for i, s := range field {
		if i >= 8 {
			break
		}
		v[2+i] = math.Log1p(s.CenterlinePm25UgM3)
	}

	// 10-13: wind dispersion signature.
	v[10] = windSpeedMs
	v[11] = effectiveHeightM
	if len(field) > 0 {
		v[12] = field[len(field)-1].SigmaY / math.Max(field[len(field)-1].SigmaZ, 1e-6)
	}
	v[13] = durationHours

	// 14-19: stability-class one-hot (6 dims).
	if idx, ok := stabilityOneHotIndex[class]; ok {
		v[14+idx] = 1.0
	}

	// 20: plume-rise magnitude (duplicated slot for model emphasis,
	// distinct from the raw value at 11 which carries sign/scale).
	v[20] = math.Log1p(effectiveHeightM)

	// 21-27: temporal-decay signature, i.e. how quickly concentration
	// falls off across the 8-point distance grid.
	for i := 1; i < len(field) && i < 9; i++ {
		prev := field[i-1].CenterlinePm25UgM3
		cur := field[i].CenterlinePm25UgM3
		if prev > 1e-9 {
			v[20+i] = (prev - cur) / prev
		}
	}

	// 29-30: geometry terms, sin/cos of wind direction.
	rad := windDirectionDeg * math.Pi / 180.0
	v[29] = math.Sin(rad)
	v[30] = math.Cos(rad)

	// 31-63 reserved for future physics signals; left zero.

	return vector.Normalize(v)
}
