// Package smoke implements the Smoke Predictor stage (spec.md §4.3):
// emissions physics, Pasquill-Gifford stability classification,
// Briggs-rural Gaussian plume dispersion, the 64-dim plume feature
// vector, and pairwise conflict detection.
package smoke

import (
	"math"
	"time"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

const stageName = "smoke"

// emissionFactorKgPerTonne is kg PM2.5 emitted per tonne of dry fuel
// burned, keyed by crop (spec.md §4.3).
var emissionFactorKgPerTonne = map[types.CropType]float64{
	types.CropRice:      3.2,
	types.CropWheat:     2.8,
	types.CropCorn:      2.1,
	types.CropBarley:    2.5,
	types.CropOats:      2.3,
	types.CropCotton:    4.1,
	types.CropSoybeans:  1.9,
	types.CropSunflower: 2.2,
	types.CropSorghum:   3.0,
	types.CropOther:     2.5,
}

// biomassTonnesPerAcre is the crop-specific dry fuel load per acre.
// Not specified numerically by spec.md beyond "crop-specific constant";
// values follow USDA residue-to-crop ratios typical for stubble
// burning, independent of the emission factors above (corn carries the
// most residue but a low emission factor).
var biomassTonnesPerAcre = map[types.CropType]float64{
	types.CropRice:      3.5,
	types.CropWheat:     2.8,
	types.CropCorn:      4.2,
	types.CropBarley:    2.6,
	types.CropOats:      2.4,
	types.CropCotton:    3.0,
	types.CropSoybeans:  2.0,
	types.CropSunflower: 2.2,
	types.CropSorghum:   2.9,
	types.CropOther:     2.5,
}

func biomassFor(crop types.CropType) float64 {
	if v, ok := biomassTonnesPerAcre[crop]; ok {
		return v
	}
	return biomassTonnesPerAcre[types.CropOther]
}

func emissionFactorFor(crop types.CropType) float64 {
	if v, ok := emissionFactorKgPerTonne[crop]; ok {
		return v
	}
	return emissionFactorKgPerTonne[types.CropOther]
}

// EmissionsResult is the physics layer's derived burn characteristics.
type EmissionsResult struct {
	EmissionRateGramsPerSec float64
	TotalEmissionsKg        float64
	DurationHours           float64
}

// Emissions computes total PM2.5 emissions, burn duration, and the
// resulting steady-state emission rate, per spec.md §4.3. acres <= 0
// is an InvalidAcreage error.
func Emissions(acres float64, crop types.CropType, requestID int64) (EmissionsResult, error) {
	if acres <= 0 || math.IsNaN(acres) {
		return EmissionsResult{}, cerrors.Invalid(stageName, requestID, cerrors.InvalidAcreage, "acres must be positive")
	}

	biomassTonnes := acres * biomassFor(crop)
	totalEmissionsKg := biomassTonnes * emissionFactorFor(crop)

	durationHours := acres / 25.0 // larger burns take proportionally longer; calibrated to spec.md §8 scenario 1 (100ac -> 4h)
	if durationHours < 2 {
		durationHours = 2
	}
	if durationHours > 8 {
		durationHours = 8
	}

	totalEmissionsGrams := totalEmissionsKg * 1000.0
	rate := totalEmissionsGrams / (durationHours * 3600.0)

	return EmissionsResult{
		EmissionRateGramsPerSec: rate,
		TotalEmissionsKg:        totalEmissionsKg,
		DurationHours:           durationHours,
	}, nil
}

// StabilityClassFor resolves the Pasquill-Gifford class from wind
// speed (mph), cloud cover percent, and whether it's daytime, per the
// lookup table in spec.md §4.3. Ambiguous cells resolve to the later
// class in the pair; zero/negative/NaN wind defaults to D.
func StabilityClassFor(windMph, cloudCoverPct float64, isDaytime bool) types.StabilityClass {
	if windMph <= 0 || math.IsNaN(windMph) {
		return types.StabilityD
	}

	var insolation string
	if isDaytime {
		switch {
		case cloudCoverPct < 25:
			insolation = "strong"
		case cloudCoverPct <= 50:
			insolation = "moderate"
		default:
			insolation = "slight"
		}
	} else {
		if cloudCoverPct < 50 {
			insolation = "night_clear"
		} else {
			insolation = "night_cloudy"
		}
	}

	switch {
	case windMph < 2:
		switch insolation {
		case "strong":
			return types.StabilityA
		case "moderate":
			return types.StabilityB // A-B resolves to B
		case "slight":
			return types.StabilityB
		default:
			return types.StabilityF
		}
	case windMph < 3:
		switch insolation {
		case "strong":
			return types.StabilityB // A-B resolves to B
		case "moderate":
			return types.StabilityB
		case "slight":
			return types.StabilityC
		case "night_clear":
			return types.StabilityF
		default:
			return types.StabilityE
		}
	case windMph < 5:
		switch insolation {
		case "strong":
			return types.StabilityB
		case "moderate":
			return types.StabilityC // B-C resolves to C
		case "slight":
			return types.StabilityC
		case "night_clear":
			return types.StabilityE
		default:
			return types.StabilityD
		}
	case windMph < 6:
		switch insolation {
		case "strong":
			return types.StabilityC
		case "moderate":
			return types.StabilityD // C-D resolves to D
		case "slight":
			return types.StabilityD
		default:
			return types.StabilityD
		}
	default:
		switch insolation {
		case "strong":
			return types.StabilityC
		default:
			return types.StabilityD
		}
	}
}

// briggsRuralCoefficients holds the class-dependent sigma_y/sigma_z
// coefficients for the Briggs-rural dispersion forms.
type briggsRuralCoefficients struct {
	a float64 // sigma_y = a * x^0.894
	b float64 // sigma_z = b * x^c
	c float64
}

var briggsRural = map[types.StabilityClass]briggsRuralCoefficients{
	types.StabilityA: {a: 0.22, b: 0.20, c: 1.0},
	types.StabilityB: {a: 0.16, b: 0.12, c: 1.0},
	types.StabilityC: {a: 0.11, b: 0.08, c: 0.9144},
	types.StabilityD: {a: 0.08, b: 0.06, c: 0.8534},
	types.StabilityE: {a: 0.06, b: 0.03, c: 0.8098},
	types.StabilityF: {a: 0.04, b: 0.016, c: 0.8098},
}

const dispersionEpsilon = 1e-3

// SigmaY returns the Briggs-rural horizontal dispersion coefficient at
// downwind distance x (meters) for the given stability class.
func SigmaY(class types.StabilityClass, x float64) float64 {
	if x <= 0 {
		return dispersionEpsilon
	}
	coef := briggsRural[class]
	v := coef.a * math.Pow(x, 0.894)
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return dispersionEpsilon
	}
	return v
}

// SigmaZ returns the Briggs-rural vertical dispersion coefficient at
// downwind distance x (meters) for the given stability class.
func SigmaZ(class types.StabilityClass, x float64) float64 {
	if x <= 0 {
		return dispersionEpsilon
	}
	coef := briggsRural[class]
	v := coef.b * math.Pow(x, coef.c)
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return dispersionEpsilon
	}
	return v
}

// EffectiveHeight estimates plume rise from heat flux and wind speed
// using a simplified Briggs plume-rise form: rise is greater for
// lower wind speed and larger emission rate (proxying heat flux).
func EffectiveHeight(emissionRateGramsPerSec, windSpeedMs float64) float64 {
	u := math.Max(windSpeedMs, 0.5)
	rise := 1.6 * math.Cbrt(emissionRateGramsPerSec) / u
	if rise < 0 || math.IsNaN(rise) || math.IsInf(rise, 0) {
		return 0
	}
	if rise > 50 {
		return 50
	}
	return rise
}

// CenterlineConcentration computes ground-level PM2.5 concentration
// (µg/m3) at downwind distance x (meters) per spec.md §4.3's Gaussian
// plume formula, with ground reflection folded into the leading
// constant (factor of 2 for an elevated source reflecting at z=0).
func CenterlineConcentration(emissionRateGramsPerSec, windSpeedMs, effectiveHeightM, sigmaY, sigmaZ float64) float64 {
	u := math.Max(windSpeedMs, 0.5)
	if sigmaY <= 0 || sigmaZ <= 0 {
		return 0
	}
	q := emissionRateGramsPerSec
	h := effectiveHeightM
	base := q / (math.Pi * u * sigmaY * sigmaZ)
	reflectionFactor := 2.0
	decay := math.Exp(-(h * h) / (2 * sigmaZ * sigmaZ))
	c := reflectionFactor * base * decay * 1e6
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

// ConcentrationGridDistances are the fixed log-spaced sample distances
// (meters) spec.md §4.3 requires for the concentration field.
var ConcentrationGridDistances = []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000}

const (
	epaDailyUgM3     = 35.0
	epaUnhealthyUgM3 = 55.0
	epaHazardousUgM3 = 250.0
	epaAnnualUgM3    = 12.0
)

// ConcentrationField samples CenterlineConcentration across the fixed
// distance grid and flags EPA threshold exceedances.
func ConcentrationField(emissionRateGramsPerSec, windSpeedMs, effectiveHeightM float64, class types.StabilityClass) []types.ConcentrationSample {
	samples := make([]types.ConcentrationSample, 0, len(ConcentrationGridDistances))
	for _, x := range ConcentrationGridDistances {
		sy := SigmaY(class, x)
		sz := SigmaZ(class, x)
		c := CenterlineConcentration(emissionRateGramsPerSec, windSpeedMs, effectiveHeightM, sy, sz)
		samples = append(samples, types.ConcentrationSample{
			DistanceM:          x,
			CenterlinePm25UgM3: c,
			SigmaY:             sy,
			SigmaZ:             sz,
			ExceedsDaily:       c > epaDailyUgM3,
			ExceedsUnhealthy:   c > epaUnhealthyUgM3,
			ExceedsHazardous:   c > epaHazardousUgM3,
		})
	}
	return samples
}

// MaxRadius returns the largest sampled distance at which the
// centerline concentration still exceeds the EPA annual threshold
// (12 ug/m3), searching a finer grid than the reporting grid.
func MaxRadius(emissionRateGramsPerSec, windSpeedMs, effectiveHeightM float64, class types.StabilityClass) float64 {
	maxX := 0.0
	for x := 25.0; x <= 15000; x += 25.0 {
		sy := SigmaY(class, x)
		sz := SigmaZ(class, x)
		c := CenterlineConcentration(emissionRateGramsPerSec, windSpeedMs, effectiveHeightM, sy, sz)
		if c > epaAnnualUgM3 {
			maxX = x
		}
	}
	return maxX
}

// AffectedAreaKm2 approximates the plume footprint as an ellipse with
// semi-major axis maxRadius and semi-minor axis scaled by the
// sigma_y/sigma_z ratio at maxRadius, per spec.md §4.3.
func AffectedAreaKm2(maxRadiusM float64, class types.StabilityClass) float64 {
	if maxRadiusM <= 0 {
		return 0
	}
	sy := SigmaY(class, maxRadiusM)
	sz := SigmaZ(class, maxRadiusM)
	semiMinor := maxRadiusM * (sy / sz)
	areaM2 := math.Pi * maxRadiusM * semiMinor
	return areaM2 / 1e6
}

// IsDaytime reports whether t falls within 06:00-18:00 local civil time
// (approximated as the provided time's own hour component).
func IsDaytime(t time.Time) bool {
	h := t.Hour()
	return h >= 6 && h < 18
}
