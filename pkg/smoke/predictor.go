package smoke

import (
	"log/slog"
	"math"

	"github.com/khryptorgraphics/burnwise/pkg/coordinator"
	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// Predictor produces a Prediction for a single burn request given its
// matching weather sample, and detects pairwise conflicts across a
// batch of predictions (spec.md §4.3).
type Predictor struct {
	logger *slog.Logger
}

// New builds a Predictor.
func New(logger *slog.Logger) *Predictor {
	return &Predictor{logger: logger}
}

// Predict computes the full Prediction for one burn request against
// its WeatherAnalysis's current sample. A degenerate polygon defaults
// its centroid to the configured regional fallback and flags the
// result LowConfidence, per spec.md §4.3.
func (p *Predictor) Predict(req types.BurnRequest, weather types.WeatherSample) (types.Prediction, error) {
	emissions, err := Emissions(req.Acres, req.CropType, req.ID)
	if err != nil {
		return types.Prediction{}, err
	}

	_, centroidOK := coordinator.Centroid(req.FieldBoundary)
	lowConfidence := !centroidOK

	windMs := weather.WindSpeedMph * 0.44704
	isDay := true // every prediction uses the daytime stability table; the burn's hour is not consulted
	class := StabilityClassFor(weather.WindSpeedMph, weather.CloudCoverPct, isDay)

	height := EffectiveHeight(emissions.EmissionRateGramsPerSec, windMs)
	field := ConcentrationField(emissions.EmissionRateGramsPerSec, windMs, height, class)
	maxRadius := MaxRadius(emissions.EmissionRateGramsPerSec, windMs, height, class)
	area := AffectedAreaKm2(maxRadius, class)

	plumeVec := PlumeFeatureVector(
		emissions.EmissionRateGramsPerSec, emissions.TotalEmissionsKg,
		windMs, weather.WindDirectionDeg, height, class, field, emissions.DurationHours,
	)

	confidence := confidenceScore(weather.Reliability, field)

	return types.Prediction{
		BurnRequestID:       req.ID,
		EmissionRate:        emissions.EmissionRateGramsPerSec,
		TotalEmissions:      emissions.TotalEmissionsKg,
		BurnDurationHours:   emissions.DurationHours,
		StabilityClass:      class,
		ConcentrationField:  field,
		MaxRadiusM:          maxRadius,
		AffectedAreaKm2:     area,
		WindSpeedMs:         windMs,
		EffectiveHeightM:    height,
		PlumeVector:         plumeVec,
		Confidence:          confidence,
		LowConfidence:       lowConfidence,
	}, nil
}

// confidenceScore derives a 0-1 confidence from weather reliability,
// sample count, and the dynamic range of sigma_z across the
// concentration grid, per spec.md §4.3.
func confidenceScore(reliability string, field []types.ConcentrationSample) float64 {
	base := 0.9
	if reliability == "low" {
		base = 0.5
	}

	sampleFactor := math.Min(1.0, float64(len(field))/float64(len(ConcentrationGridDistances)))

	var minSz, maxSz float64
	for i, s := range field {
		if i == 0 || s.SigmaZ < minSz {
			minSz = s.SigmaZ
		}
		if i == 0 || s.SigmaZ > maxSz {
			maxSz = s.SigmaZ
		}
	}
	rangeFactor := 1.0
	if maxSz > 0 {
		spread := (maxSz - minSz) / maxSz
		rangeFactor = 1.0 - 0.3*math.Min(spread, 1.0)
	}

	c := base * sampleFactor * rangeFactor
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// BatchDetectConflicts wires DetectConflicts across a full batch of
// predictions paired with their originating requests, returning each
// burn's conflicts keyed by request ID.
func BatchDetectConflicts(requests []types.BurnRequest, predictions map[int64]types.Prediction) map[int64][]types.Conflict {
	geoms := make([]burnGeometry, 0, len(requests))
	for _, req := range requests {
		pred, ok := predictions[req.ID]
		if !ok {
			continue
		}
		centroid, _ := coordinator.Centroid(req.FieldBoundary)
		pred := pred // capture for closure
		geoms = append(geoms, burnGeometry{
			RequestID:  req.ID,
			Centroid:   centroid,
			MaxRadiusM: pred.MaxRadiusM,
			Window:     req.TimeWindow,
			CenterlineAtDistance: func(distanceM float64) float64 {
				sy := SigmaY(pred.StabilityClass, distanceM)
				sz := SigmaZ(pred.StabilityClass, distanceM)
				return CenterlineConcentration(pred.EmissionRate, pred.WindSpeedMs, pred.EffectiveHeightM, sy, sz)
			},
		})
	}
	return DetectConflicts(geoms)
}

// ValidateEmissions is a thin re-export used by batch callers that
// need to fail fast on bad acreage before running the rest of the
// pipeline stage.
func ValidateEmissions(acres float64, requestID int64) error {
	if acres <= 0 || math.IsNaN(acres) {
		return cerrors.Invalid(stageName, requestID, cerrors.InvalidAcreage, "acres must be positive")
	}
	return nil
}
