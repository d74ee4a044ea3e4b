// Package coordinator implements the Request Coordinator stage
// (spec.md §4.1): per-request validation, priority scoring, and burn
// feature vector emission.
package coordinator

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
	"github.com/khryptorgraphics/burnwise/pkg/types"
)

const stageName = "coordinator"

// burnRequestConstraints is the struct-tag surface go-playground's
// validator checks before the coordinator's own polygon/window/crop
// rules run. It mirrors types.BurnRequest's numeric/required fields.
type burnRequestConstraints struct {
	ID       int64   `validate:"required"`
	FarmID   int64   `validate:"required"`
	Acres    float64 `validate:"gt=0"`
	CropType string  `validate:"required"`
}

// Coordinator validates BurnRequests and computes their priority score
// and feature vector. It is stateless except for its historical
// feature lookup and logger, both injected at construction.
type Coordinator struct {
	logger   *slog.Logger
	validate *validator.Validate
	history  HistoryLookup
	now      func() int64 // unix seconds; overridable in tests
}

// HistoryLookup resolves a farm's historical burn features, if any.
// A nil result with ok=false means no history exists.
type HistoryLookup interface {
	Lookup(ctx context.Context, farmID int64) (*types.HistoricalFeatures, bool)
}

// New builds a Coordinator. history may be nil, in which case every
// request is treated as having no burn history.
func New(logger *slog.Logger, history HistoryLookup) *Coordinator {
	return &Coordinator{
		logger:   logger,
		validate: validator.New(),
		history:  history,
	}
}

// Validate checks a BurnRequest against spec.md §3's invariants and,
// on success, computes its priority score and feature vector.
func (c *Coordinator) Validate(ctx context.Context, req types.BurnRequest, nowUnix int64) (types.ValidatedRequest, error) {
	constraints := burnRequestConstraints{
		ID:       req.ID,
		FarmID:   req.FarmID,
		Acres:    req.Acres,
		CropType: string(req.CropType),
	}
	if err := c.validate.Struct(constraints); err != nil {
		if req.Acres <= 0 {
			return types.ValidatedRequest{}, cerrors.Invalid(stageName, req.ID, cerrors.InvalidAcreage, "acres must be positive")
		}
		return types.ValidatedRequest{}, cerrors.Invalid(stageName, req.ID, cerrors.MissingField, "missing required field: "+err.Error())
	}

	if !types.ValidCropType(req.CropType) {
		return types.ValidatedRequest{}, cerrors.Invalid(stageName, req.ID, cerrors.UnknownCrop, "unknown crop type: "+string(req.CropType))
	}

	if !ValidPolygon(req.FieldBoundary) {
		return types.ValidatedRequest{}, cerrors.Invalid(stageName, req.ID, cerrors.BadPolygon, "field boundary must have >=4 points, be closed, and have positive area")
	}

	if req.TimeWindow.Duration() < types.MinBurnDuration {
		return types.ValidatedRequest{}, cerrors.Invalid(stageName, req.ID, cerrors.BadTimeWindow, "time window must be at least 2 hours")
	}

	lowConfidence := false
	if centroid, ok := Centroid(req.FieldBoundary); ok {
		req.Location = centroid
	} else {
		req.Location = centroid
		lowConfidence = true
	}

	var hist *types.HistoricalFeatures
	if c.history != nil {
		hist, _ = c.history.Lookup(ctx, req.FarmID)
	}

	score := PriorityScore(req, nowUnix)
	features := BurnFeatureVector(req, score, hist)

	return types.ValidatedRequest{
		Request:       req,
		PriorityScore: score,
		FeatureVector: features,
		LowConfidence: lowConfidence,
	}, nil
}
