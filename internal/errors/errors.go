// Package errors declares the error taxonomy threaded across every
// pipeline stage (spec.md §7).
package errors

import (
	"fmt"
	"time"
)

// Kind categorizes a BatchError for stage-specific handling.
type Kind string

const (
	// InvalidInput covers missing fields, bad polygons, bad time
	// windows, bad acreage. Per-request, non-fatal to the batch.
	InvalidInput Kind = "invalid_input"
	// ExternalUnavailable covers weather/embedder/DB outages with no
	// fallback. Stage-specific fallback is attempted first.
	ExternalUnavailable Kind = "external_unavailable"
	// Conflict is a hard invariant violation in data. Fatal for the
	// batch.
	Conflict Kind = "conflict"
	// Cancelled means the cooperative cancellation token fired.
	Cancelled Kind = "cancelled"
	// InternalInvariant covers NaN in physics or non-finite vector
	// normalization. Fatal for the individual prediction.
	InternalInvariant Kind = "internal_invariant"
)

// Reason is a fine-grained code within InvalidInput, matching the
// Coordinator's contract in spec.md §4.1.
type Reason string

const (
	MissingField  Reason = "missing_field"
	BadPolygon    Reason = "bad_polygon"
	BadTimeWindow Reason = "bad_time_window"
	UnknownCrop   Reason = "unknown_crop"
	InvalidAcreage Reason = "invalid_acreage"
)

// BatchError is the structured error type carried across stage
// boundaries. Stage entry points collect these rather than returning
// bare errors, so a batch can report partial success plus warnings.
type BatchError struct {
	Kind      Kind
	Reason    Reason
	Stage     string
	RequestID int64
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *BatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s] request=%d: %s: %v", e.Stage, e.Kind, e.RequestID, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s] request=%d: %s", e.Stage, e.Kind, e.RequestID, e.Message)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// New builds a BatchError for the given stage and request.
func New(stage string, requestID int64, kind Kind, reason Reason, message string, cause error) *BatchError {
	return &BatchError{
		Kind:      kind,
		Reason:    reason,
		Stage:     stage,
		RequestID: requestID,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// Invalid builds an InvalidInput error.
func Invalid(stage string, requestID int64, reason Reason, message string) *BatchError {
	return New(stage, requestID, InvalidInput, reason, message, nil)
}

// Unavailable builds an ExternalUnavailable error.
func Unavailable(stage string, requestID int64, message string, cause error) *BatchError {
	return New(stage, requestID, ExternalUnavailable, "", message, cause)
}

// Invariant builds an InternalInvariant error.
func Invariant(stage string, requestID int64, message string, cause error) *BatchError {
	return New(stage, requestID, InternalInvariant, "", message, cause)
}

// CancelledErr builds a Cancelled error for the given stage.
func CancelledErr(stage string) *BatchError {
	return New(stage, 0, Cancelled, "", "operation cancelled", nil)
}

// ConflictErr builds a fatal Conflict error.
func ConflictErr(stage string, message string) *BatchError {
	return New(stage, 0, Conflict, "", message, nil)
}

// IsKind reports whether err is a *BatchError of the given kind.
func IsKind(err error, kind Kind) bool {
	be, ok := err.(*BatchError)
	if !ok {
		return false
	}
	return be.Kind == kind
}
