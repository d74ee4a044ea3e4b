package main

import (
	"errors"

	cerrors "github.com/khryptorgraphics/burnwise/internal/errors"
)

// Exit codes per spec.md §6.
const (
	exitSuccess             = 0
	exitOther               = 1
	exitInvalidInput        = 2
	exitExternalUnavailable = 3
	exitCancelled           = 4
)

// exitCodeFor maps a returned error to the process exit code spec.md
// §6 specifies.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	var be *cerrors.BatchError
	if errors.As(err, &be) {
		switch be.Kind {
		case cerrors.InvalidInput:
			return exitInvalidInput
		case cerrors.ExternalUnavailable:
			return exitExternalUnavailable
		case cerrors.Cancelled:
			return exitCancelled
		}
	}
	return exitOther
}
