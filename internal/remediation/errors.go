package remediation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

var (
	// ErrBusy indicates a conflicting operation on the same report or
	// location is already in flight. Callers may retry later.
	ErrBusy = errors.New("operation already in progress")
	// ErrNothingToClean indicates no report matches the location.
	ErrNothingToClean = errors.New("no reports to update at location")
)

// MutationError is a failed status change or creation for one report.
type MutationError struct {
	ReportID string
	Reason   string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation of report %s failed: %s", e.ReportID, e.Reason)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func newMutationError(id string, err error) *MutationError {
	return &MutationError{ReportID: id, Reason: err.Error(), Err: err}
}

// CleanupError aggregates per-report failures of a bulk cleanup. Reports
// updated before or after a failure stay updated.
type CleanupError struct {
	Location  string
	Attempted int
	Succeeded int
	Skipped   int
	Failures  []*MutationError
}

func (e *CleanupError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ReportID
	}
	return fmt.Sprintf("cleanup of %q: %d of %d updates failed (%s)",
		e.Location, len(e.Failures), e.Attempted, strings.Join(ids, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *CleanupError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// IsValidation reports whether err rejects malformed input before any I/O.
func IsValidation(err error) bool {
	return errors.Is(err, report.ErrInvalidInput) ||
		errors.Is(err, report.ErrInvalidStatus) ||
		errors.Is(err, report.ErrInvalidTransition) ||
		errors.Is(err, report.ErrUnknownCategory)
}
