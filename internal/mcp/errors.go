package mcp

import (
	"errors"
	"fmt"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/remediation"
)

var (
	// ErrForbidden indicates the principal's role does not allow the call.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates the call needs a signed-in principal.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// FailureDetail describes one failed report of a cleanup.
type FailureDetail struct {
	ReportID string `json:"report_id"`
	Reason   string `json:"reason"`
}

// CleanupFailureDetails is attached to CLEANUP_PARTIAL errors.
type CleanupFailureDetails struct {
	Location  string          `json:"location"`
	Attempted int             `json:"attempted"`
	Succeeded int             `json:"succeeded"`
	Skipped   int             `json:"skipped"`
	Failures  []FailureDetail `json:"failures"`
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var cleanupErr *remediation.CleanupError
	var mutationErr *remediation.MutationError
	switch {
	// A partial cleanup may wrap busy or not-found items; it must be
	// reported as a whole.
	case errors.As(err, &cleanupErr):
		details := CleanupFailureDetails{
			Location:  cleanupErr.Location,
			Attempted: cleanupErr.Attempted,
			Succeeded: cleanupErr.Succeeded,
			Skipped:   cleanupErr.Skipped,
			Failures:  make([]FailureDetail, 0, len(cleanupErr.Failures)),
		}
		for _, f := range cleanupErr.Failures {
			details.Failures = append(details.Failures, FailureDetail{ReportID: f.ReportID, Reason: f.Reason})
		}
		return &APIError{Code: "CLEANUP_PARTIAL", Message: cleanupErr.Error(), Details: details, RecoveryHint: "Retry the cleanup; updated reports are skipped"}
	case errors.Is(err, remediation.ErrBusy):
		return &APIError{Code: "BUSY", Message: "operation already in progress", RecoveryHint: "Retry after the running operation finishes"}
	case errors.Is(err, remediation.ErrNothingToClean):
		return &APIError{Code: "NOTHING_TO_CLEAN", Message: err.Error(), RecoveryHint: "No report matches this location; check its spelling"}
	case errors.Is(err, report.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "invalid status transition", RecoveryHint: "Only new reports can move to cleaned or resolved"}
	case errors.Is(err, report.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidStatus),
		errors.Is(err, report.ErrUnknownCategory):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check the request fields"}
	case errors.Is(err, report.ErrReportNotFound):
		return &APIError{Code: "REPORT_NOT_FOUND", Message: "report not found", RecoveryHint: "Check ID spelling"}
	case errors.As(err, &mutationErr):
		return &APIError{Code: "MUTATION_FAILED", Message: mutationErr.Error(), Details: FailureDetail{ReportID: mutationErr.ReportID, Reason: mutationErr.Reason}, RecoveryHint: "The change was reverted; retry"}
	case errors.Is(err, ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: err.Error(), RecoveryHint: "Ask an admin to grant the required role"}
	case errors.Is(err, ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: err.Error(), RecoveryHint: "Sign in with an API key"}
	default:
		return nil
	}
}
