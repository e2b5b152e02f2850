package report

import "errors"

var (
	// ErrReportNotFound indicates the report doesn't exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidInput indicates malformed report input.
	ErrInvalidInput = errors.New("invalid report input")
	// ErrInvalidStatus indicates a status outside the lifecycle.
	ErrInvalidStatus = errors.New("invalid report status")
	// ErrInvalidTransition indicates a disallowed status transition.
	ErrInvalidTransition = errors.New("invalid report status transition")
	// ErrUnknownCategory indicates a submission with a category outside the fixed set.
	ErrUnknownCategory = errors.New("unknown report category")
)
