package report

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseStatus converts raw input into a lifecycle status.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusNew:
		return StatusNew, nil
	case StatusCleaned:
		return StatusCleaned, nil
	case StatusResolved:
		return StatusResolved, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// ValidateTransition validates a requested status change. Re-applying the
// current status is allowed.
func ValidateTransition(from, to Status) error {
	if to != StatusCleaned && to != StatusResolved {
		return ErrInvalidStatus
	}
	if from == to || from == StatusNew || from == "" {
		return nil
	}
	return ErrInvalidTransition
}

// ValidateSubmit validates fields required to submit a report.
func ValidateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return ErrInvalidInput
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !NormalizeCategory(req.Category).Known() {
		return ErrUnknownCategory
	}
	return nil
}
