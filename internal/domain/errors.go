package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoItemsSelected      = &ValidationError{Message: "no items selected"}
	ErrUnknownReturnAction  = errors.New("unknown return action")
	ErrRequestInFlight      = errors.New("a request is already in progress")
	ErrSubmissionInProgress = errors.New("another submission for this rental is in progress")
	ErrWorkflowClosed       = errors.New("workflow is closed")
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrLineNotFound         = errors.New("rental line not found")
	ErrStaleResult          = errors.New("result discarded because the request changed while it was in flight")
)

// ValidationError is a local validation failure detected before any network
// call. Field is empty for request-level failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "ValidationError: " + e.Message
	}
	return fmt.Sprintf("ValidationError: %s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
