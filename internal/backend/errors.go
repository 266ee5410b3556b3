package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rentaldesk-bff/internal/domain"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// FieldError is one entry of a 422 detail array.
type FieldError struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// Field joins the location path, skipping the leading "body" segment.
func (f FieldError) Field() string {
	parts := make([]string, 0, len(f.Loc))
	for i, p := range f.Loc {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

// APIError is a non-2xx answer from the rental backend, or a transport failure.
type APIError struct {
	Kind      Kind
	Status    int
	Operation string
	Message   string
	Fields    []FieldError
	Err       error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("backend %s: %d %s: %s", e.Operation, e.Status, e.Kind, msg)
	}
	return fmt.Sprintf("backend %s: %s: %s", e.Operation, e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a manual retry of the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindServer || e.Kind == KindNetwork
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	default:
		return KindServer
	}
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// newStatusError builds an APIError from an error response. The body is
// either {"detail":[{loc,msg,type}]} or {"detail":"text"}; anything else
// leaves Message empty.
func newStatusError(operation string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:      kindForStatus(status),
		Status:    status,
		Operation: operation,
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}
	apiErr.Message = eb.Message

	detail := strings.TrimSpace(string(eb.Detail))
	switch {
	case strings.HasPrefix(detail, "["):
		var fields []FieldError
		if err := json.Unmarshal(eb.Detail, &fields); err == nil {
			apiErr.Fields = fields
			if len(fields) > 0 && fields[0].Msg != "" {
				apiErr.Message = fields[0].Msg
			}
		}
	case strings.HasPrefix(detail, `"`):
		var text string
		if err := json.Unmarshal(eb.Detail, &text); err == nil && text != "" {
			apiErr.Message = text
		}
	}
	return apiErr
}

const (
	msgValidation   = "The server rejected the request. Please check the entered values."
	msgNotFound     = "The rental could not be found. It may have been removed."
	msgConflict     = "The rental was changed by someone else. Refresh and try again."
	msgUnauthorized = "Your session has expired. Please sign in again."
	msgForbidden    = "You do not have permission to perform this action."
	msgServer       = "Something went wrong while contacting the server. Please try again."
)

// UserMessage translates err into the display string stored in workflow state.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		if ve.Field != "" {
			return ve.Field + ": " + ve.Message
		}
		return ve.Message
	}

	switch {
	case errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrWorkflowClosed),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrStaleResult),
		errors.Is(err, domain.ErrUnknownReturnAction):
		return err.Error()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindValidation:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return msgValidation
		case KindNotFound:
			return msgNotFound
		case KindConflict:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return msgConflict
		case KindUnauthorized:
			if apiErr.Status == http.StatusForbidden {
				return msgForbidden
			}
			return msgUnauthorized
		}
	}
	return msgServer
}
