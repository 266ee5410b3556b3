package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rentaldesk-bff/internal/backend"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	State interface{} `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes err with its display message. state, when not nil, is
// the workflow snapshot after the failure.
func writeError(w http.ResponseWriter, r *http.Request, err error, state interface{}) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	resp := errorResponse{Error: backend.UserMessage(err), State: state}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

func statusForError(err error) int {
	var apiErr *backend.APIError
	switch {
	case domain.IsValidationError(err), errors.Is(err, domain.ErrUnknownReturnAction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrWorkflowNotFound), errors.Is(err, domain.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWorkflowClosed):
		return http.StatusGone
	case errors.As(err, &apiErr):
		switch apiErr.Kind {
		case backend.KindValidation:
			return http.StatusUnprocessableEntity
		case backend.KindNotFound:
			return http.StatusNotFound
		case backend.KindConflict:
			return http.StatusConflict
		case backend.KindUnauthorized:
			if apiErr.Status == http.StatusForbidden {
				return http.StatusForbidden
			}
			return http.StatusUnauthorized
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

var errBadRequestBody = domain.NewValidationError("", "request body is not valid JSON")

// decodeBody decodes an optional JSON body into dst. An unknown return
// action keeps its own error so it is reported as such.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, domain.ErrUnknownReturnAction) {
			return err
		}
		return errBadRequestBody
	}
	return nil
}
