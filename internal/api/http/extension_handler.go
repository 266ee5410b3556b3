package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/service"
)

var errMissingEndDate = domain.NewValidationError("new_end_date", "is required")

type newEndDateRequest struct {
	NewEndDate string `json:"new_end_date"`
}

type confirmExtensionRequest struct {
	Payment *domain.PaymentRecord `json:"payment"`
}

func (h *Handler) openExtension(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wf, err := h.extensions.OpenExtension(r.Context(), mustSession(r), vars["rentalID"], vars["lineID"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, wf.State())
}

func (h *Handler) extensionWorkflow(w http.ResponseWriter, r *http.Request) (*service.ExtensionWorkflow, bool) {
	wf, err := h.extensions.GetExtension(mustSession(r), mux.Vars(r)["workflowID"])
	if err != nil {
		writeError(w, r, err, nil)
		return nil, false
	}
	return wf, true
}

func (h *Handler) getExtension(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.extensionWorkflow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

func (h *Handler) closeExtension(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.extensionWorkflow(w, r)
	if !ok {
		return
	}
	if err := h.registry.Close(wf.ID(), wf.UserID()); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setExtensionEndDate(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.extensionWorkflow(w, r)
	if !ok {
		return
	}
	var req newEndDateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if req.NewEndDate == "" {
		writeError(w, r, errMissingEndDate, wf.State())
		return
	}
	if _, err := wf.SetNewEndDate(req.NewEndDate); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

func (h *Handler) checkExtension(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.extensionWorkflow(w, r)
	if !ok {
		return
	}
	if _, err := wf.Check(r.Context(), mustSession(r)); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

func (h *Handler) confirmExtension(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.extensionWorkflow(w, r)
	if !ok {
		return
	}
	var req confirmExtensionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if _, err := wf.Confirm(r.Context(), mustSession(r), req.Payment); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}
