package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/service"
)

type previewReturnRequest struct {
	IsOverdue      bool                     `json:"is_overdue"`
	DaysLate       int                      `json:"days_late"`
	LateFeePerItem *decimal.Decimal         `json:"late_fee_per_item"`
	DepositAmount  decimal.Decimal          `json:"deposit_amount"`
	Items          []domain.ReturnItemState `json:"items"`
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

type submitReturnRequest struct {
	ReturnDate string `json:"return_date"`
	Notes      string `json:"notes"`
}

func (h *Handler) previewReturn(w http.ResponseWriter, r *http.Request) {
	var req previewReturnRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	preview := h.returns.Preview(service.PreviewRequest{
		IsOverdue:      req.IsOverdue,
		DaysLate:       req.DaysLate,
		LateFeePerItem: req.LateFeePerItem,
		DepositAmount:  req.DepositAmount,
		Items:          req.Items,
	})
	if preview == nil {
		writeError(w, r, domain.ErrNoItemsSelected, nil)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) openReturn(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	wf, err := h.returns.OpenReturn(r.Context(), sess, mux.Vars(r)["rentalID"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, wf.State())
}

// returnWorkflow looks up the caller's return workflow, writing the error
// response itself when there is none.
func (h *Handler) returnWorkflow(w http.ResponseWriter, r *http.Request) (*service.ReturnWorkflow, bool) {
	wf, err := h.returns.GetReturn(mustSession(r), mux.Vars(r)["workflowID"])
	if err != nil {
		writeError(w, r, err, nil)
		return nil, false
	}
	return wf, true
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.returnWorkflow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

// closeReturn only closes return workflows; an extension id on this route is
// not found.
func (h *Handler) closeReturn(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.returnWorkflow(w, r)
	if !ok {
		return
	}
	if err := h.registry.Close(wf.ID(), wf.UserID()); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateReturnItem(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.returnWorkflow(w, r)
	if !ok {
		return
	}
	var upd service.ItemUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if _, err := wf.UpdateItem(mux.Vars(r)["lineID"], upd); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

func (h *Handler) selectAllReturnItems(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.returnWorkflow(w, r)
	if !ok {
		return
	}
	req := selectAllRequest{Selected: true}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if err := wf.SelectAll(req.Selected); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}

func (h *Handler) submitReturn(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.returnWorkflow(w, r)
	if !ok {
		return
	}
	var req submitReturnRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if req.ReturnDate != "" {
		if err := wf.SetReturnDate(req.ReturnDate); err != nil {
			writeError(w, r, err, wf.State())
			return
		}
	}
	if _, err := wf.Submit(r.Context(), mustSession(r), req.Notes); err != nil {
		writeError(w, r, err, wf.State())
		return
	}
	writeJSON(w, http.StatusOK, wf.State())
}
