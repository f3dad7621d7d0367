package withdrawals

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"bx-options/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type requestInput struct {
	Amount string `json:"amount"`
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request, userID string) {
	var in requestInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	req, err := h.svc.Request(r.Context(), userID, amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"request": req})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []Request{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, userID, requestID string) {
	if err := h.svc.Cancel(r.Context(), requestID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []Request{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type reviewInput struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request, reviewerID, requestID string) {
	var in reviewInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	req, err := h.svc.Review(r.Context(), requestID, reviewerID, in.Approve, in.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"request": req})
}
