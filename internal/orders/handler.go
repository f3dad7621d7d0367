package orders

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bx-options/internal/httputil"
	"bx-options/internal/types"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type placeInput struct {
	AccountType string `json:"account_type"`
	AssetID     string `json:"asset_id"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Duration    int    `json:"duration"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, userID string) {
	var in placeInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	accountType := types.AccountType(strings.TrimSpace(in.AccountType))
	if accountType == "" {
		accountType = types.AccountTypeDemo
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	order, err := h.svc.Place(r.Context(), PlaceRequest{
		Account:         types.Account{UserID: userID, Type: accountType},
		AssetID:         strings.TrimSpace(in.AssetID),
		Direction:       types.OrderDirection(strings.ToUpper(strings.TrimSpace(in.Direction))),
		Amount:          amount,
		DurationMinutes: in.Duration,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID, orderID string) {
	order, err := h.svc.Get(r.Context(), userID, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, total, err := h.svc.ListByUser(r.Context(), userID, page, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}
