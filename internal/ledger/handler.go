package ledger

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bx-options/internal/httputil"
	"bx-options/internal/types"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func accountFromQuery(r *http.Request, userID string) types.Account {
	accountType := types.AccountType(strings.TrimSpace(r.URL.Query().Get("account_type")))
	if accountType == "" {
		accountType = types.AccountTypeReal
	}
	return types.Account{UserID: userID, Type: accountType}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request, userID string) {
	account := accountFromQuery(r, userID)
	freshness := FreshnessCached
	if strings.EqualFold(r.URL.Query().Get("freshness"), "strict") {
		freshness = FreshnessStrict
	}
	balance, err := h.engine.GetBalance(r.Context(), account, freshness)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account_type": account.Type,
		"balance":      balance.String(),
	})
}

type createEntryInput struct {
	AccountType string `json:"account_type"`
	Kind        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// CreateEntry serves demo entries and real deposits. A real withdrawal here
// is rejected by construction: it must go through the withdrawal workflow.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request, userID string) {
	var in createEntryInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	account := types.Account{UserID: userID, Type: types.AccountType(strings.TrimSpace(in.AccountType))}
	kind := types.TxKind(strings.TrimSpace(in.Kind))
	if kind != types.TxKindDeposit && kind != types.TxKindWithdrawal {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "type must be deposit or withdrawal"})
		return
	}
	if kind == types.TxKindWithdrawal && account.Type == types.AccountTypeReal {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "real withdrawals require an approved withdrawal request"})
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	tx, balance, err := h.engine.Append(r.Context(), account, kind, amount, in.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"transaction": tx,
		"balance":     balance.String(),
	})
}

type internalDepositInput struct {
	UserID      string `json:"user_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// DepositInternal records a gateway-confirmed real deposit. The route is
// gated by the internal token, not user auth.
func (h *Handler) DepositInternal(w http.ResponseWriter, r *http.Request) {
	var in internalDepositInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(in.UserID) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "user_id is required"})
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	tx, balance, err := h.engine.Append(r.Context(), types.RealAccount(in.UserID), types.TxKindDeposit, amount, in.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"transaction": tx,
		"balance":     balance.String(),
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request, userID string) {
	account := accountFromQuery(r, userID)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, total, err := h.engine.History(r.Context(), account, page, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []Transaction{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}
