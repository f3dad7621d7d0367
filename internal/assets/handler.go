package assets

import (
	"errors"
	"net/http"

	"bx-options/internal/httputil"
	"bx-options/internal/pricing"
)

type Handler struct {
	store  Store
	oracle *pricing.Oracle
}

func NewHandler(store Store, oracle *pricing.Oracle) *Handler {
	return &Handler{store: store, oracle: oracle}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []Asset{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, assetID string) {
	asset, err := h.store.Get(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"asset": asset})
}

// Price serves the display price from the normal cache tier. An upstream
// outage with nothing cached is a 503, not a failure of the catalog itself.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request, assetID string) {
	if _, err := h.store.Get(r.Context(), assetID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	quote, err := h.oracle.GetPrice(r.Context(), assetID, pricing.TierNormal)
	if err != nil {
		if errors.Is(err, pricing.ErrUnavailable) {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "price temporarily unavailable"})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}
