package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bx-options/internal/assets"
	"bx-options/internal/httputil"
	"bx-options/internal/ledger"
	"bx-options/internal/orders"
	"bx-options/internal/withdrawals"
)

type RouterDeps struct {
	AssetHandler      *assets.Handler
	LedgerHandler     *ledger.Handler
	OrderHandler      *orders.Handler
	WithdrawalHandler *withdrawals.Handler
	WSHandler         http.Handler
	JWTSecret         string
	AdminPasswordHash string
	InternalToken     string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(r chi.Router) {
		r.Get("/notifications/ws", d.WSHandler.ServeHTTP)
		r.Get("/assets", d.AssetHandler.List)
		r.Get("/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
			d.AssetHandler.Get(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/assets/{id}/price", func(w http.ResponseWriter, r *http.Request) {
			d.AssetHandler.Price(w, r, chi.URLParam(r, "id"))
		})
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.JWTSecret))
			r.Get("/balance", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.LedgerHandler.Balance(w, r, userID)
			})
			r.Post("/balance/entries", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.LedgerHandler.CreateEntry(w, r, userID)
			})
			r.Get("/ledger/history", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.LedgerHandler.History(w, r, userID)
			})
			r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.OrderHandler.Place(w, r, userID)
			})
			r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.OrderHandler.List(w, r, userID)
			})
			r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.OrderHandler.Get(w, r, userID, chi.URLParam(r, "id"))
			})
			r.Post("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.WithdrawalHandler.Request(w, r, userID)
			})
			r.Get("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.WithdrawalHandler.ListMine(w, r, userID)
			})
			r.Delete("/withdrawals/{id}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.WithdrawalHandler.Cancel(w, r, userID, chi.URLParam(r, "id"))
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Post("/internal/deposits", d.LedgerHandler.DepositInternal)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(d.AdminPasswordHash))
			r.Get("/withdrawals", d.WithdrawalHandler.ListPending)
			r.Post("/withdrawals/{id}/review", func(w http.ResponseWriter, r *http.Request) {
				reviewerID, ok := ReviewerID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.WithdrawalHandler.Review(w, r, reviewerID, chi.URLParam(r, "id"))
			})
		})
	})
	return r
}
