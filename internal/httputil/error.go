package httputil

import (
	"errors"
	"net/http"

	"bx-options/internal/types"
)

// WriteError maps domain errors onto status codes. Anything unrecognized is a
// 500 with a generic message so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	if errors.As(err, &validation) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Error()})
		return
	}
	var insufficient *types.InsufficientFundsError
	if errors.As(err, &insufficient) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: insufficient.Error()})
		return
	}
	var notFound *types.NotFoundError
	if errors.As(err, &notFound) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
		return
	}
	var conflict *types.ConflictError
	if errors.As(err, &conflict) {
		WriteJSON(w, http.StatusConflict, ErrorResponse{Error: conflict.Error()})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
