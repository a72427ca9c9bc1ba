package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/tools"
)

type errorResponse struct {
	Error     string `json:"error"`
	Available *int64 `json:"available,omitempty"`
	Required  *int64 `json:"required,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps store and gateway errors to HTTP statuses. Insufficient
// balance maps to 402 and carries the available balance so clients can
// show it, matching the product's "you have N, this costs M" messaging.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if insufficient, ok := store.AsInsufficientCredits(err); ok {
		writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Error:     "insufficient credits",
			Available: &insufficient.Available,
			Required:  &insufficient.Required,
		})
		return
	}

	var status int
	switch {
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrOrganizationNotFound),
		errors.Is(err, tools.ErrUnknownTool):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAccountAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrInvalidRole),
		errors.Is(err, store.ErrNotOwner),
		errors.Is(err, store.ErrEmployeeNotInOrg),
		errors.Is(err, tools.ErrEmptyInput):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeBadRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
