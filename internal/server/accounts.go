package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/internal/models"
)

// accountResponse is the wire shape of an account. The credential hash
// never leaves the store layer.
type accountResponse struct {
	AccountID uuid.UUID  `json:"account_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Credits   int64      `json:"credits"`
	OrgID     *uuid.UUID `json:"org_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		AccountID: a.AccountID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Credits:   a.Credits,
		OrgID:     a.OrgID,
		CreatedAt: a.CreatedAt,
	}
}

type createAccountRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	ExternalID   string `json:"external_id"`
	Role         string `json:"role"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeBadRequest(w, "email is required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleIndividual
	}
	switch role {
	case models.RoleIndividual, models.RoleOwner, models.RoleAdmin:
	default:
		writeBadRequest(w, "invalid role")
		return
	}

	account := &models.Account{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		ExternalID:   req.ExternalID,
		Role:         role,
	}
	if err := s.stores.Accounts.Create(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	account, err := s.stores.Accounts.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// queryLimit parses the limit query parameter, bounded to keep list
// endpoints from scanning whole tables.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > 200 {
		return 200
	}
	return limit
}
