package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/internal/models"
)

// defaultOrgName is used when an owner's organization is created lazily
// without an explicit name.
const defaultOrgName = "My Company"

type organizationResponse struct {
	OrgID          uuid.UUID `json:"org_id"`
	Name           string    `json:"name"`
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	OwnerEmail     string    `json:"owner_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toOrganizationResponse(o *models.Organization) organizationResponse {
	return organizationResponse{
		OrgID:          o.OrgID,
		Name:           o.Name,
		OwnerAccountID: o.OwnerAccountID,
		CreatedAt:      o.CreatedAt,
	}
}

type getOrCreateOrgRequest struct {
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	Name           string    `json:"name"`
}

// handleGetOrCreateOrg resolves the owner's organization, creating it on
// first access.
func (s *Server) handleGetOrCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req getOrCreateOrgRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.OwnerAccountID == uuid.Nil {
		writeBadRequest(w, "owner_account_id is required")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultOrgName
	}

	org, err := s.stores.Organizations.GetOrCreateForOwner(r.Context(), req.OwnerAccountID, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	employees, err := s.stores.Organizations.ListEmployees(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]accountResponse, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, toAccountResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": rows})
}

type assignByEmailRequest struct {
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	Email          string    `json:"email"`
}

func (s *Server) handleAssignByEmail(w http.ResponseWriter, r *http.Request) {
	var req assignByEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.OwnerAccountID == uuid.Nil || strings.TrimSpace(req.Email) == "" {
		writeBadRequest(w, "owner_account_id and email are required")
		return
	}

	account, err := s.stores.Organizations.AssignByEmail(r.Context(), req.OwnerAccountID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type assignByIDRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	OrgID     uuid.UUID `json:"org_id"`
}

func (s *Server) handleAssignByID(w http.ResponseWriter, r *http.Request) {
	var req assignByIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AccountID == uuid.Nil || req.OrgID == uuid.Nil {
		writeBadRequest(w, "account_id and org_id are required")
		return
	}

	account, err := s.stores.Organizations.AssignByID(r.Context(), req.AccountID, req.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type unassignRequest struct {
	AccountID uuid.UUID `json:"account_id"`
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	var req unassignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AccountID == uuid.Nil {
		writeBadRequest(w, "account_id is required")
		return
	}

	account, err := s.stores.Organizations.Unassign(r.Context(), req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type transferRequest struct {
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	ToAccountID    uuid.UUID `json:"to_account_id"`
	Amount         int64     `json:"amount"`
}

type transferResponse struct {
	OwnerBalance int64 `json:"owner_balance"`
}

// handleTransfer moves credits from an owner to one of their employees.
// The owner's organization is resolved (created on first access) before
// the ledger transfer runs.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.OwnerAccountID == uuid.Nil || req.ToAccountID == uuid.Nil {
		writeBadRequest(w, "owner_account_id and to_account_id are required")
		return
	}
	if req.Amount <= 0 {
		writeBadRequest(w, "amount must be a positive number")
		return
	}

	org, err := s.stores.Organizations.GetOrCreateForOwner(r.Context(), req.OwnerAccountID, defaultOrgName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = s.stores.Ledger.TransferCredits(r.Context(), req.OwnerAccountID, req.ToAccountID, req.Amount, org.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := s.stores.Ledger.GetBalance(r.Context(), req.OwnerAccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{OwnerBalance: balance})
}
