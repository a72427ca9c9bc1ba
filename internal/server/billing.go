package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/internal/catalog"
	"github.com/draftforge/draftforge/internal/models"
)

type purchaseRow struct {
	PurchaseID   uuid.UUID `json:"purchase_id"`
	PackageKey   string    `json:"package_key"`
	CreditsAdded int64     `json:"credits_added"`
	CreatedAt    time.Time `json:"created_at"`
}

type usageRow struct {
	LogID          uuid.UUID `json:"log_id"`
	ToolKey        string    `json:"tool_key"`
	CreditsCharged int64     `json:"credits_charged"`
	InputChars     int64     `json:"input_chars"`
	OutputChars    int64     `json:"output_chars"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type transferRow struct {
	TransferID    uuid.UUID `json:"transfer_id"`
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	OrgID         uuid.UUID `json:"org_id"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUsageRow(u *models.UsageLog) usageRow {
	return usageRow{
		LogID:          u.LogID,
		ToolKey:        u.ToolKey,
		CreditsCharged: u.CreditsCharged,
		InputChars:     u.InputChars,
		OutputChars:    u.OutputChars,
		Status:         u.Status,
		ErrorMessage:   u.ErrorMessage,
		CreatedAt:      u.CreatedAt,
	}
}

type purchaseRequest struct {
	AccountID  uuid.UUID `json:"account_id"`
	PackageKey string    `json:"package_key"`
}

type purchaseResponse struct {
	PackageKey   string `json:"package_key"`
	CreditsAdded int64  `json:"credits_added"`
	Balance      int64  `json:"balance"`
}

// handlePurchase credits an account with a catalog package. Payment
// settlement happens upstream; by the time this endpoint is called the
// package is paid for.
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AccountID == uuid.Nil {
		writeBadRequest(w, "account_id is required")
		return
	}

	pkg, ok := catalog.PackageByKey(req.PackageKey)
	if !ok {
		writeBadRequest(w, "unknown package")
		return
	}

	balance, err := s.stores.Ledger.AddCredits(r.Context(), req.AccountID, pkg.Key, pkg.Credits)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		PackageKey:   pkg.Key,
		CreditsAdded: pkg.Credits,
		Balance:      balance,
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	balance, err := s.stores.Ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	purchases, err := s.stores.Ledger.ListPurchases(r.Context(), accountID, queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]purchaseRow, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, purchaseRow{
			PurchaseID:   p.PurchaseID,
			PackageKey:   p.PackageKey,
			CreditsAdded: p.CreditsAdded,
			CreatedAt:    p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": rows})
}

func (s *Server) handleListUsage(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	usage, err := s.stores.Ledger.ListUsage(r.Context(), accountID, queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]usageRow, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, toUsageRow(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": rows})
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	transfers, err := s.stores.Ledger.ListTransfers(r.Context(), accountID, queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]transferRow, 0, len(transfers))
	for _, tr := range transfers {
		rows = append(rows, transferRow{
			TransferID:    tr.TransferID,
			FromAccountID: tr.FromAccountID,
			ToAccountID:   tr.ToAccountID,
			OrgID:         tr.OrgID,
			Amount:        tr.Amount,
			CreatedAt:     tr.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": rows})
}
