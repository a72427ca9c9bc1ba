package server

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stores.Ledger.GetStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"accounts":      stats.Accounts,
		"organizations": stats.Organizations,
		"usage_logs":    stats.UsageLogs,
	})
}

type recentUsageRow struct {
	usageRow
	AccountEmail string `json:"account_email"`
	AccountRole  string `json:"account_role"`
}

func (s *Server) handleRecentUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.stores.Ledger.RecentUsage(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]recentUsageRow, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, recentUsageRow{
			usageRow:     toUsageRow(&u.Usage),
			AccountEmail: u.Email,
			AccountRole:  u.Role,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": rows})
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.stores.Organizations.ListOrganizations(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := make([]organizationResponse, 0, len(orgs))
	for _, o := range orgs {
		row := toOrganizationResponse(&o.Organization)
		row.OwnerEmail = o.OwnerEmail
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": rows})
}
