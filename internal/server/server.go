// Package server exposes the credit ledger and tool gateway over a JSON
// HTTP API.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	httpmiddleware "github.com/draftforge/draftforge/internal/http"
	"github.com/draftforge/draftforge/internal/logger"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/tools"
)

// Stores groups the store interfaces the server depends on.
type Stores struct {
	Accounts      store.AccountStore
	Organizations store.OrganizationStore
	Ledger        store.LedgerStore
}

// Server wraps the HTTP handlers for the ledger API.
type Server struct {
	stores Stores
	runner *tools.Runner
}

// NewServer creates a new server with the given stores and tool runner.
func NewServer(stores Stores, runner *tools.Runner) *Server {
	return &Server{
		stores: stores,
		runner: runner,
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Catalogs
	mux.HandleFunc("GET /api/v1/catalog/tools", s.handleListTools)
	mux.HandleFunc("GET /api/v1/catalog/packages", s.handleListPackages)

	// Accounts
	mux.HandleFunc("POST /api/v1/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/v1/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("GET /api/v1/accounts/{id}/balance", s.handleGetBalance)
	mux.HandleFunc("GET /api/v1/accounts/{id}/purchases", s.handleListPurchases)
	mux.HandleFunc("GET /api/v1/accounts/{id}/usage", s.handleListUsage)
	mux.HandleFunc("GET /api/v1/accounts/{id}/transfers", s.handleListTransfers)

	// Billing
	mux.HandleFunc("POST /api/v1/billing/purchase", s.handlePurchase)

	// Organizations
	mux.HandleFunc("POST /api/v1/orgs", s.handleGetOrCreateOrg)
	mux.HandleFunc("GET /api/v1/orgs/{id}/employees", s.handleListEmployees)
	mux.HandleFunc("POST /api/v1/orgs/assign", s.handleAssignByEmail)
	mux.HandleFunc("POST /api/v1/orgs/assign-by-id", s.handleAssignByID)
	mux.HandleFunc("POST /api/v1/orgs/unassign", s.handleUnassign)
	mux.HandleFunc("POST /api/v1/orgs/transfer", s.handleTransfer)

	// Admin
	mux.HandleFunc("GET /api/v1/admin/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/admin/usage", s.handleRecentUsage)
	mux.HandleFunc("GET /api/v1/admin/organizations", s.handleListOrganizations)

	// Tools
	mux.HandleFunc("POST /api/v1/tools/{toolKey}/run", s.handleRunTool)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	handler := corsHandler.Handler(mux)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	handler = logger.NewHTTPRequests(log)(handler)

	return handler
}
