package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/internal/catalog"
)

type toolRow struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := catalog.Tools()
	rows := make([]toolRow, 0, len(defs))
	for _, t := range defs {
		rows = append(rows, toolRow{
			Key:         t.Key,
			Name:        t.Name,
			Description: t.Description,
			Cost:        t.Cost,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": rows})
}

type packageRow struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Credits    int64  `json:"credits"`
	PriceLabel string `json:"price_label"`
	Tier       string `json:"tier"`
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs := catalog.Packages(r.URL.Query().Get("tier"))
	rows := make([]packageRow, 0, len(pkgs))
	for _, p := range pkgs {
		rows = append(rows, packageRow{
			Key:        p.Key,
			Name:       p.Name,
			Credits:    p.Credits,
			PriceLabel: p.PriceLabel,
			Tier:       p.Tier,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": rows})
}

type runToolRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Input     string    `json:"input"`
}

type runToolResponse struct {
	ToolKey        string `json:"tool_key"`
	Output         string `json:"output"`
	CreditsCharged int64  `json:"credits_charged"`
	Balance        int64  `json:"balance"`
}

func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	var req runToolRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.AccountID == uuid.Nil {
		writeBadRequest(w, "account_id is required")
		return
	}

	result, err := s.runner.Run(r.Context(), req.AccountID, r.PathValue("toolKey"), req.Input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, runToolResponse{
		ToolKey:        result.Tool.Key,
		Output:         result.Output,
		CreditsCharged: result.Tool.Cost,
		Balance:        result.Balance,
	})
}
