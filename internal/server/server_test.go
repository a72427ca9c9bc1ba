package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store/memory"
	"github.com/draftforge/draftforge/internal/tools"
)

type staticGenerator struct {
	output string
	err    error
}

func (g *staticGenerator) Generate(ctx context.Context, toolKey, input string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func newTestServer(t *testing.T, gen *staticGenerator) (*httptest.Server, *memory.Backend) {
	t.Helper()

	backend := memory.NewBackend()
	srv := NewServer(Stores{
		Accounts:      backend.Accounts(),
		Organizations: backend.Organizations(),
		Ledger:        backend.Ledger(),
	}, tools.NewRunner(gen, backend.Ledger()))

	ts := httptest.NewServer(srv.Handler(zerolog.Nop(), []string{"*"}))
	t.Cleanup(ts.Close)
	return ts, backend
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createAccount(t *testing.T, ts *httptest.Server, email, role string) accountResponse {
	t.Helper()

	resp := postJSON(t, ts.URL+"/api/v1/accounts", map[string]string{
		"name":  "Test User",
		"email": email,
		"role":  role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var account accountResponse
	decodeBody(t, resp, &account)
	return account
}

func TestServer_Accounts(t *testing.T) {
	ts, _ := newTestServer(t, &staticGenerator{output: "ok"})

	t.Run("create and fetch", func(t *testing.T) {
		account := createAccount(t, ts, "alice@example.com", models.RoleIndividual)
		require.Equal(t, "alice@example.com", account.Email)

		resp, err := http.Get(fmt.Sprintf("%s/api/v1/accounts/%s", ts.URL, account.AccountID))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var fetched accountResponse
		decodeBody(t, resp, &fetched)
		require.Equal(t, account.AccountID, fetched.AccountID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		createAccount(t, ts, "dup@example.com", models.RoleIndividual)

		resp := postJSON(t, ts.URL+"/api/v1/accounts", map[string]string{
			"name":  "Dup",
			"email": "DUP@example.com",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/accounts", map[string]string{
			"email": "weird@example.com",
			"role":  "SUPERUSER",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_BillingAndTools(t *testing.T) {
	ts, _ := newTestServer(t, &staticGenerator{output: "generated text"})

	account := createAccount(t, ts, "runner@example.com", models.RoleIndividual)

	t.Run("purchase credits", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/billing/purchase", map[string]any{
			"account_id":  account.AccountID,
			"package_key": "ind_starter",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result purchaseResponse
		decodeBody(t, resp, &result)
		require.Equal(t, int64(100), result.CreditsAdded)
		require.Equal(t, int64(100), result.Balance)
	})

	t.Run("unknown package rejected", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/billing/purchase", map[string]any{
			"account_id":  account.AccountID,
			"package_key": "mega_deal",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("run tool charges and returns output", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/tools/summarizer/run", map[string]any{
			"account_id": account.AccountID,
			"input":      "a long document",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result runToolResponse
		decodeBody(t, resp, &result)
		require.Equal(t, "generated text", result.Output)
		require.Equal(t, int64(5), result.CreditsCharged)
		require.Equal(t, int64(95), result.Balance)
	})

	t.Run("unknown tool is 404", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/tools/time_machine/run", map[string]any{
			"account_id": account.AccountID,
			"input":      "back to 1985",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("insufficient credits is 402 with balance", func(t *testing.T) {
		broke := createAccount(t, ts, "broke@example.com", models.RoleIndividual)

		resp := postJSON(t, ts.URL+"/api/v1/tools/marketing_copy/run", map[string]any{
			"account_id": broke.AccountID,
			"input":      "sell this pen",
		})
		require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

		var body errorResponse
		decodeBody(t, resp, &body)
		require.NotNil(t, body.Available)
		require.Equal(t, int64(0), *body.Available)
		require.NotNil(t, body.Required)
		require.Equal(t, int64(10), *body.Required)
	})
}

func TestServer_Organizations(t *testing.T) {
	ts, _ := newTestServer(t, &staticGenerator{output: "ok"})

	owner := createAccount(t, ts, "owner@example.com", models.RoleOwner)
	employee := createAccount(t, ts, "worker@example.com", models.RoleIndividual)

	var org organizationResponse

	t.Run("get or create org", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/orgs", map[string]any{
			"owner_account_id": owner.AccountID,
			"name":             "Acme",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &org)
		require.Equal(t, "Acme", org.Name)

		// Second call returns the same org
		resp = postJSON(t, ts.URL+"/api/v1/orgs", map[string]any{
			"owner_account_id": owner.AccountID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var again organizationResponse
		decodeBody(t, resp, &again)
		require.Equal(t, org.OrgID, again.OrgID)
	})

	t.Run("individual cannot create an org", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/orgs", map[string]any{
			"owner_account_id": employee.AccountID,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("assign employee by email", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/orgs/assign", map[string]any{
			"owner_account_id": owner.AccountID,
			"email":            "WORKER@example.com",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var assigned accountResponse
		decodeBody(t, resp, &assigned)
		require.NotNil(t, assigned.OrgID)
		require.Equal(t, org.OrgID, *assigned.OrgID)
	})

	t.Run("owner cannot become employee", func(t *testing.T) {
		createAccount(t, ts, "boss2@example.com", models.RoleOwner)

		resp := postJSON(t, ts.URL+"/api/v1/orgs/assign", map[string]any{
			"owner_account_id": owner.AccountID,
			"email":            "boss2@example.com",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("transfer to employee", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/billing/purchase", map[string]any{
			"account_id":  owner.AccountID,
			"package_key": "biz_team",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, ts.URL+"/api/v1/orgs/transfer", map[string]any{
			"owner_account_id": owner.AccountID,
			"to_account_id":    employee.AccountID,
			"amount":           500,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result transferResponse
		decodeBody(t, resp, &result)
		require.Equal(t, int64(4500), result.OwnerBalance)
	})

	t.Run("unassign employee", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/orgs/unassign", map[string]any{
			"account_id": employee.AccountID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var unassigned accountResponse
		decodeBody(t, resp, &unassigned)
		require.Nil(t, unassigned.OrgID)
	})
}

func TestServer_Admin(t *testing.T) {
	ts, _ := newTestServer(t, &staticGenerator{output: "out"})

	account := createAccount(t, ts, "admin-view@example.com", models.RoleIndividual)

	resp := postJSON(t, ts.URL+"/api/v1/billing/purchase", map[string]any{
		"account_id":  account.AccountID,
		"package_key": "ind_plus",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/v1/tools/action_plan/run", map[string]any{
		"account_id": account.AccountID,
		"input":      "notes from standup",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("stats", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/admin/stats")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stats map[string]int64
		decodeBody(t, resp, &stats)
		require.Equal(t, int64(1), stats["accounts"])
		require.Equal(t, int64(1), stats["usage_logs"])
	})

	t.Run("recent usage includes account details", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/admin/usage")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Usage []recentUsageRow `json:"usage"`
		}
		decodeBody(t, resp, &body)
		require.Len(t, body.Usage, 1)
		require.Equal(t, "admin-view@example.com", body.Usage[0].AccountEmail)
		require.Equal(t, models.UsageStatusSuccess, body.Usage[0].Status)
	})
}

func TestServer_Catalog(t *testing.T) {
	ts, _ := newTestServer(t, &staticGenerator{output: "ok"})

	t.Run("tools", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/catalog/tools")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Tools []toolRow `json:"tools"`
		}
		decodeBody(t, resp, &body)
		require.Len(t, body.Tools, 4)
	})

	t.Run("packages filtered by tier", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/catalog/packages?tier=business")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Packages []packageRow `json:"packages"`
		}
		decodeBody(t, resp, &body)
		require.Len(t, body.Packages, 3)
		for _, p := range body.Packages {
			require.Equal(t, "business", p.Tier)
		}
	})
}
