package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/budget/internal/cli"
)

const testSubID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProfileSetAndShow(t *testing.T) {
	t.Setenv("BUDGET_API_URL", "")
	t.Setenv("BUDGET_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, path, "profile", "set", "prod", "--url", "https://budget.example.com", "--key", "bgt_secretkey")
	require.NoError(t, err)
	assert.Contains(t, out, `Active profile set to "prod"`)

	cfg, err := cli.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Active)

	out, err = run(t, path, "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "https://budget.example.com")
	assert.Contains(t, out, "*********tkey")
	assert.NotContains(t, out, "bgt_secretkey")
}

func TestSubscriptionsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/subscriptions", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"subscription_id":"` + testSubID + `","name":"alpha","state":"Disabled","abolished":true,
			"approved":"100","allocated":"80","total_cost":"12.345","remaining":"67.655","approved_to":"2026-03-31T00:00:00Z"}]`))
	}))
	defer srv.Close()
	t.Setenv("BUDGET_API_URL", srv.URL)
	t.Setenv("BUDGET_API_KEY", "k")

	out, err := run(t, filepath.Join(t.TempDir(), "config.yaml"), "subscriptions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, testSubID)
	assert.Contains(t, out, "Disabled (abolished)")
	assert.Contains(t, out, "12.34")
	assert.Contains(t, out, "2026-03-31")
}

func TestApprove_PostsBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/subscriptions/"+testSubID+"/approvals", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()
	t.Setenv("BUDGET_API_URL", srv.URL)
	t.Setenv("BUDGET_API_KEY", "k")

	out, err := run(t, filepath.Join(t.TempDir(), "config.yaml"),
		"approve", testSubID, "--ticket", "T-1", "--amount", "250.50", "--from", "2026-01-01", "--to", "2026-12-31", "--allocate")
	require.NoError(t, err)
	assert.Contains(t, out, "Created approval 42")
	assert.Equal(t, "T-1", body["ticket"])
	assert.Equal(t, "250.5", body["amount"])
	assert.Equal(t, true, body["allocate"])
}

func TestApprove_InvalidAmount(t *testing.T) {
	t.Setenv("BUDGET_API_URL", "http://127.0.0.1:1")
	_, err := run(t, filepath.Join(t.TempDir(), "config.yaml"),
		"approve", testSubID, "--ticket", "T-1", "--amount", "lots", "--from", "2026-01-01", "--to", "2026-12-31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
}

func TestAllocate_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"allocation exceeds unallocated approval"}`))
	}))
	defer srv.Close()
	t.Setenv("BUDGET_API_URL", srv.URL)
	t.Setenv("BUDGET_API_KEY", "k")

	_, err := run(t, filepath.Join(t.TempDir(), "config.yaml"),
		"allocate", testSubID, "--ticket", "T-2", "--amount", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocation exceeds unallocated approval")
}

func TestSummaryPreview_Table(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/summary", r.URL.Path)
		assert.Equal(t, "2026-10-01T00:00:00Z", r.URL.Query().Get("since"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"window":{"start":"2026-10-01T00:00:00Z","end":"2026-10-02T00:00:00Z"},
			"new_subscriptions":[],"status_changes":[],"new_approvals_and_allocations":[],
			"notifications_sent":[],"finance":[],"num_notifications":3,"num_finance":1}`))
	}))
	defer srv.Close()
	t.Setenv("BUDGET_API_URL", srv.URL)
	t.Setenv("BUDGET_API_KEY", "k")

	out, err := run(t, filepath.Join(t.TempDir(), "config.yaml"), "summary", "preview", "--from", "2026-10-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Window: 2026-10-01T00:00:00Z to 2026-10-02T00:00:00Z")
	assert.Regexp(t, `notifications\s+3`, out)
	assert.Regexp(t, `finance\s+1`, out)
}

func TestSubscriptionsHistory_RejectsBadID(t *testing.T) {
	t.Setenv("BUDGET_API_URL", "http://127.0.0.1:1")
	_, err := run(t, filepath.Join(t.TempDir(), "config.yaml"), "subscriptions", "history", "nope")
	require.Error(t, err)
}
