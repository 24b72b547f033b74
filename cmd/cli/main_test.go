package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recorded struct {
	method   string
	path     string
	query    string
	username string
	body     map[string]string
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()

	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.username = r.Header.Get("X-Username")
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return srv, rec
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestTransferCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusCreated,
		`{"transfer_id":"01J","message":"Transfer of 5.00 from A to B completed"}`)

	out, err := execute(t, srv, "--username", "alice", "transfer", "A", "B", "5")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.method != http.MethodPost || rec.path != "/api/v1/transfers/" || rec.username != "alice" {
		t.Fatalf("unexpected request %+v", rec)
	}
	if rec.body["from_rib"] != "A" || rec.body["to_rib"] != "B" || rec.body["amount"] != "5" {
		t.Fatalf("unexpected body %v", rec.body)
	}
	if !strings.Contains(out, "Transfer of 5.00 from A to B completed") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTransferCmdRequiresUsername(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusCreated, `{}`)

	if _, err := execute(t, srv, "transfer", "A", "B", "5"); err == nil {
		t.Fatal("expected error without --username")
	}
}

func TestAPIErrorsAreReported(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnprocessableEntity,
		`{"error":"transfer rejected","message":"business rule violation: insufficient funds"}`)

	_, err := execute(t, srv, "-u", "alice", "transfer", "A", "B", "500")

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || !strings.Contains(apiErr.Message, "insufficient funds") {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestHistoryCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `[]`)

	if _, err := execute(t, srv, "history", "R1", "--from", "2024-01-01", "--to", "2024-01-31"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/accounts/R1/entries" || rec.query != "from=2024-01-01&to=2024-01-31" {
		t.Fatalf("unexpected request %s?%s", rec.path, rec.query)
	}

	if _, err := execute(t, srv, "history", "R1", "--page", "2"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/accounts/R1/entries/recent" || !strings.Contains(rec.query, "page=2") {
		t.Fatalf("unexpected request %s?%s", rec.path, rec.query)
	}

	if _, err := execute(t, srv, "history", "R1", "--from", "2024-01-01"); err == nil {
		t.Fatal("expected error for half-open range")
	}
}

func TestAccountsStatusCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"rib":"R1","status":"BLOCKED"}`)

	if _, err := execute(t, srv, "accounts", "status", "R1", "blocked"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.method != http.MethodPatch || rec.path != "/api/v1/accounts/R1/status" || rec.body["status"] != "blocked" {
		t.Fatalf("unexpected request %+v", rec)
	}
}

func TestDashboardCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{
		"rib":"R1","balance":"12.5","current_page":0,"total_pages":1,"total_transactions":1,
		"entries":[{"created_at":"2024-03-01T10:00:00Z","kind":"CREDIT","amount":"12.5","description":"Transfer from bob"}]
	}`)

	out, err := execute(t, srv, "dashboard", "cust-1", "--rib", "R1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/customers/cust-1/dashboard" || !strings.Contains(rec.query, "rib=R1") {
		t.Fatalf("unexpected request %s?%s", rec.path, rec.query)
	}
	for _, want := range []string{"Account R1  balance 12.5", "Transfer from bob", "page 1/1, 1 transactions"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLedgerConsistencyCmd(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"consistent":true}`)
	out, err := execute(t, srv, "ledger", "consistency")
	if err != nil || !strings.Contains(out, "PASSED") {
		t.Fatalf("expected pass, got %q (%v)", out, err)
	}

	srv, _ = newTestServer(t, http.StatusOK, `{"consistent":false}`)
	if _, err := execute(t, srv, "ledger", "consistency"); err == nil {
		t.Fatal("expected failure for inconsistent ledger")
	}
}

func TestLedgerReconcileCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{}`)

	if _, err := execute(t, srv, "ledger", "reconcile", "R1"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/accounts/R1/reconciliation" {
		t.Fatalf("unexpected path %s", rec.path)
	}

	if _, err := execute(t, srv, "ledger", "reconcile"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/ledger/reconciliation" {
		t.Fatalf("unexpected path %s", rec.path)
	}
}
