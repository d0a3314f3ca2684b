package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"tycoon/internal/bank"
)

func TestClientSendsAuthAndIdempotency(t *testing.T) {
	var gotPath, gotAuth, gotIdem string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(bank.DecisionResult{ApplicantID: "a-1", Status: bank.Approved})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	out, err := c.Decide(context.Background(), "tok", 4, "a-1", "approve", 0.09, "idem-1")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if out.Status != bank.Approved {
		t.Fatalf("status=%s", out.Status)
	}
	if gotPath != "/v1/banks/4/applicants/a-1/decision" {
		t.Fatalf("path=%s", gotPath)
	}
	if gotAuth != "Bearer tok" || gotIdem != "idem-1" {
		t.Fatalf("auth=%q idem=%q", gotAuth, gotIdem)
	}
	if gotBody["decision"] != "approve" || gotBody["annual_rate"] != 0.09 {
		t.Fatalf("body=%v", gotBody)
	}
}

func TestClientQueryParams(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()
	if _, err := c.ListLoans(ctx, "tok", 2, "active"); err != nil {
		t.Fatalf("loans: %v", err)
	}
	if _, err := c.ListApplicants(ctx, "tok", 2, ""); err != nil {
		t.Fatalf("applicants: %v", err)
	}
	if _, err := c.PortfolioRisk(ctx, "tok", 2, 750); err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	budget := decimal.RequireFromString("2500")
	if _, err := c.UpdateBankProfile(ctx, "tok", 2, &budget, false, "k"); err != nil {
		t.Fatalf("profile: %v", err)
	}
	want := []string{
		"/v1/banks/2/loans?status=active",
		"/v1/banks/2/applicants",
		"/v1/banks/2/portfolio-risk?trials=750",
		"/v1/banks/2/profile",
	}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("request %d path=%s want %s", i, paths[i], p)
		}
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"bank not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).BankState(context.Background(), "tok", 9)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "bank not found" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error before save")
	}
	in := Session{AccessToken: "tok", Email: "p@example.com", UserID: "u1", ActiveBankID: 3}
	if err := store.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != in {
		t.Fatalf("got %+v want %+v", got, in)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error after clear")
	}
}
