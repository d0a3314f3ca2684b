// Package cli is the HTTP client and local session store behind the tyc
// command.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tycoon/internal/auth"
	"tycoon/internal/bank"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server. Anything else returned by a
// Client method is a transport failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) CreateBank(ctx context.Context, accessToken, name, idem string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/banks", accessToken, map[string]any{
		"name": name,
	}, &out, idem)
	return out.ID, err
}

func (c *Client) ListBanks(ctx context.Context, accessToken string) ([]bank.BankView, error) {
	var out struct {
		Banks []bank.BankView `json:"banks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/banks", accessToken, nil, &out, "")
	return out.Banks, err
}

func (c *Client) BankState(ctx context.Context, accessToken string, bankID int64) (bank.BankView, error) {
	var out bank.BankView
	err := c.jsonRequest(ctx, http.MethodGet, bankPath(bankID, ""), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) UpdateBankProfile(ctx context.Context, accessToken string, bankID int64, budget *decimal.Decimal, upgrade bool, idem string) (bank.BankView, error) {
	body := map[string]any{"upgrade_level": upgrade}
	if budget != nil {
		body["marketing_budget"] = *budget
	}
	var out bank.BankView
	err := c.jsonRequest(ctx, http.MethodPost, bankPath(bankID, "/profile"), accessToken, body, &out, idem)
	return out, err
}

func (c *Client) ListApplicants(ctx context.Context, accessToken string, bankID int64, status string) ([]bank.ApplicantView, error) {
	var out struct {
		Applicants []bank.ApplicantView `json:"applicants"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, withStatus(bankPath(bankID, "/applicants"), status), accessToken, nil, &out, "")
	return out.Applicants, err
}

// Decide approves or denies an applicant. A zero annualRate lets the server
// price the loan.
func (c *Client) Decide(ctx context.Context, accessToken string, bankID int64, applicantID, decision string, annualRate float64, idem string) (bank.DecisionResult, error) {
	path, body := DecisionRequest(bankID, applicantID, decision, annualRate)
	var out bank.DecisionResult
	err := c.jsonRequest(ctx, http.MethodPost, path, accessToken, body, &out, idem)
	return out, err
}

// DecisionRequest is the path and body Decide sends, exposed so a decision
// can be queued for replay.
func DecisionRequest(bankID int64, applicantID, decision string, annualRate float64) (string, map[string]any) {
	body := map[string]any{"decision": decision}
	if annualRate > 0 {
		body["annual_rate"] = annualRate
	}
	return bankPath(bankID, "/applicants/"+url.PathEscape(applicantID)+"/decision"), body
}

func (c *Client) ListLoans(ctx context.Context, accessToken string, bankID int64, status string) ([]bank.LoanView, error) {
	var out struct {
		Loans []bank.LoanView `json:"loans"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, withStatus(bankPath(bankID, "/loans"), status), accessToken, nil, &out, "")
	return out.Loans, err
}

func (c *Client) ListDepositors(ctx context.Context, accessToken string, bankID int64) ([]bank.DepositorView, error) {
	var out struct {
		Depositors []bank.DepositorView `json:"depositors"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, bankPath(bankID, "/depositors"), accessToken, nil, &out, "")
	return out.Depositors, err
}

func (c *Client) PortfolioRisk(ctx context.Context, accessToken string, bankID int64, trials int) (bank.PortfolioReport, error) {
	path := bankPath(bankID, "/portfolio-risk")
	if trials > 0 {
		path += "?trials=" + strconv.Itoa(trials)
	}
	var out bank.PortfolioReport
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

// Do replays a raw request, as queued by the offline outbox.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, accessToken, in, &out, idem)
	return out, err
}

func bankPath(bankID int64, suffix string) string {
	return fmt.Sprintf("/v1/banks/%d%s", bankID, suffix)
}

func withStatus(path, status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return path
	}
	return path + "?status=" + url.QueryEscape(status)
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
