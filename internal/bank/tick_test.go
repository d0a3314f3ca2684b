package bank

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOpenMonthMarketing(t *testing.T) {
	cases := []struct {
		name       string
		in         monthBooks
		wantCash   string
		wantBudget string
		wantPaused bool
	}{
		{
			name:       "budget charged",
			in:         monthBooks{Cash: dec("10000"), MarketingBudget: dec("2500"), Month: 4},
			wantCash:   "7500",
			wantBudget: "2500",
		},
		{
			name:       "exact cash covers budget",
			in:         monthBooks{Cash: dec("2500"), MarketingBudget: dec("2500"), Month: 4},
			wantCash:   "0",
			wantBudget: "2500",
		},
		{
			name:       "short cash pauses budget",
			in:         monthBooks{Cash: dec("2499.99"), MarketingBudget: dec("2500"), Month: 4},
			wantCash:   "2499.99",
			wantBudget: "0",
			wantPaused: true,
		},
		{
			name:       "no budget",
			in:         monthBooks{Cash: dec("100"), MarketingBudget: decimal.Zero, Month: 4},
			wantCash:   "100",
			wantBudget: "0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, paused := openMonth(tc.in)
			if got.Month != tc.in.Month+1 {
				t.Fatalf("month=%d", got.Month)
			}
			if paused != tc.wantPaused {
				t.Fatalf("paused=%v", paused)
			}
			if !got.Cash.Equal(dec(tc.wantCash)) || !got.MarketingBudget.Equal(dec(tc.wantBudget)) {
				t.Fatalf("cash=%s budget=%s", got.Cash, got.MarketingBudget)
			}
		})
	}
}

func TestCloseMonthCreditsDepositsAndCollections(t *testing.T) {
	books := monthBooks{Cash: dec("1000"), Reputation: 50, Month: 3}
	book := tickBook{collected: dec("1288.49"), payments: 3, paidOff: 2, missed: 1, defaults: 1}

	got := closeMonth(books, dec("5000.50"), book)
	if !got.Cash.Equal(dec("7288.99")) {
		t.Fatalf("cash=%s", got.Cash)
	}
	// 50 + 2×0.2 - 2 - 0.1
	if got.Reputation != 48.3 {
		t.Fatalf("reputation=%v", got.Reputation)
	}
	if got.Month != 3 {
		t.Fatalf("month=%d", got.Month)
	}
}

func TestCloseMonthClampsReputation(t *testing.T) {
	got := closeMonth(monthBooks{Cash: decimal.Zero, Reputation: 1}, decimal.Zero, tickBook{defaults: 3})
	if got.Reputation != 0 {
		t.Fatalf("reputation=%v", got.Reputation)
	}
	got = closeMonth(monthBooks{Cash: decimal.Zero, Reputation: 99.9}, decimal.Zero, tickBook{paidOff: 5})
	if got.Reputation != 100 {
		t.Fatalf("reputation=%v", got.Reputation)
	}
}

func TestApplicantsExpireAfterOneMonth(t *testing.T) {
	const arrived = 7
	cases := []struct {
		month   int
		expired bool
	}{
		{arrived, false},
		{arrived + 1, false},
		{arrived + 2, true},
		{arrived + 5, true},
	}
	for _, tc := range cases {
		if got := arrived < expiryCutoff(tc.month); got != tc.expired {
			t.Fatalf("month %d: expired=%v want %v", tc.month, got, tc.expired)
		}
	}
}

func TestAdmitDecision(t *testing.T) {
	pending := ApplicantView{Status: Pending, RequestedAmount: dec("50000")}
	cases := []struct {
		name     string
		a        ApplicantView
		decision Decision
		cash     string
		want     error
	}{
		{"approve funded", pending, Approve, "50000", nil},
		{"approve short cash", pending, Approve, "49999.99", ErrInsufficientFunds},
		{"deny ignores cash", pending, Deny, "0", nil},
		{"approved applicant", ApplicantView{Status: Approved}, Deny, "100000", ErrApplicantClosed},
		{"denied applicant", ApplicantView{Status: Denied}, Approve, "100000", ErrApplicantClosed},
		{"expired applicant", ApplicantView{Status: Expired}, Approve, "100000", ErrApplicantClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := admitDecision(tc.a, tc.decision, dec(tc.cash))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}
