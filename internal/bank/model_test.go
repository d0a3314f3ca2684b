package bank

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateBankName(t *testing.T) {
	valid := []string{"Acme Savings", "First Harbor", "Bob"}
	for _, name := range valid {
		if err := validateBankName(name); err != nil {
			t.Fatalf("expected %q to be valid: %v", name, err)
		}
	}

	invalid := []string{"", "  ", "ab", "Official Treasury", "admin bank", string(make([]byte, 49))}
	for _, name := range invalid {
		if err := validateBankName(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected %q to fail with ErrInvalidName, got %v", name, err)
		}
	}
}

func TestLevelUpgradeCost(t *testing.T) {
	tests := []struct {
		level int
		want  decimal.Decimal
	}{
		{level: 0, want: decimal.NewFromInt(250_000)},
		{level: 1, want: decimal.NewFromInt(250_000)},
		{level: 4, want: decimal.NewFromInt(1_000_000)},
		{level: MaxLevel, want: decimal.Zero},
	}
	for _, tc := range tests {
		got := LevelUpgradeCost(tc.level)
		if !got.Equal(tc.want) {
			t.Fatalf("level=%d got=%s want=%s", tc.level, got, tc.want)
		}
	}
}

func TestParseDecision(t *testing.T) {
	if d, err := ParseDecision(" Approve "); err != nil || d != Approve {
		t.Fatalf("got %q, %v", d, err)
	}
	if d, err := ParseDecision("deny"); err != nil || d != Deny {
		t.Fatalf("got %q, %v", d, err)
	}
	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseApplicantStatus(t *testing.T) {
	if _, err := parseApplicantStatus("pending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := parseApplicantStatus("archived"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMoneyRoundsToCents(t *testing.T) {
	if got := Money(1199.1049); got.String() != "1199.1" {
		t.Fatalf("got %s", got)
	}
	if got := Money(0.005); got.String() != "0.01" {
		t.Fatalf("got %s", got)
	}
}

func TestBankViewProfile(t *testing.T) {
	b := BankView{Level: 3, Reputation: 61.5, MarketingBudget: decimal.NewFromInt(4000)}
	p := b.Profile()
	if p.Level != 3 || p.Reputation != 61.5 || p.MarketingBudget != 4000 {
		t.Fatalf("unexpected profile %+v", p)
	}
}
