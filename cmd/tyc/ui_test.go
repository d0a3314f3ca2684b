package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyDec(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"999.5", "$999.50"},
		{"1000", "$1,000.00"},
		{"1234567.891", "$1,234,567.89"},
		{"-250000", "-$250,000.00"},
	}
	for _, tc := range tests {
		got := moneyDec(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Fatalf("moneyDec(%s)=%s want %s", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Harborview Savings and Loan", 12); got != "Harborvie..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("  short  ", 12); got != "short" {
		t.Fatalf("got %q", got)
	}
}
