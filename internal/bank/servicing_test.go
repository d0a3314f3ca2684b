package bank

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"tycoon/internal/finance"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// seqSource replays draws in order and then repeats the last one.
type seqSource struct {
	draws []float64
	i     int
}

func (s *seqSource) Float64() float64 {
	v := s.draws[min(s.i, len(s.draws)-1)]
	s.i++
	return v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestServiceLoanMonthPaysInterestFirst(t *testing.T) {
	l := loanState{
		Balance:                   dec("10000"),
		AnnualRate:                0.12,
		MonthlyPayment:            dec("888.49"),
		TermMonths:                12,
		MonthlyDefaultProbability: 0.01,
	}
	res := serviceLoanMonth(constSource(0.99), l)
	if res.Event != eventPaid {
		t.Fatalf("event=%s", res.Event)
	}
	if !res.Interest.Equal(dec("100")) {
		t.Fatalf("interest=%s", res.Interest)
	}
	if !res.Principal.Equal(dec("788.49")) {
		t.Fatalf("principal=%s", res.Principal)
	}
	if !res.Next.Balance.Equal(dec("9211.51")) {
		t.Fatalf("balance=%s", res.Next.Balance)
	}
	if res.Next.MonthsPaid != 1 || res.Next.MonthsDelinquent != 0 {
		t.Fatalf("unexpected next state %+v", res.Next)
	}
	if !res.Collected().Equal(dec("888.49")) {
		t.Fatalf("collected=%s", res.Collected())
	}
}

func TestServiceLoanMonthFinalPaymentClearsBalance(t *testing.T) {
	l := loanState{
		Balance:        dec("880.02"),
		AnnualRate:     0.12,
		MonthlyPayment: dec("888.49"),
		TermMonths:     12,
		MonthsPaid:     11,
	}
	res := serviceLoanMonth(constSource(0.99), l)
	if res.Event != eventPaidOff {
		t.Fatalf("event=%s", res.Event)
	}
	if !res.Next.Balance.IsZero() || !res.Principal.Equal(dec("880.02")) {
		t.Fatalf("balance=%s principal=%s", res.Next.Balance, res.Principal)
	}
	if loanStatusFor(res.Event) != LoanPaidOff {
		t.Fatalf("status=%s", loanStatusFor(res.Event))
	}
}

func TestServiceLoanMonthDefaultWritesOffLossGivenDefault(t *testing.T) {
	l := loanState{
		Balance:                   dec("1000"),
		AnnualRate:                0.2,
		MonthlyPayment:            dec("92.63"),
		TermMonths:                12,
		MonthlyDefaultProbability: 0.5,
	}
	res := serviceLoanMonth(constSource(0), l)
	if res.Event != eventDefaulted {
		t.Fatalf("event=%s", res.Event)
	}
	if !res.WrittenOff.Equal(dec("600")) || !res.Recovered.Equal(dec("400")) {
		t.Fatalf("written_off=%s recovered=%s", res.WrittenOff, res.Recovered)
	}
	if !res.Next.Balance.IsZero() {
		t.Fatalf("balance=%s", res.Next.Balance)
	}
	if !res.Collected().Equal(dec("400")) {
		t.Fatalf("collected=%s", res.Collected())
	}
}

func TestServiceLoanMonthMissedPaymentEscalates(t *testing.T) {
	l := loanState{
		Balance:                   dec("5000"),
		AnnualRate:                0.1,
		MonthlyPayment:            dec("440"),
		TermMonths:                12,
		MonthlyDefaultProbability: 0.3,
	}
	// 0.9 survives the default draw at 0.3; 0.1 lands inside the 0.6 miss window.
	res := serviceLoanMonth(&seqSource{draws: []float64{0.9, 0.1}}, l)
	if res.Event != eventMissed {
		t.Fatalf("event=%s", res.Event)
	}
	if res.Next.MonthsDelinquent != 1 || !res.Next.Balance.Equal(l.Balance) {
		t.Fatalf("unexpected next state %+v", res.Next)
	}
	if !res.Collected().IsZero() {
		t.Fatalf("collected=%s", res.Collected())
	}

	// Three months behind triples the hazard: 0.3 × 3 clears a 0.85 draw.
	l.MonthsDelinquent = 3
	res = serviceLoanMonth(constSource(0.85), l)
	if res.Event != eventDefaulted {
		t.Fatalf("expected escalated default, got %s", res.Event)
	}
}

func TestServiceLoanAmortizesOverTerm(t *testing.T) {
	const principal, rate, term = 10_000.0, 0.12, 12
	l := loanState{
		Balance:        Money(principal),
		AnnualRate:     rate,
		MonthlyPayment: Money(finance.MonthlyPayment(principal, rate, term)),
		TermMonths:     term,
	}
	var book tickBook
	months := 0
	totalPrincipal := decimal.Zero
	totalInterest := decimal.Zero
	for {
		res := serviceLoanMonth(constSource(0.5), l)
		book.record(res)
		totalPrincipal = totalPrincipal.Add(res.Principal)
		totalInterest = totalInterest.Add(res.Interest)
		months++
		l = res.Next
		if res.Event == eventPaidOff {
			break
		}
		if months > term {
			t.Fatalf("loan did not pay off within %d months", term)
		}
	}
	if months != term {
		t.Fatalf("paid off in %d months, want %d", months, term)
	}
	if !totalPrincipal.Equal(Money(principal)) {
		t.Fatalf("principal repaid %s", totalPrincipal)
	}
	want := finance.TotalInterest(principal, rate, term)
	if math.Abs(totalInterest.InexactFloat64()-want) > 0.10 {
		t.Fatalf("interest=%s want≈%.2f", totalInterest, want)
	}
	if book.payments != term || book.paidOff != 1 || book.defaults != 0 {
		t.Fatalf("unexpected book %+v", book)
	}
	if !book.collected.Equal(totalPrincipal.Add(totalInterest)) {
		t.Fatalf("collected=%s", book.collected)
	}
}

func TestReputationAfter(t *testing.T) {
	tests := []struct {
		rep                       float64
		paidOff, defaults, missed int
		want                      float64
	}{
		{rep: 50, paidOff: 1, want: 50.2},
		{rep: 50, defaults: 1, missed: 2, want: 47.8},
		{rep: 1, defaults: 3, want: 0},
		{rep: 99.9, paidOff: 5, want: 100},
	}
	for _, tc := range tests {
		got := reputationAfter(tc.rep, tc.paidOff, tc.defaults, tc.missed)
		if got != tc.want {
			t.Fatalf("reputationAfter(%v,%d,%d,%d)=%v want %v", tc.rep, tc.paidOff, tc.defaults, tc.missed, got, tc.want)
		}
	}
}
