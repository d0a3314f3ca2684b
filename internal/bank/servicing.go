package bank

import (
	"math"

	"github.com/shopspring/decimal"

	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

var (
	lossGivenDefault = decimal.NewFromFloat(risk.DefaultLossGivenDefault)
	monthsPerYear    = decimal.NewFromInt(12)
)

// Missed payments run at missedPaymentFactor × the monthly default hazard.
const missedPaymentFactor = 2.0

const (
	reputationPerPayoff  = 0.2
	reputationPerDefault = -2.0
	reputationPerMissed  = -0.1
)

type loanEvent string

const (
	eventPaid      loanEvent = "paid"
	eventMissed    loanEvent = "missed_payment"
	eventPaidOff   loanEvent = "paid_off"
	eventDefaulted loanEvent = "defaulted"
)

type loanState struct {
	Balance                   decimal.Decimal
	AnnualRate                float64
	MonthlyPayment            decimal.Decimal
	TermMonths                int
	MonthsPaid                int
	MonthsDelinquent          int
	MonthlyDefaultProbability float64
}

type monthResult struct {
	Event     loanEvent
	Interest  decimal.Decimal
	Principal decimal.Decimal

	// Recovered is the share of a defaulted balance that comes back to the
	// bank; WrittenOff is the rest.
	Recovered  decimal.Decimal
	WrittenOff decimal.Decimal
	Next       loanState
}

// Collected is the cash that reaches the bank this month.
func (r monthResult) Collected() decimal.Decimal {
	return r.Interest.Add(r.Principal).Add(r.Recovered)
}

// serviceLoanMonth advances one active loan by a month. A default takes the
// whole remaining balance; otherwise the borrower either misses the payment
// or pays interest first and principal with the remainder. The final
// scheduled payment clears whatever balance rounding left behind.
func serviceLoanMonth(src rng.Source, l loanState) monthResult {
	res := monthResult{Next: l}

	if risk.ShouldDefaultThisMonth(src, l.MonthlyDefaultProbability, l.MonthsDelinquent) {
		res.Event = eventDefaulted
		res.WrittenOff = l.Balance.Mul(lossGivenDefault).Round(2)
		res.Recovered = l.Balance.Sub(res.WrittenOff)
		res.Next.Balance = decimal.Zero
		return res
	}

	missProb := math.Min(1, l.MonthlyDefaultProbability*missedPaymentFactor)
	if rng.Bernoulli(src, missProb) {
		res.Event = eventMissed
		res.Next.MonthsDelinquent++
		return res
	}

	res.Interest = l.Balance.Mul(decimal.NewFromFloat(l.AnnualRate)).Div(monthsPerYear).Round(2)
	res.Principal = l.MonthlyPayment.Sub(res.Interest)
	if res.Principal.IsNegative() {
		res.Principal = decimal.Zero
	}
	if res.Principal.GreaterThanOrEqual(l.Balance) || l.MonthsPaid+1 >= l.TermMonths {
		res.Principal = l.Balance
	}
	res.Next.Balance = l.Balance.Sub(res.Principal)
	res.Next.MonthsPaid++
	res.Next.MonthsDelinquent = 0
	res.Event = eventPaid
	if res.Next.Balance.IsZero() {
		res.Event = eventPaidOff
	}
	return res
}

func reputationAfter(rep float64, paidOff, defaults, missed int) float64 {
	rep += float64(paidOff)*reputationPerPayoff +
		float64(defaults)*reputationPerDefault +
		float64(missed)*reputationPerMissed
	return math.Round(math.Max(0, math.Min(100, rep))*100) / 100
}

// tickBook tallies one bank's servicing pass.
type tickBook struct {
	collected decimal.Decimal
	payments  int
	missed    int
	paidOff   int
	defaults  int
}

func (b *tickBook) record(r monthResult) {
	b.collected = b.collected.Add(r.Collected())
	switch r.Event {
	case eventPaid:
		b.payments++
	case eventPaidOff:
		b.payments++
		b.paidOff++
	case eventMissed:
		b.missed++
	case eventDefaulted:
		b.defaults++
	}
}

func loanStatusFor(e loanEvent) LoanStatus {
	switch e {
	case eventPaidOff:
		return LoanPaidOff
	case eventDefaulted:
		return LoanDefaulted
	default:
		return LoanActive
	}
}
