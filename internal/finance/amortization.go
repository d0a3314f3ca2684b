package finance

import (
	"iter"
	"math"
	"slices"
)

// effectiveRateMaxIter bounds the Newton solve in EffectiveRate.
const effectiveRateMaxIter = 100

type Row struct {
	Month              int     `json:"month"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	Balance            float64 `json:"balance"`
	CumulativeInterest float64 `json:"cumulative_interest"`
}

// MonthlyPayment is the fixed payment that retires principal over termMonths.
//
//	payment = P * r / (1 - (1+r)^-n),  r = annualRate/12
func MonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	n := float64(termMonths)
	if annualRate == 0 {
		return principal / n
	}
	r := annualRate / 12
	return principal * r / (1 - math.Pow(1+r, -n))
}

func TotalInterest(principal, annualRate float64, termMonths int) float64 {
	return MonthlyPayment(principal, annualRate, termMonths)*float64(termMonths) - principal
}

// Schedule yields one row per month. Each range over the returned sequence
// recomputes the schedule from the start.
func Schedule(principal, annualRate float64, termMonths int) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		if termMonths <= 0 {
			return
		}
		payment := MonthlyPayment(principal, annualRate, termMonths)
		r := annualRate / 12
		balance := principal
		cumulative := 0.0
		for month := 1; month <= termMonths; month++ {
			interest := balance * r
			principalPart := payment - interest
			balance -= principalPart
			if balance < 0 {
				balance = 0
			}
			cumulative += interest
			row := Row{
				Month:              month,
				Payment:            payment,
				Principal:          principalPart,
				Interest:           interest,
				Balance:            balance,
				CumulativeInterest: cumulative,
			}
			if !yield(row) {
				return
			}
		}
	}
}

func AmortizationSchedule(principal, annualRate float64, termMonths int) []Row {
	return slices.Collect(Schedule(principal, annualRate, termMonths))
}

// MaxLoanAmount inverts MonthlyPayment: the principal a fixed payment can carry.
func MaxLoanAmount(monthlyPayment, annualRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	n := float64(termMonths)
	if annualRate == 0 {
		return monthlyPayment * n
	}
	r := annualRate / 12
	return monthlyPayment * (1 - math.Pow(1+r, -n)) / r
}

type Affordability struct {
	MaxMonthlyPayment float64 `json:"max_monthly_payment"`
	MaxLoanAmount     float64 `json:"max_loan_amount"`
}

// AffordabilityFor sizes the largest loan whose payment keeps total monthly
// obligations at or below maxDTI of monthly income.
func AffordabilityFor(monthlyIncome, monthlyDebt, annualRate float64, termMonths int, maxDTI float64) Affordability {
	budget := monthlyIncome*maxDTI - monthlyDebt
	if budget <= 0 {
		return Affordability{}
	}
	return Affordability{
		MaxMonthlyPayment: budget,
		MaxLoanAmount:     MaxLoanAmount(budget, annualRate, termMonths),
	}
}

// EffectiveRate is the annual rate at which the net proceeds (principal minus
// upfront fees) are retired by the payment quoted on the full principal.
// The solve stops after effectiveRateMaxIter steps whether or not it has
// converged.
func EffectiveRate(principal, annualRate float64, termMonths int, upfrontFees float64) float64 {
	netLoan := principal - upfrontFees
	if termMonths <= 0 || upfrontFees <= 0 || netLoan <= 0 {
		return annualRate
	}
	payment := MonthlyPayment(principal, annualRate, termMonths)
	gap := func(rate float64) float64 {
		return MonthlyPayment(netLoan, rate, termMonths) - payment
	}

	const step = 1e-6
	guess := annualRate
	for i := 0; i < effectiveRateMaxIter; i++ {
		fx := gap(guess)
		if math.Abs(fx) < 1e-9 {
			break
		}
		slope := (gap(guess+step) - fx) / step
		if slope == 0 || math.IsNaN(slope) {
			break
		}
		next := guess - fx/slope
		if next <= 0 {
			next = guess / 2
		}
		if math.Abs(next-guess) < 1e-12 {
			guess = next
			break
		}
		guess = next
	}
	return guess
}
