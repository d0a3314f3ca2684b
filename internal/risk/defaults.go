package risk

import (
	"math"

	"tycoon/internal/rng"
)

// AnnualToMonthlyDefaultRate splits an annual default probability into the
// equivalent monthly hazard: 1 - (1-annual)^(1/12).
func AnnualToMonthlyDefaultRate(annual float64) float64 {
	annual = clamp(annual, 0, 1)
	return 1 - math.Pow(1-annual, 1.0/12)
}

// MonthlyToAnnualDefaultRate is the inverse of AnnualToMonthlyDefaultRate.
func MonthlyToAnnualDefaultRate(monthly float64) float64 {
	monthly = clamp(monthly, 0, 1)
	return 1 - math.Pow(1-monthly, 12)
}

func delinquencyMultiplier(monthsDelinquent int) float64 {
	switch {
	case monthsDelinquent >= 3:
		return 3
	case monthsDelinquent == 2:
		return 2
	case monthsDelinquent == 1:
		return 1.5
	default:
		return 1
	}
}

// ShouldDefaultThisMonth runs one Bernoulli trial for a loan, escalating the
// monthly probability the longer the borrower has been delinquent.
func ShouldDefaultThisMonth(src rng.Source, monthlyProb float64, monthsDelinquent int) bool {
	p := math.Min(1, monthlyProb*delinquencyMultiplier(monthsDelinquent))
	return rng.Bernoulli(src, p)
}
