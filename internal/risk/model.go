// Package risk scores borrowers for default and simulates loan book losses.
//
// The borrower model is additive and rule based: a base rate from the credit
// score bucket plus named adjustments, so every point of probability can be
// shown to the player as a factor.
package risk

import (
	"fmt"
	"math"
)

const (
	MinDefaultRate = 0.01
	MaxDefaultRate = 0.95

	// DTI assumes the new loan is carried over 36 months.
	dtiLoanTermMonths = 36
)

// band is one rung of a mutually exclusive threshold ladder. Ladders are
// evaluated top-down and the first matching band is the only one applied.
type band struct {
	applies func(v float64) bool
	impact  float64
	label   string
}

func firstMatch(bands []band, v float64) (band, bool) {
	for _, b := range bands {
		if b.applies(v) {
			return b, true
		}
	}
	return band{}, false
}

func above(t float64) func(float64) bool   { return func(v float64) bool { return v > t } }
func below(t float64) func(float64) bool   { return func(v float64) bool { return v < t } }
func atLeast(t float64) func(float64) bool { return func(v float64) bool { return v >= t } }
func atMost(t float64) func(float64) bool  { return func(v float64) bool { return v <= t } }
func exactly(t float64) func(float64) bool { return func(v float64) bool { return v == t } }

var scoreBuckets = []struct {
	min  int
	rate float64
}{
	{800, 0.01},
	{740, 0.02},
	{670, 0.05},
	{620, 0.10},
	{580, 0.18},
	{500, 0.28},
	{300, 0.40},
}

var dtiBands = []band{
	{applies: above(0.50), impact: 0.15, label: "above 50%"},
	{applies: above(0.43), impact: 0.08, label: "above 43%"},
	{applies: below(0.28), impact: -0.02, label: "below 28%"},
}

var tenureBands = []band{
	{applies: below(1), impact: 0.05, label: "less than a year in current role"},
	{applies: atLeast(5), impact: -0.02, label: "five or more years in current role"},
}

var latePaymentBands = []band{
	{applies: above(5), impact: 0.12, label: "more than 5 late payments"},
	{applies: above(2), impact: 0.05, label: "more than 2 late payments"},
	{applies: exactly(0), impact: -0.02, label: "no late payments"},
}

var collateralBands = []band{
	{applies: atMost(0.8), impact: -0.05, label: "loan-to-value at or below 80%"},
	{applies: atMost(1.0), impact: -0.02, label: "loan-to-value at or below 100%"},
}

var loanToIncomeBands = []band{
	{applies: above(5), impact: 0.10, label: "loan exceeds 5x annual income"},
	{applies: above(3), impact: 0.05, label: "loan exceeds 3x annual income"},
}

// BaseRateForScore maps a credit score to its bucket's annual default rate.
// Scores below the lowest bucket fall into it.
func BaseRateForScore(score int) float64 {
	for _, b := range scoreBuckets {
		if score >= b.min {
			return b.rate
		}
	}
	return scoreBuckets[len(scoreBuckets)-1].rate
}

// DetermineRiskTier depends on credit score alone.
func DetermineRiskTier(score int) RiskTier {
	switch {
	case score >= 750:
		return Prime
	case score >= 650:
		return NearPrime
	case score >= 550:
		return Subprime
	default:
		return DeepSubprime
	}
}

func RecommendationFor(probability float64) Recommendation {
	switch {
	case probability <= 0.10:
		return Approve
	case probability <= 0.25:
		return Review
	default:
		return Deny
	}
}

func purposeAdjustment(p LoanPurpose) (float64, error) {
	switch p {
	case Mortgage:
		return -0.03, nil
	case Auto:
		return -0.02, nil
	case BusinessExpansion:
		return 0.05, nil
	case Startup:
		return 0.10, nil
	case DebtConsolidation:
		return 0.03, nil
	case Medical:
		return 0.02, nil
	case Education:
		return -0.01, nil
	case Personal:
		return 0.04, nil
	default:
		return 0, invalid("loan purpose", string(p))
	}
}

// ratio returns +Inf for a zero or negative denominator so income-less
// borrowers land in the worst band.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return math.Inf(1)
	}
	return num / den
}

type scorer struct {
	rate    float64
	factors []DefaultFactor
}

func (s *scorer) add(name string, impact float64, description string) {
	s.rate += impact
	s.factors = append(s.factors, DefaultFactor{Name: name, Impact: impact, Description: description})
}

func (s *scorer) ladder(name string, bands []band, v float64, describe func(b band) string) {
	if b, ok := firstMatch(bands, v); ok {
		s.add(name, b.impact, describe(b))
	}
}

func CalculateDefaultProbability(p BorrowerProfile, econ *EconomicConditions) (DefaultProbabilityResult, error) {
	purposeImpact, err := purposeAdjustment(p.LoanPurpose)
	if err != nil {
		return DefaultProbabilityResult{}, err
	}
	if econ != nil {
		if _, err := ParseRateRegime(string(econ.InterestRates)); err != nil {
			return DefaultProbabilityResult{}, err
		}
		if _, err := ParseHousingMarket(string(econ.HousingMarket)); err != nil {
			return DefaultProbabilityResult{}, err
		}
	}

	base := BaseRateForScore(p.CreditScore)
	s := &scorer{rate: base}
	s.add("Credit score", 0, fmt.Sprintf("Score %d sets a base default rate of %.0f%%", p.CreditScore, base*100))

	monthlyIncome := p.AnnualIncome / 12
	dti := ratio(p.MonthlyDebt+p.RequestedAmount/dtiLoanTermMonths, monthlyIncome)
	s.ladder("Debt-to-income ratio", dtiBands, dti, func(b band) string {
		return fmt.Sprintf("DTI of %s is %s", percent(dti), b.label)
	})

	switch p.EmploymentType {
	case Unemployed:
		s.add("Employment status", 0.25, "Borrower has no current employment income")
	case BusinessOwner:
		if p.YearsEmployed >= 2 {
			s.add("Employment status", -0.03, "Established business owner with two or more years of operation")
		}
	case Employed, SelfEmployed, Retired:
	default:
		return DefaultProbabilityResult{}, invalid("employment type", string(p.EmploymentType))
	}
	tenure := tenureBands
	if p.EmploymentType == Unemployed {
		tenure = tenureBands[1:]
	}
	s.ladder("Employment tenure", tenure, p.YearsEmployed, func(b band) string {
		return fmt.Sprintf("%.1f years employed: %s", p.YearsEmployed, b.label)
	})

	if p.HasBankruptcy {
		s.add("Bankruptcy history", 0.20, "Prior bankruptcy on record")
	}
	s.ladder("Payment history", latePaymentBands, float64(p.LatePayments), func(b band) string {
		return fmt.Sprintf("%d late payments: %s", p.LatePayments, b.label)
	})

	s.add("Loan purpose", purposeImpact, fmt.Sprintf("Purpose %q carries a %+.0f%% adjustment", p.LoanPurpose, purposeImpact*100))

	if p.HasCollateral && p.CollateralValue > 0 {
		ltv := p.RequestedAmount / p.CollateralValue
		s.ladder("Collateral", collateralBands, ltv, func(b band) string {
			return fmt.Sprintf("Secured at %s %s", percent(ltv), b.label)
		})
	}

	lti := ratio(p.RequestedAmount, p.AnnualIncome)
	s.ladder("Loan-to-income ratio", loanToIncomeBands, lti, func(b band) string {
		return b.label
	})

	if econ != nil {
		if econ.Recession {
			s.add("Recession", 0.15, "Economy is in recession")
		}
		if econ.UnemploymentRate > 8 {
			s.add("Unemployment", 0.05, fmt.Sprintf("Unemployment at %.1f%% exceeds 8%%", econ.UnemploymentRate))
		}
		if econ.InterestRates == RatesHigh {
			s.add("Interest rates", 0.03, "High-rate environment raises repayment stress")
		}
		if p.LoanPurpose == Mortgage {
			switch econ.HousingMarket {
			case HousingDeclining:
				s.add("Housing market", 0.08, "Declining home prices erode mortgage collateral")
			case HousingBooming:
				s.add("Housing market", -0.02, "Rising home prices strengthen mortgage collateral")
			}
		}
	}

	adjusted := clamp(s.rate, MinDefaultRate, MaxDefaultRate)
	return DefaultProbabilityResult{
		BaseRate:       base,
		AdjustedRate:   adjusted,
		Factors:        s.factors,
		RiskTier:       DetermineRiskTier(p.CreditScore),
		Recommendation: RecommendationFor(adjusted),
	}, nil
}

func percent(v float64) string {
	if math.IsInf(v, 1) {
		return "unbounded"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
