package risk

import (
	"fmt"
	"strings"

	"tycoon/internal/finance"
)

type EmploymentType string

const (
	Employed      EmploymentType = "employed"
	SelfEmployed  EmploymentType = "self_employed"
	BusinessOwner EmploymentType = "business_owner"
	Retired       EmploymentType = "retired"
	Unemployed    EmploymentType = "unemployed"
)

var EmploymentTypes = []EmploymentType{Employed, SelfEmployed, BusinessOwner, Retired, Unemployed}

type LoanPurpose string

const (
	Mortgage          LoanPurpose = "mortgage"
	Auto              LoanPurpose = "auto"
	BusinessExpansion LoanPurpose = "business_expansion"
	Startup           LoanPurpose = "startup"
	DebtConsolidation LoanPurpose = "debt_consolidation"
	Medical           LoanPurpose = "medical"
	Education         LoanPurpose = "education"
	Personal          LoanPurpose = "personal"
)

var LoanPurposes = []LoanPurpose{Mortgage, Auto, BusinessExpansion, Startup, DebtConsolidation, Medical, Education, Personal}

type RateRegime string

const (
	RatesLow    RateRegime = "low"
	RatesNormal RateRegime = "normal"
	RatesHigh   RateRegime = "high"
)

type HousingMarket string

const (
	HousingBooming   HousingMarket = "booming"
	HousingStable    HousingMarket = "stable"
	HousingDeclining HousingMarket = "declining"
)

type RiskTier string

const (
	Prime        RiskTier = "prime"
	NearPrime    RiskTier = "near_prime"
	Subprime     RiskTier = "subprime"
	DeepSubprime RiskTier = "deep_subprime"
)

type Recommendation string

const (
	Approve Recommendation = "approve"
	Review  Recommendation = "review"
	Deny    Recommendation = "deny"
)

type BorrowerProfile struct {
	CreditScore     int            `json:"credit_score"`
	AnnualIncome    float64        `json:"annual_income"`
	MonthlyDebt     float64        `json:"monthly_debt"`
	EmploymentType  EmploymentType `json:"employment_type"`
	YearsEmployed   float64        `json:"years_employed"`
	HasBankruptcy   bool           `json:"has_bankruptcy"`
	LatePayments    int            `json:"late_payments"`
	RequestedAmount float64        `json:"requested_amount"`
	LoanPurpose     LoanPurpose    `json:"loan_purpose"`
	HasCollateral   bool           `json:"has_collateral"`
	CollateralValue float64        `json:"collateral_value"`
}

// EconomicConditions is the macro backdrop. UnemploymentRate is a percentage
// (6.5 means 6.5%).
type EconomicConditions struct {
	UnemploymentRate float64       `json:"unemployment_rate"`
	InterestRates    RateRegime    `json:"interest_rates"`
	HousingMarket    HousingMarket `json:"housing_market"`
	Recession        bool          `json:"recession"`
}

type DefaultFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

type DefaultProbabilityResult struct {
	BaseRate       float64         `json:"base_rate"`
	AdjustedRate   float64         `json:"adjusted_rate"`
	Factors        []DefaultFactor `json:"factors"`
	RiskTier       RiskTier        `json:"risk_tier"`
	Recommendation Recommendation  `json:"recommendation"`
}

func invalid(kind, value string) error {
	return fmt.Errorf("%w: unknown %s %q", finance.ErrInvalidArgument, kind, value)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

func ParseEmploymentType(s string) (EmploymentType, error) {
	e := EmploymentType(normalize(s))
	switch e {
	case Employed, SelfEmployed, BusinessOwner, Retired, Unemployed:
		return e, nil
	}
	return "", invalid("employment type", s)
}

func ParseLoanPurpose(s string) (LoanPurpose, error) {
	p := LoanPurpose(normalize(s))
	if _, err := purposeAdjustment(p); err != nil {
		return "", err
	}
	return p, nil
}

func ParseRateRegime(s string) (RateRegime, error) {
	r := RateRegime(normalize(s))
	switch r {
	case RatesLow, RatesNormal, RatesHigh:
		return r, nil
	}
	return "", invalid("interest rate regime", s)
}

func ParseHousingMarket(s string) (HousingMarket, error) {
	h := HousingMarket(normalize(s))
	switch h {
	case HousingBooming, HousingStable, HousingDeclining:
		return h, nil
	}
	return "", invalid("housing market", s)
}
