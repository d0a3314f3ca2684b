// Package applicants synthesizes the NPC loan applicants and depositors that
// walk into a player's bank each day. Their statistical shape follows the
// bank's level, reputation and marketing spend.
package applicants

import (
	"math"

	"github.com/google/uuid"

	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

type BankProfile struct {
	Level           int     `json:"level"`
	Reputation      float64 `json:"reputation"`
	MarketingBudget float64 `json:"marketing_budget"`
}

type LoanRequest struct {
	Amount             float64          `json:"amount"`
	TermMonths         int              `json:"term_months"`
	Purpose            risk.LoanPurpose `json:"purpose"`
	RequiresCollateral bool             `json:"requires_collateral"`
	CollateralValue    float64          `json:"collateral_value"`
}

type GeneratedApplicant struct {
	ID                 string               `json:"id"`
	FirstName          string               `json:"first_name"`
	LastName           string               `json:"last_name"`
	Gender             string               `json:"gender"`
	Age                int                  `json:"age"`
	CreditScore        int                  `json:"credit_score"`
	AnnualIncome       float64              `json:"annual_income"`
	MonthlyDebt        float64              `json:"monthly_debt"`
	EmploymentType     risk.EmploymentType  `json:"employment_type"`
	Employer           string               `json:"employer"`
	YearsEmployed      float64              `json:"years_employed"`
	HasBankruptcy      bool                 `json:"has_bankruptcy"`
	LatePayments       int                  `json:"late_payments"`
	Request            LoanRequest          `json:"request"`
	RiskTier           risk.RiskTier        `json:"risk_tier"`
	DefaultProbability float64              `json:"default_probability"`
	Recommendation     risk.Recommendation  `json:"recommendation"`
	RecommendedRate    float64              `json:"recommended_rate"`
	Factors            []risk.DefaultFactor `json:"factors"`
}

// Profile is the borrower view the risk model scores.
func (a GeneratedApplicant) Profile() risk.BorrowerProfile {
	return risk.BorrowerProfile{
		CreditScore:     a.CreditScore,
		AnnualIncome:    a.AnnualIncome,
		MonthlyDebt:     a.MonthlyDebt,
		EmploymentType:  a.EmploymentType,
		YearsEmployed:   a.YearsEmployed,
		HasBankruptcy:   a.HasBankruptcy,
		LatePayments:    a.LatePayments,
		RequestedAmount: a.Request.Amount,
		LoanPurpose:     a.Request.Purpose,
		HasCollateral:   a.Request.RequiresCollateral,
		CollateralValue: a.Request.CollateralValue,
	}
}

type Generator struct {
	src rng.Source
}

func NewGenerator(src rng.Source) *Generator {
	if src == nil {
		src = rng.NewEntropy()
	}
	return &Generator{src: src}
}

// MaxBatch caps how many people one Applicants or Depositors call returns
// when the count is derived from the bank profile.
const MaxBatch = 100

func (g *Generator) uniform(lo, hi float64) float64 { return rng.Uniform(g.src, lo, hi) }
func (g *Generator) intRange(lo, hi int) int       { return rng.IntRange(g.src, lo, hi) }
func (g *Generator) chance(p float64) bool          { return rng.Bernoulli(g.src, p) }

func pick[T any](g *Generator, items []T) T { return rng.Pick(g.src, items) }

// newID draws a version 4 UUID from the generator's own source, so a seeded
// generator repeats its IDs too.
func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(rng.Reader(g.src))
	if err != nil {
		panic("applicants: " + err.Error())
	}
	return id.String()
}

// Applicant count and depositor count both scale with level, marketing and
// reputation and carry ±30% daily noise.
func (g *Generator) ApplicantCount(bank BankProfile) int {
	base := 3 + float64(bank.Level)*0.5 + bank.MarketingBudget/2000 + bank.Reputation/50
	return noisyCount(g, base)
}

func (g *Generator) DepositorCount(bank BankProfile) int {
	base := 2 + float64(bank.Level)*0.4 + bank.MarketingBudget/2500 + bank.Reputation/60
	return noisyCount(g, base)
}

func noisyCount(g *Generator, base float64) int {
	n := int(math.Round(base * g.uniform(0.7, 1.3)))
	if n < 1 {
		return 1
	}
	return n
}

func (g *Generator) Applicants(bank BankProfile, count int) []GeneratedApplicant {
	if count <= 0 {
		count = min(g.ApplicantCount(bank), MaxBatch)
	}
	out := make([]GeneratedApplicant, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.Applicant(bank))
	}
	return out
}

func (g *Generator) Applicant(bank BankProfile) GeneratedApplicant {
	a := GeneratedApplicant{ID: g.newID()}
	if g.chance(0.5) {
		a.Gender = "female"
		a.FirstName = pick(g, femaleFirstNames)
	} else {
		a.Gender = "male"
		a.FirstName = pick(g, maleFirstNames)
	}
	a.LastName = pick(g, lastNames)

	a.Age = g.intRange(21, 75)
	a.CreditScore = g.creditScore(bank)
	a.EmploymentType = g.employmentType(bank)
	if a.EmploymentType == risk.Retired && a.Age < 60 {
		a.Age = g.intRange(60, 80)
	}
	a.Employer = employerFor(g, a.EmploymentType, a.LastName)
	a.YearsEmployed = g.yearsEmployed(a.EmploymentType, a.Age)
	a.AnnualIncome = g.annualIncome(a.EmploymentType, a.Age, a.CreditScore)
	a.MonthlyDebt = roundTo(a.AnnualIncome/12*g.uniform(0.05, 0.45), 1)
	a.HasBankruptcy = g.chance(bankruptcyOdds(a.CreditScore))
	a.LatePayments = g.latePayments(a.CreditScore)
	a.Request = g.loanRequest(a.AnnualIncome)

	res, err := risk.CalculateDefaultProbability(a.Profile(), nil)
	if err != nil {
		// Every enum above comes from a closed pool.
		panic("applicants: " + err.Error())
	}
	a.RiskTier = res.RiskTier
	a.DefaultProbability = res.AdjustedRate
	a.Recommendation = res.Recommendation
	a.Factors = res.Factors
	a.RecommendedRate = RecommendedRate(res.RiskTier, res.AdjustedRate)
	return a
}

var scoreDistribution = []struct {
	cumulative float64
	lo, hi     int
}{
	{0.16, 300, 579},
	{0.33, 580, 669},
	{0.54, 670, 739},
	{0.79, 740, 799},
	{1.00, 800, 850},
}

func (g *Generator) creditScore(bank BankProfile) int {
	r := g.src.Float64()
	bucket := scoreDistribution[len(scoreDistribution)-1]
	for _, b := range scoreDistribution {
		if r < b.cumulative {
			bucket = b
			break
		}
	}
	score := float64(g.intRange(bucket.lo, bucket.hi))
	score += float64(bank.Level)*5 + bank.Reputation*0.3 + g.uniform(-10, 10)
	return clampInt(int(math.Round(score)), 300, 850)
}

func (g *Generator) employmentType(bank BankProfile) risk.EmploymentType {
	shift := math.Min(float64(bank.Level)*0.01, 0.10)
	r := g.src.Float64()
	switch {
	case r < 0.60-shift:
		return risk.Employed
	case r < 0.75-shift:
		return risk.SelfEmployed
	case r < 0.85:
		return risk.BusinessOwner
	case r < 0.93:
		return risk.Retired
	default:
		return risk.Unemployed
	}
}

func (g *Generator) yearsEmployed(e risk.EmploymentType, age int) float64 {
	if e == risk.Unemployed {
		return 0
	}
	maxYears := math.Min(float64(age-18), 35)
	if maxYears < 0.5 {
		maxYears = 0.5
	}
	return roundTo(g.uniform(0, maxYears), 0.1)
}

func incomeRange(e risk.EmploymentType) (lo, hi float64) {
	switch e {
	case risk.Employed:
		return 35_000, 120_000
	case risk.SelfEmployed:
		return 25_000, 180_000
	case risk.BusinessOwner:
		return 60_000, 400_000
	case risk.Retired:
		return 20_000, 70_000
	case risk.Unemployed:
		return 0, 15_000
	default:
		panic("applicants: unhandled employment type " + string(e))
	}
}

func ageMultiplier(age int) float64 {
	switch {
	case age < 25:
		return 0.7
	case age >= 35 && age <= 55:
		return 1.2
	case age > 65:
		return 0.8
	default:
		return 1.0
	}
}

func (g *Generator) annualIncome(e risk.EmploymentType, age, score int) float64 {
	lo, hi := incomeRange(e)
	income := g.uniform(lo, hi) * ageMultiplier(age) * (0.7 + float64(score)/850*0.6)
	return roundTo(income, 100)
}

func bankruptcyOdds(score int) float64 {
	switch {
	case score < 580:
		return 0.15
	case score < 670:
		return 0.05
	default:
		return 0.01
	}
}

func (g *Generator) latePayments(score int) int {
	switch {
	case score < 580:
		return g.intRange(2, 10)
	case score < 670:
		return g.intRange(0, 5)
	case score < 740:
		return g.intRange(0, 2)
	default:
		if g.chance(0.1) {
			return 1
		}
		return 0
	}
}

// RecommendedRate prices a loan from its tier plus half of the expected
// annual default rate, rounded to whole basis points.
func RecommendedRate(tier risk.RiskTier, defaultProbability float64) float64 {
	var base float64
	switch tier {
	case risk.Prime:
		base = 0.055
	case risk.NearPrime:
		base = 0.085
	case risk.Subprime:
		base = 0.13
	case risk.DeepSubprime:
		base = 0.19
	default:
		panic("applicants: unhandled risk tier " + string(tier))
	}
	return math.Round((base+0.5*defaultProbability)*10_000) / 10_000
}

func roundTo(v, unit float64) float64 {
	return math.Round(v/unit) * unit
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
