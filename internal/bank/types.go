package bank

import (
	"time"

	"github.com/shopspring/decimal"

	"tycoon/internal/applicants"
	"tycoon/internal/risk"
)

type CreateBankInput struct {
	UserID         string
	Name           string
	IdempotencyKey string
}

// BankProfileInput changes are applied in order: the marketing budget is set
// first, then the bank is upgraded one level if requested.
type BankProfileInput struct {
	UserID          string
	BankID          int64
	MarketingBudget *decimal.Decimal
	UpgradeLevel    bool
	IdempotencyKey  string
}

type DecisionInput struct {
	UserID      string
	BankID      int64
	ApplicantID string
	Decision    Decision

	// AnnualRate overrides the recommended rate when > 0.
	AnnualRate     float64
	IdempotencyKey string
}

type BankView struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Cash              decimal.Decimal `json:"cash"`
	Level             int             `json:"level"`
	Reputation        float64         `json:"reputation"`
	MarketingBudget   decimal.Decimal `json:"marketing_budget"`
	Month             int             `json:"month"`
	NextLevelCost     decimal.Decimal `json:"next_level_cost"`
	PendingApplicants int64           `json:"pending_applicants"`
	ActiveLoans       int64           `json:"active_loans"`
	DefaultedLoans    int64           `json:"defaulted_loans"`
	LoanBook          decimal.Decimal `json:"loan_book"`
	InterestCollected decimal.Decimal `json:"interest_collected"`
	WrittenOff        decimal.Decimal `json:"written_off"`
	Depositors        int64           `json:"depositors"`
	Deposits          decimal.Decimal `json:"deposits"`
}

// Profile is the view the applicant generator scales against.
func (b BankView) Profile() applicants.BankProfile {
	return applicants.BankProfile{
		Level:           b.Level,
		Reputation:      b.Reputation,
		MarketingBudget: b.MarketingBudget.InexactFloat64(),
	}
}

type ApplicantStatus string

const (
	Pending  ApplicantStatus = "pending"
	Approved ApplicantStatus = "approved"
	Denied   ApplicantStatus = "denied"
	Expired  ApplicantStatus = "expired"
)

type ApplicantView struct {
	ID                 string              `json:"id"`
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	Age                int                 `json:"age"`
	CreditScore        int                 `json:"credit_score"`
	AnnualIncome       decimal.Decimal     `json:"annual_income"`
	MonthlyDebt        decimal.Decimal     `json:"monthly_debt"`
	EmploymentType     risk.EmploymentType `json:"employment_type"`
	Employer           string              `json:"employer"`
	YearsEmployed      float64             `json:"years_employed"`
	HasBankruptcy      bool                `json:"has_bankruptcy"`
	LatePayments       int                 `json:"late_payments"`
	RequestedAmount    decimal.Decimal     `json:"requested_amount"`
	TermMonths         int                 `json:"term_months"`
	Purpose            risk.LoanPurpose    `json:"purpose"`
	RequiresCollateral bool                `json:"requires_collateral"`
	CollateralValue    decimal.Decimal     `json:"collateral_value"`
	RiskTier           risk.RiskTier       `json:"risk_tier"`
	DefaultProbability float64             `json:"default_probability"`
	Recommendation     risk.Recommendation `json:"recommendation"`
	RecommendedRate    float64             `json:"recommended_rate"`
	Status             ApplicantStatus     `json:"status"`
	ArrivedMonth       int                 `json:"arrived_month"`
}

func (a ApplicantView) Profile() risk.BorrowerProfile {
	return risk.BorrowerProfile{
		CreditScore:     a.CreditScore,
		AnnualIncome:    a.AnnualIncome.InexactFloat64(),
		MonthlyDebt:     a.MonthlyDebt.InexactFloat64(),
		EmploymentType:  a.EmploymentType,
		YearsEmployed:   a.YearsEmployed,
		HasBankruptcy:   a.HasBankruptcy,
		LatePayments:    a.LatePayments,
		RequestedAmount: a.RequestedAmount.InexactFloat64(),
		LoanPurpose:     a.Purpose,
		HasCollateral:   a.RequiresCollateral,
		CollateralValue: a.CollateralValue.InexactFloat64(),
	}
}

type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

type LoanView struct {
	ID                        int64            `json:"id"`
	ApplicantID               string           `json:"applicant_id"`
	BorrowerName              string           `json:"borrower_name"`
	Purpose                   risk.LoanPurpose `json:"purpose"`
	Principal                 decimal.Decimal  `json:"principal"`
	Balance                   decimal.Decimal  `json:"balance"`
	AnnualRate                float64          `json:"annual_rate"`
	TermMonths                int              `json:"term_months"`
	MonthsPaid                int              `json:"months_paid"`
	MonthlyPayment            decimal.Decimal  `json:"monthly_payment"`
	MonthlyDefaultProbability float64          `json:"monthly_default_probability"`
	MonthsDelinquent          int              `json:"months_delinquent"`
	InterestCollected         decimal.Decimal  `json:"interest_collected"`
	WrittenOff                decimal.Decimal  `json:"written_off"`
	Status                    LoanStatus       `json:"status"`
	CreatedAt                 time.Time        `json:"created_at"`
}

type DecisionResult struct {
	ApplicantID string          `json:"applicant_id"`
	Status      ApplicantStatus `json:"status"`
	Loan        *LoanView       `json:"loan,omitempty"`

	// Evaluation is the rescoring under the configured economy at decision time.
	Evaluation *risk.DefaultProbabilityResult `json:"evaluation,omitempty"`
}

type DepositorView struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	CustomerType    applicants.CustomerType `json:"customer_type"`
	AccountType     applicants.AccountType  `json:"account_type"`
	Balance         decimal.Decimal         `json:"balance"`
	RateSensitivity float64                 `json:"rate_sensitivity"`
	Loyalty         int                     `json:"loyalty"`
	CreatedAt       time.Time               `json:"created_at"`
}

type PortfolioReport struct {
	BankID       int64                    `json:"bank_id"`
	ActiveLoans  int                      `json:"active_loans"`
	Exposure     decimal.Decimal          `json:"exposure"`
	ExpectedLoss decimal.Decimal          `json:"expected_loss"`
	Simulation   risk.PortfolioSimulation `json:"simulation"`
}

type TickSummary struct {
	Banks      int           `json:"banks"`
	Failed     int           `json:"failed"`
	Applicants int           `json:"applicants"`
	Depositors int           `json:"depositors"`
	Payments   int           `json:"payments"`
	Missed     int           `json:"missed"`
	PaidOff    int           `json:"paid_off"`
	Defaults   int           `json:"defaults"`
	Expired    int64         `json:"expired"`
	Took       time.Duration `json:"took"`
}
