// Package bank persists a player's bank: its balance sheet, the applicants
// and depositors the economy sends it, and the loans it books.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tycoon/internal/applicants"
	"tycoon/internal/finance"
	"tycoon/internal/metrics"
	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

const MaxPortfolioTrials = 20_000

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Options struct {
	// Source drives applicant generation, loan servicing and portfolio
	// simulation. Nil seeds from entropy.
	Source  rng.Source
	// Economy is applied when an applicant is rescored at approval time.
	Economy *risk.EconomicConditions
	Metrics *metrics.Metrics
}

type Service struct {
	db      *pgxpool.Pool
	log     *slog.Logger
	src     rng.Source
	gen     *applicants.Generator
	econ    *risk.EconomicConditions
	metrics *metrics.Metrics
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	src := opts.Source
	if src == nil {
		src = rng.NewEntropy()
	}
	return &Service{
		db:      db,
		log:     logger,
		src:     src,
		gen:     applicants.NewGenerator(src),
		econ:    opts.Economy,
		metrics: opts.Metrics,
	}
}

func (s *Service) CreateBank(ctx context.Context, in CreateBankInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateBankName(in.Name); err != nil {
		return 0, err
	}

	var id int64
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_bank"); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO bank.banks (owner_user_id, name, cash, level, reputation)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, in.UserID, in.Name, StartingCash, StartingLevel, StartingReputation).Scan(&id)
	})
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: you already own a bank with that name", ErrInvalidName)
	}
	if err != nil {
		return 0, err
	}
	s.log.Info("bank created", "bank_id", id, "user_id", in.UserID, "name", in.Name)
	return id, nil
}

func (s *Service) ListBanks(ctx context.Context, userID string) ([]BankView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, cash, level, reputation, marketing_budget, month
		FROM bank.banks
		WHERE owner_user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankView
	for rows.Next() {
		var b BankView
		if err := rows.Scan(&b.ID, &b.Name, &b.Cash, &b.Level, &b.Reputation, &b.MarketingBudget, &b.Month); err != nil {
			return nil, err
		}
		b.NextLevelCost = LevelUpgradeCost(b.Level)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Service) BankState(ctx context.Context, userID string, bankID int64) (BankView, error) {
	b, err := loadBank(ctx, s.db, userID, bankID, false)
	if err != nil {
		return b, err
	}
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(1) FROM bank.applicants WHERE bank_id = $1 AND status = 'pending'),
			COUNT(1) FILTER (WHERE status = 'active'),
			COUNT(1) FILTER (WHERE status = 'defaulted'),
			COALESCE(SUM(balance) FILTER (WHERE status = 'active'), 0),
			COALESCE(SUM(interest_collected), 0),
			COALESCE(SUM(written_off), 0)
		FROM bank.loans
		WHERE bank_id = $1
	`, bankID).Scan(&b.PendingApplicants, &b.ActiveLoans, &b.DefaultedLoans, &b.LoanBook, &b.InterestCollected, &b.WrittenOff)
	if err != nil {
		return b, err
	}
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(1), COALESCE(SUM(balance), 0)
		FROM bank.depositors
		WHERE bank_id = $1
	`, bankID).Scan(&b.Depositors, &b.Deposits)
	return b, err
}

func (s *Service) UpdateBankProfile(ctx context.Context, in BankProfileInput) (BankView, error) {
	if in.MarketingBudget == nil && !in.UpgradeLevel {
		return BankView{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if in.MarketingBudget != nil {
		if in.MarketingBudget.IsNegative() || in.MarketingBudget.GreaterThan(MaxMarketingBudget) {
			return BankView{}, fmt.Errorf("%w: marketing budget must be between 0 and %s", ErrInvalidInput, MaxMarketingBudget)
		}
	}

	err := s.serializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "update_bank"); err != nil {
			return err
		}
		b, err := loadBank(ctx, tx, in.UserID, in.BankID, true)
		if err != nil {
			return err
		}
		if in.MarketingBudget != nil {
			b.MarketingBudget = in.MarketingBudget.Round(2)
		}
		if in.UpgradeLevel {
			if b.Level >= MaxLevel {
				return ErrMaxLevel
			}
			cost := LevelUpgradeCost(b.Level)
			if b.Cash.LessThan(cost) {
				return ErrInsufficientFunds
			}
			b.Cash = b.Cash.Sub(cost)
			b.Level++
		}
		_, err = tx.Exec(ctx, `
			UPDATE bank.banks
			SET cash = $1, level = $2, marketing_budget = $3, updated_at = now()
			WHERE id = $4
		`, b.Cash, b.Level, b.MarketingBudget, b.ID)
		return err
	})
	if err != nil {
		return BankView{}, err
	}
	return s.BankState(ctx, in.UserID, in.BankID)
}

func (s *Service) ListApplicants(ctx context.Context, userID string, bankID int64, status string) ([]ApplicantView, error) {
	if _, err := loadBank(ctx, s.db, userID, bankID, false); err != nil {
		return nil, err
	}
	query := `SELECT ` + applicantColumns + ` FROM bank.applicants WHERE bank_id = $1`
	args := []any{bankID}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
		st, err := parseApplicantStatus(status)
		if err != nil {
			return nil, err
		}
		query += " AND status = $2"
		args = append(args, st)
	}
	query += " ORDER BY created_at DESC, id LIMIT 200"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ApplicantView
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// admitDecision checks a decision against the applicant's state and the
// bank's cash. Only pending applicants can be decided, and an approval must
// be fundable in full.
func admitDecision(a ApplicantView, d Decision, cash decimal.Decimal) error {
	if a.Status != Pending {
		return ErrApplicantClosed
	}
	if d == Approve && cash.LessThan(a.RequestedAmount) {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Service) DecideApplicant(ctx context.Context, in DecisionInput) (DecisionResult, error) {
	var out DecisionResult
	if _, err := uuid.Parse(in.ApplicantID); err != nil {
		return out, ErrApplicantNotFound
	}
	if in.Decision != Approve && in.Decision != Deny {
		return out, fmt.Errorf("%w: decision must be approve or deny", ErrInvalidInput)
	}
	if in.AnnualRate < 0 || in.AnnualRate > 1 {
		return out, fmt.Errorf("%w: annual rate must be a fraction between 0 and 1", ErrInvalidInput)
	}

	err := s.serializable(ctx, func(tx pgx.Tx) error {
		out = DecisionResult{ApplicantID: in.ApplicantID}
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "decide_applicant"); err != nil {
			return err
		}
		b, err := loadBank(ctx, tx, in.UserID, in.BankID, true)
		if err != nil {
			return err
		}
		a, err := scanApplicant(tx.QueryRow(ctx, `
			SELECT `+applicantColumns+`
			FROM bank.applicants
			WHERE id = $1 AND bank_id = $2
			FOR UPDATE
		`, in.ApplicantID, in.BankID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrApplicantNotFound
		}
		if err != nil {
			return err
		}
		if err := admitDecision(a, in.Decision, b.Cash); err != nil {
			return err
		}

		if in.Decision == Deny {
			out.Status = Denied
			_, err := tx.Exec(ctx, `
				UPDATE bank.applicants SET status = 'denied', decided_at = now() WHERE id = $1
			`, a.ID)
			return err
		}

		eval, err := risk.CalculateDefaultProbability(a.Profile(), s.econ)
		if err != nil {
			return err
		}
		rate := in.AnnualRate
		if rate == 0 {
			rate = applicants.RecommendedRate(eval.RiskTier, eval.AdjustedRate)
		}
		loan := LoanView{
			ApplicantID:               a.ID,
			BorrowerName:              a.FirstName + " " + a.LastName,
			Purpose:                   a.Purpose,
			Principal:                 a.RequestedAmount,
			Balance:                   a.RequestedAmount,
			AnnualRate:                rate,
			TermMonths:                a.TermMonths,
			MonthlyPayment:            Money(finance.MonthlyPayment(a.RequestedAmount.InexactFloat64(), rate, a.TermMonths)),
			MonthlyDefaultProbability: risk.AnnualToMonthlyDefaultRate(eval.AdjustedRate),
			Status:                    LoanActive,
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO bank.loans (
				bank_id, applicant_id, borrower_name, purpose, principal, balance, annual_rate,
				term_months, monthly_payment, monthly_default_probability
			)
			VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`, b.ID, loan.ApplicantID, loan.BorrowerName, loan.Purpose, loan.Principal, loan.AnnualRate,
			loan.TermMonths, loan.MonthlyPayment, loan.MonthlyDefaultProbability).Scan(&loan.ID, &loan.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE bank.applicants SET status = 'approved', decided_at = now() WHERE id = $1
		`, a.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE bank.banks SET cash = cash - $1, updated_at = now() WHERE id = $2
		`, loan.Principal, b.ID); err != nil {
			return err
		}
		out.Status = Approved
		out.Loan = &loan
		out.Evaluation = &eval
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	if out.Loan != nil {
		s.metrics.LoanEvent("originated", 1)
		s.log.Info("loan originated",
			"bank_id", in.BankID,
			"loan_id", out.Loan.ID,
			"principal", out.Loan.Principal.String(),
			"rate", out.Loan.AnnualRate,
			"tier", out.Evaluation.RiskTier,
		)
	}
	return out, nil
}

func (s *Service) ListLoans(ctx context.Context, userID string, bankID int64, status string) ([]LoanView, error) {
	if _, err := loadBank(ctx, s.db, userID, bankID, false); err != nil {
		return nil, err
	}
	query := `
		SELECT id, applicant_id::text, borrower_name, purpose, principal, balance, annual_rate, term_months,
		       months_paid, monthly_payment, monthly_default_probability, months_delinquent,
		       interest_collected, written_off, status, created_at
		FROM bank.loans
		WHERE bank_id = $1
	`
	args := []any{bankID}
	switch st := LoanStatus(strings.ToLower(strings.TrimSpace(status))); st {
	case "":
	case LoanActive, LoanPaidOff, LoanDefaulted:
		query += " AND status = $2"
		args = append(args, st)
	default:
		return nil, fmt.Errorf("%w: unknown loan status %q", ErrInvalidInput, status)
	}
	query += " ORDER BY id DESC LIMIT 500"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LoanView
	for rows.Next() {
		var l LoanView
		if err := rows.Scan(&l.ID, &l.ApplicantID, &l.BorrowerName, &l.Purpose, &l.Principal, &l.Balance, &l.AnnualRate,
			&l.TermMonths, &l.MonthsPaid, &l.MonthlyPayment, &l.MonthlyDefaultProbability, &l.MonthsDelinquent,
			&l.InterestCollected, &l.WrittenOff, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Service) ListDepositors(ctx context.Context, userID string, bankID int64) ([]DepositorView, error) {
	if _, err := loadBank(ctx, s.db, userID, bankID, false); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, customer_type, account_type, balance, rate_sensitivity, loyalty, created_at
		FROM bank.depositors
		WHERE bank_id = $1
		ORDER BY balance DESC
		LIMIT 500
	`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DepositorView
	for rows.Next() {
		var d DepositorView
		if err := rows.Scan(&d.ID, &d.Name, &d.CustomerType, &d.AccountType, &d.Balance, &d.RateSensitivity, &d.Loyalty, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PortfolioRisk simulates losses on the active book. Stored probabilities are
// monthly hazards, so they are annualized before simulation.
func (s *Service) PortfolioRisk(ctx context.Context, userID string, bankID int64, trials int) (PortfolioReport, error) {
	out := PortfolioReport{BankID: bankID}
	if trials > MaxPortfolioTrials {
		return out, fmt.Errorf("%w: trials must be <= %d", ErrInvalidInput, MaxPortfolioTrials)
	}
	if _, err := loadBank(ctx, s.db, userID, bankID, false); err != nil {
		return out, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT balance, monthly_default_probability
		FROM bank.loans
		WHERE bank_id = $1 AND status = 'active'
	`, bankID)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	var loans []risk.PortfolioLoan
	for rows.Next() {
		var balance decimal.Decimal
		var monthly float64
		if err := rows.Scan(&balance, &monthly); err != nil {
			return out, err
		}
		out.Exposure = out.Exposure.Add(balance)
		loans = append(loans, risk.PortfolioLoan{
			Amount:             balance.InexactFloat64(),
			DefaultProbability: risk.MonthlyToAnnualDefaultRate(monthly),
		})
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	out.ActiveLoans = len(loans)
	out.ExpectedLoss = Money(risk.ExpectedLoss(loans, risk.DefaultLossGivenDefault))
	out.Simulation = risk.SimulatePortfolioDefaults(s.src, loans, risk.SimulationConfig{Trials: trials})
	return out, nil
}

const applicantColumns = `
	id::text, first_name, last_name, age, credit_score, annual_income, monthly_debt,
	employment_type, employer, years_employed, has_bankruptcy, late_payments,
	requested_amount, term_months, purpose, requires_collateral, collateral_value,
	risk_tier, default_probability, recommendation, recommended_rate, status, arrived_month
`

func scanApplicant(row pgx.Row) (ApplicantView, error) {
	var a ApplicantView
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Age, &a.CreditScore, &a.AnnualIncome, &a.MonthlyDebt,
		&a.EmploymentType, &a.Employer, &a.YearsEmployed, &a.HasBankruptcy, &a.LatePayments,
		&a.RequestedAmount, &a.TermMonths, &a.Purpose, &a.RequiresCollateral, &a.CollateralValue,
		&a.RiskTier, &a.DefaultProbability, &a.Recommendation, &a.RecommendedRate, &a.Status, &a.ArrivedMonth)
	return a, err
}

func parseApplicantStatus(s string) (ApplicantStatus, error) {
	switch st := ApplicantStatus(s); st {
	case Pending, Approved, Denied, Expired:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown applicant status %q", ErrInvalidInput, s)
	}
}

// loadBank resolves a bank and checks that userID owns it.
func loadBank(ctx context.Context, q querier, userID string, bankID int64, forUpdate bool) (BankView, error) {
	var b BankView
	var owner string
	query := `
		SELECT id, owner_user_id, name, cash, level, reputation, marketing_budget, month
		FROM bank.banks
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	err := q.QueryRow(ctx, query, bankID).Scan(&b.ID, &owner, &b.Name, &b.Cash, &b.Level, &b.Reputation, &b.MarketingBudget, &b.Month)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, ErrBankNotFound
	}
	if err != nil {
		return b, err
	}
	if owner != userID {
		return BankView{}, ErrUnauthorized
	}
	b.NextLevelCost = LevelUpgradeCost(b.Level)
	return b, nil
}

// serializable runs fn in a serializable transaction, retrying with backoff
// when Postgres reports a serialization failure.
func (s *Service) serializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.inTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		s.log.Debug("serialization conflict, retrying", "attempt", attempt+1, "delay", retryDelay)
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrInvalidInput)
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO bank.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
