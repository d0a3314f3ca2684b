package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tycoon/internal/applicants"
)

// Pending applicants wait this many months past their arrival before they
// walk away.
const applicantPatienceMonths = 1

type bankTick struct {
	applicants int
	depositors int
	expired    int64
	book       tickBook
}

// RunTick advances every bank by one month. Each bank runs in its own
// transaction; a failing bank is logged and skipped so one bad row cannot
// stall the economy.
func (s *Service) RunTick(ctx context.Context) (TickSummary, error) {
	start := time.Now()
	var sum TickSummary

	ids, err := s.bankIDs(ctx)
	if err != nil {
		return sum, err
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		var res bankTick
		err := s.serializable(ctx, func(tx pgx.Tx) error {
			var err error
			res, err = s.tickBank(ctx, tx, id)
			return err
		})
		if err != nil {
			sum.Failed++
			errs = append(errs, fmt.Errorf("bank %d: %w", id, err))
			s.log.Error("bank tick failed", "bank_id", id, "err", err)
			continue
		}
		sum.Banks++
		sum.Applicants += res.applicants
		sum.Depositors += res.depositors
		sum.Expired += res.expired
		sum.Payments += res.book.payments
		sum.Missed += res.book.missed
		sum.PaidOff += res.book.paidOff
		sum.Defaults += res.book.defaults
	}
	sum.Took = time.Since(start)

	s.metrics.Generated(sum.Applicants, sum.Depositors)
	s.metrics.LoanEvent(string(eventMissed), sum.Missed)
	s.metrics.LoanEvent(string(eventPaidOff), sum.PaidOff)
	s.metrics.LoanEvent(string(eventDefaulted), sum.Defaults)
	s.metrics.ObserveTick(sum.Took, sum.Failed)
	s.log.Info("tick complete",
		"banks", sum.Banks,
		"failed", sum.Failed,
		"applicants", sum.Applicants,
		"depositors", sum.Depositors,
		"payments", sum.Payments,
		"defaults", sum.Defaults,
		"took", sum.Took,
	)
	return sum, errors.Join(errs...)
}

func (s *Service) bankIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM bank.banks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// monthBooks is the part of a bank row one tick rewrites.
type monthBooks struct {
	Cash            decimal.Decimal
	Reputation      float64
	MarketingBudget decimal.Decimal
	Month           int
}

// openMonth advances the calendar and pays the marketing budget. A budget
// the bank cannot cover is paused at zero instead of overdrawing cash.
func openMonth(b monthBooks) (monthBooks, bool) {
	b.Month++
	if !b.MarketingBudget.IsPositive() {
		return b, false
	}
	if b.Cash.LessThan(b.MarketingBudget) {
		b.MarketingBudget = decimal.Zero
		return b, true
	}
	b.Cash = b.Cash.Sub(b.MarketingBudget)
	return b, false
}

// closeMonth credits new deposits and everything servicing collected, then
// applies the servicing outcome to reputation.
func closeMonth(b monthBooks, deposits decimal.Decimal, book tickBook) monthBooks {
	b.Cash = b.Cash.Add(deposits).Add(book.collected)
	b.Reputation = reputationAfter(b.Reputation, book.paidOff, book.defaults, book.missed)
	return b
}

// expiryCutoff is the earliest arrival month that may still be pending in
// month; anything older expires.
func expiryCutoff(month int) int {
	return month - applicantPatienceMonths
}

func (s *Service) tickBank(ctx context.Context, tx pgx.Tx, bankID int64) (bankTick, error) {
	var out bankTick
	var b BankView
	if err := tx.QueryRow(ctx, `
		SELECT id, cash, level, reputation, marketing_budget, month
		FROM bank.banks
		WHERE id = $1
		FOR UPDATE
	`, bankID).Scan(&b.ID, &b.Cash, &b.Level, &b.Reputation, &b.MarketingBudget, &b.Month); err != nil {
		return out, err
	}
	books, paused := openMonth(monthBooks{
		Cash:            b.Cash,
		Reputation:      b.Reputation,
		MarketingBudget: b.MarketingBudget,
		Month:           b.Month,
	})
	if paused {
		s.log.Warn("marketing paused, cash below budget", "bank_id", bankID, "budget", b.MarketingBudget.String())
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE bank.applicants
		SET status = 'expired', decided_at = now()
		WHERE bank_id = $1 AND status = 'pending' AND arrived_month < $2
	`, bankID, expiryCutoff(books.Month))
	if err != nil {
		return out, err
	}
	out.expired = cmd.RowsAffected()

	b.MarketingBudget = books.MarketingBudget
	profile := b.Profile()
	for _, a := range s.gen.Applicants(profile, 0) {
		if err := insertApplicant(ctx, tx, bankID, books.Month, a); err != nil {
			return out, err
		}
		out.applicants++
	}
	deposits := decimal.Zero
	for _, d := range s.gen.Depositors(profile, 0) {
		balance := Money(d.InitialBalance)
		if err := insertDepositor(ctx, tx, bankID, d, balance); err != nil {
			return out, err
		}
		deposits = deposits.Add(balance)
		out.depositors++
	}

	if err := s.serviceLoansTx(ctx, tx, bankID, &out.book); err != nil {
		return out, err
	}
	books = closeMonth(books, deposits, out.book)

	_, err = tx.Exec(ctx, `
		UPDATE bank.banks
		SET cash = $1, reputation = $2, marketing_budget = $3, month = $4, updated_at = now()
		WHERE id = $5
	`, books.Cash, books.Reputation, books.MarketingBudget, books.Month, bankID)
	return out, err
}

func (s *Service) serviceLoansTx(ctx context.Context, tx pgx.Tx, bankID int64, book *tickBook) error {
	rows, err := tx.Query(ctx, `
		SELECT id, balance, annual_rate, monthly_payment, term_months, months_paid,
		       months_delinquent, monthly_default_probability
		FROM bank.loans
		WHERE bank_id = $1 AND status = 'active'
		ORDER BY id
		FOR UPDATE
	`, bankID)
	if err != nil {
		return err
	}
	type row struct {
		id    int64
		state loanState
	}
	var loans []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.state.Balance, &r.state.AnnualRate, &r.state.MonthlyPayment, &r.state.TermMonths,
			&r.state.MonthsPaid, &r.state.MonthsDelinquent, &r.state.MonthlyDefaultProbability); err != nil {
			rows.Close()
			return err
		}
		loans = append(loans, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range loans {
		res := serviceLoanMonth(s.src, l.state)
		book.record(res)
		if _, err := tx.Exec(ctx, `
			UPDATE bank.loans
			SET balance = $1,
			    months_paid = $2,
			    months_delinquent = $3,
			    interest_collected = interest_collected + $4,
			    written_off = written_off + $5,
			    status = $6,
			    updated_at = now()
			WHERE id = $7
		`, res.Next.Balance, res.Next.MonthsPaid, res.Next.MonthsDelinquent, res.Interest, res.WrittenOff,
			loanStatusFor(res.Event), l.id); err != nil {
			return err
		}
		if res.Event == eventDefaulted {
			s.log.Info("loan defaulted", "bank_id", bankID, "loan_id", l.id, "written_off", res.WrittenOff.String())
		}
	}
	return nil
}

func insertApplicant(ctx context.Context, tx pgx.Tx, bankID int64, month int, a applicants.GeneratedApplicant) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bank.applicants (
			id, bank_id, arrived_month, first_name, last_name, age, credit_score, annual_income, monthly_debt,
			employment_type, employer, years_employed, has_bankruptcy, late_payments,
			requested_amount, term_months, purpose, requires_collateral, collateral_value,
			risk_tier, default_probability, recommendation, recommended_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`, id, bankID, month, a.FirstName, a.LastName, a.Age, a.CreditScore, Money(a.AnnualIncome), Money(a.MonthlyDebt),
		a.EmploymentType, a.Employer, a.YearsEmployed, a.HasBankruptcy, a.LatePayments,
		Money(a.Request.Amount), a.Request.TermMonths, a.Request.Purpose, a.Request.RequiresCollateral, Money(a.Request.CollateralValue),
		a.RiskTier, a.DefaultProbability, a.Recommendation, a.RecommendedRate)
	return err
}

func insertDepositor(ctx context.Context, tx pgx.Tx, bankID int64, d applicants.GeneratedDepositor, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bank.depositors (id, bank_id, name, customer_type, account_type, balance, rate_sensitivity, loyalty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, bankID, d.Name, d.CustomerType, d.AccountType, balance, d.RateSensitivity, d.Loyalty)
	return err
}
