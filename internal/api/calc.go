package api

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"tycoon/internal/finance"
)

// maxTermMonths bounds schedule requests to fifty years of rows.
const maxTermMonths = 600

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

type loanTerms struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annual_rate"`
	TermMonths int     `json:"term_months"`
}

func (t loanTerms) validate() error {
	switch {
	case t.Principal < 0:
		return fmt.Errorf("%w: principal must be >= 0", finance.ErrInvalidArgument)
	case t.AnnualRate < 0:
		return fmt.Errorf("%w: annual_rate must be >= 0", finance.ErrInvalidArgument)
	case t.TermMonths <= 0 || t.TermMonths > maxTermMonths:
		return fmt.Errorf("%w: term_months must be between 1 and %d", finance.ErrInvalidArgument, maxTermMonths)
	}
	return nil
}

func (s *Server) handleCalcPayment(w http.ResponseWriter, r *http.Request) {
	var in loanTerms
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	payment := finance.MonthlyPayment(in.Principal, in.AnnualRate, in.TermMonths)
	interest := finance.TotalInterest(in.Principal, in.AnnualRate, in.TermMonths)
	writeJSON(w, http.StatusOK, map[string]any{
		"monthly_payment": cents(payment),
		"total_interest":  cents(interest),
		"total_paid":      cents(in.Principal + interest),
	})
}

type scheduleRow struct {
	Month              int             `json:"month"`
	Payment            decimal.Decimal `json:"payment"`
	Principal          decimal.Decimal `json:"principal"`
	Interest           decimal.Decimal `json:"interest"`
	Balance            decimal.Decimal `json:"balance"`
	CumulativeInterest decimal.Decimal `json:"cumulative_interest"`
}

func (s *Server) handleCalcSchedule(w http.ResponseWriter, r *http.Request) {
	var in loanTerms
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	rows := make([]scheduleRow, 0, in.TermMonths)
	for row := range finance.Schedule(in.Principal, in.AnnualRate, in.TermMonths) {
		rows = append(rows, scheduleRow{
			Month:              row.Month,
			Payment:            cents(row.Payment),
			Principal:          cents(row.Principal),
			Interest:           cents(row.Interest),
			Balance:            cents(row.Balance),
			CumulativeInterest: cents(row.CumulativeInterest),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monthly_payment": cents(finance.MonthlyPayment(in.Principal, in.AnnualRate, in.TermMonths)),
		"rows":            rows,
	})
}

func (s *Server) handleCalcCompound(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Principal  float64 `json:"principal"`
		AnnualRate float64 `json:"annual_rate"`
		Years      float64 `json:"years"`
		Frequency  string  `json:"frequency"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	freq, err := finance.ParseFrequency(in.Frequency)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	amount, err := finance.CompoundAmount(in.Principal, in.AnnualRate, in.Years, freq)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"frequency":       freq,
		"amount":          cents(amount),
		"interest":        cents(amount - in.Principal),
		"simple_interest": cents(finance.SimpleInterest(in.Principal, in.AnnualRate, in.Years)),
	})
}

func (s *Server) handleCalcAPY(w http.ResponseWriter, r *http.Request) {
	var in struct {
		APR       float64 `json:"apr"`
		Frequency string  `json:"frequency"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	freq, err := finance.ParseFrequency(in.Frequency)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apy, err := finance.AprToApy(in.APR, freq)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apr": in.APR, "apy": apy, "frequency": freq})
}

func (s *Server) handleCalcAPR(w http.ResponseWriter, r *http.Request) {
	var in struct {
		APY       float64 `json:"apy"`
		Frequency string  `json:"frequency"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	freq, err := finance.ParseFrequency(in.Frequency)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apr, err := finance.ApyToApr(in.APY, freq)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apr": apr, "apy": in.APY, "frequency": freq})
}

func (s *Server) handleCalcEffectiveRate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		loanTerms
		UpfrontFees float64 `json:"upfront_fees"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"annual_rate":    in.AnnualRate,
		"effective_rate": finance.EffectiveRate(in.Principal, in.AnnualRate, in.TermMonths, in.UpfrontFees),
	})
}

func (s *Server) handleCalcMaxLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MonthlyPayment float64 `json:"monthly_payment"`
		AnnualRate     float64 `json:"annual_rate"`
		TermMonths     int     `json:"term_months"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	terms := loanTerms{AnnualRate: in.AnnualRate, TermMonths: in.TermMonths}
	if err := terms.validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"max_loan": cents(finance.MaxLoanAmount(in.MonthlyPayment, in.AnnualRate, in.TermMonths)),
	})
}

// defaultMaxDTI is the conventional qualified-mortgage ceiling.
const defaultMaxDTI = 0.43

func (s *Server) handleCalcAffordability(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MonthlyIncome float64 `json:"monthly_income"`
		MonthlyDebt   float64 `json:"monthly_debt"`
		AnnualRate    float64 `json:"annual_rate"`
		TermMonths    int     `json:"term_months"`
		MaxDTI        float64 `json:"max_dti"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	terms := loanTerms{AnnualRate: in.AnnualRate, TermMonths: in.TermMonths}
	if err := terms.validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if in.MaxDTI == 0 {
		in.MaxDTI = defaultMaxDTI
	}
	if in.MaxDTI < 0 || in.MaxDTI > 1 {
		writeError(w, http.StatusBadRequest, "max_dti must be between 0 and 1")
		return
	}
	a := finance.AffordabilityFor(in.MonthlyIncome, in.MonthlyDebt, in.AnnualRate, in.TermMonths, in.MaxDTI)
	writeJSON(w, http.StatusOK, map[string]any{
		"max_dti":             in.MaxDTI,
		"max_monthly_payment": cents(a.MaxMonthlyPayment),
		"max_loan_amount":     cents(a.MaxLoanAmount),
	})
}
