package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"tycoon/internal/applicants"
	"tycoon/internal/bank"
	"tycoon/internal/finance"
	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

const maxGenerated = applicants.MaxBatch

// Per-request simulation limits; draws are loans × trials.
const (
	maxSimulatedLoans  = 1000
	maxSimulationDraws = 5_000_000
)

type defaultProbabilityRequest struct {
	Borrower risk.BorrowerProfile     `json:"borrower"`
	// Economy falls back to the server's configured economy when omitted.
	Economy  *risk.EconomicConditions `json:"economy,omitempty"`
}

func (s *Server) handleDefaultProbability(w http.ResponseWriter, r *http.Request) {
	var in defaultProbabilityRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Economy == nil {
		in.Economy = s.cfg.Economy
	}

	key, err := riskCacheKey(in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if raw, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
		s.metrics.RiskCache(true)
		w.Header().Set("X-Cache", "hit")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(raw))
		return
	} else if err != nil {
		s.log.Warn("risk cache read failed", "err", err)
	}
	s.metrics.RiskCache(false)

	res, err := risk.CalculateDefaultProbability(in.Borrower, in.Economy)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := struct {
		risk.DefaultProbabilityResult
		MonthlyRate     float64 `json:"monthly_rate"`
		RecommendedRate float64 `json:"recommended_rate"`
	}{
		DefaultProbabilityResult: res,
		MonthlyRate:              risk.AnnualToMonthlyDefaultRate(res.AdjustedRate),
		RecommendedRate:          applicants.RecommendedRate(res.RiskTier, res.AdjustedRate),
	}
	raw, err := json.Marshal(out)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.cache.Set(r.Context(), key, string(raw), s.cfg.RiskCacheTTL); err != nil {
		s.log.Warn("risk cache write failed", "err", err)
	}
	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, out)
}

// riskCacheKey hashes the request as decoded, so key order and whitespace
// in the client's JSON do not split the cache.
func riskCacheKey(in defaultProbabilityRequest) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "risk:dp:" + hex.EncodeToString(sum[:]), nil
}

func (s *Server) handlePortfolioSimulation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Loans            []risk.PortfolioLoan `json:"loans"`
		Trials           int                  `json:"trials"`
		LossGivenDefault float64              `json:"loss_given_default"`
		Seed             *int64               `json:"seed"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Trials > bank.MaxPortfolioTrials {
		s.writeDomainError(w, fmt.Errorf("%w: trials must be <= %d", finance.ErrInvalidArgument, bank.MaxPortfolioTrials))
		return
	}
	if len(in.Loans) > maxSimulatedLoans {
		s.writeDomainError(w, fmt.Errorf("%w: at most %d loans per simulation", finance.ErrInvalidArgument, maxSimulatedLoans))
		return
	}
	trials := in.Trials
	if trials <= 0 {
		trials = risk.DefaultTrials
	}
	if len(in.Loans)*trials > maxSimulationDraws {
		s.writeDomainError(w, fmt.Errorf("%w: loans * trials must be <= %d", finance.ErrInvalidArgument, maxSimulationDraws))
		return
	}
	if in.LossGivenDefault < 0 || in.LossGivenDefault > 1 {
		s.writeDomainError(w, fmt.Errorf("%w: loss_given_default must be between 0 and 1", finance.ErrInvalidArgument))
		return
	}
	lgd := in.LossGivenDefault
	if lgd == 0 {
		lgd = risk.DefaultLossGivenDefault
	}
	sim := risk.SimulatePortfolioDefaults(s.source(in.Seed), in.Loans, risk.SimulationConfig{
		Trials:           in.Trials,
		LossGivenDefault: lgd,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"simulation":    sim,
		"expected_loss": cents(risk.ExpectedLoss(in.Loans, lgd)),
	})
}

type generateRequest struct {
	Bank  applicants.BankProfile `json:"bank"`
	Count int                    `json:"count"`
	Seed  *int64                 `json:"seed"`
}

func (s *Server) decodeGenerate(w http.ResponseWriter, r *http.Request) (generateRequest, *applicants.Generator, bool) {
	var in generateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, nil, false
	}
	if in.Count < 0 || in.Count > maxGenerated {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 0 and %d", maxGenerated))
		return in, nil, false
	}
	if in.Bank.Level <= 0 {
		in.Bank.Level = bank.StartingLevel
	}
	if err := validateBankProfile(in.Bank); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, nil, false
	}
	return in, applicants.NewGenerator(s.source(in.Seed)), true
}

// validateBankProfile holds a client-supplied profile to the ranges a real
// bank can reach.
func validateBankProfile(p applicants.BankProfile) error {
	switch {
	case p.Level < bank.StartingLevel || p.Level > bank.MaxLevel:
		return fmt.Errorf("bank.level must be between %d and %d", bank.StartingLevel, bank.MaxLevel)
	case p.Reputation < 0 || p.Reputation > 100:
		return fmt.Errorf("bank.reputation must be between 0 and 100")
	case p.MarketingBudget < 0 || decimal.NewFromFloat(p.MarketingBudget).GreaterThan(bank.MaxMarketingBudget):
		return fmt.Errorf("bank.marketing_budget must be between 0 and %s", bank.MaxMarketingBudget)
	}
	return nil
}

func (s *Server) handleGenerateApplicants(w http.ResponseWriter, r *http.Request) {
	in, gen, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	out := gen.Applicants(in.Bank, in.Count)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "applicants": out})
}

func (s *Server) handleGenerateDepositors(w http.ResponseWriter, r *http.Request) {
	in, gen, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	out := gen.Depositors(in.Bank, in.Count)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "depositors": out})
}

// source returns a private seeded stream when the caller pins a seed, and
// the server's shared source otherwise.
func (s *Server) source(seed *int64) rng.Source {
	if seed != nil {
		return rng.New(*seed)
	}
	return s.src
}
