package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tycoon/internal/applicants"
	"tycoon/internal/finance"
	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

// Offline commands run the loan toolkit locally and never touch the API.

func newCalcCmd() *cobra.Command {
	calc := &cobra.Command{
		Use:   "calc",
		Short: "Loan and interest calculators",
	}

	var principal, rate float64
	var term int
	loanFlags := func(cmd *cobra.Command) {
		cmd.Flags().Float64Var(&principal, "principal", 0, "loan principal")
		cmd.Flags().Float64Var(&rate, "rate", 0, "annual rate, e.g. 0.065")
		cmd.Flags().IntVar(&term, "term", 360, "term in months")
	}

	payment := &cobra.Command{
		Use:   "payment",
		Short: "Monthly payment and total interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLoan(principal, rate, term); err != nil {
				return err
			}
			pay := finance.MonthlyPayment(principal, rate, term)
			interest := finance.TotalInterest(principal, rate, term)
			accent.Println("\n== PAYMENT ==")
			fmt.Printf("Monthly payment: %s\n", money(pay))
			fmt.Printf("Total interest:  %s\n", money(interest))
			fmt.Printf("Total paid:      %s\n\n", money(principal+interest))
			return nil
		},
	}
	loanFlags(payment)

	var every int
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Amortization schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLoan(principal, rate, term); err != nil {
				return err
			}
			renderSchedule(finance.Schedule(principal, rate, term), term, every)
			return nil
		},
	}
	loanFlags(schedule)
	schedule.Flags().IntVar(&every, "every", 12, "print every Nth month (the last month is always shown)")

	var apr float64
	var freq string
	apy := &cobra.Command{
		Use:   "apy",
		Short: "Convert an APR to an APY",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := finance.ParseFrequency(freq)
			if err != nil {
				return err
			}
			out, err := finance.AprToApy(apr, f)
			if err != nil {
				return err
			}
			fmt.Printf("APR %s compounded %s = APY %s\n", pct(apr), f, pct(out))
			return nil
		},
	}
	apy.Flags().Float64Var(&apr, "apr", 0, "annual percentage rate, e.g. 0.05")
	apy.Flags().StringVar(&freq, "frequency", string(finance.Monthly), "daily, monthly, quarterly, annually or continuous")

	calc.AddCommand(payment, schedule, apy)
	return calc
}

func checkLoan(principal, rate float64, term int) error {
	if principal <= 0 || rate < 0 || term <= 0 {
		return fmt.Errorf("%w: need --principal > 0, --rate >= 0 and --term > 0", finance.ErrInvalidArgument)
	}
	return nil
}

func newRiskCmd() *cobra.Command {
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Credit risk scoring",
	}

	var p risk.BorrowerProfile
	var employment, purpose string
	var recession bool
	score := &cobra.Command{
		Use:   "score",
		Short: "Score a borrower's annual default probability",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.EmploymentType, err = risk.ParseEmploymentType(employment); err != nil {
				return err
			}
			if p.LoanPurpose, err = risk.ParseLoanPurpose(purpose); err != nil {
				return err
			}
			p.HasCollateral = p.CollateralValue > 0
			var econ *risk.EconomicConditions
			if recession {
				econ = &risk.EconomicConditions{
					UnemploymentRate: 9,
					InterestRates:    risk.RatesHigh,
					HousingMarket:    risk.HousingDeclining,
					Recession:        true,
				}
			}
			res, err := risk.CalculateDefaultProbability(p, econ)
			if err != nil {
				return err
			}
			renderScore(res, applicants.RecommendedRate(res.RiskTier, res.AdjustedRate))
			return nil
		},
	}
	f := score.Flags()
	f.IntVar(&p.CreditScore, "score", 700, "credit score")
	f.Float64Var(&p.AnnualIncome, "income", 60_000, "annual income")
	f.Float64Var(&p.MonthlyDebt, "debt", 500, "existing monthly debt payments")
	f.StringVar(&employment, "employment", string(risk.Employed), "employment type")
	f.Float64Var(&p.YearsEmployed, "years", 3, "years employed")
	f.BoolVar(&p.HasBankruptcy, "bankruptcy", false, "has a bankruptcy on file")
	f.IntVar(&p.LatePayments, "late", 0, "late payments in the last two years")
	f.Float64Var(&p.RequestedAmount, "amount", 20_000, "requested loan amount")
	f.StringVar(&purpose, "purpose", string(risk.Personal), "loan purpose")
	f.Float64Var(&p.CollateralValue, "collateral", 0, "collateral value")
	f.BoolVar(&recession, "recession", false, "score under a recession economy")

	riskCmd.AddCommand(score)
	return riskCmd
}

func newGenCmd() *cobra.Command {
	gen := &cobra.Command{
		Use:   "gen",
		Short: "Generate NPC applicants and depositors",
	}

	var bank applicants.BankProfile
	var count int
	var seed int64
	var asJSON bool
	generator := func() *applicants.Generator {
		if seed != 0 {
			return applicants.NewGenerator(rng.New(seed))
		}
		return applicants.NewGenerator(nil)
	}
	genFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&bank.Level, "level", 1, "bank level")
		cmd.Flags().Float64Var(&bank.Reputation, "reputation", 50, "bank reputation 0-100")
		cmd.Flags().Float64Var(&bank.MarketingBudget, "marketing", 0, "monthly marketing budget")
		cmd.Flags().IntVar(&count, "count", 0, "how many to generate (0 draws a realistic count)")
		cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for repeatable output")
		cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	}

	apps := &cobra.Command{
		Use:   "applicants",
		Short: "Generate loan applicants",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := generator().Applicants(bank, count)
			if asJSON {
				return printJSON(out)
			}
			renderGenerated(out)
			return nil
		},
	}
	genFlags(apps)

	deps := &cobra.Command{
		Use:   "depositors",
		Short: "Generate depositors",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := generator().Depositors(bank, count)
			if asJSON {
				return printJSON(out)
			}
			renderGeneratedDepositors(out)
			return nil
		},
	}
	genFlags(deps)

	gen.AddCommand(apps, deps)
	return gen
}

func newSimCmd() *cobra.Command {
	sim := &cobra.Command{
		Use:   "sim",
		Short: "Monte Carlo simulations",
	}

	var file string
	var trials int
	var lgd float64
	var seed int64
	portfolio := &cobra.Command{
		Use:   "portfolio",
		Short: "Simulate default losses for a JSON list of {amount, default_probability}",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var loans []risk.PortfolioLoan
			if err := json.Unmarshal(raw, &loans); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			src := rng.NewEntropy()
			if seed != 0 {
				src = rng.New(seed)
			}
			res := risk.SimulatePortfolioDefaults(src, loans, risk.SimulationConfig{Trials: trials, LossGivenDefault: lgd})
			renderSimulation(res, risk.ExpectedLoss(loans, lossGivenDefault(lgd)))
			return nil
		},
	}
	portfolio.Flags().StringVar(&file, "file", "", "path to the loans JSON file")
	portfolio.Flags().IntVar(&trials, "trials", risk.DefaultTrials, "simulation trials")
	portfolio.Flags().Float64Var(&lgd, "lgd", risk.DefaultLossGivenDefault, "loss given default")
	portfolio.Flags().Int64Var(&seed, "seed", 0, "random seed for repeatable output")
	_ = portfolio.MarkFlagRequired("file")

	sim.AddCommand(portfolio)
	return sim
}

func lossGivenDefault(v float64) float64 {
	if v <= 0 {
		return risk.DefaultLossGivenDefault
	}
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
