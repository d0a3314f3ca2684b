package applicants

import (
	"math"

	"tycoon/internal/risk"
	"tycoon/internal/rng"
)

type purposePlan struct {
	purpose risk.LoanPurpose
	weight  float64
	terms   []int
	amount  func(g *Generator, income float64) float64
	// ltv draws a loan-to-value ratio for secured purposes; nil means unsecured.
	ltv func(g *Generator) float64
}

var purposePlans = []purposePlan{
	{
		purpose: risk.Mortgage,
		weight:  0.20,
		terms:   []int{180, 240, 360},
		amount:  func(g *Generator, income float64) float64 { return income * g.uniform(2, 6) },
		ltv:     func(g *Generator) float64 { return g.uniform(0.60, 0.95) },
	},
	{
		purpose: risk.Auto,
		weight:  0.18,
		terms:   []int{36, 48, 60, 72},
		amount:  func(g *Generator, _ float64) float64 { return g.uniform(10_000, 60_000) },
		ltv:     func(g *Generator) float64 { return g.uniform(0.70, 1.10) },
	},
	{
		purpose: risk.BusinessExpansion,
		weight:  0.10,
		terms:   []int{60, 84, 120},
		amount:  func(g *Generator, income float64) float64 { return math.Max(50_000, income*g.uniform(0.5, 2.5)) },
		ltv:     func(g *Generator) float64 { return g.uniform(0.50, 1.00) },
	},
	{
		purpose: risk.Startup,
		weight:  0.07,
		terms:   []int{36, 60, 84},
		amount:  func(g *Generator, _ float64) float64 { return g.uniform(25_000, 225_000) },
	},
	{
		purpose: risk.DebtConsolidation,
		weight:  0.15,
		terms:   []int{24, 36, 48, 60},
		amount:  func(g *Generator, income float64) float64 { return math.Max(5_000, income*g.uniform(0.1, 0.5)) },
	},
	{
		purpose: risk.Medical,
		weight:  0.05,
		terms:   []int{12, 24, 36},
		amount:  func(g *Generator, _ float64) float64 { return g.uniform(2_000, 30_000) },
	},
	{
		purpose: risk.Education,
		weight:  0.10,
		terms:   []int{60, 120},
		amount:  func(g *Generator, _ float64) float64 { return g.uniform(10_000, 100_000) },
	},
	{
		purpose: risk.Personal,
		weight:  0.15,
		terms:   []int{12, 24, 36, 48, 60},
		amount:  func(g *Generator, _ float64) float64 { return g.uniform(1_000, 25_000) },
	},
}

func (g *Generator) loanRequest(income float64) LoanRequest {
	weights := make([]float64, len(purposePlans))
	for i, p := range purposePlans {
		weights[i] = p.weight
	}
	plan := purposePlans[rng.Weighted(g.src, weights)]

	amount := roundTo(plan.amount(g, math.Max(income, 10_000)), 100)
	req := LoanRequest{
		Amount:     amount,
		TermMonths: pick(g, plan.terms),
		Purpose:    plan.purpose,
	}
	if plan.ltv != nil {
		req.RequiresCollateral = true
		req.CollateralValue = roundTo(amount/plan.ltv(g), 100)
	}
	return req
}
