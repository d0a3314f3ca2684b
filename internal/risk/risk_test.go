package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycoon/internal/finance"
	"tycoon/internal/rng"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func primeMortgage() BorrowerProfile {
	return BorrowerProfile{
		CreditScore:     800,
		AnnualIncome:    400_000,
		MonthlyDebt:     1_000,
		EmploymentType:  Employed,
		YearsEmployed:   10,
		RequestedAmount: 200_000,
		LoanPurpose:     Mortgage,
		HasCollateral:   true,
		CollateralValue: 200_000 / 0.7,
	}
}

func factor(res DefaultProbabilityResult, name string) []DefaultFactor {
	var out []DefaultFactor
	for _, f := range res.Factors {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func TestPrimeMortgageIsApproved(t *testing.T) {
	res, err := CalculateDefaultProbability(primeMortgage(), nil)
	require.NoError(t, err)

	assert.Equal(t, Prime, res.RiskTier)
	assert.Equal(t, Approve, res.Recommendation)
	assert.Equal(t, 0.01, res.BaseRate)
	assert.Equal(t, MinDefaultRate, res.AdjustedRate)

	base := factor(res, "Credit score")
	require.Len(t, base, 1)
	assert.Zero(t, base[0].Impact)

	collateral := factor(res, "Collateral")
	require.Len(t, collateral, 1)
	assert.Equal(t, -0.05, collateral[0].Impact)
}

func TestDistressedBorrowerIsDenied(t *testing.T) {
	res, err := CalculateDefaultProbability(BorrowerProfile{
		CreditScore:     500,
		AnnualIncome:    12_000,
		MonthlyDebt:     600,
		EmploymentType:  Unemployed,
		HasBankruptcy:   true,
		LatePayments:    8,
		RequestedAmount: 10_000,
		LoanPurpose:     Personal,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, MaxDefaultRate, res.AdjustedRate)
	assert.Equal(t, Deny, res.Recommendation)
	assert.Equal(t, DeepSubprime, res.RiskTier)
	assert.Empty(t, factor(res, "Employment tenure"))
}

func TestBandsDoNotStack(t *testing.T) {
	p := primeMortgage()
	p.CreditScore = 600
	p.AnnualIncome = 60_000
	p.MonthlyDebt = 2_000
	p.RequestedAmount = 40_000
	p.LoanPurpose = Auto
	p.HasCollateral = false
	p.LatePayments = 7

	res, err := CalculateDefaultProbability(p, nil)
	require.NoError(t, err)

	dti := factor(res, "Debt-to-income ratio")
	require.Len(t, dti, 1)
	assert.Equal(t, 0.15, dti[0].Impact)

	late := factor(res, "Payment history")
	require.Len(t, late, 1)
	assert.Equal(t, 0.12, late[0].Impact)
}

func TestLadders(t *testing.T) {
	tests := []struct {
		name  string
		bands []band
		v     float64
		want  float64
		match bool
	}{
		{"dti high", dtiBands, 0.55, 0.15, true},
		{"dti elevated", dtiBands, 0.45, 0.08, true},
		{"dti middle", dtiBands, 0.35, 0, false},
		{"dti low", dtiBands, 0.20, -0.02, true},
		{"late many", latePaymentBands, 6, 0.12, true},
		{"late some", latePaymentBands, 3, 0.05, true},
		{"late few", latePaymentBands, 1, 0, false},
		{"late none", latePaymentBands, 0, -0.02, true},
		{"lti extreme", loanToIncomeBands, 5.5, 0.10, true},
		{"lti high", loanToIncomeBands, 4, 0.05, true},
		{"ltv strong", collateralBands, 0.8, -0.05, true},
		{"ltv full", collateralBands, 1.0, -0.02, true},
		{"ltv under water", collateralBands, 1.2, 0, false},
	}
	for _, tc := range tests {
		b, ok := firstMatch(tc.bands, tc.v)
		assert.Equal(t, tc.match, ok, tc.name)
		assert.Equal(t, tc.want, b.impact, tc.name)
	}
}

func TestEmploymentAdjustments(t *testing.T) {
	p := primeMortgage()
	p.EmploymentType = BusinessOwner
	p.YearsEmployed = 3
	res, err := CalculateDefaultProbability(p, nil)
	require.NoError(t, err)
	status := factor(res, "Employment status")
	require.Len(t, status, 1)
	assert.Equal(t, -0.03, status[0].Impact)
	assert.Empty(t, factor(res, "Employment tenure"))

	p.EmploymentType = Employed
	p.YearsEmployed = 0.5
	res, err = CalculateDefaultProbability(p, nil)
	require.NoError(t, err)
	tenure := factor(res, "Employment tenure")
	require.Len(t, tenure, 1)
	assert.Equal(t, 0.05, tenure[0].Impact)
}

func TestEconomicOverlay(t *testing.T) {
	p := primeMortgage()
	p.CreditScore = 520
	p.HasCollateral = false

	calm, err := CalculateDefaultProbability(p, &EconomicConditions{InterestRates: RatesNormal, HousingMarket: HousingStable, UnemploymentRate: 4})
	require.NoError(t, err)
	withoutEcon, err := CalculateDefaultProbability(p, nil)
	require.NoError(t, err)
	assert.Equal(t, withoutEcon.AdjustedRate, calm.AdjustedRate)

	stressed, err := CalculateDefaultProbability(p, &EconomicConditions{
		UnemploymentRate: 9.5,
		InterestRates:    RatesHigh,
		HousingMarket:    HousingDeclining,
		Recession:        true,
	})
	require.NoError(t, err)
	assert.InDelta(t, withoutEcon.AdjustedRate+0.31, stressed.AdjustedRate, 1e-9)

	boom, err := CalculateDefaultProbability(p, &EconomicConditions{InterestRates: RatesLow, HousingMarket: HousingBooming})
	require.NoError(t, err)
	assert.InDelta(t, withoutEcon.AdjustedRate-0.02, boom.AdjustedRate, 1e-9)
}

func TestUnknownEnumsFail(t *testing.T) {
	p := primeMortgage()
	p.LoanPurpose = "yacht"
	_, err := CalculateDefaultProbability(p, nil)
	assert.ErrorIs(t, err, finance.ErrInvalidArgument)

	p = primeMortgage()
	p.EmploymentType = "astronaut"
	_, err = CalculateDefaultProbability(p, nil)
	assert.ErrorIs(t, err, finance.ErrInvalidArgument)

	_, err = CalculateDefaultProbability(primeMortgage(), &EconomicConditions{})
	assert.ErrorIs(t, err, finance.ErrInvalidArgument)

	_, err = ParseLoanPurpose("Debt Consolidation")
	assert.NoError(t, err)
	_, err = ParseEmploymentType("self-employed")
	assert.NoError(t, err)
}

func TestRiskTierIsMonotonic(t *testing.T) {
	rank := map[RiskTier]int{DeepSubprime: 0, Subprime: 1, NearPrime: 2, Prime: 3}
	prev := rank[DetermineRiskTier(300)]
	for score := 301; score <= 850; score++ {
		cur := rank[DetermineRiskTier(score)]
		require.GreaterOrEqual(t, cur, prev, "score %d", score)
		prev = cur
	}
	assert.Equal(t, NearPrime, DetermineRiskTier(650))
	assert.Equal(t, Subprime, DetermineRiskTier(649))
}

func TestAdjustedRateAlwaysClamped(t *testing.T) {
	src := rng.New(11)
	for i := 0; i < 5000; i++ {
		p := BorrowerProfile{
			CreditScore:     rng.IntRange(src, 300, 850),
			AnnualIncome:    rng.Uniform(src, 0, 500_000),
			MonthlyDebt:     rng.Uniform(src, 0, 10_000),
			EmploymentType:  rng.Pick(src, EmploymentTypes),
			YearsEmployed:   rng.Uniform(src, 0, 30),
			HasBankruptcy:   rng.Bernoulli(src, 0.2),
			LatePayments:    rng.IntRange(src, 0, 12),
			RequestedAmount: rng.Uniform(src, 500, 1_000_000),
			LoanPurpose:     rng.Pick(src, LoanPurposes),
			HasCollateral:   rng.Bernoulli(src, 0.5),
			CollateralValue: rng.Uniform(src, 0, 1_000_000),
		}
		res, err := CalculateDefaultProbability(p, nil)
		require.NoError(t, err)
		require.GreaterOrEqual(t, res.AdjustedRate, MinDefaultRate)
		require.LessOrEqual(t, res.AdjustedRate, MaxDefaultRate)
	}
}

func TestDefaultRateConversion(t *testing.T) {
	assert.Equal(t, 0.0, AnnualToMonthlyDefaultRate(0))
	assert.Equal(t, 1.0, AnnualToMonthlyDefaultRate(1))
	m := AnnualToMonthlyDefaultRate(0.12)
	assert.InDelta(t, 0.010596, m, 1e-5)
	assert.InDelta(t, 0.12, MonthlyToAnnualDefaultRate(m), 1e-12)
}

func TestShouldDefaultThisMonthEscalates(t *testing.T) {
	draw := constSource(0.14)
	assert.False(t, ShouldDefaultThisMonth(draw, 0.10, 0))
	assert.True(t, ShouldDefaultThisMonth(draw, 0.10, 1))
	assert.False(t, ShouldDefaultThisMonth(constSource(0.25), 0.10, 2))
	assert.True(t, ShouldDefaultThisMonth(constSource(0.25), 0.10, 3))
	assert.True(t, ShouldDefaultThisMonth(constSource(0.25), 0.10, 12))
	assert.True(t, ShouldDefaultThisMonth(constSource(0.99), 0.5, 3))
}

func TestSimulatePortfolioMatchesExpectation(t *testing.T) {
	loans := make([]PortfolioLoan, 1000)
	for i := range loans {
		loans[i] = PortfolioLoan{Amount: 10_000, DefaultProbability: 0.10}
	}
	sim := SimulatePortfolioDefaults(rng.New(42), loans, SimulationConfig{Trials: 5000})

	expected := ExpectedLoss(loans, DefaultLossGivenDefault)
	assert.InDelta(t, 600_000, expected, 1e-6)
	assert.InEpsilon(t, expected, sim.MeanLoss, 0.15)
	assert.LessOrEqual(t, sim.BestCase, sim.MeanLoss)
	assert.GreaterOrEqual(t, sim.WorstCase, sim.MeanLoss)
	assert.Greater(t, sim.StandardDeviation, 0.0)
	assert.InDelta(t, 6.0, sim.ExpectedLossRate, 0.9)
	assert.Equal(t, 10_000_000.0, sim.TotalExposure)
}

func TestSimulatePortfolioEdgeCases(t *testing.T) {
	empty := SimulatePortfolioDefaults(rng.New(1), nil, SimulationConfig{})
	assert.Equal(t, DefaultTrials, empty.Trials)
	assert.Zero(t, empty.MeanLoss)

	certain := SimulatePortfolioDefaults(rng.New(1), []PortfolioLoan{{Amount: 1000, DefaultProbability: 1}}, SimulationConfig{Trials: 10, LossGivenDefault: 0.5})
	assert.Equal(t, 500.0, certain.MeanLoss)
	assert.Equal(t, 500.0, certain.WorstCase)
	assert.Equal(t, 500.0, certain.BestCase)
	assert.Zero(t, certain.StandardDeviation)
}
