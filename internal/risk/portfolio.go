package risk

import (
	"math"
	"slices"

	"tycoon/internal/rng"
)

const (
	DefaultTrials           = 1000
	DefaultLossGivenDefault = 0.60
)

type PortfolioLoan struct {
	Amount             float64 `json:"amount"`
	DefaultProbability float64 `json:"default_probability"`
}

// SimulationConfig zero values fall back to DefaultTrials and
// DefaultLossGivenDefault.
type SimulationConfig struct {
	Trials           int
	LossGivenDefault float64
}

func (c SimulationConfig) withDefaults() SimulationConfig {
	if c.Trials <= 0 {
		c.Trials = DefaultTrials
	}
	if c.LossGivenDefault <= 0 {
		c.LossGivenDefault = DefaultLossGivenDefault
	}
	return c
}

type PortfolioSimulation struct {
	MeanLoss          float64 `json:"mean_loss"`
	StandardDeviation float64 `json:"standard_deviation"`
	WorstCase         float64 `json:"worst_case"`
	BestCase          float64 `json:"best_case"`
	ExpectedLossRate  float64 `json:"expected_loss_rate"`
	Trials            int     `json:"trials"`
	TotalExposure     float64 `json:"total_exposure"`
}

// SimulatePortfolioDefaults draws independent defaults for every loan in every
// trial. WorstCase and BestCase are the 99th and 1st percentile of trial
// losses; ExpectedLossRate is the mean loss as a percentage of exposure.
func SimulatePortfolioDefaults(src rng.Source, loans []PortfolioLoan, cfg SimulationConfig) PortfolioSimulation {
	cfg = cfg.withDefaults()
	out := PortfolioSimulation{Trials: cfg.Trials}
	if len(loans) == 0 {
		return out
	}
	for _, l := range loans {
		out.TotalExposure += l.Amount
	}

	losses := make([]float64, cfg.Trials)
	sum := 0.0
	for t := range losses {
		loss := 0.0
		for _, l := range loans {
			if rng.Bernoulli(src, l.DefaultProbability) {
				loss += l.Amount * cfg.LossGivenDefault
			}
		}
		losses[t] = loss
		sum += loss
	}

	mean := sum / float64(cfg.Trials)
	variance := 0.0
	for _, loss := range losses {
		d := loss - mean
		variance += d * d
	}
	variance /= float64(cfg.Trials)

	slices.Sort(losses)
	out.MeanLoss = mean
	out.StandardDeviation = math.Sqrt(variance)
	out.WorstCase = losses[percentileIndex(len(losses), 0.99)]
	out.BestCase = losses[percentileIndex(len(losses), 0.01)]
	if out.TotalExposure > 0 {
		out.ExpectedLossRate = mean / out.TotalExposure * 100
	}
	return out
}

func percentileIndex(n int, q float64) int {
	idx := int(math.Floor(float64(n) * q))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// ExpectedLoss is the closed-form mean of SimulatePortfolioDefaults.
func ExpectedLoss(loans []PortfolioLoan, lossGivenDefault float64) float64 {
	total := 0.0
	for _, l := range loans {
		total += l.Amount * l.DefaultProbability * lossGivenDefault
	}
	return total
}
