package applicants

import (
	"math"

	"tycoon/internal/rng"
)

type CustomerType string

const (
	Individual    CustomerType = "individual"
	SmallBusiness CustomerType = "small_business"
	Corporate     CustomerType = "corporate"
)

type AccountType string

const (
	Checking             AccountType = "checking"
	Savings              AccountType = "savings"
	MoneyMarket          AccountType = "money_market"
	CertificateOfDeposit AccountType = "certificate_of_deposit"
)

var accountTypes = []AccountType{Checking, Savings, MoneyMarket, CertificateOfDeposit}

type GeneratedDepositor struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	CustomerType    CustomerType `json:"customer_type"`
	AccountType     AccountType  `json:"account_type"`
	InitialBalance  float64      `json:"initial_balance"`
	RateSensitivity float64      `json:"rate_sensitivity"`
	Loyalty         int          `json:"loyalty"`
}

func (g *Generator) Depositors(bank BankProfile, count int) []GeneratedDepositor {
	if count <= 0 {
		count = min(g.DepositorCount(bank), MaxBatch)
	}
	out := make([]GeneratedDepositor, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.Depositor(bank))
	}
	return out
}

func (g *Generator) Depositor(bank BankProfile) GeneratedDepositor {
	d := GeneratedDepositor{ID: g.newID()}
	d.CustomerType = g.customerType(bank)
	d.Name = g.depositorName(d.CustomerType)
	d.AccountType = accountTypes[rng.Weighted(g.src, accountMix(d.CustomerType))]

	lo, hi := balanceRange(d.CustomerType)
	balance := g.uniform(lo, hi) * accountMultiplier(d.AccountType) * (1 + bank.Reputation/200)
	d.InitialBalance = math.Round(balance*100) / 100

	// Corporate treasurers shop rates harder than households.
	sensitivity := g.uniform(0.1, 0.6)
	if d.CustomerType == Corporate {
		sensitivity += 0.3
	}
	d.RateSensitivity = math.Round(math.Min(sensitivity, 1)*100) / 100
	d.Loyalty = clampInt(int(math.Round(bank.Reputation*0.6+g.uniform(0, 40))), 0, 100)
	return d
}

func (g *Generator) customerType(bank BankProfile) CustomerType {
	corporate := math.Min(0.05+float64(bank.Level)*0.01, 0.20)
	r := g.src.Float64()
	switch {
	case r < corporate:
		return Corporate
	case r < corporate+0.20:
		return SmallBusiness
	default:
		return Individual
	}
}

func (g *Generator) depositorName(c CustomerType) string {
	switch c {
	case Individual:
		first := femaleFirstNames
		if g.chance(0.5) {
			first = maleFirstNames
		}
		return pick(g, first) + " " + pick(g, lastNames)
	case SmallBusiness:
		return pick(g, companyPrefixes) + " " + pick(g, companySuffixes) + " LLC"
	case Corporate:
		return pick(g, companyPrefixes) + " " + pick(g, companySuffixes) + " Inc."
	default:
		panic("applicants: unhandled customer type " + string(c))
	}
}

// accountMix is indexed like accountTypes.
func accountMix(c CustomerType) []float64 {
	switch c {
	case Individual:
		return []float64{0.45, 0.35, 0.10, 0.10}
	case SmallBusiness:
		return []float64{0.60, 0.20, 0.15, 0.05}
	case Corporate:
		return []float64{0.40, 0, 0.40, 0.20}
	default:
		panic("applicants: unhandled customer type " + string(c))
	}
}

func balanceRange(c CustomerType) (lo, hi float64) {
	switch c {
	case Individual:
		return 500, 25_000
	case SmallBusiness:
		return 10_000, 250_000
	case Corporate:
		return 250_000, 5_000_000
	default:
		panic("applicants: unhandled customer type " + string(c))
	}
}

func accountMultiplier(a AccountType) float64 {
	switch a {
	case Checking:
		return 1
	case Savings:
		return 1.5
	case MoneyMarket:
		return 3
	case CertificateOfDeposit:
		return 2
	default:
		panic("applicants: unhandled account type " + string(a))
	}
}
