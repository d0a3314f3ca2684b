// Package finance holds the interest and amortization arithmetic used to
// price loans and deposits. Inputs are plain float64 values; callers sanitize
// them before they get here.
package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidArgument = errors.New("invalid argument")

type Frequency string

const (
	Daily      Frequency = "daily"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Annually   Frequency = "annually"
	Continuous Frequency = "continuous"
)

var Frequencies = []Frequency{Daily, Monthly, Quarterly, Annually, Continuous}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if _, err := f.periodsPerYear(); err != nil {
		return "", err
	}
	return f, nil
}

// periodsPerYear is +Inf for continuous compounding.
func (f Frequency) periodsPerYear() (float64, error) {
	switch f {
	case Daily:
		return 365, nil
	case Monthly:
		return 12, nil
	case Quarterly:
		return 4, nil
	case Annually:
		return 1, nil
	case Continuous:
		return math.Inf(1), nil
	default:
		return 0, fmt.Errorf("%w: unknown compounding frequency %q", ErrInvalidArgument, string(f))
	}
}

func SimpleInterest(principal, annualRate, years float64) float64 {
	return principal * annualRate * years
}

// CompoundAmount is the balance after compounding principal for the given
// number of years.
func CompoundAmount(principal, annualRate, years float64, f Frequency) (float64, error) {
	n, err := f.periodsPerYear()
	if err != nil {
		return 0, err
	}
	if math.IsInf(n, 1) {
		return principal * math.Exp(annualRate*years), nil
	}
	return principal * math.Pow(1+annualRate/n, n*years), nil
}

// CompoundInterest is the interest earned on top of principal.
func CompoundInterest(principal, annualRate, years float64, f Frequency) (float64, error) {
	amount, err := CompoundAmount(principal, annualRate, years, f)
	if err != nil {
		return 0, err
	}
	return amount - principal, nil
}

func AprToApy(apr float64, f Frequency) (float64, error) {
	n, err := f.periodsPerYear()
	if err != nil {
		return 0, err
	}
	if math.IsInf(n, 1) {
		return math.Exp(apr) - 1, nil
	}
	return math.Pow(1+apr/n, n) - 1, nil
}

func ApyToApr(apy float64, f Frequency) (float64, error) {
	n, err := f.periodsPerYear()
	if err != nil {
		return 0, err
	}
	if math.IsInf(n, 1) {
		return math.Log(1 + apy), nil
	}
	return n * (math.Pow(1+apy, 1/n) - 1), nil
}
