package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StartingLevel      = 1
	MaxLevel           = 10
	StartingReputation = 50.0
)

var (
	StartingCash = decimal.NewFromInt(1_000_000)

	// A bank pays LevelUpgradeStep × current level to reach the next level.
	LevelUpgradeStep = decimal.NewFromInt(250_000)

	MaxMarketingBudget = decimal.NewFromInt(100_000)
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrBankNotFound         = errors.New("bank not found")
	ErrApplicantNotFound    = errors.New("applicant not found")
	ErrApplicantClosed      = errors.New("applicant already decided")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrInvalidName          = errors.New("invalid bank name")
	ErrInvalidInput         = errors.New("invalid input")
	ErrMaxLevel             = errors.New("bank is already at max level")
	ErrTxConflict           = errors.New("transaction conflict, retry")
)

var blockedNameFragments = []string{
	"admin",
	"support",
	"official",
	"shit",
	"fuck",
	"nazi",
}

func validateBankName(name string) error {
	clean := strings.TrimSpace(name)
	if len(clean) < 3 {
		return fmt.Errorf("%w: at least 3 characters", ErrInvalidName)
	}
	if len(clean) > 48 {
		return fmt.Errorf("%w: max 48 characters", ErrInvalidName)
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: contains blocked content", ErrInvalidName)
		}
	}
	return nil
}

type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case Approve, Deny:
		return d, nil
	default:
		return "", fmt.Errorf("%w: decision must be approve or deny", ErrInvalidInput)
	}
}

// LevelUpgradeCost is zero once the bank is at MaxLevel.
func LevelUpgradeCost(level int) decimal.Decimal {
	if level >= MaxLevel {
		return decimal.Zero
	}
	if level < StartingLevel {
		level = StartingLevel
	}
	return LevelUpgradeStep.Mul(decimal.NewFromInt(int64(level)))
}

// Money rounds a float amount to cents.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
