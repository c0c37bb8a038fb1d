// Package commission splits a sale amount between the agent and the organization.
package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrInvalidPercentage = errors.New("invalid_commission_percentage")
	ErrInvalidSplit      = errors.New("invalid_commission_split")
)

// PercentagePlaces is the precision percentages are stored with.
const PercentagePlaces = 2

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Split holds the commission amounts derived from one sale amount.
type Split struct {
	AgentAmount int64 `json:"agent_commission_amount"`
	OrgAmount   int64 `json:"organization_commission_amount"`
}

// Total returns the sum of both parts.
func (s Split) Total() int64 {
	return s.AgentAmount + s.OrgAmount
}

// Compute derives the agent and organization amounts. The agent part is
// rounded half away from zero to the smallest currency unit and the
// organization receives the remainder, so the parts always add up to amount
// when the percentages sum to 100. Non-positive amounts yield a zero split.
func Compute(amount int64, agentPct, orgPct decimal.Decimal) Split {
	if amount <= 0 {
		return Split{}
	}

	total := decimal.NewFromInt(amount)
	agentAmount := percentOf(total, agentPct)
	if agentPct.Add(orgPct).Equal(hundred) {
		return Split{AgentAmount: agentAmount, OrgAmount: amount - agentAmount}
	}
	return Split{AgentAmount: agentAmount, OrgAmount: percentOf(total, orgPct)}
}

// ValidatePercentage checks that pct lies in [0, 100] with at most
// PercentagePlaces decimal places.
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.LessThan(zero) || pct.GreaterThan(hundred) {
		return ErrInvalidPercentage
	}
	if !pct.Equal(pct.Round(PercentagePlaces)) {
		return ErrInvalidPercentage
	}
	return nil
}

// ValidateSplit checks both percentages and that they sum to exactly 100.
func ValidateSplit(agentPct, orgPct decimal.Decimal) error {
	if err := ValidatePercentage(agentPct); err != nil {
		return err
	}
	if err := ValidatePercentage(orgPct); err != nil {
		return err
	}
	if !agentPct.Add(orgPct).Equal(hundred) {
		return ErrInvalidSplit
	}
	return nil
}

// Complement returns 100 - pct.
func Complement(pct decimal.Decimal) decimal.Decimal {
	return hundred.Sub(pct)
}

func percentOf(amount, pct decimal.Decimal) int64 {
	return amount.Mul(pct).Div(hundred).Round(0).IntPart()
}
