package tradeplan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/arbitrage"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
)

var (
	ErrNoOpportunity = errors.New("no opportunity to build a plan from")
	ErrNoAccount     = errors.New("executing account is required")
	ErrBadTolerance  = errors.New("tolerance must be a fraction in (0, 1)")
)

// Leg is one strict-send exchange operation: send exactly SendAmount of
// Source and require at least DestMin of Destination back.
type Leg struct {
	Source      asset.Asset
	Destination asset.Asset
	SendAmount  decimal.Decimal
	DestMin     decimal.Decimal
}

// Plan is an ordered sequence of three chained legs executed by one account
// as a closed loop. The legs are assembled into a single transaction so they
// settle atomically: either all three or none. A plan is built fresh per
// execution attempt and never reused.
type Plan struct {
	AccountID string
	Legs      [3]Leg
	Cycle     arbitrage.Cycle
}

// Build derives a plan from an opportunity. Leg i sends exactly the amount
// computed for that leg during evaluation (leg 1 the initial amount, legs
// 2-3 the previous leg's output), and tolerates adverse movement down to
// ToAmount * (1 - tolerance) before the whole transaction fails.
func Build(op *arbitrage.Opportunity, accountID string, tolerance decimal.Decimal) (Plan, error) {
	if op == nil {
		return Plan{}, ErrNoOpportunity
	}
	if accountID == "" {
		return Plan{}, ErrNoAccount
	}
	one := decimal.NewFromInt(1)
	if !tolerance.IsPositive() || tolerance.GreaterThanOrEqual(one) {
		return Plan{}, fmt.Errorf("%w: got %s", ErrBadTolerance, tolerance)
	}
	keep := one.Sub(tolerance)

	plan := Plan{AccountID: accountID, Cycle: op.Cycle}
	for i, step := range op.Steps {
		if !step.FromAmount.IsPositive() || !step.ToAmount.IsPositive() {
			return Plan{}, fmt.Errorf("step %d of %s has non-positive amounts", i+1, op.Cycle.Key())
		}
		plan.Legs[i] = Leg{
			Source:      step.From,
			Destination: step.To,
			SendAmount:  step.FromAmount,
			DestMin:     step.ToAmount.Mul(keep),
		}
	}
	return plan, nil
}
