package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
)

// Step is one leg of a round trip: the amount of From consumed and the
// amount of To it produces at the quoted price.
type Step struct {
	From       asset.Asset
	To         asset.Asset
	FromAmount decimal.Decimal
	ToAmount   decimal.Decimal
}

// Opportunity is a profitable round trip. Profit is strictly positive by
// construction; an unprofitable evaluation yields no opportunity at all.
type Opportunity struct {
	Cycle         Cycle
	InitialAmount decimal.Decimal
	FinalAmount   decimal.Decimal
	Profit        decimal.Decimal
	ProfitPct     decimal.Decimal
	Steps         [3]Step
}
