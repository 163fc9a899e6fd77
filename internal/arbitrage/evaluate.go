package arbitrage

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/quote"
)

var oneHundred = decimal.NewFromInt(100)

// Evaluator prices a single cycle against fresh top-of-book quotes.
type Evaluator struct {
	gateway  quote.Gateway
	slippage decimal.Decimal // fraction < 1 applied to the final leg
	logger   log.Logger
}

func NewEvaluator(gw quote.Gateway, slippage decimal.Decimal, logger log.Logger) *Evaluator {
	return &Evaluator{gateway: gw, slippage: slippage, logger: logger}
}

// Evaluate prices the three-leg round trip for amount of the base asset.
//
// The three quote fetches run concurrently. Legs 1 and 2 buy the next asset
// at the best ask (out = in / ask); leg 3 sells back into the base at the
// best bid (out = in * bid), discounted by the slippage factor. A missing
// market or missing book side yields (nil, nil): no opportunity, not an
// error. A transport failure from any fetch is returned as an error.
func (e *Evaluator) Evaluate(ctx context.Context, c Cycle, amount decimal.Decimal) (*Opportunity, error) {
	metrics.CyclesEvaluatedTotal.Inc()

	var (
		wg         sync.WaitGroup
		q1, q2, q3 *quote.Quote
		e1, e2, e3 error
	)
	wg.Add(3)
	go func() { defer wg.Done(); q1, e1 = e.gateway.GetQuote(ctx, c.Base, c.Mid1) }()
	go func() { defer wg.Done(); q2, e2 = e.gateway.GetQuote(ctx, c.Mid1, c.Mid2) }()
	go func() { defer wg.Done(); q3, e3 = e.gateway.GetQuote(ctx, c.Mid2, c.Base) }()
	wg.Wait()

	for _, err := range []error{e1, e2, e3} {
		if err != nil {
			return nil, err
		}
	}
	if !q1.HasAsk() || !q2.HasAsk() || !q3.HasBid() {
		metrics.CyclesAbsentTotal.Inc()
		return nil, nil
	}

	amountMid1 := amount.Div(q1.AskPrice)
	amountMid2 := amountMid1.Div(q2.AskPrice)
	final := amountMid2.Mul(q3.BidPrice).Mul(e.slippage)

	if final.LessThanOrEqual(amount) {
		return nil, nil
	}

	profit := final.Sub(amount)
	op := &Opportunity{
		Cycle:         c,
		InitialAmount: amount,
		FinalAmount:   final,
		Profit:        profit,
		ProfitPct:     profit.Div(amount).Mul(oneHundred),
		Steps: [3]Step{
			{From: c.Base, To: c.Mid1, FromAmount: amount, ToAmount: amountMid1},
			{From: c.Mid1, To: c.Mid2, FromAmount: amountMid1, ToAmount: amountMid2},
			{From: c.Mid2, To: c.Base, FromAmount: amountMid2, ToAmount: final},
		},
	}

	metrics.OpportunitiesFound.Inc()
	metrics.OpportunityProfitPct.Observe(op.ProfitPct.InexactFloat64())
	e.logger.Debug().
		Str("cycle", c.Key()).
		Str("profit", profit.String()).
		Str("profit_pct", op.ProfitPct.String()).
		Msg("profitable cycle")
	return op, nil
}
