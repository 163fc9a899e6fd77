package arbitrage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/config"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/quote"
)

// fakeGateway serves canned top-of-book quotes keyed by "FROM>TO". A missing
// key means the pair has no market. A per-pair or global error simulates a
// transport failure.
type fakeGateway struct {
	mu    sync.Mutex
	books map[string]*quote.Quote
	errs  map[string]error
	err   error
	calls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{books: map[string]*quote.Quote{}, errs: map[string]error{}}
}

func (f *fakeGateway) set(from, to string, ask, bid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := &quote.Quote{}
	if ask != "" {
		q.AskPrice = decimal.RequireFromString(ask)
		q.AskAmount = decimal.NewFromInt(1000000)
	}
	if bid != "" {
		q.BidPrice = decimal.RequireFromString(bid)
		q.BidAmount = decimal.NewFromInt(1000000)
	}
	f.books[from+">"+to] = q
}

func (f *fakeGateway) GetQuote(ctx context.Context, selling, buying asset.Asset) (*quote.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := selling.Code + ">" + buying.Code
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.books[key], nil
}

func testLogger() log.Logger { return log.NewLogger(config.Load()) }

func slippage() decimal.Decimal { return decimal.RequireFromString("0.999") }

func profitableCycle(t *testing.T) (Cycle, *fakeGateway) {
	t.Helper()
	u := testUniverse()
	gw := newFakeGateway()
	// XLM -> USDC at ask 0.10, USDC -> BTC at ask 2.0, BTC -> XLM at bid 0.25
	gw.set("XLM", "USDC", "0.10", "")
	gw.set("USDC", "BTC", "2.0", "")
	gw.set("BTC", "XLM", "", "0.25")
	return Cycle{Base: u[0], Mid1: u[1], Mid2: u[2]}, gw
}

func TestEvaluateProfitableRoundTrip(t *testing.T) {
	c, gw := profitableCycle(t)
	eval := NewEvaluator(gw, slippage(), testLogger())

	op, err := eval.Evaluate(context.Background(), c, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op == nil {
		t.Fatalf("expected an opportunity")
	}

	if !op.Steps[0].ToAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("leg 1 output: got %s want 1000", op.Steps[0].ToAmount)
	}
	if !op.Steps[1].ToAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("leg 2 output: got %s want 500", op.Steps[1].ToAmount)
	}
	wantFinal := decimal.RequireFromString("124.875")
	if !op.Steps[2].ToAmount.Equal(wantFinal) {
		t.Fatalf("leg 3 output: got %s want %s", op.Steps[2].ToAmount, wantFinal)
	}
	if !op.FinalAmount.Equal(wantFinal) {
		t.Fatalf("final amount: got %s want %s", op.FinalAmount, wantFinal)
	}
	if !op.Profit.Equal(decimal.RequireFromString("24.875")) {
		t.Fatalf("profit: got %s want 24.875", op.Profit)
	}
	if !op.ProfitPct.Equal(decimal.RequireFromString("24.875")) {
		t.Fatalf("profit pct: got %s want 24.875", op.ProfitPct)
	}

	// chained legs: leg i+1 consumes exactly what leg i produced
	if !op.Steps[1].FromAmount.Equal(op.Steps[0].ToAmount) || !op.Steps[2].FromAmount.Equal(op.Steps[1].ToAmount) {
		t.Fatalf("steps are not chained: %+v", op.Steps)
	}
	if op.Steps[0].From.Code != c.Base.Code {
		t.Fatalf("path does not start at base")
	}
}

func TestEvaluateProfitArithmeticInvariant(t *testing.T) {
	c, gw := profitableCycle(t)
	eval := NewEvaluator(gw, slippage(), testLogger())
	op, err := eval.Evaluate(context.Background(), c, decimal.RequireFromString("33.37"))
	if err != nil || op == nil {
		t.Fatalf("expected opportunity, got op=%v err=%v", op, err)
	}
	if !op.Profit.Equal(op.FinalAmount.Sub(op.InitialAmount)) {
		t.Fatalf("profit != final - initial")
	}
	wantPct := op.Profit.Div(op.InitialAmount).Mul(decimal.NewFromInt(100))
	if !op.ProfitPct.Equal(wantPct) {
		t.Fatalf("profit pct mismatch: got %s want %s", op.ProfitPct, wantPct)
	}
	if !op.Profit.IsPositive() {
		t.Fatalf("profit must be strictly positive")
	}
}

func TestEvaluateUnprofitableYieldsAbsence(t *testing.T) {
	c, gw := profitableCycle(t)
	// final = 500 * 0.19 * 0.999 = 94.905 < 100
	gw.set("BTC", "XLM", "", "0.19")
	eval := NewEvaluator(gw, slippage(), testLogger())
	op, err := eval.Evaluate(context.Background(), c, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != nil {
		t.Fatalf("expected absence for unprofitable round trip, got %+v", op)
	}
}

func TestEvaluateMissingLiquidityYieldsAbsence(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(gw *fakeGateway)
	}{
		{"no market on leg 1", func(gw *fakeGateway) { delete(gw.books, "XLM>USDC") }},
		{"no asks on leg 2", func(gw *fakeGateway) { gw.set("USDC", "BTC", "", "3.0") }},
		{"no bids on leg 3", func(gw *fakeGateway) { gw.set("BTC", "XLM", "4.0", "") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, gw := profitableCycle(t)
			tc.mut(gw)
			eval := NewEvaluator(gw, slippage(), testLogger())
			op, err := eval.Evaluate(context.Background(), c, decimal.NewFromInt(100))
			if err != nil {
				t.Fatalf("absence must not be an error, got %v", err)
			}
			if op != nil {
				t.Fatalf("expected absence, got %+v", op)
			}
		})
	}
}

func TestEvaluateTransportErrorPropagates(t *testing.T) {
	c, gw := profitableCycle(t)
	gw.errs["USDC>BTC"] = errors.New("connection refused")
	eval := NewEvaluator(gw, slippage(), testLogger())
	op, err := eval.Evaluate(context.Background(), c, decimal.NewFromInt(100))
	if err == nil {
		t.Fatalf("expected transport error to propagate")
	}
	if op != nil {
		t.Fatalf("no opportunity expected alongside an error")
	}
}
