package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
)

var (
	// ErrInvalidAmount rejects a non-positive initial amount before any I/O.
	ErrInvalidAmount = errors.New("initial amount must be positive")
	// ErrUniverseTooSmall rejects a universe with no two non-base assets.
	ErrUniverseTooSmall = errors.New("asset universe has fewer than three assets")
	// ErrGatewayUnavailable is the scan-level outcome of a transport failure.
	ErrGatewayUnavailable = errors.New("quote gateway unavailable")
)

// Scanner fans the evaluator out over every candidate cycle and ranks the
// profitable results.
type Scanner struct {
	catalog     *asset.Catalog
	eval        *Evaluator
	concurrency int
	logger      log.Logger
}

func NewScanner(catalog *asset.Catalog, eval *Evaluator, concurrency int, logger log.Logger) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{catalog: catalog, eval: eval, concurrency: concurrency, logger: logger}
}

// Scan evaluates every cycle rooted at base for the given initial amount and
// returns the profitable opportunities ranked by descending profit
// percentage. Every evaluation runs to completion: per-cycle absence never
// cancels the batch. Any transport failure surfaces as a single scan-level
// error with no opportunities.
func (s *Scanner) Scan(ctx context.Context, base asset.Asset, amount decimal.Decimal) ([]*Opportunity, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	cycles := Cycles(base, s.catalog.All())
	if len(cycles) == 0 {
		return nil, ErrUniverseTooSmall
	}

	metrics.ScansTotal.Inc()
	start := time.Now()
	s.logger.Info().Str("base", base.Code).Str("amount", amount.String()).Int("cycles", len(cycles)).Msg("scan started")

	results := make([]*Opportunity, len(cycles))
	errs := make([]error, len(cycles))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, c := range cycles {
		wg.Add(1)
		go func(i int, c Cycle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = s.eval.Evaluate(ctx, c, amount)
		}(i, c)
	}
	wg.Wait()
	metrics.ScanDurationSeconds.Observe(time.Since(start).Seconds())

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
	}

	opps := make([]*Opportunity, 0, len(results))
	for _, op := range results {
		if op != nil {
			opps = append(opps, op)
		}
	}
	Rank(opps)
	s.logger.Info().Int("profitable", len(opps)).Dur("elapsed", time.Since(start)).Msg("scan finished")
	return opps, nil
}

// Refresh re-evaluates previously-found opportunities with their original
// cycle and initial amount. Opportunities that are no longer profitable are
// dropped; survivors are re-ranked. A transport failure fails the whole
// refresh so the caller can keep its prior set untouched.
func (s *Scanner) Refresh(ctx context.Context, prior []*Opportunity) ([]*Opportunity, error) {
	results := make([]*Opportunity, len(prior))
	errs := make([]error, len(prior))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, op := range prior {
		wg.Add(1)
		go func(i int, op *Opportunity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = s.eval.Evaluate(ctx, op.Cycle, op.InitialAmount)
		}(i, op)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
	}

	out := make([]*Opportunity, 0, len(results))
	for _, op := range results {
		if op != nil {
			out = append(out, op)
		}
	}
	Rank(out)
	return out, nil
}

// Rank sorts opportunities by profit percentage descending, breaking ties by
// cycle key so output is stable across runs with identical inputs.
func Rank(opps []*Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if !opps[i].ProfitPct.Equal(opps[j].ProfitPct) {
			return opps[i].ProfitPct.GreaterThan(opps[j].ProfitPct)
		}
		return opps[i].Cycle.Key() < opps[j].Cycle.Key()
	})
}
