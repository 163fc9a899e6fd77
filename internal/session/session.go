package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/arbitrage"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/executor"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/tradeplan"
)

var (
	ErrScanInFlight       = errors.New("a scan is already in flight")
	ErrNoSelection        = errors.New("no opportunity selected")
	ErrUnknownOpportunity = errors.New("opportunity not in the current set")
)

// PlanExecutor drives a built plan to a terminal outcome.
type PlanExecutor interface {
	Execute(ctx context.Context, plan tradeplan.Plan) (executor.Result, error)
}

type Options struct {
	RefreshInterval  time.Duration
	AccountID        string
	DestMinTolerance decimal.Decimal
}

// Status is a point-in-time view of the session's activity.
type Status struct {
	Scanning      bool      `json:"scanning"`
	Refreshing    bool      `json:"refreshing"`
	Executing     bool      `json:"executing"`
	Opportunities int       `json:"opportunities"`
	Selected      string    `json:"selected,omitempty"`
	LastScan      time.Time `json:"last_scan,omitempty"`
	LastRefresh   time.Time `json:"last_refresh,omitempty"`
}

// Session owns the only mutable shared state in the system: the current
// opportunity set and the selection. Both are replaced wholesale under one
// lock, and callers get snapshot copies, so no observer ever sees a
// partially-updated ranked list. Opportunities are immutable once built.
type Session struct {
	scanner *arbitrage.Scanner
	exec    PlanExecutor
	opts    Options
	logger  log.Logger

	baseCtx context.Context

	mu            sync.Mutex
	opportunities []*arbitrage.Opportunity
	selectedKey   string
	generation    uint64
	scanning      bool
	refreshing    bool
	executing     bool
	lastScan      time.Time
	lastRefresh   time.Time
	stopRefresh   context.CancelFunc
}

func New(scanner *arbitrage.Scanner, exec PlanExecutor, opts Options, logger log.Logger) *Session {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 15 * time.Second
	}
	return &Session{scanner: scanner, exec: exec, opts: opts, logger: logger, baseCtx: context.Background()}
}

// Start binds the session to the process context. Refresh loops spawned by
// later scans stop when this context is canceled.
func (s *Session) Start(ctx context.Context) { s.baseCtx = ctx }

// Close stops any pending refresh timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelRefreshLocked()
}

// Scan discovers opportunities for base and amount, replaces the session's
// set wholesale, clears the selection, and starts the periodic refresher for
// a non-empty result. Starting a new scan cancels any pending refresh tick
// so a stale refresh can never land after fresh results.
func (s *Session) Scan(ctx context.Context, base asset.Asset, amount decimal.Decimal) ([]*arbitrage.Opportunity, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInFlight
	}
	s.scanning = true
	s.generation++
	gen := s.generation
	s.cancelRefreshLocked()
	s.opportunities = nil
	s.selectedKey = ""
	s.mu.Unlock()

	opps, err := s.scanner.Scan(ctx, base, amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	s.lastScan = time.Now()
	if err != nil {
		return nil, err
	}
	s.opportunities = opps
	if len(opps) > 0 {
		refreshCtx, cancel := context.WithCancel(s.baseCtx)
		s.stopRefresh = cancel
		go s.refreshLoop(refreshCtx, gen)
	}
	return snapshot(opps), nil
}

// Select marks an opportunity, identified by its cycle key, as the one the
// user intends to execute.
func (s *Session) Select(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if findByKey(s.opportunities, key) == nil {
		return ErrUnknownOpportunity
	}
	s.selectedKey = key
	return nil
}

// Selected returns the currently-selected opportunity, if any.
func (s *Session) Selected() (*arbitrage.Opportunity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := findByKey(s.opportunities, s.selectedKey)
	return op, op != nil
}

// Opportunities returns a snapshot of the current ranked set.
func (s *Session) Opportunities() []*arbitrage.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.opportunities)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Scanning:      s.scanning,
		Refreshing:    s.refreshing,
		Executing:     s.executing,
		Opportunities: len(s.opportunities),
		Selected:      s.selectedKey,
		LastScan:      s.lastScan,
		LastRefresh:   s.lastRefresh,
	}
}

// Execute builds a fresh plan from the selected opportunity and drives it to
// a terminal outcome. While it runs, refresh ticks are skipped so the
// selection cannot be cleared underneath an in-flight execution.
func (s *Session) Execute(ctx context.Context) (executor.Result, error) {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		metrics.ExecutionBusyTotal.Inc()
		return executor.Result{}, executor.ErrExecutionInFlight
	}
	op := findByKey(s.opportunities, s.selectedKey)
	if op == nil {
		s.mu.Unlock()
		return executor.Result{}, ErrNoSelection
	}
	s.executing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
	}()

	plan, err := tradeplan.Build(op, s.opts.AccountID, s.opts.DestMinTolerance)
	if err != nil {
		return executor.Result{}, err
	}
	return s.exec.Execute(ctx, plan)
}

// RefreshNow re-evaluates the current set immediately, with the same
// reconciliation rules as a timer tick. Used by tests and the API.
func (s *Session) RefreshNow(ctx context.Context) error {
	s.mu.Lock()
	if s.scanning || s.refreshing || s.executing {
		s.mu.Unlock()
		metrics.RefreshSkippedTotal.Inc()
		return nil
	}
	if len(s.opportunities) == 0 {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	s.refreshing = true
	prior := snapshot(s.opportunities)
	s.mu.Unlock()

	metrics.RefreshTicksTotal.Inc()
	refreshed, err := s.scanner.Refresh(ctx, prior)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false
	s.lastRefresh = time.Now()
	if s.generation != gen {
		metrics.RefreshDiscardedTotal.Inc()
		return nil
	}
	if err != nil {
		// prior set stays untouched on a gateway failure
		s.logger.Warn().Err(err).Msg("refresh failed; keeping previous opportunity set")
		return err
	}
	s.opportunities = refreshed
	if s.selectedKey != "" && findByKey(refreshed, s.selectedKey) == nil {
		s.logger.Info().Str("cycle", s.selectedKey).Msg("selected opportunity no longer profitable; selection cleared")
		s.selectedKey = ""
	}
	if len(refreshed) == 0 {
		s.cancelRefreshLocked()
	}
	return nil
}

func (s *Session) refreshLoop(ctx context.Context, gen uint64) {
	t := time.NewTicker(s.opts.RefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s.mu.Lock()
		stale := s.generation != gen
		empty := len(s.opportunities) == 0
		s.mu.Unlock()
		if stale || empty {
			return
		}
		_ = s.RefreshNow(ctx)
	}
}

func (s *Session) cancelRefreshLocked() {
	if s.stopRefresh != nil {
		s.stopRefresh()
		s.stopRefresh = nil
	}
}

func findByKey(opps []*arbitrage.Opportunity, key string) *arbitrage.Opportunity {
	if key == "" {
		return nil
	}
	for _, op := range opps {
		if op.Cycle.Key() == key {
			return op
		}
	}
	return nil
}

func snapshot(opps []*arbitrage.Opportunity) []*arbitrage.Opportunity {
	out := make([]*arbitrage.Opportunity, len(opps))
	copy(out, opps)
	return out
}
