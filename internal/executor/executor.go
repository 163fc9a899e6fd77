package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/tradeplan"
)

var (
	// ErrSigningRejected marks a plan the signer declined. Not retryable
	// without user action.
	ErrSigningRejected = errors.New("signing rejected")
	// ErrExecutionInFlight rejects a second execution while one is
	// outstanding; concurrent submissions would race on sequence state.
	ErrExecutionInFlight = errors.New("an execution is already in flight")
)

// RejectionError carries the network's structured result codes verbatim so
// the caller can see which leg failed and why.
type RejectionError struct {
	TransactionCode string
	OperationCodes  []string
}

func (e *RejectionError) Error() string {
	if len(e.OperationCodes) == 0 {
		return fmt.Sprintf("transaction rejected: %s", e.TransactionCode)
	}
	return fmt.Sprintf("transaction rejected: %s (%s)", e.TransactionCode, strings.Join(e.OperationCodes, ", "))
}

// SequenceState is the executing account's current sequencing state.
type SequenceState struct {
	AccountID string
	Sequence  int64
}

// AccountLoader provides sequencing state for the executing account.
type AccountLoader interface {
	LoadAccount(ctx context.Context, accountID string) (SequenceState, error)
}

// FeeOracle provides the network's current base fee in stroops.
type FeeOracle interface {
	BaseFee(ctx context.Context) (int64, error)
}

// Assembler packages the plan's three legs into one unsigned transaction
// envelope. A single envelope is what makes the round trip atomic.
type Assembler interface {
	Assemble(ctx context.Context, plan tradeplan.Plan, seq SequenceState, baseFee int64) (string, error)
}

// Signer signs an envelope for the given network, or returns
// ErrSigningRejected when the holder of the key declines.
type Signer interface {
	Sign(ctx context.Context, envelope, networkPassphrase string) (string, error)
}

// SubmitResult is a settled submission.
type SubmitResult struct {
	Hash   string
	Ledger int32
}

// Submitter submits a signed envelope. A structured network rejection comes
// back as *RejectionError; anything else is a transport failure.
type Submitter interface {
	Submit(ctx context.Context, signedEnvelope string) (SubmitResult, error)
}

// Result is a successfully submitted execution.
type Result struct {
	Hash        string
	Ledger      int32
	ExplorerURL string
}

// Executor drives a plan to a terminal outcome. At most one execution may be
// in flight at a time.
type Executor struct {
	accounts   AccountLoader
	fees       FeeOracle
	assembler  Assembler
	signer     Signer
	submitter  Submitter
	passphrase string
	explorer   string
	logger     log.Logger
	inFlight   atomic.Bool
}

func New(accounts AccountLoader, fees FeeOracle, assembler Assembler, signer Signer, submitter Submitter, passphrase, explorerBase string, logger log.Logger) *Executor {
	return &Executor{
		accounts:   accounts,
		fees:       fees,
		assembler:  assembler,
		signer:     signer,
		submitter:  submitter,
		passphrase: passphrase,
		explorer:   explorerBase,
		logger:     logger,
	}
}

// Execute loads the account, assembles the single-transaction envelope,
// signs it, and submits it. The outcome is exactly one of: a Result,
// ErrSigningRejected, a *RejectionError, or a transport failure. No
// automatic retries.
func (x *Executor) Execute(ctx context.Context, plan tradeplan.Plan) (Result, error) {
	if !x.inFlight.CompareAndSwap(false, true) {
		metrics.ExecutionBusyTotal.Inc()
		return Result{}, ErrExecutionInFlight
	}
	defer x.inFlight.Store(false)

	seq, err := x.accounts.LoadAccount(ctx, plan.AccountID)
	if err != nil {
		return Result{}, fmt.Errorf("load account: %w", err)
	}
	baseFee, err := x.fees.BaseFee(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch base fee: %w", err)
	}

	envelope, err := x.assembler.Assemble(ctx, plan, seq, baseFee)
	if err != nil {
		return Result{}, fmt.Errorf("assemble plan: %w", err)
	}

	signed, err := x.signer.Sign(ctx, envelope, x.passphrase)
	if err != nil {
		if errors.Is(err, ErrSigningRejected) {
			metrics.SigningRejectionsTotal.Inc()
			x.logger.Warn().Str("cycle", plan.Cycle.Key()).Msg("plan declined at signing")
			return Result{}, err
		}
		return Result{}, fmt.Errorf("sign plan: %w", err)
	}

	res, err := x.submitter.Submit(ctx, signed)
	if err != nil {
		var rej *RejectionError
		if errors.As(err, &rej) {
			metrics.ExecutionRejectionsTotal.Inc()
			x.logger.Warn().
				Str("cycle", plan.Cycle.Key()).
				Str("tx_code", rej.TransactionCode).
				Strs("op_codes", rej.OperationCodes).
				Msg("plan rejected by network")
			return Result{}, err
		}
		return Result{}, fmt.Errorf("submit plan: %w", err)
	}

	metrics.ExecutionsSubmittedTotal.Inc()
	out := Result{Hash: res.Hash, Ledger: res.Ledger}
	if x.explorer != "" {
		out.ExplorerURL = x.explorer + "/tx/" + res.Hash
	}
	x.logger.Info().Str("cycle", plan.Cycle.Key()).Str("hash", res.Hash).Msg("plan submitted")
	return out, nil
}

// NoSigner is the default signer when no key is configured; every plan is
// reported as declined.
type NoSigner struct{}

func (NoSigner) Sign(ctx context.Context, envelope, passphrase string) (string, error) {
	return "", fmt.Errorf("%w: no signer configured", ErrSigningRejected)
}
