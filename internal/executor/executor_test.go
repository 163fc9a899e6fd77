package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/arbitrage"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/config"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/tradeplan"
)

const testAccount = "GBEXECUTOR"

type fakeAccounts struct{ err error }

func (f fakeAccounts) LoadAccount(ctx context.Context, id string) (SequenceState, error) {
	if f.err != nil {
		return SequenceState{}, f.err
	}
	return SequenceState{AccountID: id, Sequence: 42}, nil
}

type fakeFees struct{}

func (fakeFees) BaseFee(ctx context.Context) (int64, error) { return 100, nil }

type fakeAssembler struct{}

func (fakeAssembler) Assemble(ctx context.Context, plan tradeplan.Plan, seq SequenceState, baseFee int64) (string, error) {
	return fmt.Sprintf("envelope:%s:%d:%d", seq.AccountID, seq.Sequence, baseFee), nil
}

type fakeSigner struct {
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSigner) Sign(ctx context.Context, envelope, passphrase string) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	return "signed:" + envelope, nil
}

type fakeSubmitter struct{ err error }

func (f fakeSubmitter) Submit(ctx context.Context, signed string) (SubmitResult, error) {
	if f.err != nil {
		return SubmitResult{}, f.err
	}
	return SubmitResult{Hash: "abc123", Ledger: 7}, nil
}

func testPlan(t *testing.T) tradeplan.Plan {
	t.Helper()
	xlm := asset.Asset{Code: "XLM", Issuer: asset.NativeIssuer}
	usdc := asset.Asset{Code: "USDC", Issuer: "GISSUER1"}
	btc := asset.Asset{Code: "BTC", Issuer: "GISSUER2"}
	final := decimal.RequireFromString("124.875")
	op := &arbitrage.Opportunity{
		Cycle:         arbitrage.Cycle{Base: xlm, Mid1: usdc, Mid2: btc},
		InitialAmount: decimal.NewFromInt(100),
		FinalAmount:   final,
		Profit:        final.Sub(decimal.NewFromInt(100)),
		ProfitPct:     decimal.RequireFromString("24.875"),
		Steps: [3]arbitrage.Step{
			{From: xlm, To: usdc, FromAmount: decimal.NewFromInt(100), ToAmount: decimal.NewFromInt(1000)},
			{From: usdc, To: btc, FromAmount: decimal.NewFromInt(1000), ToAmount: decimal.NewFromInt(500)},
			{From: btc, To: xlm, FromAmount: decimal.NewFromInt(500), ToAmount: final},
		},
	}
	plan, err := tradeplan.Build(op, testAccount, decimal.RequireFromString("0.005"))
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

func testLogger() log.Logger { return log.NewLogger(config.Load()) }

func newTestExecutor(signer Signer, submitter Submitter) *Executor {
	return New(fakeAccounts{}, fakeFees{}, fakeAssembler{}, signer, submitter,
		"Test Passphrase", "https://stellar.expert/explorer/testnet", testLogger())
}

func TestExecuteSuccess(t *testing.T) {
	x := newTestExecutor(&fakeSigner{}, fakeSubmitter{})
	res, err := x.Execute(context.Background(), testPlan(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Hash != "abc123" {
		t.Fatalf("hash mismatch: %s", res.Hash)
	}
	if res.ExplorerURL != "https://stellar.expert/explorer/testnet/tx/abc123" {
		t.Fatalf("explorer url mismatch: %s", res.ExplorerURL)
	}
}

func TestExecuteSigningRejected(t *testing.T) {
	signer := &fakeSigner{err: fmt.Errorf("%w: user declined", ErrSigningRejected)}
	x := newTestExecutor(signer, fakeSubmitter{})
	_, err := x.Execute(context.Background(), testPlan(t))
	if !errors.Is(err, ErrSigningRejected) {
		t.Fatalf("expected ErrSigningRejected, got %v", err)
	}
}

func TestExecuteNetworkRejectionPreservesCodes(t *testing.T) {
	rej := &RejectionError{
		TransactionCode: "tx_failed",
		OperationCodes:  []string{"op_success", "op_under_dest_min", "op_success"},
	}
	x := newTestExecutor(&fakeSigner{}, fakeSubmitter{err: rej})
	_, err := x.Execute(context.Background(), testPlan(t))
	var got *RejectionError
	if !errors.As(err, &got) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if got.TransactionCode != "tx_failed" || len(got.OperationCodes) != 3 || got.OperationCodes[1] != "op_under_dest_min" {
		t.Fatalf("result codes were not preserved verbatim: %+v", got)
	}
}

func TestExecuteSingleFlight(t *testing.T) {
	signer := &fakeSigner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	x := newTestExecutor(signer, fakeSubmitter{})
	plan := testPlan(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := x.Execute(context.Background(), plan)
		errCh <- err
	}()
	<-signer.started

	_, err := x.Execute(context.Background(), plan)
	if !errors.Is(err, ErrExecutionInFlight) {
		t.Fatalf("expected ErrExecutionInFlight, got %v", err)
	}

	close(signer.block)
	if err := <-errCh; err != nil {
		t.Fatalf("first execution failed: %v", err)
	}

	// the slot frees up once the first execution finishes
	if _, err := x.Execute(context.Background(), plan); err != nil {
		t.Fatalf("execution after completion failed: %v", err)
	}
}

func TestExecuteAccountLoadFailure(t *testing.T) {
	x := New(fakeAccounts{err: errors.New("horizon 504")}, fakeFees{}, fakeAssembler{},
		&fakeSigner{}, fakeSubmitter{}, "Test Passphrase", "", testLogger())
	_, err := x.Execute(context.Background(), testPlan(t))
	if err == nil {
		t.Fatalf("expected account load failure to surface")
	}
	if errors.Is(err, ErrSigningRejected) || errors.Is(err, ErrExecutionInFlight) {
		t.Fatalf("transport failure misclassified: %v", err)
	}
}
