package horizon

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/txnbuild"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/executor"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/tradeplan"
)

// txTimeoutSeconds bounds how long a submitted envelope stays valid.
const txTimeoutSeconds = 60

// Assembler packages a trade plan into one unsigned transaction envelope.
// Because all three strict-send operations live in a single transaction,
// the ledger applies them atomically: a failed leg voids the whole round
// trip, so partial execution is structurally impossible.
type Assembler struct{}

func (Assembler) Assemble(_ context.Context, plan tradeplan.Plan, seq executor.SequenceState, baseFee int64) (string, error) {
	source := txnbuild.SimpleAccount{AccountID: seq.AccountID, Sequence: seq.Sequence}

	ops := make([]txnbuild.Operation, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		ops = append(ops, &txnbuild.PathPaymentStrictSend{
			SendAsset:   toTxAsset(leg.Source),
			SendAmount:  amountString(leg.SendAmount),
			Destination: plan.AccountID,
			DestAsset:   toTxAsset(leg.Destination),
			DestMin:     amountString(leg.DestMin),
		})
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		Operations:           ops,
		BaseFee:              baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeoutSeconds)},
	})
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	return tx.Base64()
}

func toTxAsset(a asset.Asset) txnbuild.Asset {
	if a.IsNative() {
		return txnbuild.NativeAsset{}
	}
	return txnbuild.CreditAsset{Code: a.Code, Issuer: a.Issuer}
}

// amountString renders an amount at the ledger's seven-decimal precision,
// rounding toward zero so a send never exceeds the evaluated amount.
func amountString(d decimal.Decimal) string {
	return d.RoundDown(7).StringFixed(7)
}
