package quote

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
)

// Quote is the top of the order book for converting one asset into another.
// Quotes are fetched fresh per evaluation and never cached.
type Quote struct {
	AskPrice  decimal.Decimal
	AskAmount decimal.Decimal
	BidPrice  decimal.Decimal
	BidAmount decimal.Decimal
}

// HasAsk reports whether the book has ask-side liquidity.
func (q *Quote) HasAsk() bool { return q != nil && q.AskPrice.IsPositive() }

// HasBid reports whether the book has bid-side liquidity.
func (q *Quote) HasBid() bool { return q != nil && q.BidPrice.IsPositive() }

// Gateway fetches the best counter-price for converting selling into buying.
//
// A (nil, nil) return means the pair has no market or no offers at all; that
// is a normal outcome, not a failure. A non-nil error means the venue could
// not be reached and is a systemic failure for the operation that issued the
// fetch.
type Gateway interface {
	GetQuote(ctx context.Context, selling, buying asset.Asset) (*Quote, error)
}
