package horizon

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	stellarnet "github.com/stellar/go/network"
	hProtocol "github.com/stellar/go/protocols/horizon"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/config"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/executor"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/network"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/quote"
)

const minBaseFee = int64(100) // stroops

// Client adapts a Horizon endpoint to the collaborator interfaces the core
// consumes: quote gateway, account loader, fee oracle, and submitter.
type Client struct {
	hz      *horizonclient.Client
	limiter *network.TokenBucket
	logger  log.Logger
}

func NewClient(cfg config.Config, logger log.Logger) *Client {
	hz := &horizonclient.Client{
		HorizonURL: cfg.HorizonURL(),
		HTTP:       network.NewHTTPClient(cfg.HorizonTimeout()),
	}
	return &Client{
		hz:      hz,
		limiter: network.NewTokenBucket(cfg.Horizon.Burst, cfg.Horizon.MaxRequestsPerSecond),
		logger:  logger,
	}
}

// Passphrase returns the signing passphrase for the configured network.
func Passphrase(networkName string) string {
	if networkName == "public" {
		return stellarnet.PublicNetworkPassphrase
	}
	return stellarnet.TestNetworkPassphrase
}

// ExplorerBase returns the block-explorer prefix for the configured network.
func ExplorerBase(networkName string) string {
	if networkName == "public" {
		return "https://stellar.expert/explorer/public"
	}
	return "https://stellar.expert/explorer/testnet"
}

// GetQuote fetches the top of the order book for selling -> buying. A pair
// with no offers on either side is reported as absent, not as an error.
func (c *Client) GetQuote(ctx context.Context, selling, buying asset.Asset) (*quote.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := horizonclient.OrderBookRequest{Limit: 1}
	req.SellingAssetType, req.SellingAssetCode, req.SellingAssetIssuer = assetParams(selling)
	req.BuyingAssetType, req.BuyingAssetCode, req.BuyingAssetIssuer = assetParams(buying)

	book, err := c.hz.OrderBook(req)
	if err != nil {
		metrics.QuoteErrorsTotal.Inc()
		return nil, fmt.Errorf("order book %s/%s: %w", selling.Code, buying.Code, err)
	}
	metrics.QuotesFetchedTotal.Inc()
	return bookToQuote(book)
}

// bookToQuote reduces an order book summary to its top of book. An entirely
// empty book means the pair has no market.
func bookToQuote(book hProtocol.OrderBookSummary) (*quote.Quote, error) {
	if len(book.Asks) == 0 && len(book.Bids) == 0 {
		return nil, nil
	}
	q := &quote.Quote{}
	if len(book.Asks) > 0 {
		price, amount, err := parseLevel(book.Asks[0])
		if err != nil {
			return nil, fmt.Errorf("bad ask level: %w", err)
		}
		q.AskPrice, q.AskAmount = price, amount
	}
	if len(book.Bids) > 0 {
		price, amount, err := parseLevel(book.Bids[0])
		if err != nil {
			return nil, fmt.Errorf("bad bid level: %w", err)
		}
		q.BidPrice, q.BidAmount = price, amount
	}
	return q, nil
}

func parseLevel(l hProtocol.PriceLevel) (price, amount decimal.Decimal, err error) {
	price, err = decimal.NewFromString(l.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	amount, err = decimal.NewFromString(l.Amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return price, amount, nil
}

func assetParams(a asset.Asset) (horizonclient.AssetType, string, string) {
	if a.IsNative() {
		return horizonclient.AssetTypeNative, "", ""
	}
	if len(a.Code) <= 4 {
		return horizonclient.AssetType4, a.Code, a.Issuer
	}
	return horizonclient.AssetType12, a.Code, a.Issuer
}

// LoadAccount returns the executing account's current sequencing state.
func (c *Client) LoadAccount(ctx context.Context, accountID string) (executor.SequenceState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return executor.SequenceState{}, err
	}
	account, err := c.hz.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
	if err != nil {
		return executor.SequenceState{}, fmt.Errorf("account %s: %w", accountID, err)
	}
	seq, err := account.GetSequenceNumber()
	if err != nil {
		return executor.SequenceState{}, fmt.Errorf("account %s sequence: %w", accountID, err)
	}
	return executor.SequenceState{AccountID: accountID, Sequence: seq}, nil
}

// BaseFee returns the network's last-ledger base fee, floored at the
// protocol minimum.
func (c *Client) BaseFee(ctx context.Context) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	stats, err := c.hz.FeeStats()
	if err != nil {
		return 0, fmt.Errorf("fee stats: %w", err)
	}
	if stats.LastLedgerBaseFee < minBaseFee {
		return minBaseFee, nil
	}
	return stats.LastLedgerBaseFee, nil
}

// Submit submits a signed envelope. A rejection with structured result codes
// is surfaced as *executor.RejectionError with the codes preserved verbatim.
func (c *Client) Submit(ctx context.Context, signedEnvelope string) (executor.SubmitResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return executor.SubmitResult{}, err
	}
	tx, err := c.hz.SubmitTransactionXDR(signedEnvelope)
	if err != nil {
		var hzErr *horizonclient.Error
		if errors.As(err, &hzErr) {
			if codes, cerr := hzErr.ResultCodes(); cerr == nil && codes != nil {
				return executor.SubmitResult{}, &executor.RejectionError{
					TransactionCode: codes.TransactionCode,
					OperationCodes:  codes.OperationCodes,
				}
			}
		}
		return executor.SubmitResult{}, fmt.Errorf("submit: %w", err)
	}
	return executor.SubmitResult{Hash: tx.Hash, Ledger: tx.Ledger}, nil
}
