package alpaca

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"sector_dashboard/internal/market"
)

// Provider implements market.Quoter for Alpaca.
type Provider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
	historyDays int
}

// Ensure Provider implements the interface
var _ market.Quoter = (*Provider)(nil)

// NewProvider returns a new Alpaca provider. The clients read their keys from
// APCA_API_KEY_ID and APCA_API_SECRET_KEY. historyDays bounds how far back the
// previous daily close is looked up.
func NewProvider(historyDays int) *Provider {
	if historyDays < 2 {
		historyDays = 7
	}
	return &Provider{
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
		historyDays: historyDays,
	}
}

// GetQuote combines the latest trade, the previous daily close and the asset
// name into one snapshot.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (*market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trade, err := p.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("no trade found for %s", symbol)
	}
	q := &market.Quote{Symbol: symbol, Price: decimal.NewFromFloat(trade.Price)}

	if prev, err := p.previousClose(symbol, trade.Timestamp); err != nil {
		log.Printf("Warning: no previous close for %s: %v", symbol, err)
	} else {
		q.Change = market.PercentChange(q.Price, prev)
	}

	// The name is cosmetic; a failed lookup keeps whatever name is stored.
	if asset, err := p.tradeClient.GetAsset(symbol); err == nil && asset != nil {
		q.Name = asset.Name
	}
	return q, nil
}

// previousClose returns the close of the last full daily bar before the
// trading day of at.
func (p *Provider) previousClose(symbol string, at time.Time) (decimal.Decimal, error) {
	start := at.AddDate(0, 0, -p.historyDays)
	bars, err := p.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
	})
	if err != nil {
		return decimal.Zero, err
	}

	day := at.UTC().Truncate(24 * time.Hour)
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Timestamp.UTC().Before(day) {
			return decimal.NewFromFloat(bars[i].Close), nil
		}
	}
	return decimal.Zero, fmt.Errorf("no daily bar before %s", day.Format("2006-01-02"))
}
