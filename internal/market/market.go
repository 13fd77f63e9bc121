// Package market pulls a one-off price snapshot for the stocks in the
// hierarchy. There is no streaming; every refresh is an explicit request.
package market

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"sector_dashboard/internal/models"
)

// Quote is the display data a provider knows about one symbol.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
	// Change is the percent move against the previous close, nil when the
	// provider has no previous close.
	Change *decimal.Decimal
}

// Quoter is an Interface.
// Any struct that implements GetQuote can feed a refresh, which lets tests
// swap in a mock without touching the refresh logic.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Annotator is the part of the hierarchy store a refresh writes through.
type Annotator interface {
	FlattenStocks() iter.Seq[models.StockRef]
	Lookup(p models.ListPath, symbol string) (models.Stock, error)
	AnnotateStock(p models.ListPath, symbol string, a models.Annotation) error
}

// Summary reports what a refresh did.
type Summary struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (s Summary) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔄 Quotes refreshed: %d updated, %d failed", s.Updated, s.Failed))
	for _, e := range s.Errors {
		sb.WriteString("\n• " + e)
	}
	return sb.String()
}

// Refresh fetches a quote for every stock and stores price, change and name.
// A failing symbol is logged and skipped. A symbol listed in several places is
// fetched once.
func Refresh(ctx context.Context, store Annotator, q Quoter) (Summary, error) {
	var sum Summary
	cache := make(map[string]*Quote)
	failed := make(map[string]error)

	for ref := range store.FlattenStocks() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		quote, seen := cache[ref.Symbol]
		if err, bad := failed[ref.Symbol]; bad {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", ref.Symbol, err))
			continue
		}
		if !seen {
			var err error
			quote, err = q.GetQuote(ctx, ref.Symbol)
			if err != nil {
				log.Printf("Warning: quote for %s failed: %v", ref.Symbol, err)
				failed[ref.Symbol] = err
				sum.Failed++
				sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", ref.Symbol, err))
				continue
			}
			cache[ref.Symbol] = quote
		}

		current, err := store.Lookup(ref.Path(), ref.Symbol)
		if err != nil {
			// Removed since the snapshot was taken.
			continue
		}
		name := quote.Name
		if name == "" {
			name = current.Name
		}
		price := quote.Price
		a := models.Annotation{Name: name, Price: &price, Change: quote.Change}
		if err := store.AnnotateStock(ref.Path(), ref.Symbol, a); err != nil {
			return sum, fmt.Errorf("store quote for %s: %w", ref.Symbol, err)
		}
		sum.Updated++
	}
	return sum, nil
}

// PercentChange returns (price-prev)/prev*100 rounded to two places, or nil
// when prev is zero.
func PercentChange(price, prev decimal.Decimal) *decimal.Decimal {
	if prev.IsZero() {
		return nil
	}
	pct := price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}
