package models

import "github.com/shopspring/decimal"

// MaxRating is the highest star rating a stock can carry.
const MaxRating = 5

// Stock is one entry of a stock list.
//
// A stock with only a Symbol is "bare" and is persisted as a plain string.
// Any annotation turns it into a record. Rating 0 means "not rated"; it is
// never stored as a number.
type Stock struct {
	Symbol string
	Name   string
	Price  *decimal.Decimal // last known price
	Change *decimal.Decimal // percent change, e.g. -1.25 for -1.25%
	Rating int
}

// Annotation is the display metadata that can be attached to a stock.
// Nil or empty fields clear the corresponding value.
type Annotation struct {
	Name   string
	Price  *decimal.Decimal
	Change *decimal.Decimal
}

// Bare returns a stock entry carrying only its identifier.
func Bare(symbol string) Stock {
	return Stock{Symbol: symbol}
}

// IsBare reports whether the entry has no annotation at all.
func (s Stock) IsBare() bool {
	return s.Name == "" && s.Price == nil && s.Change == nil && s.Rating == 0
}

// Rated reports whether the stock carries a star rating.
func (s Stock) Rated() bool {
	return s.Rating > 0
}

// ValidRating reports whether r can be applied with RateStock. Zero is valid
// and removes the rating.
func ValidRating(r int) bool {
	return r >= 0 && r <= MaxRating
}

// Annotate replaces the display metadata, keeping symbol and rating.
func (s *Stock) Annotate(a Annotation) {
	s.Name = a.Name
	s.Price = copyDecimal(a.Price)
	s.Change = copyDecimal(a.Change)
}

// Copy returns the stock with its own price and change values.
func (s Stock) Copy() Stock {
	c := s
	c.Price = copyDecimal(s.Price)
	c.Change = copyDecimal(s.Change)
	return c
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// StockList is an ordered list of stocks, unique by symbol.
type StockList []Stock

// Index returns the position of symbol in the list, or -1.
func (l StockList) Index(symbol string) int {
	for i, s := range l {
		if s.Symbol == symbol {
			return i
		}
	}
	return -1
}

// Contains reports whether the list holds an entry with the given symbol,
// whatever its shape.
func (l StockList) Contains(symbol string) bool {
	return l.Index(symbol) >= 0
}

func (l StockList) clone() StockList {
	if l == nil {
		return nil
	}
	c := make(StockList, len(l))
	for i, s := range l {
		c[i] = s.Copy()
	}
	return c
}
