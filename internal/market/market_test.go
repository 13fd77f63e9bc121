package market

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"sector_dashboard/internal/hierarchy"
	"sector_dashboard/internal/models"
)

// MockQuoter implements Quoter for testing
type MockQuoter struct {
	quotes map[string]Quote
	calls  map[string]int
}

func (m *MockQuoter) GetQuote(_ context.Context, symbol string) (*Quote, error) {
	m.calls[symbol]++
	if q, ok := m.quotes[symbol]; ok {
		return &q, nil
	}
	return nil, fmt.Errorf("no trade found for %s", symbol)
}

type nopPersister struct{}

func (nopPersister) Load() (*models.Hierarchy, error) { return models.NewHierarchy(), nil }
func (nopPersister) Save(*models.Hierarchy) error     { return nil }

func newStore(t *testing.T) *hierarchy.Store {
	t.Helper()
	s, err := hierarchy.Open(nopPersister{})
	if err != nil {
		t.Fatal(err)
	}
	steps := []error{
		s.AddSector("IT"),
		s.AddIndustry("IT", "Services"),
		s.AddStock(models.ListPath{Sector: "IT", Industry: "Services"}, "INFY"),
		s.AddStock(models.ListPath{Sector: "IT", Industry: "Services"}, "DELISTED"),
		s.AddSector("Index"),
		s.AddIndustry("Index", "Heavyweights"),
		s.AddStock(models.ListPath{Sector: "Index", Industry: "Heavyweights"}, "INFY"),
		s.RateStock(models.ListPath{Sector: "IT", Industry: "Services"}, "INFY", 4),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestRefresh(t *testing.T) {
	store := newStore(t)
	change := decimal.RequireFromString("1.5")
	q := &MockQuoter{
		quotes: map[string]Quote{
			"INFY": {Symbol: "INFY", Name: "Infosys", Price: decimal.RequireFromString("1520.40"), Change: &change},
		},
		calls: map[string]int{},
	}

	sum, err := Refresh(context.Background(), store, q)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if sum.Updated != 2 || sum.Failed != 1 {
		t.Errorf("summary: %+v", sum)
	}
	if q.calls["INFY"] != 1 {
		t.Errorf("INFY fetched %d times, want 1", q.calls["INFY"])
	}

	st, err := store.Lookup(models.ListPath{Sector: "IT", Industry: "Services"}, "INFY")
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "Infosys" || !st.Price.Equal(decimal.RequireFromString("1520.4")) || !st.Change.Equal(change) {
		t.Errorf("unexpected stock: %+v", st)
	}
	if st.Rating != 4 {
		t.Errorf("refresh dropped the rating: %d", st.Rating)
	}

	bare, _ := store.Lookup(models.ListPath{Sector: "IT", Industry: "Services"}, "DELISTED")
	if !bare.IsBare() {
		t.Errorf("failed symbol was modified: %+v", bare)
	}
}

func TestRefreshStopsOnCancel(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Refresh(ctx, store, &MockQuoter{calls: map[string]int{}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		price, prev string
		want        string
	}{
		{"110", "100", "10"},
		{"99", "100", "-1"},
		{"100.5", "100", "0.5"},
		{"1", "3", "-66.67"},
	}
	for _, tt := range tests {
		got := PercentChange(decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.prev))
		if got == nil || !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("PercentChange(%s, %s) = %v, want %s", tt.price, tt.prev, got, tt.want)
		}
	}
	if PercentChange(decimal.NewFromInt(1), decimal.Zero) != nil {
		t.Error("zero previous close should give nil")
	}
}
