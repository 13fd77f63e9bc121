package search

import (
	"encoding/json"
	"errors"
	"testing"

	"sector_dashboard/internal/models"
)

const doc = `{
    "IT": {
        "Software": {
            "Cloud": ["INFY", {"symbol": "TCS", "name": "Tata Consultancy Services"}],
            "Products": ["TATAELXSI"]
        }
    },
    "Banking": {
        "Private Banks": ["HDFCBANK", {"symbol": "ICICIBANK", "name": "ICICI Bank"}]
    }
}`

func build(t *testing.T) *Index {
	t.Helper()
	h := models.NewHierarchy()
	if err := json.Unmarshal([]byte(doc), h); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	idx, err := Build(h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func symbols(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Ref.Symbol)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSearchRanking(t *testing.T) {
	idx := build(t)
	if idx.Count() != 5 {
		t.Fatalf("Count: got %d, want 5", idx.Count())
	}

	tests := []struct {
		query    string
		first    string
		includes []string
	}{
		{"tcs", "TCS", nil},
		{"INFY", "INFY", nil},
		{"tata", "", []string{"TCS", "TATAELXSI"}},
		{"hdfc", "HDFCBANK", nil},
		{"consultancy", "TCS", nil},
		{"cloud", "", []string{"INFY", "TCS"}},
		{"banking", "", []string{"HDFCBANK", "ICICIBANK"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := idx.Search(tt.query, 0)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			got := symbols(hits)
			if len(got) == 0 {
				t.Fatalf("no hits for %q", tt.query)
			}
			if tt.first != "" && got[0] != tt.first {
				t.Errorf("first hit: got %s, want %s (all: %v)", got[0], tt.first, got)
			}
			for _, want := range tt.includes {
				if !contains(got, want) {
					t.Errorf("missing %s in %v", want, got)
				}
			}
		})
	}
}

func TestSearchKeepsLocation(t *testing.T) {
	idx := build(t)
	hits, err := idx.Search("icicibank", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	want := models.StockRef{Sector: "Banking", Industry: "Private Banks", Symbol: "ICICIBANK"}
	if hits[0].Ref != want || hits[0].Name != "ICICI Bank" {
		t.Errorf("got %+v", hits[0])
	}
}

func TestSearchNoMatchAndEmptyQuery(t *testing.T) {
	idx := build(t)
	hits, err := idx.Search("zzzz", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", symbols(hits))
	}

	if _, err := idx.Search("  ", 5); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("empty query: got %v", err)
	}
}

func TestSearchEmptyHierarchy(t *testing.T) {
	hits, err := Hierarchy(models.NewHierarchy(), "infy", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}
