package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// The persisted document is a plain JSON object:
//
//	{"Sector": {"Industry": {"Sub-Industry": ["INFY", {"symbol": "TCS", "rating": 4}]}}}
//	{"Sector": {"Industry": ["HDFCBANK"]}}
//
// Go maps lose key order, so the tree is encoded and decoded by hand.

// stockRecord is the annotated stock shape as read from disk.
type stockRecord struct {
	Symbol string           `json:"symbol"`
	Name   string           `json:"name,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Change *decimal.Decimal `json:"change,omitempty"`
	Rating int              `json:"rating,omitempty"`
}

// stockOut writes prices as JSON numbers rather than decimal's quoted form.
type stockOut struct {
	Symbol string      `json:"symbol"`
	Name   string      `json:"name,omitempty"`
	Price  json.Number `json:"price,omitempty"`
	Change json.Number `json:"change,omitempty"`
	Rating int         `json:"rating,omitempty"`
}

// MarshalJSON encodes the stock as a string when bare, otherwise as a record.
func (s Stock) MarshalJSON() ([]byte, error) {
	if s.IsBare() {
		return json.Marshal(s.Symbol)
	}
	out := stockOut{Symbol: s.Symbol, Name: s.Name, Rating: s.Rating}
	if s.Price != nil {
		out.Price = json.Number(s.Price.String())
	}
	if s.Change != nil {
		out.Change = json.Number(s.Change.String())
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both the bare and the record shape.
func (s *Stock) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty stock entry")
	}
	switch data[0] {
	case '"':
		var symbol string
		if err := json.Unmarshal(data, &symbol); err != nil {
			return err
		}
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			return fmt.Errorf("stock entry has an empty identifier")
		}
		*s = Bare(symbol)
		return nil
	case '{':
		var rec stockRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Symbol, rec.Name = strings.TrimSpace(rec.Symbol), strings.TrimSpace(rec.Name)
		if rec.Symbol == "" {
			return fmt.Errorf("stock record without symbol: %s", data)
		}
		if !ValidRating(rec.Rating) {
			return fmt.Errorf("stock %q has rating %d outside 0-%d", rec.Symbol, rec.Rating, MaxRating)
		}
		*s = Stock{Symbol: rec.Symbol, Name: rec.Name, Price: rec.Price, Change: rec.Change, Rating: rec.Rating}
		return nil
	}
	return fmt.Errorf("stock entry must be a string or an object, got %s", data)
}

// MarshalJSON writes the tree as nested objects, keeping sibling order.
func (h *Hierarchy) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range h.Sectors {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, ind := range s.Industries {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, ind.Name); err != nil {
				return nil, err
			}
			if err := writeNode(&buf, ind.Node); err != nil {
				return nil, fmt.Errorf("%s/%s: %w", s.Name, ind.Name, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func writeNode(buf *bytes.Buffer, n SubNode) error {
	switch n := n.(type) {
	case *Grouping:
		buf.WriteByte('{')
		for i, sub := range n.SubIndustries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(buf, sub.Name); err != nil {
				return err
			}
			if err := writeStocks(buf, sub.Stocks); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case *Leaf:
		return writeStocks(buf, n.Stocks)
	}
	return fmt.Errorf("unknown sub-node %T", n)
}

func writeStocks(buf *bytes.Buffer, stocks StockList) error {
	buf.WriteByte('[')
	for i, s := range stocks {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := s.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return nil
}

// UnmarshalJSON reads the document, rejecting duplicate sibling names and
// values of the wrong shape.
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	parsed := NewHierarchy()

	err := decodeObject(dec, func(sectorName string) error {
		if parsed.Sector(sectorName) != nil {
			return fmt.Errorf("duplicate sector %q", sectorName)
		}
		sector := &Sector{Name: sectorName}
		parsed.Sectors = append(parsed.Sectors, sector)

		return decodeObject(dec, func(industryName string) error {
			if sector.Industry(industryName) != nil {
				return fmt.Errorf("duplicate industry %q in sector %q", industryName, sectorName)
			}
			node, err := decodeNode(dec)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", sectorName, industryName, err)
			}
			sector.Industries = append(sector.Industries, &Industry{Name: industryName, Node: node})
			return nil
		})
	})
	if err != nil {
		return err
	}

	*h = *parsed
	return nil
}

func decodeObject(dec *json.Decoder, member func(key string) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	return decodeMembers(dec, member)
}

// decodeMembers reads key/value pairs up to and including the closing brace.
func decodeMembers(dec *json.Decoder, member func(key string) error) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		// Names are stored trimmed so the store's trimmed lookups reach them.
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("empty name")
		}
		if err := member(key); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func decodeNode(dec *json.Decoder) (SubNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		g := &Grouping{}
		err := decodeMembers(dec, func(subName string) error {
			if g.SubIndustry(subName) != nil {
				return fmt.Errorf("duplicate sub-industry %q", subName)
			}
			if err := expectDelim(dec, '['); err != nil {
				return fmt.Errorf("sub-industry %q: %w", subName, err)
			}
			stocks, err := decodeStocks(dec)
			if err != nil {
				return fmt.Errorf("sub-industry %q: %w", subName, err)
			}
			g.SubIndustries = append(g.SubIndustries, &SubIndustry{Name: subName, Stocks: stocks})
			return nil
		})
		return g, err
	case json.Delim('['):
		stocks, err := decodeStocks(dec)
		return &Leaf{Stocks: stocks}, err
	}
	return nil, fmt.Errorf("industry must hold an object or a list, got %v", tok)
}

// decodeStocks reads list elements after the opening bracket.
func decodeStocks(dec *json.Decoder) (StockList, error) {
	stocks := StockList{}
	for dec.More() {
		var s Stock
		if err := dec.Decode(&s); err != nil {
			return nil, err
		}
		if stocks.Contains(s.Symbol) {
			return nil, fmt.Errorf("duplicate stock %q", s.Symbol)
		}
		stocks = append(stocks, s)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return stocks, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
