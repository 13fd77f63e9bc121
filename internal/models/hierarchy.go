package models

import "iter"

// Hierarchy is the curated sector tree. Every level keeps its children in
// insertion order, which is also the display order.
type Hierarchy struct {
	Sectors []*Sector
}

// Sector is the outermost grouping level.
type Sector struct {
	Name       string
	Industries []*Industry
}

// Industry holds either named sub-industries or a stock list directly.
type Industry struct {
	Name string
	Node SubNode
}

// SubNode is the content of an industry: *Grouping or *Leaf.
type SubNode interface {
	// Empty reports whether the node holds no sub-industries or stocks.
	Empty() bool
	isSubNode()
}

// Grouping is a sub-node made of named sub-industries.
type Grouping struct {
	SubIndustries []*SubIndustry
}

// Leaf is a sub-node holding stocks with no sub-industry level.
type Leaf struct {
	Stocks StockList
}

// SubIndustry is the innermost grouping level.
type SubIndustry struct {
	Name   string
	Stocks StockList
}

func (*Grouping) isSubNode() {}
func (*Leaf) isSubNode()     {}

func (g *Grouping) Empty() bool { return len(g.SubIndustries) == 0 }
func (l *Leaf) Empty() bool     { return len(l.Stocks) == 0 }

// ListPath addresses a stock list. An empty SubIndustry means the stocks
// held directly by the industry.
type ListPath struct {
	Sector      string
	Industry    string
	SubIndustry string
}

// Direct reports whether the path addresses an industry's own stock list.
func (p ListPath) Direct() bool {
	return p.SubIndustry == ""
}

// StockRef locates one stock in the hierarchy.
type StockRef struct {
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	SubIndustry string `json:"sub_industry,omitempty"`
	Symbol      string `json:"symbol"`
}

// Path returns the list the stock lives in.
func (r StockRef) Path() ListPath {
	return ListPath{Sector: r.Sector, Industry: r.Industry, SubIndustry: r.SubIndustry}
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{}
}

// Sector returns the named sector or nil.
func (h *Hierarchy) Sector(name string) *Sector {
	for _, s := range h.Sectors {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SectorNames lists sector names in display order.
func (h *Hierarchy) SectorNames() []string {
	names := make([]string, 0, len(h.Sectors))
	for _, s := range h.Sectors {
		names = append(names, s.Name)
	}
	return names
}

// Industry returns the named industry or nil.
func (s *Sector) Industry(name string) *Industry {
	for _, ind := range s.Industries {
		if ind.Name == name {
			return ind
		}
	}
	return nil
}

// SubIndustry returns the named sub-industry or nil.
func (g *Grouping) SubIndustry(name string) *SubIndustry {
	for _, sub := range g.SubIndustries {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// StockCount returns the number of stocks held under the industry.
func (ind *Industry) StockCount() int {
	switch n := ind.Node.(type) {
	case *Grouping:
		total := 0
		for _, sub := range n.SubIndustries {
			total += len(sub.Stocks)
		}
		return total
	case *Leaf:
		return len(n.Stocks)
	}
	return 0
}

// Clone returns a deep copy.
func (h *Hierarchy) Clone() *Hierarchy {
	c := &Hierarchy{Sectors: make([]*Sector, 0, len(h.Sectors))}
	for _, s := range h.Sectors {
		cs := &Sector{Name: s.Name, Industries: make([]*Industry, 0, len(s.Industries))}
		for _, ind := range s.Industries {
			cs.Industries = append(cs.Industries, &Industry{Name: ind.Name, Node: cloneNode(ind.Node)})
		}
		c.Sectors = append(c.Sectors, cs)
	}
	return c
}

func cloneNode(n SubNode) SubNode {
	switch n := n.(type) {
	case *Grouping:
		g := &Grouping{SubIndustries: make([]*SubIndustry, 0, len(n.SubIndustries))}
		for _, sub := range n.SubIndustries {
			g.SubIndustries = append(g.SubIndustries, &SubIndustry{Name: sub.Name, Stocks: sub.Stocks.clone()})
		}
		return g
	case *Leaf:
		return &Leaf{Stocks: n.Stocks.clone()}
	}
	return &Grouping{}
}

// Flatten enumerates every stock in traversal order: sectors, then
// industries, then sub-industries, then list order. The sequence is lazy and
// can be ranged over any number of times.
func (h *Hierarchy) Flatten() iter.Seq[StockRef] {
	return func(yield func(StockRef) bool) {
		for _, s := range h.Sectors {
			for _, ind := range s.Industries {
				switch n := ind.Node.(type) {
				case *Grouping:
					for _, sub := range n.SubIndustries {
						for _, st := range sub.Stocks {
							if !yield(StockRef{Sector: s.Name, Industry: ind.Name, SubIndustry: sub.Name, Symbol: st.Symbol}) {
								return
							}
						}
					}
				case *Leaf:
					for _, st := range n.Stocks {
						if !yield(StockRef{Sector: s.Name, Industry: ind.Name, Symbol: st.Symbol}) {
							return
						}
					}
				}
			}
		}
	}
}

// Stocks returns the stock list a path points at, or nil when any segment is
// missing or the industry has the other shape.
func (h *Hierarchy) Stocks(p ListPath) StockList {
	s := h.Sector(p.Sector)
	if s == nil {
		return nil
	}
	ind := s.Industry(p.Industry)
	if ind == nil {
		return nil
	}
	switch n := ind.Node.(type) {
	case *Grouping:
		if p.Direct() {
			return nil
		}
		if sub := n.SubIndustry(p.SubIndustry); sub != nil {
			return sub.Stocks
		}
	case *Leaf:
		if p.Direct() {
			return n.Stocks
		}
	}
	return nil
}
