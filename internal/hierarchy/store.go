// Package hierarchy owns the sector tree and the rules for changing it.
//
// Every mutation is applied to a copy of the tree, written through the
// Persister, and only then made visible. A failed write leaves the in-memory
// tree exactly as it was on disk.
package hierarchy

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"sector_dashboard/internal/models"
)

// Persister loads and saves the whole hierarchy document.
type Persister interface {
	Load() (*models.Hierarchy, error)
	Save(h *models.Hierarchy) error
}

// Store is the single entry point for reading and editing the hierarchy.
type Store struct {
	mu      sync.RWMutex
	tree    *models.Hierarchy
	persist Persister
}

// Open loads the hierarchy through p.
func Open(p Persister) (*Store, error) {
	h, err := p.Load()
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = models.NewHierarchy()
	}
	return &Store{tree: h, persist: p}, nil
}

// mutate runs fn on a copy of the tree and commits the copy once saved.
func (s *Store) mutate(fn func(h *models.Hierarchy) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.tree.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.persist.Save(next); err != nil {
		return err
	}
	s.tree = next
	return nil
}

// Snapshot returns a deep copy of the current tree for rendering.
func (s *Store) Snapshot() *models.Hierarchy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Clone()
}

// FlattenStocks enumerates every stock as (sector, industry, sub-industry,
// symbol) in display order. It reads a snapshot taken when called.
func (s *Store) FlattenStocks() iter.Seq[models.StockRef] {
	return s.Snapshot().Flatten()
}

// Lookup returns the stock with the given symbol in the addressed list.
func (s *Store) Lookup(p models.ListPath, symbol string) (models.Stock, error) {
	p, symbol = cleanPath(p), strings.TrimSpace(symbol)

	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := findList(s.tree, p)
	if err != nil {
		return models.Stock{}, err
	}
	i := list.Index(symbol)
	if i < 0 {
		return models.Stock{}, stockNotFound(p, symbol)
	}
	return (*list)[i].Copy(), nil
}

// AddSector inserts an empty sector.
func (s *Store) AddSector(name string) error {
	name, err := requireName("sector", name)
	if err != nil {
		return err
	}
	return s.mutate(func(h *models.Hierarchy) error {
		if h.Sector(name) != nil {
			return fmt.Errorf("%w: sector %q already exists", models.ErrDuplicateKey, name)
		}
		h.Sectors = append(h.Sectors, &models.Sector{Name: name})
		return nil
	})
}

// AddIndustry inserts an empty industry under sector. New industries start
// as an empty grouping and take their final shape on first insert.
func (s *Store) AddIndustry(sector, name string) error {
	sector = strings.TrimSpace(sector)
	name, err := requireName("industry", name)
	if err != nil {
		return err
	}
	return s.mutate(func(h *models.Hierarchy) error {
		sec, err := findSector(h, sector)
		if err != nil {
			return err
		}
		if sec.Industry(name) != nil {
			return fmt.Errorf("%w: industry %q already exists in %q", models.ErrDuplicateKey, name, sector)
		}
		sec.Industries = append(sec.Industries, &models.Industry{Name: name, Node: &models.Grouping{}})
		return nil
	})
}

// AddSubIndustry inserts an empty stock list under a grouping industry. An
// industry that is an empty leaf is converted to a grouping first.
func (s *Store) AddSubIndustry(sector, industry, name string) error {
	sector, industry = strings.TrimSpace(sector), strings.TrimSpace(industry)
	name, err := requireName("sub-industry", name)
	if err != nil {
		return err
	}
	return s.mutate(func(h *models.Hierarchy) error {
		ind, err := findIndustry(h, sector, industry)
		if err != nil {
			return err
		}
		var g *models.Grouping
		switch n := ind.Node.(type) {
		case *models.Grouping:
			g = n
		case *models.Leaf:
			if !n.Empty() {
				return fmt.Errorf("%w: %s/%s already holds stocks directly", models.ErrShapeConflict, sector, industry)
			}
			g = &models.Grouping{}
			ind.Node = g
		}
		if g.SubIndustry(name) != nil {
			return fmt.Errorf("%w: sub-industry %q already exists in %s/%s", models.ErrDuplicateKey, name, sector, industry)
		}
		g.SubIndustries = append(g.SubIndustries, &models.SubIndustry{Name: name, Stocks: models.StockList{}})
		return nil
	})
}

// AddStock appends a bare entry to the addressed list. A direct insert into
// an industry that is still an empty grouping turns it into a leaf.
func (s *Store) AddStock(p models.ListPath, symbol string) error {
	p = cleanPath(p)
	symbol, err := requireName("stock", symbol)
	if err != nil {
		return err
	}
	return s.mutate(func(h *models.Hierarchy) error {
		list, err := insertList(h, p)
		if err != nil {
			return err
		}
		if list.Contains(symbol) {
			return fmt.Errorf("%w: stock %q already listed in %s", models.ErrDuplicateKey, symbol, describe(p))
		}
		*list = append(*list, models.Bare(symbol))
		return nil
	})
}

// RateStock sets the star rating of a stock. Rating 0 removes it.
func (s *Store) RateStock(p models.ListPath, symbol string, rating int) error {
	if !models.ValidRating(rating) {
		return fmt.Errorf("%w: rating %d outside 0-%d", models.ErrInvalidArgument, rating, models.MaxRating)
	}
	return s.updateStock(p, symbol, func(st *models.Stock) {
		st.Rating = rating
	})
}

// AnnotateStock replaces the display name, price and change of a stock.
func (s *Store) AnnotateStock(p models.ListPath, symbol string, a models.Annotation) error {
	a.Name = strings.TrimSpace(a.Name)
	if !utf8.ValidString(a.Name) {
		return fmt.Errorf("%w: stock name %q is not valid UTF-8", models.ErrInvalidArgument, a.Name)
	}
	return s.updateStock(p, symbol, func(st *models.Stock) {
		st.Annotate(a)
	})
}

func (s *Store) updateStock(p models.ListPath, symbol string, fn func(st *models.Stock)) error {
	p, symbol = cleanPath(p), strings.TrimSpace(symbol)
	return s.mutate(func(h *models.Hierarchy) error {
		list, err := findList(h, p)
		if err != nil {
			return err
		}
		i := list.Index(symbol)
		if i < 0 {
			return stockNotFound(p, symbol)
		}
		fn(&(*list)[i])
		return nil
	})
}

// DeleteSector removes a sector and everything beneath it.
func (s *Store) DeleteSector(name string) error {
	name = strings.TrimSpace(name)
	return s.mutate(func(h *models.Hierarchy) error {
		i := slices.IndexFunc(h.Sectors, func(sec *models.Sector) bool { return sec.Name == name })
		if i < 0 {
			return fmt.Errorf("%w: sector %q", models.ErrNotFound, name)
		}
		h.Sectors = slices.Delete(h.Sectors, i, i+1)
		return nil
	})
}

// DeleteIndustry removes an industry and everything beneath it.
func (s *Store) DeleteIndustry(sector, name string) error {
	sector, name = strings.TrimSpace(sector), strings.TrimSpace(name)
	return s.mutate(func(h *models.Hierarchy) error {
		sec, err := findSector(h, sector)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(sec.Industries, func(ind *models.Industry) bool { return ind.Name == name })
		if i < 0 {
			return fmt.Errorf("%w: industry %q in %q", models.ErrNotFound, name, sector)
		}
		sec.Industries = slices.Delete(sec.Industries, i, i+1)
		return nil
	})
}

// DeleteSubIndustry removes a sub-industry and its stocks. The industry keeps
// its grouping shape even when it becomes empty.
func (s *Store) DeleteSubIndustry(sector, industry, name string) error {
	sector, industry, name = strings.TrimSpace(sector), strings.TrimSpace(industry), strings.TrimSpace(name)
	return s.mutate(func(h *models.Hierarchy) error {
		ind, err := findIndustry(h, sector, industry)
		if err != nil {
			return err
		}
		g, ok := ind.Node.(*models.Grouping)
		if !ok {
			return fmt.Errorf("%w: %s/%s has no sub-industries", models.ErrNotFound, sector, industry)
		}
		i := slices.IndexFunc(g.SubIndustries, func(sub *models.SubIndustry) bool { return sub.Name == name })
		if i < 0 {
			return fmt.Errorf("%w: sub-industry %q in %s/%s", models.ErrNotFound, name, sector, industry)
		}
		g.SubIndustries = slices.Delete(g.SubIndustries, i, i+1)
		return nil
	})
}

// DeleteStock removes one stock from the addressed list.
func (s *Store) DeleteStock(p models.ListPath, symbol string) error {
	p, symbol = cleanPath(p), strings.TrimSpace(symbol)
	return s.mutate(func(h *models.Hierarchy) error {
		list, err := findList(h, p)
		if err != nil {
			return err
		}
		i := list.Index(symbol)
		if i < 0 {
			return stockNotFound(p, symbol)
		}
		*list = slices.Delete(*list, i, i+1)
		return nil
	})
}
