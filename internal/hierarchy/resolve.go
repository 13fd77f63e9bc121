package hierarchy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sector_dashboard/internal/models"
)

func requireName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is empty", models.ErrInvalidArgument, kind)
	}
	// Invalid bytes would be rewritten as U+FFFD on save and could collide.
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: %s name %q is not valid UTF-8", models.ErrInvalidArgument, kind, name)
	}
	return name, nil
}

func cleanPath(p models.ListPath) models.ListPath {
	return models.ListPath{
		Sector:      strings.TrimSpace(p.Sector),
		Industry:    strings.TrimSpace(p.Industry),
		SubIndustry: strings.TrimSpace(p.SubIndustry),
	}
}

func describe(p models.ListPath) string {
	if p.Direct() {
		return p.Sector + "/" + p.Industry
	}
	return p.Sector + "/" + p.Industry + "/" + p.SubIndustry
}

func stockNotFound(p models.ListPath, symbol string) error {
	return fmt.Errorf("%w: stock %q in %s", models.ErrNotFound, symbol, describe(p))
}

func findSector(h *models.Hierarchy, name string) (*models.Sector, error) {
	sec := h.Sector(name)
	if sec == nil {
		return nil, fmt.Errorf("%w: sector %q", models.ErrNotFound, name)
	}
	return sec, nil
}

func findIndustry(h *models.Hierarchy, sector, industry string) (*models.Industry, error) {
	sec, err := findSector(h, sector)
	if err != nil {
		return nil, err
	}
	ind := sec.Industry(industry)
	if ind == nil {
		return nil, fmt.Errorf("%w: industry %q in %q", models.ErrNotFound, industry, sector)
	}
	return ind, nil
}

// findList resolves an existing stock list without changing the tree.
func findList(h *models.Hierarchy, p models.ListPath) (*models.StockList, error) {
	ind, err := findIndustry(h, p.Sector, p.Industry)
	if err != nil {
		return nil, err
	}
	switch n := ind.Node.(type) {
	case *models.Grouping:
		if p.Direct() {
			return nil, fmt.Errorf("%w: %s has no direct stock list", models.ErrNotFound, describe(p))
		}
		sub := n.SubIndustry(p.SubIndustry)
		if sub == nil {
			return nil, fmt.Errorf("%w: sub-industry %q in %s/%s", models.ErrNotFound, p.SubIndustry, p.Sector, p.Industry)
		}
		return &sub.Stocks, nil
	case *models.Leaf:
		if !p.Direct() {
			return nil, fmt.Errorf("%w: sub-industry %q in %s/%s", models.ErrNotFound, p.SubIndustry, p.Sector, p.Industry)
		}
		return &n.Stocks, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrNotFound, describe(p))
}

// insertList resolves the list a new stock goes into. A direct insert into
// an empty grouping converts it to a leaf; into a non-empty one it conflicts.
// A sub-industry insert into a leaf holding stocks conflicts too.
func insertList(h *models.Hierarchy, p models.ListPath) (*models.StockList, error) {
	ind, err := findIndustry(h, p.Sector, p.Industry)
	if err != nil {
		return nil, err
	}
	if !p.Direct() {
		if leaf, ok := ind.Node.(*models.Leaf); ok && !leaf.Empty() {
			return nil, fmt.Errorf("%w: %s/%s holds stocks directly", models.ErrShapeConflict, p.Sector, p.Industry)
		}
		return findList(h, p)
	}
	switch n := ind.Node.(type) {
	case *models.Grouping:
		if !n.Empty() {
			return nil, fmt.Errorf("%w: %s/%s is divided into sub-industries", models.ErrShapeConflict, p.Sector, p.Industry)
		}
		leaf := &models.Leaf{Stocks: models.StockList{}}
		ind.Node = leaf
		return &leaf.Stocks, nil
	case *models.Leaf:
		return &n.Stocks, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrNotFound, describe(p))
}
