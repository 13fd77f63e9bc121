// Package search ranks the stocks of a hierarchy against a free-text query.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"sector_dashboard/internal/models"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 20

// Hit is one ranked stock.
type Hit struct {
	Ref   models.StockRef `json:"ref"`
	Name  string          `json:"name,omitempty"`
	Score float64         `json:"score"`
}

// Index is an in-memory bleve index over one hierarchy snapshot. It does not
// follow later changes; build a new one instead.
type Index struct {
	index bleve.Index
	hits  map[string]Hit
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	stockMapping := bleve.NewDocumentMapping()

	// Symbols are matched whole, so they skip tokenization.
	symbolFieldMapping := bleve.NewTextFieldMapping()
	symbolFieldMapping.Analyzer = keyword.Name
	stockMapping.AddFieldMappingsAt("symbol", symbolFieldMapping)

	textFieldMapping := bleve.NewTextFieldMapping()
	stockMapping.AddFieldMappingsAt("name", textFieldMapping)
	stockMapping.AddFieldMappingsAt("sector", textFieldMapping)
	stockMapping.AddFieldMappingsAt("industry", textFieldMapping)

	indexMapping.DefaultMapping = stockMapping
	return indexMapping
}

// Build indexes every stock of h.
func Build(h *models.Hierarchy) (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	idx := &Index{index: index, hits: make(map[string]Hit)}
	batch := index.NewBatch()
	n := 0
	for ref := range h.Flatten() {
		st := models.Bare(ref.Symbol)
		if list := h.Stocks(ref.Path()); list != nil {
			if i := list.Index(ref.Symbol); i >= 0 {
				st = list[i]
			}
		}
		// Zero padding keeps ties in traversal order when sorted by id.
		id := fmt.Sprintf("%08d", n)
		n++
		doc := map[string]interface{}{
			"symbol":   strings.ToLower(ref.Symbol),
			"name":     st.Name,
			"sector":   ref.Sector,
			"industry": strings.TrimSpace(ref.Industry + " " + ref.SubIndustry),
		}
		if err := batch.Index(id, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("index %s: %w", ref.Symbol, err)
		}
		idx.hits[id] = Hit{Ref: ref, Name: st.Name}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return idx, nil
}

// Count returns the number of indexed stocks.
func (i *Index) Count() int {
	return len(i.hits)
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Search returns stocks ranked by exact symbol, symbol prefix, name and
// location matches, best first.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", models.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	lower := strings.ToLower(query)

	exactQuery := bleve.NewTermQuery(lower)
	exactQuery.SetField("symbol")
	exactQuery.SetBoost(10.0)

	prefixQuery := bleve.NewPrefixQuery(lower)
	prefixQuery.SetField("symbol")
	prefixQuery.SetBoost(5.0)

	nameMatchQuery := bleve.NewMatchQuery(query)
	nameMatchQuery.SetField("name")
	nameMatchQuery.SetBoost(3.0)

	wildcardSymbol := bleve.NewWildcardQuery("*" + lower + "*")
	wildcardSymbol.SetField("symbol")
	wildcardSymbol.SetBoost(2.0)

	wildcardName := bleve.NewWildcardQuery("*" + lower + "*")
	wildcardName.SetField("name")
	wildcardName.SetBoost(1.5)

	sectorQuery := bleve.NewMatchQuery(query)
	sectorQuery.SetField("sector")

	industryQuery := bleve.NewMatchQuery(query)
	industryQuery.SetField("industry")

	searchQuery := bleve.NewDisjunctionQuery(
		exactQuery,
		prefixQuery,
		nameMatchQuery,
		wildcardSymbol,
		wildcardName,
		sectorQuery,
		industryQuery,
	)

	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Size = limit
	searchRequest.SortBy([]string{"-_score", "_id"})

	results, err := i.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, match := range results.Hits {
		hit, ok := i.hits[match.ID]
		if !ok {
			return nil, errors.New("search returned an unknown document " + match.ID)
		}
		hit.Score = match.Score
		hits = append(hits, hit)
	}
	return hits, nil
}

// Hierarchy builds a throwaway index over h and runs one query against it.
func Hierarchy(h *models.Hierarchy, query string, limit int) ([]Hit, error) {
	idx, err := Build(h)
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	return idx.Search(query, limit)
}
