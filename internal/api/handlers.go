package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sector_dashboard/internal/dashboard"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/models"
	"sector_dashboard/internal/report"
	"sector_dashboard/internal/search"
)

// NameRequest is the body of every add endpoint above the stock level.
type NameRequest struct {
	Name string `json:"name"`
}

// StockRequest is the body for POST .../stocks.
type StockRequest struct {
	Symbol string `json:"symbol"`
}

// RatingRequest is the body for PUT .../stocks/{symbol}/rating.
type RatingRequest struct {
	Rating int `json:"rating"`
}

// AnnotationRequest is the body for PUT .../stocks/{symbol}/annotation.
// Omitted fields are cleared.
type AnnotationRequest struct {
	Name   string           `json:"name"`
	Price  *decimal.Decimal `json:"price"`
	Change *decimal.Decimal `json:"change"`
}

// StockEntry is one row of GET /stocks.
type StockEntry struct {
	models.StockRef
	Name   string           `json:"name,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Change *decimal.Decimal `json:"change,omitempty"`
	Rating int              `json:"rating,omitempty"`
}

func (s *Server) handleGetHierarchy(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleAddSector(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.AddSector(req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, req)
}

func (s *Server) handleDeleteSector(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSector(param(r, "sector")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddIndustry(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.AddIndustry(param(r, "sector"), req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, req)
}

func (s *Server) handleDeleteIndustry(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIndustry(param(r, "sector"), param(r, "industry")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddSubIndustry(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.AddSubIndustry(param(r, "sector"), param(r, "industry"), req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, req)
}

func (s *Server) handleDeleteSubIndustry(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubIndustry(param(r, "sector"), param(r, "industry"), param(r, "sub")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.AddStock(listPath(r), req.Symbol); err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, req)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Lookup(listPath(r), param(r, "symbol"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStock(listPath(r), param(r, "symbol")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRateStock(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.RateStock(listPath(r), param(r, "symbol"), req.Rating); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeStock(w, r)
}

func (s *Server) handleAnnotateStock(w http.ResponseWriter, r *http.Request) {
	var req AnnotationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a := models.Annotation{Name: req.Name, Price: req.Price, Change: req.Change}
	if err := s.store.AnnotateStock(listPath(r), param(r, "symbol"), a); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeStock(w, r)
}

func (s *Server) writeStock(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Lookup(listPath(r), param(r, "symbol"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

func (s *Server) handleListStocks(w http.ResponseWriter, _ *http.Request) {
	h := s.store.Snapshot()
	entries := []StockEntry{}
	for ref := range h.Flatten() {
		e := StockEntry{StockRef: ref}
		list := h.Stocks(ref.Path())
		if i := list.Index(ref.Symbol); i >= 0 {
			st := list[i]
			e.Name, e.Price, e.Change, e.Rating = st.Name, st.Price, st.Change, st.Rating
		}
		entries = append(entries, e)
	}
	writeOK(w, http.StatusOK, entries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hits, err := search.Hierarchy(s.store.Snapshot(), q, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeOK(w, http.StatusOK, hits)
}

// handleDashboard renders the hierarchy as the chat would show it.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, dashboard.RenderMarkdown(s.store.Snapshot()))
}

func (s *Server) handleRefreshQuotes(w http.ResponseWriter, r *http.Request) {
	if s.quoter == nil {
		writeError(w, http.StatusServiceUnavailable, "quotes are not configured")
		return
	}
	sum, err := market.Refresh(r.Context(), s.store, s.quoter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusOK, sum)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if !s.requireArchive(w) {
		return
	}
	keys, err := s.archive.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeOK(w, http.StatusOK, keys)
}

// handleSaveReport stores a report. ?today=true fills a missing date.
func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireArchive(w) {
		return
	}
	rep := report.New()
	if !decodeBody(w, r, rep) {
		return
	}
	if rep.Date == "" && r.URL.Query().Get("today") == "true" {
		rep.Today(time.Now())
	}
	key, err := s.archive.Save(r.Context(), rep)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireArchive(w) {
		return
	}
	rep, err := s.archive.Load(r.Context(), param(r, "key"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeOK(w, http.StatusOK, rep)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if !s.requireArchive(w) {
		return
	}
	rep, err := s.archive.Load(r.Context(), param(r, "key"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, rep, report.A4); err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.PDFName()))
	w.Write(buf.Bytes())
}

func (s *Server) requireArchive(w http.ResponseWriter) bool {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "report archive is not configured")
		return false
	}
	return true
}
