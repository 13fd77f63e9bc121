package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"sector_dashboard/internal/config"
	"sector_dashboard/internal/hierarchy"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/models"
	"sector_dashboard/internal/report"
	"sector_dashboard/internal/storage"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type fixedQuoter map[string]market.Quote

func (f fixedQuoter) GetQuote(_ context.Context, symbol string) (*market.Quote, error) {
	if q, ok := f[symbol]; ok {
		return &q, nil
	}
	return nil, fmt.Errorf("no quote for %s", symbol)
}

func testServer(t *testing.T, quoter market.Quoter) (*Server, *hierarchy.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := hierarchy.Open(storage.NewDocument(filepath.Join(dir, "sectors.json")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	archive, err := report.NewFSArchive(filepath.Join(dir, "saved_reports"))
	if err != nil {
		t.Fatalf("NewFSArchive failed: %v", err)
	}
	cfg := config.APIConfig{Host: "127.0.0.1", Port: 8080, CORSOrigins: []string{"http://localhost:3000"}}
	return NewServer(cfg, store, archive, quoter), store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func seed(t *testing.T, s *Server) {
	t.Helper()
	steps := []struct{ path, body string }{
		{"/api/v1/sectors", `{"name":"Technology"}`},
		{"/api/v1/sectors/Technology/industries", `{"name":"IT Services"}`},
		{"/api/v1/sectors/Technology/industries/IT%20Services/stocks", `{"symbol":"TCS"}`},
		{"/api/v1/sectors/Technology/industries", `{"name":"Software"}`},
		{"/api/v1/sectors/Technology/industries/Software/subindustries", `{"name":"Cloud"}`},
		{"/api/v1/sectors/Technology/industries/Software/subindustries/Cloud/stocks", `{"symbol":"INFY"}`},
	}
	for _, st := range steps {
		if rec := do(t, s, http.MethodPost, st.path, st.body); rec.Code != http.StatusCreated {
			t.Fatalf("POST %s: status %d: %s", st.path, rec.Code, rec.Body.String())
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Hierarchy endpoints
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestHierarchyEndpoints(t *testing.T) {
	s, store := testServer(t, nil)
	seed(t, s)

	rec := do(t, s, http.MethodGet, "/api/v1/sectors", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	var got models.Hierarchy
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("hierarchy did not decode: %v", err)
	}
	want := store.Snapshot()
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(resp.Data), `"IT Services":["TCS"]`) {
		t.Errorf("leaf industry should serialize as a list: %s", resp.Data)
	}
}

func TestErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"duplicate sector", "POST", "/api/v1/sectors", `{"name":"Technology"}`, http.StatusConflict},
		{"blank sector", "POST", "/api/v1/sectors", `{"name":"  "}`, http.StatusBadRequest},
		{"bad body", "POST", "/api/v1/sectors", `{"name":`, http.StatusBadRequest},
		{"missing sector", "POST", "/api/v1/sectors/Energy/industries", `{"name":"Oil"}`, http.StatusNotFound},
		{"shape conflict", "POST", "/api/v1/sectors/Technology/industries/IT%20Services/subindustries", `{"name":"Consulting"}`, http.StatusConflict},
		{"direct into grouping", "POST", "/api/v1/sectors/Technology/industries/Software/stocks", `{"symbol":"MSFT"}`, http.StatusConflict},
		{"duplicate stock", "POST", "/api/v1/sectors/Technology/industries/IT%20Services/stocks", `{"symbol":"TCS"}`, http.StatusConflict},
		{"rating out of range", "PUT", "/api/v1/sectors/Technology/industries/IT%20Services/stocks/TCS/rating", `{"rating":6}`, http.StatusBadRequest},
		{"rate missing stock", "PUT", "/api/v1/sectors/Technology/industries/IT%20Services/stocks/WIPRO/rating", `{"rating":3}`, http.StatusNotFound},
		{"delete missing industry", "DELETE", "/api/v1/sectors/Technology/industries/Banking", "", http.StatusNotFound},
		{"get missing stock", "GET", "/api/v1/sectors/Technology/industries/Software/subindustries/Cloud/stocks/TCS", "", http.StatusNotFound},
		{"empty search", "GET", "/api/v1/search?q=", "", http.StatusBadRequest},
		{"bad limit", "GET", "/api/v1/search?q=tcs&limit=x", "", http.StatusBadRequest},
		{"quotes unconfigured", "POST", "/api/v1/quotes/refresh", "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testServer(t, nil)
			seed(t, s)
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
				t.Errorf("expected an error envelope, got %+v", resp)
			}
		})
	}
}

func TestStockRatingAndAnnotation(t *testing.T) {
	s, store := testServer(t, nil)
	seed(t, s)
	base := "/api/v1/sectors/Technology/industries/Software/subindustries/Cloud/stocks/INFY"

	if rec := do(t, s, http.MethodPut, base+"/rating", `{"rating":4}`); rec.Code != http.StatusOK {
		t.Fatalf("rate: status %d: %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodPut, base+"/annotation", `{"name":"Infosys","price":"1520.35","change":-0.4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("annotate: status %d: %s", rec.Code, rec.Body.String())
	}

	st, err := store.Lookup(models.ListPath{Sector: "Technology", Industry: "Software", SubIndustry: "Cloud"}, "INFY")
	if err != nil {
		t.Fatal(err)
	}
	if st.Rating != 4 || st.Name != "Infosys" || !st.Price.Equal(decimal.RequireFromString("1520.35")) || !st.Change.Equal(decimal.RequireFromString("-0.4")) {
		t.Errorf("unexpected stock %+v", st)
	}

	if rec := do(t, s, http.MethodPut, base+"/rating", `{"rating":0}`); rec.Code != http.StatusOK {
		t.Fatalf("clear rating: status %d", rec.Code)
	}
	if st, _ := store.Lookup(models.ListPath{Sector: "Technology", Industry: "Software", SubIndustry: "Cloud"}, "INFY"); st.Rated() {
		t.Error("rating 0 should clear the rating")
	}
}

func TestDeleteEndpoints(t *testing.T) {
	s, store := testServer(t, nil)
	seed(t, s)

	paths := []string{
		"/api/v1/sectors/Technology/industries/IT%20Services/stocks/TCS",
		"/api/v1/sectors/Technology/industries/Software/subindustries/Cloud",
		"/api/v1/sectors/Technology/industries/Software",
		"/api/v1/sectors/Technology",
	}
	for _, p := range paths {
		if rec := do(t, s, http.MethodDelete, p, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("DELETE %s: status %d: %s", p, rec.Code, rec.Body.String())
		}
	}
	if n := len(store.Snapshot().Sectors); n != 0 {
		t.Errorf("expected empty hierarchy, got %d sectors", n)
	}
}

func TestEscapedPathSegments(t *testing.T) {
	s, store := testServer(t, nil)
	if rec := do(t, s, http.MethodPost, "/api/v1/sectors", `{"name":"Oil/Gas"}`); rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/sectors/Oil%2FGas/industries", `{"name":"Refining"}`); rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if store.Snapshot().Sector("Oil/Gas").Industry("Refining") == nil {
		t.Error("industry not added under the escaped sector name")
	}
}

func TestListStocksAndSearch(t *testing.T) {
	s, _ := testServer(t, nil)
	seed(t, s)

	rec := do(t, s, http.MethodGet, "/api/v1/stocks", "")
	var stocks struct {
		Data []StockEntry `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stocks); err != nil {
		t.Fatal(err)
	}
	var symbols []string
	for _, e := range stocks.Data {
		symbols = append(symbols, e.Symbol)
	}
	if diff := cmp.Diff([]string{"TCS", "INFY"}, symbols); diff != "" {
		t.Errorf("stocks mismatch (-want +got):\n%s", diff)
	}
	if stocks.Data[1].SubIndustry != "Cloud" || stocks.Data[0].SubIndustry != "" {
		t.Errorf("unexpected locations %+v", stocks.Data)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/search?q=infy", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"symbol":"INFY"`) {
		t.Errorf("search: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/api/v1/search?q=zzz", "")
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("no-match search should return an empty list: %s", rec.Body.String())
	}
}

func TestDashboardAndRefresh(t *testing.T) {
	q := fixedQuoter{"TCS": {Symbol: "TCS", Name: "Tata Consultancy", Price: decimal.RequireFromString("3890.5")}}
	s, _ := testServer(t, q)
	seed(t, s)

	rec := do(t, s, http.MethodPost, "/api/v1/quotes/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d", rec.Code)
	}
	var sum struct {
		Data market.Summary `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Data.Updated != 1 || sum.Data.Failed != 1 {
		t.Errorf("summary = %+v", sum.Data)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/dashboard", "")
	if !strings.Contains(rec.Body.String(), "TCS - Tata Consultancy ₹3890.5") {
		t.Errorf("dashboard = %s", rec.Body.String())
	}
}

// ════════════════════════════════════════════════════════════════════
// Report endpoints
// ════════════════════════════════════════════════════════════════════

func TestReportEndpoints(t *testing.T) {
	s, _ := testServer(t, nil)

	body := `{"company_name":"Infosys","ticker":"INFY","recommendation":"hold","conclusion":"Steady"}`
	if rec := do(t, s, http.MethodPost, "/api/v1/reports", body); rec.Code != http.StatusBadRequest {
		t.Errorf("save without date: status %d", rec.Code)
	}

	body = `{"report_date":"2024-05-01","company_name":"Infosys","ticker":"INFY","recommendation":"hold","conclusion":"Steady"}`
	rec := do(t, s, http.MethodPost, "/api/v1/reports", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save: status %d: %s", rec.Code, rec.Body.String())
	}
	key := "Infosys_2024-05-01.json"
	if !strings.Contains(rec.Body.String(), key) {
		t.Errorf("save reply = %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/v1/reports", "")
	if !strings.Contains(rec.Body.String(), key) {
		t.Errorf("list = %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/v1/reports/"+key, "")
	var got struct {
		Data report.Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Data.Recommendation != report.Hold || got.Data.Conclusion != "Steady" {
		t.Errorf("loaded report = %+v", got.Data)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/reports/"+key+"/pdf", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("pdf body is not a PDF")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Infosys_2024-05-01_Equity_Research.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/reports/Nobody_2024-01-01.json", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing report: status %d", rec.Code)
	}
}

func TestSaveReportToday(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/v1/reports?today=true", `{"company_name":"Wipro"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Wipro_") {
		t.Errorf("reply = %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := testServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sectors", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
