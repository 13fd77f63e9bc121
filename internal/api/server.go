// Package api exposes the hierarchy store and the report archive over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sector_dashboard/internal/config"
	"sector_dashboard/internal/hierarchy"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/models"
	"sector_dashboard/internal/report"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     config.APIConfig
	store   *hierarchy.Store
	archive report.Archive
	quoter  market.Quoter // nil when quotes are not configured
}

// NewServer wires the routes. archive and quoter may be nil; their endpoints
// then answer 503.
func NewServer(cfg config.APIConfig, store *hierarchy.Store, archive report.Archive, quoter market.Quoter) *Server {
	s := &Server{cfg: cfg, store: store, archive: archive, quoter: quoter}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO: API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.CORSOrigins) > 0 {
		origins = s.cfg.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Hierarchy
		r.Get("/sectors", s.handleGetHierarchy)
		r.Post("/sectors", s.handleAddSector)
		r.Route("/sectors/{sector}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSector)
			r.Post("/industries", s.handleAddIndustry)
			r.Route("/industries/{industry}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteIndustry)
				r.Post("/subindustries", s.handleAddSubIndustry)
				r.Delete("/subindustries/{sub}", s.handleDeleteSubIndustry)
				r.Route("/stocks", s.stockRoutes)
				r.Route("/subindustries/{sub}/stocks", s.stockRoutes)
			})
		})
		r.Get("/stocks", s.handleListStocks)
		r.Get("/search", s.handleSearch)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/quotes/refresh", s.handleRefreshQuotes)

		// Reports
		r.Get("/reports", s.handleListReports)
		r.Post("/reports", s.handleSaveReport)
		r.Get("/reports/{key}", s.handleGetReport)
		r.Get("/reports/{key}/pdf", s.handleReportPDF)
	})

	return r
}

// stockRoutes serve both the direct list of an industry and the list of a
// sub-industry; the {sub} parameter is empty for the former.
func (s *Server) stockRoutes(r chi.Router) {
	r.Post("/", s.handleAddStock)
	r.Get("/{symbol}", s.handleGetStock)
	r.Delete("/{symbol}", s.handleDeleteStock)
	r.Put("/{symbol}/rating", s.handleRateStock)
	r.Put("/{symbol}/annotation", s.handleAnnotateStock)
}

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeStoreError maps an error kind to its status code.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateKey), errors.Is(err, models.ErrShapeConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrParse):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %v", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// param returns a decoded path parameter. chi matches on the raw path when
// the URL carries escapes such as %2F.
func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func listPath(r *http.Request) models.ListPath {
	return models.ListPath{
		Sector:      param(r, "sector"),
		Industry:    param(r, "industry"),
		SubIndustry: param(r, "sub"),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
}
