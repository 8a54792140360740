package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombar/visibility"
	"github.com/zombar/visibility/db"
	"github.com/zombar/visibility/models"
	"github.com/zombar/visibility/storage"
)

// Server represents the API server
type Server struct {
	db          *db.DB
	engine      *visibility.Engine
	archive     storage.Store
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr        string
	CORSEnabled bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CORSEnabled: true,
	}
}

// NewServer creates a new API server. The database and archive are optional:
// without a database, analysis endpoints still work and report retrieval
// responds 503; without an archive, report documents are not written out.
func NewServer(config Config, engine *visibility.Engine, database *db.DB, archive storage.Store) *Server {
	s := &Server{
		db:          database,
		engine:      engine,
		archive:     archive,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	// Register routes
	s.registerRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // analysis runs are bounded by the AI call timeout
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/coverage", s.handleCoverage)
	s.mux.HandleFunc("/api/score", s.handleScore)
	s.mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("/api/reports", s.handleListReports)
	s.mux.HandleFunc("/api/reports/", s.handleReport) // Handles /api/reports/{siteID} and /api/reports/{siteID}/entities
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database handle, or nil when running without one
func (s *Server) DB() *db.DB {
	return s.db
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks to reduce noise)
		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := metricsRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		if r.URL.Path != "/health" {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, elapsed)
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count := 0
	if s.db != nil {
		var err error
		count, err = s.db.Count()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to get count")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"count":         count,
		"ai_configured": s.engine.AIConfigured(),
		"time":          time.Now(),
	})
}

// handleAnalyze runs a full analysis: entity coverage, visibility scores,
// and optionally prompt suggestions
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.SiteID == "" {
		respondError(w, http.StatusBadRequest, "site_id is required")
		return
	}

	// Replay the stored result unless a re-run is forced
	if s.db != nil && !req.Force {
		existing, err := s.db.GetReportBySiteID(req.SiteID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database error")
			return
		}
		if existing != nil {
			scores, err := s.db.GetScoreSetBySiteID(req.SiteID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "database error")
				return
			}
			respondJSON(w, http.StatusOK, &models.AnalysisResult{
				URL:    existing.URL,
				SiteID: req.SiteID,
				Report: existing,
				Scores: scores,
				Cached: true,
			})
			return
		}
	}

	signal := signalFromFields(req.HTML, req.Text, req.Title, req.Description, req.Keywords, req.HasStructuredData)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result := s.engine.Analyze(ctx, req.URL, req.SiteID, signal, req.IncludeSuggestions)
	recordAnalysis(result.Scores.AnalysisMethod)

	// Persist and archive; failures are logged, never fatal to the request
	s.persistResult(result)

	respondJSON(w, http.StatusOK, result)
}

// handleCoverage runs entity coverage analysis alone
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.SiteID == "" {
		respondError(w, http.StatusBadRequest, "site_id is required")
		return
	}

	signal := signalFromFields(req.HTML, req.Text, req.Title, req.Description, req.Keywords, req.HasStructuredData)

	report := s.engine.AnalyzeCoverage(req.URL, req.SiteID, signal)
	respondJSON(w, http.StatusOK, report)
}

// handleScore runs visibility scoring alone
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	signal := signalFromFields(req.HTML, req.Text, req.Title, req.Description, req.Keywords, req.HasStructuredData)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	scores := s.engine.ScoreVisibility(ctx, req.URL, signal)
	recordAnalysis(scores.AnalysisMethod)

	response := models.ScoreResponse{
		URL:    req.URL,
		Scores: *scores,
	}

	respondJSON(w, http.StatusOK, response)
}

// SuggestionsResponse wraps a suggestion set with the URL it was generated for
type SuggestionsResponse struct {
	URL         string                `json:"url"`
	Suggestions *models.SuggestionSet `json:"suggestions"`
}

// handleSuggestions generates prompt suggestions alone
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	signal := signalFromFields(req.HTML, req.Text, req.Title, req.Description, req.Keywords, req.HasStructuredData)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	suggestions := s.engine.GenerateSuggestions(ctx, req.URL, signal)

	response := SuggestionsResponse{
		URL:         req.URL,
		Suggestions: suggestions,
	}

	respondJSON(w, http.StatusOK, response)
}

// handleListReports lists stored coverage reports with pagination
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	// Parse pagination parameters
	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		fmt.Sscanf(offsetStr, "%d", &offset)
	}

	// Enforce reasonable limits
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	reports, err := s.db.List(limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	count, _ := s.db.Count()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   count,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleReport handles GET/DELETE on a site's report and GET on its entity
// results
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	// Extract site ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if path == "" {
		respondError(w, http.StatusBadRequest, "site id is required")
		return
	}

	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	// Check if this is an entity results request
	if strings.HasSuffix(path, "/entities") {
		siteID := strings.TrimSuffix(path, "/entities")
		if r.Method == http.MethodGet {
			s.handleReportEntities(w, r, siteID)
		} else {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetReport(w, r, path)
	case http.MethodDelete:
		s.handleDeleteReport(w, r, path)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleGetReport retrieves the stored report for a site
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request, siteID string) {
	report, err := s.db.GetReportBySiteID(siteID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if report == nil {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleDeleteReport removes the stored report, entity results, and scores
// for a site
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request, siteID string) {
	err := s.db.DeleteBySiteID(siteID)
	if err != nil {
		if strings.Contains(err.Error(), "no report found") {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "report deleted successfully",
	})
}

// EntityResultsResponse represents the entity results for a site
type EntityResultsResponse struct {
	SiteID   string                `json:"site_id"`
	Entities []models.EntityResult `json:"entities"`
	Count    int                   `json:"count"`
}

// handleReportEntities retrieves the stored entity results for a site
func (s *Server) handleReportEntities(w http.ResponseWriter, r *http.Request, siteID string) {
	entities, err := s.db.GetEntityResultsBySiteID(siteID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	response := EntityResultsResponse{
		SiteID:   siteID,
		Entities: entities,
		Count:    len(entities),
	}

	respondJSON(w, http.StatusOK, response)
}

// signalFromFields builds the analysis signal: derived from raw HTML when
// supplied, otherwise from the explicitly passed fields.
func signalFromFields(rawHTML, text, title, description string, keywords []string, hasStructuredData bool) models.PageSignal {
	if rawHTML != "" {
		return visibility.SignalFromHTML(rawHTML, 0)
	}
	return models.PageSignal{
		Text:              text,
		Title:             title,
		Description:       description,
		Keywords:          keywords,
		HasStructuredData: hasStructuredData,
	}
}

// persistResult stores and archives an analysis outcome. Failures are logged
// and never fail the request.
func (s *Server) persistResult(result *models.AnalysisResult) {
	if s.db != nil {
		if err := s.db.SaveReport(result.Report); err != nil {
			log.Printf("Failed to save report: %v", err)
		}
		if err := s.db.SaveScoreSet(result.SiteID, result.URL, result.Scores); err != nil {
			log.Printf("Failed to save scores: %v", err)
		}
	}

	if s.archive != nil && result.Report != nil && result.Report.Slug != "" {
		doc, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Printf("Failed to marshal report document: %v", err)
			return
		}
		if _, err := s.archive.SaveReport(doc, result.Report.Slug); err != nil {
			log.Printf("Failed to archive report: %v", err)
		}
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
