// Package httpapi serves the read-only pipeline API: persisted backtest
// results and the alert journal.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/journal"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// Server exposes the results collection and alert journal over HTTP.
type Server struct {
	results *results.Store
	journal *journal.Journal
	log     *slog.Logger
}

// NewServer creates the API server over the given stores.
func NewServer(res *results.Store, jrnl *journal.Journal, log *slog.Logger) *Server {
	return &Server{
		results: res,
		journal: jrnl,
		log:     log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/results/{symbol}", s.handleResult)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseLimit extracts the alert count limit from the "limit" query param.
func parseLimit(r *http.Request) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultAlertLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultAlertLimit
	}
	if n > maxAlertLimit {
		return maxAlertLimit
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Symbols: s.results.Len()})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	snapshot := s.results.Snapshot()
	writeJSON(w, ResultsResponse{Count: len(snapshot), Results: snapshot})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	res, ok := s.results.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no result for %s", symbol))
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	alerts, err := s.journal.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.log.Error("querying alert journal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, AlertsResponse{Count: len(alerts), Alerts: alerts})
}
