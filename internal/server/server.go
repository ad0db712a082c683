package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pivothunt/internal/drift"
	"pivothunt/internal/hunt"
	"pivothunt/internal/metrics"
	"pivothunt/pkg/models"
)

// SearchStore is the saved-search persistence contract.
type SearchStore interface {
	SaveSearch(ctx context.Context, search *models.SavedSearch) error
	ListSearches(ctx context.Context) ([]models.SavedSearch, error)
	DeleteSearch(ctx context.Context, id string) error
}

// Config wires the server's collaborators.
type Config struct {
	Hunt     *hunt.Service
	Drift    *drift.Service
	Searches SearchStore
	Metrics  *metrics.Metrics
	NewID    func() string
}

// Server exposes the hunt and drift operations over HTTP.
type Server struct {
	router   *mux.Router
	hunts    *hunt.Service
	drift    *drift.Service
	searches SearchStore
	metrics  *metrics.Metrics
	newID    func() string
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		hunts:    cfg.Hunt,
		drift:    cfg.Drift,
		searches: cfg.Searches,
		metrics:  cfg.Metrics,
		newID:    cfg.NewID,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/hunt", s.handleHunt).Methods(http.MethodPost)
	api.HandleFunc("/hunt/related", s.handleRelated).Methods(http.MethodPost)
	api.HandleFunc("/drift/compare", s.handleDriftCompare).Methods(http.MethodPost)
	api.HandleFunc("/baselines", s.handleListBaselines).Methods(http.MethodGet)
	api.HandleFunc("/baselines", s.handleCreateBaseline).Methods(http.MethodPost)
	api.HandleFunc("/baselines/{id}", s.handleGetBaseline).Methods(http.MethodGet)
	api.HandleFunc("/baselines/{id}", s.handleDeleteBaseline).Methods(http.MethodDelete)
	api.HandleFunc("/baselines/{id}/compare", s.handleCompareBaseline).Methods(http.MethodPost)
	api.HandleFunc("/searches", s.handleListSearches).Methods(http.MethodGet)
	api.HandleFunc("/searches", s.handleSaveSearch).Methods(http.MethodPost)
	api.HandleFunc("/searches/{id}", s.handleDeleteSearch).Methods(http.MethodDelete)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
