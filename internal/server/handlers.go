package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pivothunt/internal/drift"
	"pivothunt/internal/hunt"
	"pivothunt/internal/query"
	"pivothunt/internal/store"
	"pivothunt/pkg/models"
)

type huntRequest struct {
	models.IndicatorQuery
	Agents []string `json:"agents,omitempty"`
}

func (s *Server) handleHunt(w http.ResponseWriter, r *http.Request) {
	var req huntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Type == "" {
		req.Type = models.IndicatorFreetext
	}

	result, err := s.hunts.Hunt(r.Context(), req.IndicatorQuery, req.Agents)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type relatedRequest struct {
	Event         models.Event   `json:"event"`
	WindowMinutes int            `json:"windowMinutes"`
	Events        []models.Event `json:"events"`
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Event.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("focal event is missing an id"))
		return
	}
	writeJSON(w, http.StatusOK, hunt.RelatedEvents(req.Event, req.WindowMinutes, req.Events))
}

type driftCompareRequest struct {
	AgentIDs []string `json:"agentIds"`
	Category string   `json:"category"`
}

func (s *Server) handleDriftCompare(w http.ResponseWriter, r *http.Request) {
	var req driftCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryPackages
	}

	items, err := s.drift.Compare(r.Context(), req.AgentIDs, req.Category)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agentIds": req.AgentIDs,
		"category": req.Category,
		"items":    items,
	})
}

func (s *Server) handleListBaselines(w http.ResponseWriter, r *http.Request) {
	infos, err := s.drift.ListBaselines(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type createBaselineRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	AgentIDs    []string `json:"agentIds"`
}

func (s *Server) handleCreateBaseline(w http.ResponseWriter, r *http.Request) {
	var req createBaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	baseline, err := s.drift.CreateBaseline(r.Context(), req.Name, req.Description, req.AgentIDs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, baseline)
}

func (s *Server) handleGetBaseline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	baseline, err := s.drift.GetBaseline(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, baseline)
}

func (s *Server) handleDeleteBaseline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.drift.DeleteBaseline(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompareBaseline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cmp, err := s.drift.CompareBaseline(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	if s.searches == nil {
		writeError(w, http.StatusNotImplemented, errors.New("saved searches are not configured"))
		return
	}
	searches, err := s.searches.ListSearches(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, searches)
}

type saveSearchRequest struct {
	Name  string                `json:"name"`
	Query models.IndicatorQuery `json:"query"`
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	if s.searches == nil {
		writeError(w, http.StatusNotImplemented, errors.New("saved searches are not configured"))
		return
	}
	var req saveSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("search name is empty"))
		return
	}
	if err := query.Validate(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	search := &models.SavedSearch{
		ID:        s.newID(),
		Name:      req.Name,
		Query:     req.Query,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.searches.SaveSearch(r.Context(), search); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, search)
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	if s.searches == nil {
		writeError(w, http.StatusNotImplemented, errors.New("saved searches are not configured"))
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.searches.DeleteSearch(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps core errors to HTTP statuses: validation errors reject
// with 400 before any I/O, missing objects are 404, everything else is a
// server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrEmptyQuery),
		errors.Is(err, query.ErrQueryTooLong),
		errors.Is(err, query.ErrUnknownIndicator),
		errors.Is(err, query.ErrMaxResultsRange),
		errors.Is(err, hunt.ErrTooManyAgents),
		errors.Is(err, drift.ErrAgentRange),
		errors.Is(err, drift.ErrNoAgents):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
