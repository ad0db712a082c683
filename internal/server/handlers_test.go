package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pivothunt/internal/drift"
	"pivothunt/internal/hunt"
	"pivothunt/internal/store"
	"pivothunt/pkg/models"
)

type memBaselines struct {
	byID map[string]*models.Baseline
}

func (m *memBaselines) SaveBaseline(_ context.Context, b *models.Baseline) error {
	m.byID[b.ID] = b
	return nil
}

func (m *memBaselines) GetBaseline(_ context.Context, id string) (*models.Baseline, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("baseline %s: %w", id, store.ErrNotFound)
	}
	return b, nil
}

func (m *memBaselines) ListBaselines(_ context.Context) ([]models.BaselineInfo, error) {
	infos := make([]models.BaselineInfo, 0, len(m.byID))
	for _, b := range m.byID {
		infos = append(infos, models.BaselineInfo{ID: b.ID, Name: b.Name, AgentIDs: b.AgentIDs, CreatedAt: b.CreatedAt})
	}
	return infos, nil
}

func (m *memBaselines) DeleteBaseline(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("baseline %s: %w", id, store.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

type memSearches struct {
	byID map[string]*models.SavedSearch
}

func (m *memSearches) SaveSearch(_ context.Context, search *models.SavedSearch) error {
	m.byID[search.ID] = search
	return nil
}

func (m *memSearches) ListSearches(_ context.Context) ([]models.SavedSearch, error) {
	out := make([]models.SavedSearch, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSearches) DeleteSearch(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("search %s: %w", id, store.ErrNotFound)
	}
	delete(m.byID, id)
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	driftSvc := drift.NewService(drift.NewFixtureSource(), &memBaselines{byID: map[string]*models.Baseline{}}, nil, newID)
	return New(Config{
		Hunt:     hunt.NewService(hunt.Config{}),
		Drift:    driftSvc,
		Searches: &memSearches{byID: map[string]*models.SavedSearch{}},
		NewID:    newID,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHuntEndpointReturnsWellFormedResultWithoutBackends(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/hunt", map[string]interface{}{
		"text": "10.0.0.5",
		"type": "ip",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.HuntResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.SourcesSearched != 8 {
		t.Fatalf("expected sourcesSearched 8, got %d", result.SourcesSearched)
	}
	if result.TotalHits != 0 || result.SourcesWithHits != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestHuntEndpointRejectsInvalidQuery(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/hunt", map[string]interface{}{
		"text": "",
		"type": "ip",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRelatedEndpointBucketsCandidates(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/hunt/related", map[string]interface{}{
		"event": map[string]interface{}{
			"id":        "f",
			"timestamp": "2026-03-10T12:00:00Z",
			"agent":     map[string]interface{}{"id": "001"},
			"rule":      map[string]interface{}{"id": "5710"},
		},
		"windowMinutes": 15,
		"events": []map[string]interface{}{
			{
				"id":        "c1",
				"timestamp": "2026-03-10T12:05:00Z",
				"agent":     map[string]interface{}{"id": "001"},
				"rule":      map[string]interface{}{"id": "9999"},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.RelatedEventsResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.SameAgent) != 1 || len(result.SameRule) != 0 {
		t.Fatalf("unexpected buckets: %+v", result)
	}
}

func TestDriftCompareEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/drift/compare", map[string]interface{}{
		"agentIds": []string{"001", "002"},
		"category": "services",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Items []models.DriftItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Items) == 0 {
		t.Fatalf("expected drift items from fixtures")
	}
	if result.Items[0].Name != "sshd" || result.Items[0].Status["002"] != models.StatusStateMismatch {
		t.Fatalf("expected sshd state mismatch first, got %+v", result.Items[0])
	}
}

func TestDriftCompareEndpointRejectsSingleAgent(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/drift/compare", map[string]interface{}{
		"agentIds": []string{"001"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBaselineLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/baselines", map[string]interface{}{
		"name":     "golden",
		"agentIds": []string{"001", "002"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var baseline models.Baseline
	if err := json.Unmarshal(rec.Body.Bytes(), &baseline); err != nil {
		t.Fatalf("decode baseline: %v", err)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/baselines/"+baseline.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching baseline, got %d", rec.Code)
	}
	var fetched models.Baseline
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched baseline: %v", err)
	}
	if fetched.ID != baseline.ID || len(fetched.SnapshotData) == 0 {
		t.Fatalf("fetched baseline missing snapshot payload: %+v", fetched)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/baselines/"+baseline.ID+"/compare", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cmp drift.BaselineComparison
	if err := json.Unmarshal(rec.Body.Bytes(), &cmp); err != nil {
		t.Fatalf("decode comparison: %v", err)
	}
	if len(cmp.Items) != 0 {
		t.Fatalf("expected empty comparison right after capture, got %+v", cmp.Items)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/baselines/"+baseline.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/baselines/"+baseline.ID+"/compare", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSavedSearchLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/searches", map[string]interface{}{
		"name": "brute force pivots",
		"query": map[string]interface{}{
			"text": "T1110",
			"type": "mitre_id",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved models.SavedSearch
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode saved search: %v", err)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/searches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []models.SavedSearch
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/searches/"+saved.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
