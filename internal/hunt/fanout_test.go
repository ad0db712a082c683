package hunt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pivothunt/internal/backend"
	"pivothunt/internal/query"
	"pivothunt/pkg/models"
)

type fakeSearch struct {
	fn func(index string, spec query.Spec) (*backend.SearchResult, error)
}

func (f *fakeSearch) Search(_ context.Context, index string, spec query.Spec) (*backend.SearchResult, error) {
	return f.fn(index, spec)
}

type fakeRecords struct {
	fn func(path string, params map[string]string) (*backend.RecordResult, error)
}

func (f *fakeRecords) Get(_ context.Context, path string, params map[string]string) (*backend.RecordResult, error) {
	return f.fn(path, params)
}

func TestHuntAggregatesAcrossSources(t *testing.T) {
	search := &fakeSearch{fn: func(index string, spec query.Spec) (*backend.SearchResult, error) {
		if strings.HasPrefix(index, "security-alerts") {
			return &backend.SearchResult{
				Hits: []models.Event{
					{ID: "a1", Timestamp: time.Now(), Agent: models.Agent{ID: "001"}},
					{ID: "a2", Timestamp: time.Now(), Agent: models.Agent{ID: "002"}},
				},
				Total: 30,
			}, nil
		}
		return &backend.SearchResult{}, nil
	}}
	records := &fakeRecords{fn: func(path string, params map[string]string) (*backend.RecordResult, error) {
		switch {
		case path == "/agents":
			return &backend.RecordResult{
				AffectedItems:      []map[string]interface{}{{"id": "001", "name": "web-01"}},
				TotalAffectedItems: 1,
			}, nil
		case path == "/vulnerability/001":
			return &backend.RecordResult{
				AffectedItems:      []map[string]interface{}{{"name": "openssl", "cve": "CVE-2026-0001"}},
				TotalAffectedItems: 2,
			}, nil
		case path == "/vulnerability/002":
			return nil, errors.New("agent unreachable")
		case path == "/manager/logs":
			return nil, errors.New("manager logs unavailable")
		default:
			return &backend.RecordResult{}, nil
		}
	}}

	svc := NewService(Config{Search: search, Records: records})
	got, err := svc.Hunt(context.Background(), models.IndicatorQuery{
		Text: "10.0.0.5",
		Type: models.IndicatorIP,
	}, []string{"001", "002"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.SourcesSearched != 8 {
		t.Fatalf("expected sourcesSearched 8, got %d", got.SourcesSearched)
	}
	if got.SourcesWithHits != 3 {
		t.Fatalf("expected 3 sources with hits, got %d: %+v", got.SourcesWithHits, got.Sources)
	}
	if got.TotalHits != 33 {
		t.Fatalf("expected totalHits 33, got %d", got.TotalHits)
	}

	// Deterministic ordering by sourceId.
	wantOrder := []string{"api-agents", "api-vulnerabilities", "indexer-alerts"}
	for i, want := range wantOrder {
		if got.Sources[i].SourceID != want {
			t.Fatalf("source %d: expected %s, got %s", i, want, got.Sources[i].SourceID)
		}
	}

	// totalHits must equal the sum of retained source counts.
	sum := 0
	for _, src := range got.Sources {
		sum += src.Count
	}
	if sum != got.TotalHits {
		t.Fatalf("totalHits %d != sum of source counts %d", got.TotalHits, sum)
	}
}

func TestHuntSurvivesAllSourceFailures(t *testing.T) {
	search := &fakeSearch{fn: func(string, query.Spec) (*backend.SearchResult, error) {
		return nil, errors.New("indexer down")
	}}
	records := &fakeRecords{fn: func(string, map[string]string) (*backend.RecordResult, error) {
		return nil, errors.New("manager down")
	}}

	svc := NewService(Config{Search: search, Records: records})
	got, err := svc.Hunt(context.Background(), models.IndicatorQuery{
		Text: "evil.exe",
		Type: models.IndicatorFilename,
	}, []string{"001", "002"})
	if err != nil {
		t.Fatalf("aggregate must not fail when all branches fail: %v", err)
	}
	if got.TotalHits != 0 || got.SourcesWithHits != 0 || len(got.Sources) != 0 {
		t.Fatalf("expected well-formed empty result, got %+v", got)
	}
	if got.SourcesSearched != 8 {
		t.Fatalf("sourcesSearched must stay 8, got %d", got.SourcesSearched)
	}
}

func TestHuntMissingBackendsDegradeToZeroHits(t *testing.T) {
	svc := NewService(Config{})
	got, err := svc.Hunt(context.Background(), models.IndicatorQuery{
		Text: "T1110",
		Type: models.IndicatorMitreID,
	}, nil)
	if err != nil {
		t.Fatalf("unconfigured backends must degrade, not fail: %v", err)
	}
	if got.TotalHits != 0 || got.SourcesWithHits != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestHuntRejectsValidationErrorsBeforeIO(t *testing.T) {
	called := false
	records := &fakeRecords{fn: func(string, map[string]string) (*backend.RecordResult, error) {
		called = true
		return &backend.RecordResult{}, nil
	}}

	svc := NewService(Config{Records: records})
	if _, err := svc.Hunt(context.Background(), models.IndicatorQuery{Text: "", Type: models.IndicatorIP}, nil); err == nil {
		t.Fatalf("expected validation error for empty text")
	}
	if called {
		t.Fatalf("backend must not be touched when validation fails")
	}
}

func TestHuntRejectsOversizedAgentList(t *testing.T) {
	svc := NewService(Config{})
	agents := make([]string, 11)
	for i := range agents {
		agents[i] = "0" + string(rune('0'+i))
	}
	_, err := svc.Hunt(context.Background(), models.IndicatorQuery{Text: "x", Type: models.IndicatorFreetext}, agents)
	if !errors.Is(err, ErrTooManyAgents) {
		t.Fatalf("expected ErrTooManyAgents, got %v", err)
	}
}
