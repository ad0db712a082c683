package hunt

import (
	"testing"
	"time"

	"pivothunt/pkg/models"
)

func event(id, agentID, ruleID string, techniques []string, ts time.Time) models.Event {
	return models.Event{
		ID:        id,
		Timestamp: ts,
		Agent:     models.Agent{ID: agentID},
		Rule: models.Rule{
			ID:    ruleID,
			Mitre: models.Mitre{ID: techniques},
		},
	}
}

func TestRelatedEventsExcludesMatchesOutsideWindow(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	focal := event("f", "001", "5710", nil, base)
	pool := []models.Event{
		event("in", "002", "5710", nil, base.Add(4*time.Minute)),
		event("out", "002", "5710", nil, base.Add(6*time.Minute)),
	}

	got := RelatedEvents(focal, 5, pool)
	if len(got.SameRule) != 1 {
		t.Fatalf("expected 1 sameRule event, got %d", len(got.SameRule))
	}
	if got.SameRule[0].ID != "in" {
		t.Fatalf("expected event 'in', got %s", got.SameRule[0].ID)
	}
}

func TestRelatedEventsExcludesFocalByID(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	focal := event("f", "001", "5710", []string{"T1110"}, base)
	pool := []models.Event{focal}

	got := RelatedEvents(focal, 15, pool)
	if len(got.SameAgent)+len(got.SameRule)+len(got.SameMitre) != 0 {
		t.Fatalf("focal event must not correlate with itself: %+v", got)
	}
}

func TestRelatedEventsBucketsAreNotMutuallyExclusive(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	focal := event("f", "001", "5710", []string{"T1110"}, base)
	pool := []models.Event{
		event("all", "001", "5710", []string{"T1110"}, base.Add(time.Minute)),
	}

	got := RelatedEvents(focal, 15, pool)
	if len(got.SameAgent) != 1 || len(got.SameRule) != 1 || len(got.SameMitre) != 1 {
		t.Fatalf("expected event in all three buckets, got agent=%d rule=%d mitre=%d",
			len(got.SameAgent), len(got.SameRule), len(got.SameMitre))
	}
}

func TestRelatedEventsMitreRequiresFocalTechniques(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	focal := event("f", "001", "5710", nil, base)
	pool := []models.Event{
		event("c", "002", "9999", []string{"T1110"}, base.Add(time.Minute)),
	}

	got := RelatedEvents(focal, 15, pool)
	if len(got.SameMitre) != 0 {
		t.Fatalf("sameMitre must be empty when focal has no techniques, got %d", len(got.SameMitre))
	}

	focal = event("f", "001", "5710", []string{"T1110", "T1059"}, base)
	got = RelatedEvents(focal, 15, pool)
	if len(got.SameMitre) != 1 {
		t.Fatalf("expected technique intersection match, got %d", len(got.SameMitre))
	}
}

func TestRelatedEventsWindowBoundariesAreInclusive(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	focal := event("f", "001", "5710", nil, base)
	pool := []models.Event{
		event("lower", "001", "1", nil, base.Add(-5*time.Minute)),
		event("upper", "001", "1", nil, base.Add(5*time.Minute)),
	}

	got := RelatedEvents(focal, 5, pool)
	if len(got.SameAgent) != 2 {
		t.Fatalf("expected both boundary events in sameAgent, got %d", len(got.SameAgent))
	}
}
