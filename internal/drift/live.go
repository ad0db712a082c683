package drift

import (
	"context"

	"pivothunt/internal/backend"
	"pivothunt/internal/logger"
	"pivothunt/pkg/models"
)

// LiveSource collects snapshots from the record backend at call time.
type LiveSource struct {
	collector *Collector
	records   backend.RecordBackend
}

// NewLiveSource creates a live snapshot source.
func NewLiveSource(records backend.RecordBackend) *LiveSource {
	return &LiveSource{
		collector: NewCollector(records),
		records:   records,
	}
}

// Snapshot collects one category live.
func (s *LiveSource) Snapshot(ctx context.Context, agentIDs []string, category string) (models.AgentSnapshot, error) {
	return s.collector.Collect(ctx, agentIDs, category)
}

// SnapshotAll collects every category live.
func (s *LiveSource) SnapshotAll(ctx context.Context, agentIDs []string) (models.SnapshotData, error) {
	return s.collector.CollectAll(ctx, agentIDs)
}

// AgentNames resolves display names for the given agents. Failure yields
// an empty map; names are cosmetic.
func (s *LiveSource) AgentNames(ctx context.Context, agentIDs []string) map[string]string {
	names := make(map[string]string, len(agentIDs))
	res, err := s.records.Get(ctx, "/agents", map[string]string{"limit": "1000"})
	if err != nil {
		logger.Warnf("Agent name lookup failed: %v", err)
		return names
	}
	wanted := make(map[string]struct{}, len(agentIDs))
	for _, agentID := range agentIDs {
		wanted[agentID] = struct{}{}
	}
	for _, rec := range res.AffectedItems {
		id, _ := rec["id"].(string)
		if _, ok := wanted[id]; !ok {
			continue
		}
		if name, ok := rec["name"].(string); ok && name != "" {
			names[id] = name
		}
	}
	return names
}
