package drift

import (
	"context"

	"pivothunt/pkg/models"
)

// SnapshotSource supplies normalized inventories to the drift engines. The
// strategy is selected once per operation, so the engines stay pure
// functions over one canonical snapshot shape and never branch on data
// provenance.
type SnapshotSource interface {
	Snapshot(ctx context.Context, agentIDs []string, category string) (models.AgentSnapshot, error)
	SnapshotAll(ctx context.Context, agentIDs []string) (models.SnapshotData, error)
	AgentNames(ctx context.Context, agentIDs []string) map[string]string
}

// FixtureSource serves a static snapshot, for demo and offline operation.
type FixtureSource struct {
	Data  models.SnapshotData
	Names map[string]string
}

// NewFixtureSource creates a source over embedded sample inventories.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{
		Data: models.SnapshotData{
			models.CategoryPackages: {
				"001": {
					{Name: "curl", Attribute: "8.5.0"},
					{Name: "nginx", Attribute: "1.18.0"},
					{Name: "openssh-server", Attribute: "9.6"},
				},
				"002": {
					{Name: "curl", Attribute: "8.5.0"},
					{Name: "nginx", Attribute: "1.20.1"},
				},
			},
			models.CategoryServices: {
				"001": {
					{Name: "cron", Attribute: "running"},
					{Name: "sshd", Attribute: "running"},
				},
				"002": {
					{Name: "cron", Attribute: "running"},
					{Name: "sshd", Attribute: "stopped"},
				},
			},
			models.CategoryUsers: {
				"001": {
					{Name: "root", Attribute: "/bin/bash"},
					{Name: "deploy", Attribute: "/bin/bash"},
				},
				"002": {
					{Name: "root", Attribute: "/bin/sh"},
				},
			},
		},
		Names: map[string]string{
			"001": "web-01",
			"002": "web-02",
		},
	}
}

// Snapshot returns the fixture inventory for one category.
func (s *FixtureSource) Snapshot(_ context.Context, agentIDs []string, category string) (models.AgentSnapshot, error) {
	snapshot := make(models.AgentSnapshot, len(agentIDs))
	for _, agentID := range agentIDs {
		items := s.Data[category][agentID]
		if items == nil {
			items = []models.InventoryItem{}
		}
		snapshot[agentID] = items
	}
	return snapshot, nil
}

// SnapshotAll returns the fixture inventory for every category.
func (s *FixtureSource) SnapshotAll(ctx context.Context, agentIDs []string) (models.SnapshotData, error) {
	data := make(models.SnapshotData, len(categories))
	for _, category := range categories {
		snapshot, err := s.Snapshot(ctx, agentIDs, category)
		if err != nil {
			return nil, err
		}
		data[category] = snapshot
	}
	return data, nil
}

// AgentNames returns the fixture agent names.
func (s *FixtureSource) AgentNames(_ context.Context, agentIDs []string) map[string]string {
	names := make(map[string]string, len(agentIDs))
	for _, agentID := range agentIDs {
		if name, ok := s.Names[agentID]; ok {
			names[agentID] = name
		}
	}
	return names
}
