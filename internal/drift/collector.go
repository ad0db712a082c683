package drift

import (
	"context"
	"fmt"
	"sync"

	"pivothunt/internal/backend"
	"pivothunt/internal/logger"
	"pivothunt/pkg/models"
)

// inventoryPageSize bounds one syscollector listing.
const inventoryPageSize = 1000

type categorySpec struct {
	path      func(agentID string) string
	nameField []string
	attrField []string
}

var categorySpecs = map[string]categorySpec{
	models.CategoryPackages: {
		path:      func(id string) string { return "/syscollector/" + id + "/packages" },
		nameField: []string{"name"},
		attrField: []string{"version"},
	},
	models.CategoryServices: {
		path:      func(id string) string { return "/syscollector/" + id + "/processes" },
		nameField: []string{"name"},
		attrField: []string{"state"},
	},
	models.CategoryUsers: {
		path:      func(id string) string { return "/syscollector/" + id + "/users" },
		nameField: []string{"user_name", "name"},
		attrField: []string{"shell", "user_shell"},
	},
}

// Collector normalizes raw per-agent inventory payloads into canonical
// {name, attribute} lists.
type Collector struct {
	records backend.RecordBackend
}

// NewCollector creates a snapshot collector over a record backend.
func NewCollector(records backend.RecordBackend) *Collector {
	return &Collector{records: records}
}

// Collect fetches and normalizes one category for the given agents,
// concurrently. A failing agent contributes an empty list, never an error.
func (c *Collector) Collect(ctx context.Context, agentIDs []string, category string) (models.AgentSnapshot, error) {
	spec, ok := categorySpecs[category]
	if !ok {
		return nil, fmt.Errorf("unknown inventory category %q", category)
	}

	snapshot := make(models.AgentSnapshot, len(agentIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, agentID := range agentIDs {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			items := c.collectAgent(ctx, agentID, spec)
			mu.Lock()
			snapshot[agentID] = items
			mu.Unlock()
		}(agentID)
	}
	wg.Wait()
	return snapshot, nil
}

// CollectAll fetches every category for the given agents.
func (c *Collector) CollectAll(ctx context.Context, agentIDs []string) (models.SnapshotData, error) {
	data := make(models.SnapshotData, len(categories))
	for _, category := range categories {
		snapshot, err := c.Collect(ctx, agentIDs, category)
		if err != nil {
			return nil, err
		}
		data[category] = snapshot
	}
	return data, nil
}

func (c *Collector) collectAgent(ctx context.Context, agentID string, spec categorySpec) []models.InventoryItem {
	res, err := c.records.Get(ctx, spec.path(agentID), map[string]string{
		"limit": fmt.Sprintf("%d", inventoryPageSize),
	})
	if err != nil {
		logger.Warnf("Inventory collection for agent %s failed: %v", agentID, err)
		return []models.InventoryItem{}
	}

	items := make([]models.InventoryItem, 0, len(res.AffectedItems))
	for _, rec := range res.AffectedItems {
		name := firstString(rec, spec.nameField)
		if name == "" {
			continue
		}
		items = append(items, models.InventoryItem{
			Name:      name,
			Attribute: firstString(rec, spec.attrField),
		})
	}
	return items
}

func firstString(rec map[string]interface{}, fields []string) string {
	for _, field := range fields {
		if v, ok := rec[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
