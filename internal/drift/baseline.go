package drift

import (
	"sort"

	"pivothunt/pkg/models"
)

// categories in evaluation order.
var categories = []string{
	models.CategoryPackages,
	models.CategoryServices,
	models.CategoryUsers,
}

var changePriority = map[string]int{
	models.ChangeRemoved: 0,
	models.ChangeNew:     1,
	models.ChangeChanged: 2,
}

// DiffBaseline compares a persisted baseline snapshot against a freshly
// collected one. Each agent and category is evaluated independently and
// the results are flattened into one ordered list. Diffing a snapshot
// against itself yields the empty list.
func DiffBaseline(baseline, current models.SnapshotData, agentNames map[string]string) []models.BaselineDriftItem {
	items := make([]models.BaselineDriftItem, 0, 32)

	for _, category := range categories {
		for _, agentID := range unionAgents(baseline[category], current[category]) {
			baselineMap := itemMap(baseline[category][agentID])
			currentMap := itemMap(current[category][agentID])
			agentName := agentNames[agentID]

			for name, attr := range currentMap {
				baseAttr, inBaseline := baselineMap[name]
				switch {
				case !inBaseline:
					items = append(items, models.BaselineDriftItem{
						Name:          name,
						AgentID:       agentID,
						AgentName:     agentName,
						BaselineValue: models.AbsentValue,
						CurrentValue:  attr,
						ChangeType:    models.ChangeNew,
						Category:      category,
					})
				case baseAttr != attr:
					items = append(items, models.BaselineDriftItem{
						Name:          name,
						AgentID:       agentID,
						AgentName:     agentName,
						BaselineValue: baseAttr,
						CurrentValue:  attr,
						ChangeType:    models.ChangeChanged,
						Category:      category,
					})
				}
			}
			for name, attr := range baselineMap {
				if _, inCurrent := currentMap[name]; inCurrent {
					continue
				}
				items = append(items, models.BaselineDriftItem{
					Name:          name,
					AgentID:       agentID,
					AgentName:     agentName,
					BaselineValue: attr,
					CurrentValue:  models.AbsentValue,
					ChangeType:    models.ChangeRemoved,
					Category:      category,
				})
			}
		}
	}

	sort.Slice(items, func(i, j int) bool {
		pi, pj := changePriority[items[i].ChangeType], changePriority[items[j].ChangeType]
		if pi != pj {
			return pi < pj
		}
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].AgentID < items[j].AgentID
	})
	return items
}

func itemMap(items []models.InventoryItem) map[string]string {
	m := make(map[string]string, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		m[item.Name] = item.Attribute
	}
	return m
}

func unionAgents(a, b models.AgentSnapshot) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for agentID := range a {
		if _, ok := seen[agentID]; !ok {
			seen[agentID] = struct{}{}
			out = append(out, agentID)
		}
	}
	for agentID := range b {
		if _, ok := seen[agentID]; !ok {
			seen[agentID] = struct{}{}
			out = append(out, agentID)
		}
	}
	sort.Strings(out)
	return out
}
