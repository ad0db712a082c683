package drift

import (
	"errors"
	"fmt"
	"sort"

	"pivothunt/pkg/models"
)

// ErrAgentRange rejects live comparisons outside the 2..5 agent window.
var ErrAgentRange = errors.New("drift comparison requires 2 to 5 agents")

const (
	// MinCompareAgents and MaxCompareAgents bound live comparisons.
	MinCompareAgents = 2
	MaxCompareAgents = 5
)

// mismatchStatus returns the value-divergence status for a category. The
// users category tracks shells but only reports presence, never mismatch.
func mismatchStatus(category string) string {
	switch category {
	case models.CategoryPackages:
		return models.StatusVersionMismatch
	case models.CategoryServices:
		return models.StatusStateMismatch
	default:
		return ""
	}
}

// CompareAgents diffs the normalized inventories of 2 to 5 agents for one
// category. Pure function; absent agent data means absent entries, never
// an error.
func CompareAgents(agentIDs []string, snapshot models.AgentSnapshot, category string) ([]models.DriftItem, error) {
	if len(agentIDs) < MinCompareAgents || len(agentIDs) > MaxCompareAgents {
		return nil, fmt.Errorf("%w: got %d", ErrAgentRange, len(agentIDs))
	}

	// name -> agentID -> attribute, unioned over every agent's items.
	attrs := make(map[string]map[string]string)
	for _, agentID := range agentIDs {
		for _, item := range snapshot[agentID] {
			if item.Name == "" {
				continue
			}
			byAgent := attrs[item.Name]
			if byAgent == nil {
				byAgent = make(map[string]string, len(agentIDs))
				attrs[item.Name] = byAgent
			}
			byAgent[agentID] = item.Attribute
		}
	}

	mismatch := mismatchStatus(category)
	items := make([]models.DriftItem, 0, len(attrs))
	for name, byAgent := range attrs {
		allPresent := len(byAgent) == len(agentIDs)
		distinct := make(map[string]struct{}, len(byAgent))
		for _, attr := range byAgent {
			distinct[attr] = struct{}{}
		}
		// Value divergence only counts for categories with a mismatch
		// status; shell divergence in the users category is not drift.
		valuesDiverge := mismatch != "" && len(distinct) > 1

		item := models.DriftItem{
			Name:     name,
			Status:   make(map[string]string, len(agentIDs)),
			Details:  make(map[string]string, len(agentIDs)),
			HasDrift: !allPresent || valuesDiverge,
		}
		for _, agentID := range agentIDs {
			attr, present := byAgent[agentID]
			switch {
			case !present:
				item.Status[agentID] = models.StatusAbsent
				item.Details[agentID] = models.AbsentValue
			case allPresent && valuesDiverge:
				// Every present agent is flagged, majority values included.
				item.Status[agentID] = mismatch
				item.Details[agentID] = attr
			default:
				item.Status[agentID] = models.StatusPresent
				item.Details[agentID] = attr
			}
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].HasDrift != items[j].HasDrift {
			return items[i].HasDrift
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}
