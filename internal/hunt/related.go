package hunt

import (
	"time"

	"pivothunt/pkg/models"
)

// DefaultWindowMinutes is used when the caller gives no correlation window.
const DefaultWindowMinutes = 15

// RelatedEvents partitions an already-fetched candidate pool into relation
// buckets around a focal event: same agent, same rule, shared MITRE
// technique. The window [t-W, t+W] is symmetric around the focal
// timestamp. Buckets are not mutually exclusive; the focal event itself is
// excluded by ID. Pure function, re-evaluated on every window change.
func RelatedEvents(focal models.Event, windowMinutes int, pool []models.Event) models.RelatedEventsResult {
	if windowMinutes <= 0 {
		windowMinutes = DefaultWindowMinutes
	}
	window := time.Duration(windowMinutes) * time.Minute
	from := focal.Timestamp.Add(-window)
	to := focal.Timestamp.Add(window)

	focalTechniques := make(map[string]struct{}, len(focal.Rule.Mitre.ID))
	for _, id := range focal.Rule.Mitre.ID {
		focalTechniques[id] = struct{}{}
	}

	result := models.RelatedEventsResult{
		SameAgent: []models.Event{},
		SameRule:  []models.Event{},
		SameMitre: []models.Event{},
	}

	for _, candidate := range pool {
		if candidate.ID == focal.ID {
			continue
		}
		if candidate.Timestamp.Before(from) || candidate.Timestamp.After(to) {
			continue
		}

		if focal.Agent.ID != "" && candidate.Agent.ID == focal.Agent.ID {
			result.SameAgent = append(result.SameAgent, candidate)
		}
		if focal.Rule.ID != "" && candidate.Rule.ID == focal.Rule.ID {
			result.SameRule = append(result.SameRule, candidate)
		}
		if len(focalTechniques) > 0 && sharesTechnique(focalTechniques, candidate.Rule.Mitre.ID) {
			result.SameMitre = append(result.SameMitre, candidate)
		}
	}

	return result
}

func sharesTechnique(focal map[string]struct{}, candidate []string) bool {
	for _, id := range candidate {
		if _, ok := focal[id]; ok {
			return true
		}
	}
	return false
}
