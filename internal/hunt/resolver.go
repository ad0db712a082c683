package hunt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pivothunt/internal/backend"
	"pivothunt/internal/logger"
)

// ErrTooManyAgents rejects explicit agent sets above the fan-out cap.
var ErrTooManyAgents = errors.New("agent list exceeds 10 agents")

const (
	// ManagerAgentID is the sentinel agent representing the manager itself.
	// It never takes part in per-agent searches.
	ManagerAgentID = "000"

	// MaxAgents caps the effective per-agent search set.
	MaxAgents = 10

	// resolvedAgentLimit bounds the auto-resolved set.
	resolvedAgentLimit = 5
)

// ResolveAgents returns the effective per-agent search set. An explicit set
// is validated and capped; otherwise the first active agents are resolved
// from the record backend. Resolution failure degrades to an empty set so
// per-agent sources contribute zero hits instead of failing the hunt.
func ResolveAgents(ctx context.Context, records backend.RecordBackend, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		if len(explicit) > MaxAgents {
			return nil, fmt.Errorf("%w: got %d", ErrTooManyAgents, len(explicit))
		}
		return explicit, nil
	}
	if records == nil {
		return nil, nil
	}

	res, err := records.Get(ctx, "/agents", map[string]string{
		"status": "active",
		"limit":  strconv.Itoa(MaxAgents),
		"sort":   "id",
	})
	if err != nil {
		logger.Warnf("Agent resolution failed, continuing with empty agent set: %v", err)
		return nil, nil
	}

	agents := make([]string, 0, resolvedAgentLimit)
	for _, rec := range res.AffectedItems {
		id, _ := rec["id"].(string)
		if id == "" || id == ManagerAgentID {
			continue
		}
		agents = append(agents, id)
		if len(agents) == resolvedAgentLimit {
			break
		}
	}
	return agents, nil
}
