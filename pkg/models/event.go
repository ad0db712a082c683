package models

import (
	"fmt"
	"time"
)

// Agent identifies the endpoint an event was observed on.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	IP   string `json:"ip,omitempty"`
}

// Mitre carries ATT&CK annotations attached to a detection rule.
type Mitre struct {
	ID     []string `json:"id,omitempty"`
	Tactic []string `json:"tactic,omitempty"`
}

// Rule describes the detection rule that produced an event.
type Rule struct {
	ID          string   `json:"id"`
	Level       int      `json:"level"`
	Description string   `json:"description,omitempty"`
	Mitre       Mitre    `json:"mitre,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	Firedtimes  int      `json:"firedtimes,omitempty"`
}

// Decoder names the log decoder chain for an event.
type Decoder struct {
	Name   string `json:"name,omitempty"`
	Parent string `json:"parent,omitempty"`
}

// Event is a single telemetry event as returned by a backend.
// Events are read-only; the core never mutates them.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Agent     Agent                  `json:"agent"`
	Rule      Rule                   `json:"rule"`
	Decoder   Decoder                `json:"decoder,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	FullLog   string                 `json:"full_log,omitempty"`
}

// DataField returns a string view of a value in the event's data map.
func (e *Event) DataField(name string) string {
	if e == nil || e.Data == nil {
		return ""
	}
	v, ok := e.Data[name]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%f", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TechniqueIDs returns the event's MITRE technique IDs.
func (e *Event) TechniqueIDs() []string {
	if e == nil {
		return nil
	}
	return e.Rule.Mitre.ID
}
