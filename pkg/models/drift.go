package models

import "time"

// Inventory categories.
const (
	CategoryPackages = "packages"
	CategoryServices = "services"
	CategoryUsers    = "users"
)

// Per-agent drift statuses. Downstream consumers branch on these strings.
const (
	StatusPresent         = "present"
	StatusAbsent          = "absent"
	StatusVersionMismatch = "version_mismatch"
	StatusStateMismatch   = "state_mismatch"
)

// Baseline change types, in report order.
const (
	ChangeRemoved = "removed"
	ChangeNew     = "new"
	ChangeChanged = "changed"
)

// AbsentValue is the sentinel shown when one side of a comparison has no entry.
const AbsentValue = "—"

// InventoryItem is one normalized inventory entry: a package with its
// version, a service with its state, or a user with its shell.
type InventoryItem struct {
	Name      string `json:"name"`
	Attribute string `json:"attribute"`
}

// AgentSnapshot maps agent ID to that agent's items for one category.
type AgentSnapshot map[string][]InventoryItem

// SnapshotData maps category to the per-agent inventories of that category.
type SnapshotData map[string]AgentSnapshot

// DriftItem reports one entity name across all compared agents.
type DriftItem struct {
	Name     string            `json:"name"`
	Status   map[string]string `json:"status"`
	Details  map[string]string `json:"details"`
	HasDrift bool              `json:"hasDrift"`
}

// Baseline is a persisted inventory snapshot used as a later reference point.
type Baseline struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	AgentIDs     []string     `json:"agentIds"`
	SnapshotData SnapshotData `json:"snapshotData"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// BaselineInfo is baseline metadata without the snapshot payload.
type BaselineInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AgentIDs    []string  `json:"agentIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BaselineDriftItem is one difference between a baseline and a live snapshot.
type BaselineDriftItem struct {
	Name          string `json:"name"`
	AgentID       string `json:"agentId"`
	AgentName     string `json:"agentName"`
	BaselineValue string `json:"baselineValue"`
	CurrentValue  string `json:"currentValue"`
	ChangeType    string `json:"changeType"`
	Category      string `json:"category"`
}
