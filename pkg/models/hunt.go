package models

import "time"

// IndicatorType selects the query translation table for a hunt.
type IndicatorType string

const (
	IndicatorFreetext IndicatorType = "freetext"
	IndicatorIP       IndicatorType = "ip"
	IndicatorHash     IndicatorType = "hash"
	IndicatorCVE      IndicatorType = "cve"
	IndicatorFilename IndicatorType = "filename"
	IndicatorUsername IndicatorType = "username"
	IndicatorRuleID   IndicatorType = "rule_id"
	IndicatorMitreID  IndicatorType = "mitre_id"
)

// IndicatorQuery is one hunt request. Immutable once built.
type IndicatorQuery struct {
	Text       string        `json:"text"`
	Type       IndicatorType `json:"type"`
	TimeFrom   time.Time     `json:"timeFrom"`
	TimeTo     time.Time     `json:"timeTo"`
	MaxResults int           `json:"maxResults"`
}

// SourceResult holds the matches one backend source contributed.
type SourceResult struct {
	SourceID     string  `json:"sourceId"`
	Label        string  `json:"label"`
	Matches      []Event `json:"matches"`
	Count        int     `json:"count"`
	SearchTimeMs int64   `json:"searchTimeMs"`
}

// TimeRange is the window a hunt was constrained to.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// HuntResult is the aggregate of one multi-source hunt.
type HuntResult struct {
	Query           string         `json:"query"`
	Type            IndicatorType  `json:"type"`
	TimeRange       TimeRange      `json:"timeRange"`
	TotalHits       int            `json:"totalHits"`
	TotalTimeMs     int64          `json:"totalTimeMs"`
	SourcesSearched int            `json:"sourcesSearched"`
	SourcesWithHits int            `json:"sourcesWithHits"`
	AgentsSearched  []string       `json:"agentsSearched"`
	Sources         []SourceResult `json:"sources"`
}

// RelatedEventsResult buckets candidate events around a focal event.
// An event may appear in more than one bucket.
type RelatedEventsResult struct {
	SameAgent []Event `json:"sameAgent"`
	SameRule  []Event `json:"sameRule"`
	SameMitre []Event `json:"sameMitre"`
}

// SavedSearch is a persisted named indicator query.
type SavedSearch struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Query     IndicatorQuery `json:"query"`
	CreatedAt time.Time      `json:"createdAt"`
}
