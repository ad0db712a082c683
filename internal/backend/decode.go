package backend

import (
	"fmt"
	"strings"
	"time"

	"pivothunt/pkg/models"
)

// eventFromSource builds a normalized Event from one indexer hit source.
func eventFromSource(id string, src map[string]interface{}) models.Event {
	event := models.Event{
		ID:      id,
		FullLog: getString(src, "full_log"),
		Agent: models.Agent{
			ID:   getString(src, "agent.id"),
			Name: getString(src, "agent.name"),
			IP:   getString(src, "agent.ip"),
		},
		Rule: models.Rule{
			ID:          getString(src, "rule.id"),
			Level:       getInt(src, "rule.level"),
			Description: getString(src, "rule.description"),
			Firedtimes:  getInt(src, "rule.firedtimes"),
			Groups:      getStrings(src, "rule.groups"),
			Mitre: models.Mitre{
				ID:     getStrings(src, "rule.mitre.id"),
				Tactic: getStrings(src, "rule.mitre.tactic"),
			},
		},
		Decoder: models.Decoder{
			Name:   getString(src, "decoder.name"),
			Parent: getString(src, "decoder.parent"),
		},
	}

	if ts := getString(src, "timestamp", "@timestamp"); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			event.Timestamp = t
		}
	}
	if data, ok := getPath(src, "data"); ok {
		if m, ok := data.(map[string]interface{}); ok {
			event.Data = m
		}
	}
	return event
}

// EventsFromRecords wraps REST records as pseudo-events so record hits and
// full-text hits share a single result shape.
func EventsFromRecords(sourceID string, recs []map[string]interface{}) []models.Event {
	if len(recs) == 0 {
		return nil
	}
	out := make([]models.Event, 0, len(recs))
	for i, rec := range recs {
		out = append(out, eventFromRecord(sourceID, i, rec))
	}
	return out
}

func eventFromRecord(sourceID string, idx int, rec map[string]interface{}) models.Event {
	id := getString(rec, "id")
	if id == "" {
		id = fmt.Sprintf("%s-%d", sourceID, idx)
	}
	event := models.Event{
		ID:   id,
		Data: rec,
		Agent: models.Agent{
			ID:   getString(rec, "agent_id", "id"),
			Name: getString(rec, "name", "agent_name"),
			IP:   getString(rec, "ip"),
		},
	}
	if ts := getString(rec, "timestamp", "dateAdd", "date"); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			event.Timestamp = t
		}
	}
	return event
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
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
			}
		}
	}
	return ""
}

func getInt(root map[string]interface{}, paths ...string) int {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case int:
				return val
			case int64:
				return int(val)
			case float64:
				return int(val)
			case string:
				if val == "" {
					continue
				}
				var parsed int
				if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
					return parsed
				}
			}
		}
	}
	return 0
}

func getStrings(root map[string]interface{}, path string) []string {
	v, ok := getPath(root, path)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	}
	return nil
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
