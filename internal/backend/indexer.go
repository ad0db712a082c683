package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pivothunt/internal/query"
)

// IndexerConfig configures the full-text indexer client.
type IndexerConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// IndexerClient queries an OpenSearch-compatible indexer over HTTP.
type IndexerClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewIndexerClient creates an indexer client.
func NewIndexerClient(cfg IndexerConfig) (*IndexerClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("indexer URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IndexerClient{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Search runs one query against an index pattern.
func (c *IndexerClient) Search(ctx context.Context, indexPattern string, spec query.Spec) (*SearchResult, error) {
	body, err := json.Marshal(buildSearchBody(spec))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	endpoint := c.baseURL + "/" + indexPattern + "/_search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read indexer response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("indexer request failed with status %s", resp.Status)
	}

	return parseSearchResponse(respBody)
}

// buildSearchBody renders the query spec as an indexer DSL body. Exact
// specs become a term filter, everything else a best-fields multi_match.
// The time-range filter is always present.
func buildSearchBody(spec query.Spec) map[string]interface{} {
	filters := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": spec.TimeFrom.UTC().Format(time.RFC3339),
					"lte": spec.TimeTo.UTC().Format(time.RFC3339),
				},
			},
		},
	}

	var must map[string]interface{}
	if spec.Exact() {
		must = map[string]interface{}{
			"term": map[string]interface{}{
				spec.ExactField: spec.ExactValue,
			},
		}
	} else {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  spec.Text,
				"fields": spec.Fields,
				"type":   "best_fields",
			},
		}
	}

	return map[string]interface{}{
		"size": spec.Size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   []map[string]interface{}{must},
				"filter": filters,
			},
		},
	}
}

func parseSearchResponse(body []byte) (*SearchResult, error) {
	var raw struct {
		Hits struct {
			Total json.RawMessage `json:"total"`
			Hits  []struct {
				ID     string                 `json:"_id"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	result := &SearchResult{}
	for _, hit := range raw.Hits.Hits {
		result.Hits = append(result.Hits, eventFromSource(hit.ID, hit.Source))
	}
	result.Total = parseTotal(raw.Hits.Total, len(result.Hits))
	return result, nil
}

// parseTotal accepts both the modern {"value": N} object and the legacy
// bare-integer total.
func parseTotal(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value > 0 {
		return obj.Value
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n
	}
	return fallback
}
