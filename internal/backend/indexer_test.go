package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivothunt/internal/query"
)

func TestIndexerClientBuildsBoolQueryWithTimeFilter(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/security-alerts-*/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"hits":{"total":{"value":42},"hits":[
			{"_id":"e1","_source":{"timestamp":"2026-03-01T10:00:00Z","agent":{"id":"001","name":"web-01"},"rule":{"id":"5710","level":5,"description":"sshd auth failure","mitre":{"id":["T1110"],"tactic":["credential-access"]}},"full_log":"failed login"}}
		]}}`))
	}))
	defer srv.Close()

	client, err := NewIndexerClient(IndexerConfig{URL: srv.URL})
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	spec := query.Spec{
		Text:     "failed",
		Fields:   []string{"full_log", "rule.description"},
		TimeFrom: from,
		TimeTo:   from.Add(12 * time.Hour),
		Size:     25,
	}

	res, err := client.Search(context.Background(), "security-alerts-*", spec)
	require.NoError(t, err)

	assert.Equal(t, 42, res.Total)
	require.Len(t, res.Hits, 1)
	hit := res.Hits[0]
	assert.Equal(t, "e1", hit.ID)
	assert.Equal(t, "001", hit.Agent.ID)
	assert.Equal(t, "5710", hit.Rule.ID)
	assert.Equal(t, []string{"T1110"}, hit.Rule.Mitre.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), hit.Timestamp)

	assert.EqualValues(t, 25, captured["size"])
	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, boolQuery["filter"], 1)
	must := boolQuery["must"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, must, "multi_match")
}

func TestIndexerClientRendersExactSpecAsTermFilter(t *testing.T) {
	body := buildSearchBody(query.Spec{
		ExactField: "rule.mitre.id",
		ExactValue: "T1055",
		TimeFrom:   time.Now().Add(-time.Hour),
		TimeTo:     time.Now(),
		Size:       10,
	})

	must := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	require.Len(t, must, 1)
	term, ok := must[0]["term"].(map[string]interface{})
	require.True(t, ok, "expected a term filter, got %v", must[0])
	assert.Equal(t, "T1055", term["rule.mitre.id"])
	assert.NotContains(t, must[0], "multi_match")
}

func TestParseTotalHandlesLegacyShape(t *testing.T) {
	assert.Equal(t, 7, parseTotal(json.RawMessage(`7`), 0))
	assert.Equal(t, 9, parseTotal(json.RawMessage(`{"value":9}`), 0))
	assert.Equal(t, 3, parseTotal(nil, 3))
}
