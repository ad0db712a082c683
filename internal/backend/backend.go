package backend

import (
	"context"
	"errors"

	"pivothunt/internal/query"
	"pivothunt/pkg/models"
)

// ErrMalformedPayload marks a backend response that failed schema validation.
var ErrMalformedPayload = errors.New("malformed backend payload")

// SearchResult is one page of full-text hits. Total may exceed len(Hits)
// when the backend reports a total independent of the page size.
type SearchResult struct {
	Hits  []models.Event
	Total int
}

// SearchBackend is a full-text search engine queried per index pattern.
type SearchBackend interface {
	Search(ctx context.Context, indexPattern string, spec query.Spec) (*SearchResult, error)
}

// RecordResult is one page of a paginated REST listing.
type RecordResult struct {
	AffectedItems      []map[string]interface{}
	TotalAffectedItems int
}

// RecordBackend is a paginated REST API queried per resource path.
type RecordBackend interface {
	Get(ctx context.Context, path string, params map[string]string) (*RecordResult, error)
}
