package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pivothunt/pkg/models"
)

// Validation errors, returned before any I/O happens.
var (
	ErrEmptyQuery       = errors.New("query text is empty")
	ErrQueryTooLong     = errors.New("query text exceeds 500 characters")
	ErrUnknownIndicator = errors.New("unknown indicator type")
	ErrMaxResultsRange  = errors.New("maxResults must be between 1 and 200")
)

const (
	// MaxTextLen bounds indicator text length.
	MaxTextLen = 500
	// DefaultMaxResults is used when the caller does not set a cap.
	DefaultMaxResults = 100
	// MaxResultsCeiling is the hard cap for indexer-backed sources.
	MaxResultsCeiling = 200
)

// Spec is a backend-agnostic query description: either a multi-field
// best-match over Fields, or an exact-term filter on ExactField. Every spec
// carries a mandatory time range and a result-size cap.
type Spec struct {
	Text       string
	Fields     []string
	ExactField string
	ExactValue string
	TimeFrom   time.Time
	TimeTo     time.Time
	Size       int
}

// Exact reports whether the spec is an exact-term filter.
func (s Spec) Exact() bool {
	return s.ExactField != ""
}

// Per-type field tables. These are fixed and explicit, not inferred.
var matchFields = map[models.IndicatorType][]string{
	models.IndicatorIP: {
		"data.srcip",
		"data.dstip",
		"data.src_ip",
		"data.dest_ip",
		"agent.ip",
	},
	models.IndicatorHash: {
		"syscheck.md5_after",
		"syscheck.sha1_after",
		"syscheck.sha256_after",
		"full_log",
	},
	models.IndicatorCVE: {
		"data.vulnerability.cve",
		"data.vulnerability.cves",
		"rule.description",
	},
	models.IndicatorFilename: {
		"syscheck.path",
		"data.file",
		"data.path",
	},
	models.IndicatorUsername: {
		"data.srcuser",
		"data.dstuser",
		"data.win.eventdata.targetUserName",
		"agent.name",
	},
	models.IndicatorFreetext: {
		"full_log",
		"rule.description",
		"agent.name",
		"data.*",
	},
}

var exactFields = map[models.IndicatorType]string{
	models.IndicatorRuleID:  "rule.id",
	models.IndicatorMitreID: "rule.mitre.id",
}

// Validate rejects malformed indicator queries before translation.
func Validate(q models.IndicatorQuery) error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return ErrEmptyQuery
	}
	if len(text) > MaxTextLen {
		return ErrQueryTooLong
	}
	if _, fuzzy := matchFields[q.Type]; !fuzzy {
		if _, exact := exactFields[q.Type]; !exact {
			return fmt.Errorf("%w: %q", ErrUnknownIndicator, q.Type)
		}
	}
	if q.MaxResults != 0 && (q.MaxResults < 1 || q.MaxResults > MaxResultsCeiling) {
		return ErrMaxResultsRange
	}
	return nil
}

// Translate maps an indicator query to a backend query description.
// The query must already have passed Validate.
func Translate(q models.IndicatorQuery) Spec {
	text := strings.TrimSpace(q.Text)
	from, to := effectiveRange(q.TimeFrom, q.TimeTo)

	size := q.MaxResults
	if size <= 0 {
		size = DefaultMaxResults
	}

	spec := Spec{
		Text:     text,
		TimeFrom: from,
		TimeTo:   to,
		Size:     size,
	}

	if field, ok := exactFields[q.Type]; ok {
		value := text
		if q.Type == models.IndicatorMitreID {
			value = strings.ToUpper(value)
		}
		spec.ExactField = field
		spec.ExactValue = value
		return spec
	}

	fields := matchFields[q.Type]
	spec.Fields = append([]string(nil), fields...)
	return spec
}

// effectiveRange defaults to the trailing 24 hours when the caller leaves
// the window open.
func effectiveRange(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	return from, to
}
