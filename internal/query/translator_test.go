package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"pivothunt/pkg/models"
)

func TestTranslateIPUsesFixedFieldTable(t *testing.T) {
	spec := Translate(models.IndicatorQuery{Text: "10.0.0.5", Type: models.IndicatorIP, MaxResults: 50})
	want := []string{"data.srcip", "data.dstip", "data.src_ip", "data.dest_ip", "agent.ip"}
	if len(spec.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d: %v", len(want), len(spec.Fields), spec.Fields)
	}
	for i, f := range want {
		if spec.Fields[i] != f {
			t.Fatalf("field %d: expected %s, got %s", i, f, spec.Fields[i])
		}
	}
	if spec.Exact() {
		t.Fatalf("ip query must not be an exact-term filter")
	}
	if spec.Size != 50 {
		t.Fatalf("expected size 50, got %d", spec.Size)
	}
}

func TestTranslateEveryFuzzyTypeHasFields(t *testing.T) {
	for _, typ := range []models.IndicatorType{
		models.IndicatorFreetext,
		models.IndicatorIP,
		models.IndicatorHash,
		models.IndicatorCVE,
		models.IndicatorFilename,
		models.IndicatorUsername,
	} {
		spec := Translate(models.IndicatorQuery{Text: "x", Type: typ})
		if len(spec.Fields) == 0 {
			t.Fatalf("type %s: expected a non-empty field set", typ)
		}
		if spec.Exact() {
			t.Fatalf("type %s: expected fuzzy match, got exact filter", typ)
		}
	}
}

func TestTranslateRuleIDIsExactTerm(t *testing.T) {
	spec := Translate(models.IndicatorQuery{Text: "5710", Type: models.IndicatorRuleID})
	if !spec.Exact() {
		t.Fatalf("rule_id must produce an exact-term filter")
	}
	if spec.ExactField != "rule.id" || spec.ExactValue != "5710" {
		t.Fatalf("unexpected exact filter: %s=%s", spec.ExactField, spec.ExactValue)
	}
	if len(spec.Fields) != 0 {
		t.Fatalf("exact filter must not carry match fields, got %v", spec.Fields)
	}
}

func TestTranslateMitreIDIsUppercasedExactTerm(t *testing.T) {
	spec := Translate(models.IndicatorQuery{Text: "t1055.012", Type: models.IndicatorMitreID})
	if !spec.Exact() {
		t.Fatalf("mitre_id must produce an exact-term filter")
	}
	if spec.ExactField != "rule.mitre.id" {
		t.Fatalf("unexpected exact field: %s", spec.ExactField)
	}
	if spec.ExactValue != "T1055.012" {
		t.Fatalf("expected uppercased value, got %s", spec.ExactValue)
	}
}

func TestTranslateAlwaysCarriesTimeRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(6 * time.Hour)
	spec := Translate(models.IndicatorQuery{Text: "x", Type: models.IndicatorFreetext, TimeFrom: from, TimeTo: to})
	if !spec.TimeFrom.Equal(from) || !spec.TimeTo.Equal(to) {
		t.Fatalf("expected explicit range preserved, got [%v, %v]", spec.TimeFrom, spec.TimeTo)
	}

	spec = Translate(models.IndicatorQuery{Text: "x", Type: models.IndicatorFreetext})
	if spec.TimeFrom.IsZero() || spec.TimeTo.IsZero() {
		t.Fatalf("expected defaulted range, got [%v, %v]", spec.TimeFrom, spec.TimeTo)
	}
	if !spec.TimeFrom.Before(spec.TimeTo) {
		t.Fatalf("defaulted range is inverted: [%v, %v]", spec.TimeFrom, spec.TimeTo)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		q    models.IndicatorQuery
		want error
	}{
		{"empty", models.IndicatorQuery{Text: "  ", Type: models.IndicatorFreetext}, ErrEmptyQuery},
		{"too long", models.IndicatorQuery{Text: strings.Repeat("a", 501), Type: models.IndicatorFreetext}, ErrQueryTooLong},
		{"unknown type", models.IndicatorQuery{Text: "x", Type: "domain"}, ErrUnknownIndicator},
		{"max results high", models.IndicatorQuery{Text: "x", Type: models.IndicatorIP, MaxResults: 201}, ErrMaxResultsRange},
		{"max results negative", models.IndicatorQuery{Text: "x", Type: models.IndicatorIP, MaxResults: -1}, ErrMaxResultsRange},
	}
	for _, tc := range cases {
		err := Validate(tc.q)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if err := Validate(models.IndicatorQuery{Text: "10.0.0.5", Type: models.IndicatorIP, MaxResults: 200}); err != nil {
		t.Fatalf("expected valid query, got %v", err)
	}
}
