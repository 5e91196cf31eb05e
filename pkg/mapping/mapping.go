// Package mapping applies partner field-mapping rules to canonical rows.
//
// Apply and Reverse are pure: they never mutate their inputs and never
// touch storage. A rule list is ordered; later rules see the output of
// earlier ones only through the target row, so rule order is significant
// when two rules share a target field (last write wins).
package mapping

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// Apply maps each row's source fields onto target fields, applying the
// rule's transform. A field whose transform cannot digest the value
// degrades to nil rather than failing the document. Fields no rule names
// pass through unchanged.
func Apply(rows []models.Row, rules []models.MappingRule) []models.Row {
	out := make([]models.Row, len(rows))
	for i, row := range rows {
		out[i] = applyRow(row, rules, false)
	}
	return out
}

// Reverse maps target fields back onto source fields: each rule is read
// with its roles swapped. Transforms whose effect is not invertible
// (uppercase, lowercase, trim) pass the value through on the way back.
func Reverse(rows []models.Row, rules []models.MappingRule) []models.Row {
	out := make([]models.Row, len(rows))
	for i, row := range rows {
		out[i] = applyRow(row, rules, true)
	}
	return out
}

// ValidateRules rejects rule lists that name an unknown transform or lack
// field names. Called when a document map is saved so apply time never
// sees an invalid list.
func ValidateRules(rules []models.MappingRule) error {
	for i, rule := range rules {
		if rule.SourceField == "" || rule.TargetField == "" {
			return edierr.Newf(edierr.KindConfiguration, "mapping rule %d: source and target fields are required", i)
		}
		switch rule.Transform {
		case "", models.TransformUppercase, models.TransformLowercase, models.TransformTrim,
			models.TransformNumber, models.TransformDate, models.TransformBoolean:
		default:
			return edierr.Newf(edierr.KindConfiguration, "mapping rule %d: unknown transform %q", i, rule.Transform)
		}
	}
	return nil
}

func applyRow(row models.Row, rules []models.MappingRule, reverse bool) models.Row {
	mapped := make(map[string]bool, len(rules))
	out := make(models.Row, len(row))

	for _, rule := range rules {
		from, to := rule.SourceField, rule.TargetField
		if reverse {
			from, to = to, from
		}
		mapped[from] = true

		v, ok := row[from]
		if !ok || v == nil {
			if rule.DefaultValue != "" {
				out[to] = transform(rule.DefaultValue, rule.Transform, reverse)
			}
			continue
		}
		out[to] = transform(v, rule.Transform, reverse)
	}

	for k, v := range row {
		if !mapped[k] {
			out[k] = v
		}
	}
	return out
}

// transform converts a value; nil means the value could not be digested.
func transform(v any, kind models.TransformKind, reverse bool) any {
	switch kind {
	case models.TransformUppercase:
		if reverse {
			return v
		}
		return strings.ToUpper(asString(v))
	case models.TransformLowercase:
		if reverse {
			return v
		}
		return strings.ToLower(asString(v))
	case models.TransformTrim:
		if reverse {
			return v
		}
		return strings.TrimSpace(asString(v))
	case models.TransformNumber:
		return toNumber(v)
	case models.TransformDate:
		return toDate(v)
	case models.TransformBoolean:
		return toBoolean(v)
	}
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return ""
}

func toNumber(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	return nil
}

// dateLayouts are tried in order; the first match wins.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"20060102",
	"01/02/2006",
}

// toDate normalizes recognizable date strings to ISO 8601 and passes
// everything else through untouched, so reversing a date transform on an
// already-normalized value is the identity.
func toDate(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

func toBoolean(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "y":
			return true
		case "false", "no", "0", "n":
			return false
		}
		return nil
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return nil
}
