// Package schema implements declarative request validation for entity
// payloads. A Schema is a flat list of field rules; Validate coerces and
// whitelists the input map, returning the cleaned values plus field-level
// errors suitable for a structured 400 response. The same machinery backs
// both the static per-entity core schemas and the admin-configured dynamic
// custom-field schemas built by FromDefs.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the value types a field rule can enforce.
type Kind int

const (
	KindString Kind = iota // string, optional max length, empty treated as null
	KindEmail              // lowercased, trimmed, format-checked string
	KindNumber             // finite float64
	KindInt                // non-negative integer
	KindBool               // boolean
	KindDate               // flexible date input normalized to YYYY-MM-DD
	KindEnum               // one of Options
	KindAny                // passed through untouched
)

// Field is one validation rule. Zero-value Max means no length cap.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Max         int
	Options     []string // enum values (KindEnum only)
	Default     any      // applied when the key is absent
	NonNegative bool     // KindNumber only: reject values below zero
	OmitEmpty   bool     // drop empty optional strings instead of storing NULL
}

// FieldError describes one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// Schema validates a JSON object against an ordered set of field rules.
// WithCustom marks schemas whose payload carries a free-form `custom`
// object; it is normalized (JSON strings parsed) and forwarded as-is, to be
// validated separately against the entity's dynamic field definitions.
type Schema struct {
	Fields     []Field
	WithCustom bool
}

// New builds a schema from the given rules.
func New(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// WithCustomObject returns a copy of the schema that accepts a `custom`
// object alongside the declared fields.
func (s *Schema) WithCustomObject() *Schema {
	return &Schema{Fields: s.Fields, WithCustom: true}
}

// Partial returns a copy of the schema with every field optional. Used for
// update payloads and bulk import rows, mirroring the create/update split of
// the per-entity configs.
func (s *Schema) Partial() *Schema {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	for i := range fields {
		fields[i].Required = false
		fields[i].Default = nil
	}
	return &Schema{Fields: fields, WithCustom: s.WithCustom}
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks in against the schema. The returned map contains only
// recognized field names (whitelist semantics); unknown keys are dropped.
// Optional fields that are absent or empty are omitted from the result, so a
// missing map key reads back as nil. A non-empty error slice means the
// payload must be rejected.
func (s *Schema) Validate(in map[string]any) (map[string]any, []FieldError) {
	out := make(map[string]any, len(s.Fields))
	var errs []FieldError

	for _, f := range s.Fields {
		raw, present := in[f.Name]
		if !present || raw == nil {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				errs = append(errs, FieldError{f.Name, "is required"})
			}
			continue
		}
		val, empty, err := coerce(f, raw)
		if err != nil {
			errs = append(errs, FieldError{f.Name, err.Error()})
			continue
		}
		if empty {
			// empty optional values are dropped, not defaulted
			if f.Required {
				errs = append(errs, FieldError{f.Name, "is required"})
			} else if !f.OmitEmpty && (f.Kind == KindString || f.Kind == KindEmail) {
				// "" stores as NULL in a real column; custom-object fields
				// set OmitEmpty so nothing lands in the JSON payload
				out[f.Name] = nil
			}
			continue
		}
		out[f.Name] = val
	}

	if s.WithCustom {
		out["custom"] = NormalizeCustom(in["custom"])
	}
	return out, errs
}

// NormalizeCustom coerces the free-form custom payload into a map. JSON
// strings are parsed (spreadsheet imports send them serialized); anything
// unusable collapses to an empty map.
func NormalizeCustom(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return t
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil || m == nil {
			return map[string]any{}
		}
		return m
	default:
		return map[string]any{}
	}
}

func coerce(f Field, raw any) (val any, empty bool, err error) {
	switch f.Kind {
	case KindAny:
		return raw, false, nil

	case KindString:
		s, ok := asString(raw)
		if !ok {
			return nil, false, fmt.Errorf("must be a string")
		}
		if s == "" {
			return nil, true, nil
		}
		max := f.Max
		if max == 0 {
			max = 191
		}
		if len(s) > max {
			return nil, false, fmt.Errorf("must be at most %d characters", max)
		}
		return s, false, nil

	case KindEmail:
		s, ok := asString(raw)
		if !ok {
			return nil, false, fmt.Errorf("must be a string")
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return nil, true, nil
		}
		if len(s) > 191 || !emailRe.MatchString(s) {
			return nil, false, fmt.Errorf("invalid email")
		}
		return s, false, nil

	case KindNumber:
		n, ok := asFloat(raw)
		if !ok {
			return nil, false, fmt.Errorf("must be a number")
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false, fmt.Errorf("must be a finite number")
		}
		if f.NonNegative && n < 0 {
			return nil, false, fmt.Errorf("must be a non-negative number")
		}
		return n, false, nil

	case KindInt:
		n, ok := asFloat(raw)
		if !ok || n != math.Trunc(n) {
			return nil, false, fmt.Errorf("must be an integer")
		}
		if n < 0 {
			return nil, false, fmt.Errorf("must be non-negative")
		}
		return int64(n), false, nil

	case KindBool:
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			return nil, true, nil
		}
		b, ok := asBool(raw)
		if !ok {
			return nil, false, fmt.Errorf("must be a boolean")
		}
		return b, false, nil

	case KindDate:
		d, ok, isEmpty := ParseDate(raw)
		if isEmpty {
			return nil, true, nil
		}
		if !ok {
			// unparseable optional dates are dropped rather than rejected,
			// matching the lenient import behavior
			if f.Required {
				return nil, false, fmt.Errorf("invalid date")
			}
			return nil, true, nil
		}
		return d.Format("2006-01-02"), false, nil

	case KindEnum:
		s, ok := asString(raw)
		if !ok {
			return nil, false, fmt.Errorf("must be a string")
		}
		if s == "" {
			return nil, true, nil
		}
		// an enum with no options accepts any string
		if len(f.Options) == 0 {
			return s, false, nil
		}
		for _, opt := range f.Options {
			if s == opt {
				return s, false, nil
			}
		}
		return nil, false, fmt.Errorf("must be one of: %s", strings.Join(f.Options, ", "))
	}
	return nil, false, fmt.Errorf("unsupported field kind")
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	time.RFC3339,
}

// excelEpoch is 1899-12-30; spreadsheet serials count days from it.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the date shapes bulk imports produce: common string
// layouts, millisecond timestamps and Excel serial numbers. The second
// return reports success, the third reports an empty input.
func ParseDate(raw any) (time.Time, bool, bool) {
	switch t := raw.(type) {
	case nil:
		return time.Time{}, false, true
	case time.Time:
		return t, true, false
	case float64:
		return dateFromNumber(t), true, false
	case int:
		return dateFromNumber(float64(t)), true, false
	case int64:
		return dateFromNumber(float64(t)), true, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false, true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return dateFromNumber(n), true, false
		}
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true, false
			}
		}
	}
	return time.Time{}, false, false
}

func dateFromNumber(n float64) time.Time {
	if n > 1e10 { // millisecond unix timestamp
		return time.UnixMilli(int64(n)).UTC()
	}
	return excelEpoch.Add(time.Duration(n * 24 * float64(time.Hour)))
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y", "active":
			return true, true
		case "0", "false", "no", "n", "inactive":
			return false, true
		}
	case float64:
		return t != 0, true
	}
	return false, false
}
