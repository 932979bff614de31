package schema

import (
	"encoding/json"
	"strings"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// FromDefs converts admin-configured field definitions into a validation
// schema for the free-form `custom` payload of the owning entity. Inactive
// definitions are skipped. The resulting schema validates only the custom
// object; the entity's declared columns are validated separately by its core
// schema, and the two layers run in sequence.
func FromDefs(defs []model.FieldDef) *Schema {
	var fields []Field
	for _, d := range defs {
		if !d.IsActive {
			continue
		}
		// custom values live in a JSON object, so empty optional inputs
		// vanish instead of storing null
		f := Field{Name: d.Code, Required: d.Required, OmitEmpty: true}
		switch d.InputType {
		case "number":
			f.Kind = KindNumber
		case "checkbox":
			f.Kind = KindBool
		case "date":
			// calendar validity is not enforced at this layer
			f.Kind = KindString
			f.Max = 64
		case "select":
			f.Kind = KindEnum
			f.Options = ParseOptions(d.Options)
		default: // text
			f.Kind = KindString
			f.Max = 191
		}
		fields = append(fields, f)
	}
	return New(fields...)
}

// ParseOptions decodes a select field's option list. Options are stored as a
// JSON array, but older rows hold a comma-separated string; both forms are
// accepted. A nil or blank value yields no options, which FromDefs treats as
// "accept any string".
func ParseOptions(raw *string) []string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
