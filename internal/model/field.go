package model

import "time"

// FieldDef is an admin-managed custom field definition stored in the
// `custom_fields` table. Each row describes one dynamic attribute for an
// entity; active definitions drive validation of the `custom` payload on
// every create and update of the owning entity.
//
// InputType is one of text, number, date, checkbox, select. Options holds a
// JSON array (or a comma-separated string from older rows) and only applies
// to select fields. Rows are never hard-deleted; IsActive is the soft-delete
// flag.
type FieldDef struct {
	ID        uint64    // custom_fields.id
	Entity    string    // custom_fields.entity (owner key, e.g. "dealer")
	Code      string    // custom_fields.code (machine name, unique per entity)
	Label     string    // custom_fields.label
	InputType string    // custom_fields.input_type
	Required  bool      // custom_fields.required
	Options   *string   // custom_fields.options (nullable JSON array)
	SortOrder int       // custom_fields.sort_order
	IsActive  bool      // custom_fields.is_active
	CreatedAt time.Time // custom_fields.created_at
}
