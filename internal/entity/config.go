// Package entity holds the declarative per-entity configuration consumed by
// the generic CRUD handlers. One Config fully describes how an entity-shaped
// table is listed, created, updated, bulk-imported and reviewed: physical
// table, business-code generation, permission codes, validation schemas and
// the body-to-row mapping. Configs are plain immutable values; adding an
// entity means adding a Config, not a handler.
package entity

import (
	"strings"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/schema"
)

// Perms names the three permission codes gating an entity's operations.
type Perms struct {
	Read   string
	Write  string
	Review string
}

// Config describes one CRUD-managed entity.
//
// CodeField/CodePrefix drive the human-readable business code (e.g.
// DLR00101) assigned once at creation. JSONColumn, when set, names the
// column holding the serialized free-form custom attributes. DefaultStatus,
// when set, enables the PENDING -> APPROVED/REJECTED review workflow and is
// stamped on every new row. SearchColumns are OR-matched with LIKE on list
// searches.
type Config struct {
	EntityName    string
	Table         string
	CodeField     string
	CodePrefix    string
	JSONColumn    string
	DefaultStatus string
	SearchColumns []string

	Perms          Perms
	CreateSchema   *schema.Schema
	UpdateSchema   *schema.Schema
	BulkItemSchema *schema.Schema

	// MapBodyToRow converts a validated body into table columns. Only keys
	// present in the validated map appear in the result, so update patches
	// stay partial.
	MapBodyToRow func(map[string]any) map[string]any
}

// HasStatus reports whether the review workflow is enabled for the entity.
func (c Config) HasStatus() bool { return c.DefaultStatus != "" }

// passthrough returns a MapBodyToRow copying the listed body keys to
// identically named columns.
func passthrough(cols ...string) func(map[string]any) map[string]any {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[c] = c
	}
	return mapper(m)
}

// mapper returns a MapBodyToRow copying body keys to the named columns.
func mapper(keys map[string]string) func(map[string]any) map[string]any {
	return func(b map[string]any) map[string]any {
		row := make(map[string]any, len(keys))
		for from, to := range keys {
			if v, ok := b[from]; ok {
				row[to] = v
			}
		}
		return row
	}
}

// EmptyRow reports whether a mapped row carries no usable data. Blank
// trailing spreadsheet rows arrive as all-empty items that still pass a
// fully-optional bulk schema; they are rejected instead of inserted. The
// is_active flag is ignored because its default makes every row non-empty.
func EmptyRow(row map[string]any) bool {
	for col, v := range row {
		if col == "is_active" {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(t) != "" {
				return false
			}
		case bool:
			if t {
				return false
			}
		case float64:
			if t != 0 {
				return false
			}
		case int64:
			if t != 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func str(name string, max int) schema.Field {
	return schema.Field{Name: name, Kind: schema.KindString, Max: max}
}

func active() schema.Field {
	return schema.Field{Name: "is_active", Kind: schema.KindBool, Default: true}
}

// Dealers is the dealer onboarding entity (codes DLR#####).
var Dealers = Config{
	EntityName:     "dealer",
	Table:          "dealers",
	CodeField:      "dealer_id",
	CodePrefix:     "DLR",
	JSONColumn:     "custom_data",
	DefaultStatus:  "PENDING",
	SearchColumns:  []string{
		"dealer_name", "email", "dealer_phone", "dealer_address",
		"gst_no", "dealer_pan_card", "authorised_dealer_name", "dealer_id",
	},
	Perms:          Perms{Read: "DEALERS_READ", Write: "DEALERS_WRITE", Review: "DEALERS_REVIEW"},
	CreateSchema:   dealerSchema,
	UpdateSchema:   dealerSchema.Partial(),
	BulkItemSchema: dealerSchema.Partial(),
	MapBodyToRow:   passthrough(
		"dealer_name", "name_as_per_invoice", "dealer_phone", "dealer_address",
		"email", "gst_no", "dealer_pan_card", "authorised_dealer_name", "is_active",
	),
}

var dealerSchema = schema.New(
	schema.Field{Name: "dealer_name", Kind: schema.KindString, Required: true, Max: 191},
	str("name_as_per_invoice", 191),
	str("dealer_phone", 32),
	str("dealer_address", 191),
	schema.Field{Name: "email", Kind: schema.KindEmail},
	str("gst_no", 32),
	str("dealer_pan_card", 32),
	str("authorised_dealer_name", 191),
	active(),
).WithCustomObject()

// FinancialInstitutes is the partner financial institute entity (FIN#####).
var FinancialInstitutes = Config{
	EntityName:     "financial_institute",
	Table:          "financial_institutes",
	CodeField:      "fin_id",
	CodePrefix:     "FIN",
	JSONColumn:     "custom_data",
	DefaultStatus:  "PENDING",
	SearchColumns:  []string{"name", "email", "phone"},
	Perms:          Perms{Read: "FIN_READ", Write: "FIN_WRITE", Review: "FIN_REVIEW"},
	CreateSchema:   contactSchema,
	UpdateSchema:   contactSchema.Partial(),
	BulkItemSchema: contactSchema.Partial(),
	MapBodyToRow:   passthrough("name", "email", "phone", "is_active"),
}

// Landlords is the property landlord entity (LND#####).
var Landlords = Config{
	EntityName:     "landlord",
	Table:          "landlords",
	CodeField:      "lnd_id",
	CodePrefix:     "LND",
	JSONColumn:     "custom_data",
	DefaultStatus:  "PENDING",
	SearchColumns:  []string{"name", "email", "phone"},
	Perms:          Perms{Read: "LAND_READ", Write: "LAND_WRITE", Review: "LAND_REVIEW"},
	CreateSchema:   contactSchema,
	UpdateSchema:   contactSchema.Partial(),
	BulkItemSchema: contactSchema.Partial(),
	MapBodyToRow:   passthrough("name", "email", "phone", "is_active"),
}

var contactSchema = schema.New(
	schema.Field{Name: "name", Kind: schema.KindString, Required: true, Max: 191},
	schema.Field{Name: "email", Kind: schema.KindEmail},
	str("phone", 32),
	active(),
).WithCustomObject()

// Static lists the entities mounted at fixed URL paths.
func Static() []Config {
	return []Config{Dealers, FinancialInstitutes, Landlords}
}

// DocEntities returns the allowlist of entity keys the document store
// accepts: every static entity plus every loan module.
func DocEntities() map[string]Config {
	out := make(map[string]Config)
	for _, c := range Static() {
		out[c.EntityName] = c
	}
	for _, c := range Modules {
		out[c.EntityName] = c
	}
	return out
}
