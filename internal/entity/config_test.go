package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleRegistry(t *testing.T) {
	wantPrefixes := map[string]string{
		"product:ev":             "PEV",
		"product:mobile-loan":    "PML",
		"product:education-loan": "PED",
		"lender:ev":              "LEV",
		"lender:adikosh":         "LAD",
		"lender:gq-fsf":          "LGQF",
		"lender:gq-nonfsf":       "LGQNF",
		"lender:bl":              "LBL",
	}
	require.Len(t, Modules, len(wantPrefixes))

	for key, prefix := range wantPrefixes {
		cfg, ok := Module(key)
		require.True(t, ok, "module %s missing", key)
		assert.Equal(t, prefix, cfg.CodePrefix, key)
		assert.Equal(t, "customer_id", cfg.CodeField, key)
		assert.NotEmpty(t, cfg.Table, key)
		assert.True(t, cfg.HasStatus(), key)
		assert.NotNil(t, cfg.CreateSchema, key)
		assert.NotNil(t, cfg.MapBodyToRow, key)
	}

	_, ok := Module("product:gold-loan")
	assert.False(t, ok)
}

func TestDocEntities(t *testing.T) {
	all := DocEntities()
	// three static entities plus one per loan module
	assert.Len(t, all, 3+len(Modules))
	for _, key := range []string{"dealer", "financial_institute", "landlord", "product_ev", "lender_bl"} {
		_, ok := all[key]
		assert.True(t, ok, key)
	}
}

func TestMapBodyToRowIsPartial(t *testing.T) {
	row := Dealers.MapBodyToRow(map[string]any{"dealer_name": "Acme", "ignored": 1})
	assert.Equal(t, map[string]any{"dealer_name": "Acme"}, row)
}

func TestMobileLoanFieldRename(t *testing.T) {
	cfg, _ := Module("product:mobile-loan")
	row := cfg.MapBodyToRow(map[string]any{
		"applicant_name": "R. Sharma",
		"device_brand":   "Samsung",
	})
	assert.Equal(t, "Samsung", row["handset_brand"])
	_, ok := row["device_brand"]
	assert.False(t, ok)
}

func TestEmptyRow(t *testing.T) {
	assert.True(t, EmptyRow(map[string]any{}))
	assert.True(t, EmptyRow(map[string]any{"name": "", "phone": "  ", "amount": nil}))
	// is_active alone does not make a row real, its default is always present
	assert.True(t, EmptyRow(map[string]any{"is_active": true}))
	assert.False(t, EmptyRow(map[string]any{"name": "x"}))
	assert.False(t, EmptyRow(map[string]any{"amount": 5.0}))
}

func TestDealerCreateSchema(t *testing.T) {
	out, errs := Dealers.CreateSchema.Validate(map[string]any{
		"dealer_name": "Acme Motors",
		"email":       "Sales@Acme.IN",
	})
	require.Empty(t, errs)
	assert.Equal(t, "sales@acme.in", out["email"])
	assert.Equal(t, true, out["is_active"])

	_, errs = Dealers.CreateSchema.Validate(map[string]any{})
	require.Len(t, errs, 1)
	assert.Equal(t, "dealer_name", errs[0].Field)

	// bulk rows may omit everything the create schema requires
	_, errs = Dealers.BulkItemSchema.Validate(map[string]any{})
	assert.Empty(t, errs)
}
