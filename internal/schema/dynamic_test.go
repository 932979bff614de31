package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

func strptr(s string) *string { return &s }

func TestFromDefs(t *testing.T) {
	defs := []model.FieldDef{
		{Code: "cibil_score", InputType: "number", Required: true, IsActive: true},
		{Code: "kyc_done", InputType: "checkbox", IsActive: true},
		{Code: "segment", InputType: "select", Options: strptr(`["retail","fleet"]`), IsActive: true},
		{Code: "retired", InputType: "text", IsActive: false},
	}

	s := FromDefs(defs)
	require.Len(t, s.Fields, 3, "inactive definitions are skipped")

	out, errs := s.Validate(map[string]any{
		"cibil_score": float64(712),
		"kyc_done":    "yes",
		"segment":     "fleet",
	})
	require.Empty(t, errs)
	assert.Equal(t, float64(712), out["cibil_score"])
	assert.Equal(t, true, out["kyc_done"])
	assert.Equal(t, "fleet", out["segment"])

	_, errs = s.Validate(map[string]any{"segment": "wholesale"})
	require.Len(t, errs, 2) // missing cibil_score plus bad enum
}

func TestFromDefsDropsEmptyOptionalText(t *testing.T) {
	s := FromDefs([]model.FieldDef{
		{Code: "remark", InputType: "text", IsActive: true},
		{Code: "review_date", InputType: "date", IsActive: true},
	})

	out, errs := s.Validate(map[string]any{"remark": "", "review_date": ""})
	require.Empty(t, errs)
	_, present := out["remark"]
	assert.False(t, present, "empty optional custom text must not store null")
	_, present = out["review_date"]
	assert.False(t, present)
}

func TestFromDefsNumberAcceptsNegative(t *testing.T) {
	s := FromDefs([]model.FieldDef{
		{Code: "delta", InputType: "number", Required: true, IsActive: true},
	})

	out, errs := s.Validate(map[string]any{"delta": float64(-5)})
	require.Empty(t, errs)
	assert.Equal(t, float64(-5), out["delta"])
}

func TestParseOptions(t *testing.T) {
	assert.Nil(t, ParseOptions(nil))
	assert.Nil(t, ParseOptions(strptr("  ")))
	assert.Equal(t, []string{"a", "b"}, ParseOptions(strptr(`["a","b"]`)))
	// legacy comma-separated rows
	assert.Equal(t, []string{"a", "b"}, ParseOptions(strptr("a, b,")))
}
