package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidGSTIN(t *testing.T) {
	assert.True(t, ValidGSTIN("27AAPFU0939F1ZV"))
	assert.False(t, ValidGSTIN("27AAPFU0939F1XV")) // 14th char must be Z
	assert.False(t, ValidGSTIN("27aapfu0939f1zv")) // callers uppercase first
	assert.False(t, ValidGSTIN(""))
}

func TestValidPAN(t *testing.T) {
	assert.True(t, ValidPAN("AAPFU0939F"))
	assert.False(t, ValidPAN("AAPF00939F"))
	assert.False(t, ValidPAN("AAPFU0939FX"))
}

func TestFetchGST(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		assert.Equal(t, "app-1", r.Header.Get("app-id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"legal_name":"ACME PVT LTD"}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{GSTURL: srv.URL, GSTKey: "key-1", GSTApp: "app-1"})
	payload, err := c.FetchGST(context.Background(), "27AAPFU0939F1ZV")
	require.NoError(t, err)

	data := gotBody["data"].(map[string]any)
	assert.Equal(t, "27AAPFU0939F1ZV", data["business_gstin_number"])
	assert.Equal(t, "Y", data["consent"])
	assert.Equal(t, "sync", gotBody["mode"])
	assert.NotEmpty(t, gotBody["task_id"])

	res := NormalizeGST(payload)
	require.NotNil(t, res.LegalName)
	assert.Equal(t, "ACME PVT LTD", *res.LegalName)
}

func TestFetchGSTNotConfigured(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.FetchGST(context.Background(), "27AAPFU0939F1ZV")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchPANProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"response_message":"invalid pan"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{PANURL: srv.URL, PANKey: "k", PANApp: "a"})
	_, err := c.FetchPAN(context.Background(), "AAPFU0939F", "")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
	assert.Contains(t, string(pe.Info), "invalid pan")
}

func TestFetchRejectsSoftFailure(t *testing.T) {
	// a 200 whose body says success=false is still a failure
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(Options{GSTURL: srv.URL, GSTKey: "k", GSTApp: "a"})
	_, err := c.FetchGST(context.Background(), "27AAPFU0939F1ZV")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusOK, pe.StatusCode)
}

func TestNormalizeGSTAddress(t *testing.T) {
	payload := []byte(`{"result":{
		"legal_name":"ACME PVT LTD",
		"current_registration_status":"Active",
		"primary_business_address":{
			"building_number":"12","street":"MG Road","district":"Pune",
			"state_code":"MH","pincode":"411001"}}}`)

	res := NormalizeGST(payload)
	require.NotNil(t, res.Address)
	assert.Equal(t, "12, MG Road, Pune, MH, 411001", *res.Address)
	assert.Equal(t, "MH", *res.StateCode)
	assert.Equal(t, "Active", *res.Status)

	// full_address wins over the composed form
	payload = []byte(`{"result":{"primary_business_address":{"full_address":"12 MG Road, Pune","street":"x"}}}`)
	res = NormalizeGST(payload)
	assert.Equal(t, "12 MG Road, Pune", *res.Address)
}

func TestNormalizePAN(t *testing.T) {
	res := NormalizePAN([]byte(`{"result":{"pan_status":"VALID","pan_holder_name":"RAHUL SHARMA"}}`))
	assert.True(t, res.Valid)
	assert.Equal(t, "RAHUL SHARMA", *res.HolderName)
	assert.Equal(t, "VALID", *res.Status)

	res = NormalizePAN([]byte(`{"result":{"status":"INVALID"}}`))
	assert.False(t, res.Valid)
	assert.Nil(t, res.HolderName)

	res = NormalizePAN([]byte(`not json`))
	assert.False(t, res.Valid)
	assert.Nil(t, res.Status)
}
