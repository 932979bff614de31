package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/utils"
)

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", 7, "ops@corp.in", 1)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth("secret")(func(c echo.Context) error {
		assert.Equal(t, uint64(7), UserID(c))
		assert.Equal(t, "ops@corp.in", c.Get(CtxUserEmail))
		return okHandler(c)
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMissingToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, JWTAuth("secret")(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 7, "ops@corp.in", 1)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, JWTAuth("secret")(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequirePerm(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(CtxPerms, map[string]bool{"DEALERS_READ": true})

	require.NoError(t, RequirePerm("DEALERS_READ")(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermDenied(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(CtxPerms, map[string]bool{})

	require.NoError(t, RequirePerm("DEALERS_WRITE")(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Forbidden", body["error"])
	assert.Equal(t, "DEALERS_WRITE", body["need"])
}

func TestHasPermWithoutContext(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.False(t, HasPerm(c, "ANY"))
}

func TestSanitizeBodyRedaction(t *testing.T) {
	in := `{"email":"x@y.in","otp":"123456","nested":{"password":"hunter2","keep":"v"},"list":[{"token":"abc"}]}`
	out := sanitizeBody([]byte(in))

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "x@y.in", m["email"])
	assert.Equal(t, "[REDACTED]", m["otp"])
	nested := m["nested"].(map[string]any)
	assert.Equal(t, "[REDACTED]", nested["password"])
	assert.Equal(t, "v", nested["keep"])
	item := m["list"].([]any)[0].(map[string]any)
	assert.Equal(t, "[REDACTED]", item["token"])
}

func TestSanitizeBodyUnparseable(t *testing.T) {
	assert.Equal(t, "{}", sanitizeBody(nil))
	assert.Equal(t, "{}", sanitizeBody([]byte("not json")))
}
