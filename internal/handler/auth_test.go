package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/config"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/service"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/utils"
)

var authCfg = &config.Config{
	JWTSecret:     "test-secret",
	OTPTTLMin:     10,
	OTPMaxRetries: 5,
	TokenTTLHours: 8,
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewAuthHandler(authCfg,
		repository.NewUserRepo(db),
		repository.NewRBACRepo(db),
		service.NewMailer("", 0, "", "", ""))
	return h, mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "name", "is_active", "created_at"})
}

func otpRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "code_hash", "expires_at", "attempts", "consumed", "created_at"})
}

func TestRequestOTPInvalidEmail(t *testing.T) {
	h, _, done := newAuthHandler(t)
	defer done()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/request-otp", `{"email":"not-an-email"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.RequestOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email", decodeBody(t, rec)["error"])
}

func TestRequestOTPCreatesUnknownUser(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, is_active, created_at FROM users WHERE email = ?")).
		WithArgs("new@corp.in").
		WillReturnRows(userRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, name, is_active) VALUES (?, ?, ?)")).
		WithArgs("new@corp.in", nil, true).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp SET consumed = 1 WHERE email = ? AND consumed = 0")).
		WithArgs("new@corp.in").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO otp (email, code_hash, expires_at) VALUES (?, ?, ?)")).
		WithArgs("new@corp.in", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/request-otp", `{"email":" New@Corp.IN "}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.RequestOTP(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	// the response never reveals whether the account existed
	assert.Equal(t, "If the email exists, an OTP has been sent.", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	hash, err := utils.HashOTP("482913")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows().
			AddRow(int64(9), "ops@corp.in", hash, time.Now().Add(5*time.Minute), 0, false, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp SET consumed = 1 WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, is_active, created_at FROM users WHERE email = ?")).
		WithArgs("ops@corp.in").
		WillReturnRows(userRows().AddRow(int64(3), "ops@corp.in", nil, true, time.Now()))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"482913"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	tok := decodeBody(t, rec)["token"].(string)
	uid, email, err := utils.ParseAccessToken(authCfg.JWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), uid)
	assert.Equal(t, "ops@corp.in", email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	hash, err := utils.HashOTP("482913")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows().
			AddRow(int64(9), "ops@corp.in", hash, time.Now().Add(5*time.Minute), 0, false, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp SET attempts = attempts + 1 WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"000000"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid code", decodeBody(t, rec)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTPExpired(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows().
			AddRow(int64(9), "ops@corp.in", "x", time.Now().Add(-time.Minute), 0, false, time.Now()))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"482913"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP expired", decodeBody(t, rec)["error"])
}

func TestVerifyOTPTooManyAttempts(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows().
			AddRow(int64(9), "ops@corp.in", "x", time.Now().Add(5*time.Minute), 5, false, time.Now()))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"482913"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Too many attempts. Request a new OTP.", decodeBody(t, rec)["error"])
}

func TestVerifyOTPNoneIssued(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows())

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"482913"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP not found or already used", decodeBody(t, rec)["error"])
}

func TestVerifyOTPInactiveUser(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	hash, err := utils.HashOTP("482913")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, code_hash, expires_at, attempts, consumed, created_at")).
		WithArgs("ops@corp.in").
		WillReturnRows(otpRows().
			AddRow(int64(9), "ops@corp.in", hash, time.Now().Add(5*time.Minute), 0, false, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp SET consumed = 1 WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, is_active, created_at FROM users WHERE email = ?")).
		WillReturnRows(userRows().AddRow(int64(3), "ops@corp.in", nil, false, time.Now()))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/auth/verify-otp", `{"email":"ops@corp.in","code":"482913"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User inactive", decodeBody(t, rec)["error"])
}

func TestMe(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	name := "Priya"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, is_active, created_at FROM users WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(userRows().AddRow(int64(3), "ops@corp.in", name, true, time.Now()))

	e := echo.New()
	req, rec := jsonRequest(http.MethodGet, "/auth/me", "")
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(3))
	c.Set(middleware.CtxPerms, map[string]bool{"DEALERS_READ": true, "DOCS_READ": true})

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ops@corp.in", body["email"])
	assert.Equal(t, []any{"DEALERS_READ", "DOCS_READ"}, body["permissions"])
}
