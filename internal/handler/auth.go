package handler

import (
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/config"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/queue"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/service"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/utils"
)

var loginEmailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthHandler serves the passwordless OTP login flow: request a code by
// email, verify it, receive a session token.
type AuthHandler struct {
	cfg    *config.Config
	users  *repository.UserRepo
	rbac   *repository.RBACRepo
	mailer *service.Mailer
}

// NewAuthHandler builds the auth handler.
func NewAuthHandler(cfg *config.Config, users *repository.UserRepo, rbac *repository.RBACRepo, mailer *service.Mailer) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, rbac: rbac, mailer: mailer}
}

// RequestOTP handles POST /auth/request-otp. Unknown emails get an account
// created on the spot; the response never reveals whether the address
// existed. Delivery goes through the broker so a slow mail server cannot
// stall the request, with direct send as the fallback when the broker is
// down.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	middleware.Annotate(c, "OTP_REQUEST", "user")
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !loginEmailRe.MatchString(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}

	ctx := c.Request().Context()
	if _, err := h.users.GetByEmail(ctx, email); errors.Is(err, repository.ErrNotFound) {
		if _, err := h.users.Create(ctx, email, nil, true); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	code, err := utils.NewOTPCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not generate code"})
	}
	hash, err := utils.HashOTP(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not generate code"})
	}
	expires := time.Now().UTC().Add(time.Duration(h.cfg.OTPTTLMin) * time.Minute)
	if err := h.users.CreateOTP(ctx, email, hash, expires); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	event := queue.OTPIssuedEvent{
		Email:      email,
		Code:       code,
		TTLMinutes: h.cfg.OTPTTLMin,
		IssuedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := service.PublishOTPIssued(ctx, event); err != nil {
		if err := h.mailer.SendOTP(email, code, h.cfg.OTPTTLMin); err != nil {
			c.Logger().Errorf("otp mail fallback failed for %s: %v", email, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "message": "If the email exists, an OTP has been sent."})
}

// VerifyOTP handles POST /auth/verify-otp. A code verifies at most once and
// only while fresh; five wrong guesses burn the code.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	middleware.Annotate(c, "OTP_VERIFY", "user")
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	code := strings.TrimSpace(body.Code)
	if !loginEmailRe.MatchString(email) || len(code) < 4 || len(code) > 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email or code"})
	}

	ctx := c.Request().Context()
	otp, err := h.users.LatestOTP(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "OTP not found or already used"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if time.Now().After(otp.ExpiresAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "OTP expired"})
	}
	if otp.Attempts >= h.cfg.OTPMaxRetries {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Too many attempts. Request a new OTP."})
	}

	if !utils.VerifyOTP(otp.CodeHash, code) {
		if err := h.users.BumpOTPAttempts(ctx, otp.ID); err != nil {
			c.Logger().Errorf("bump otp attempts: %v", err)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid code"})
	}
	if err := h.users.ConsumeOTP(ctx, otp.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil || !user.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "User inactive"})
	}

	tok, err := utils.NewAccessToken(h.cfg.JWTSecret, user.ID, user.Email, h.cfg.TokenTTLHours)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not sign token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": tok.Token})
}

// Me handles GET /auth/me, returning the caller's profile plus the
// permission codes the UI uses to show and hide menus.
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.UserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := h.users.GetByID(c.Request().Context(), uid)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	perms, _ := c.Get(middleware.CtxPerms).(map[string]bool)
	codes := make([]string, 0, len(perms))
	for code := range perms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return c.JSON(http.StatusOK, echo.Map{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"is_active":   user.IsActive,
		"permissions": codes,
	})
}
