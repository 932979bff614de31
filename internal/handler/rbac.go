package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// RBACHandler serves the small runtime RBAC surface used by the frontend.
type RBACHandler struct {
	rbac *repository.RBACRepo
}

// NewRBACHandler builds the RBAC handler.
func NewRBACHandler(rbac *repository.RBACRepo) *RBACHandler {
	return &RBACHandler{rbac: rbac}
}

// Menu handles GET /rbac/menu, returning the caller's permission codes so
// the UI can show and hide navigation entries.
func (h *RBACHandler) Menu(c echo.Context) error {
	perms, _ := c.Get(middleware.CtxPerms).(map[string]bool)
	codes := make([]string, 0, len(perms))
	for code := range perms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return c.JSON(http.StatusOK, echo.Map{"permissions": codes})
}

// AssignRole handles POST /rbac/assign-role with {user_id, role_code},
// granting one role additively. Re-granting an existing role is a no-op.
func (h *RBACHandler) AssignRole(c echo.Context) error {
	middleware.Annotate(c, "ASSIGN_ROLE", "user")
	var body struct {
		UserID   uint64 `json:"user_id"`
		RoleCode string `json:"role_code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UserID == 0 || strings.TrimSpace(body.RoleCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role_code are required"})
	}

	ctx := c.Request().Context()
	role, err := h.rbac.RoleByCode(ctx, strings.TrimSpace(body.RoleCode))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Role not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.rbac.AssignRole(ctx, body.UserID, role.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, body.UserID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
