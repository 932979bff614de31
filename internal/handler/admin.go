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

// AdminHandler serves user and role administration, all gated on
// RBAC_MANAGE.
type AdminHandler struct {
	users *repository.UserRepo
	rbac  *repository.RBACRepo
}

// NewAdminHandler builds the admin handler.
func NewAdminHandler(users *repository.UserRepo, rbac *repository.RBACRepo) *AdminHandler {
	return &AdminHandler{users: users, rbac: rbac}
}

// ListUsers handles GET /admin/users, returning every user with their role
// codes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, roles, err := h.users.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		r := roles[u.ID]
		if r == nil {
			r = []string{}
		}
		out = append(out, echo.Map{
			"id":         u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"is_active":  u.IsActive,
			"created_at": u.CreatedAt,
			"roles":      r,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	middleware.Annotate(c, "CREATE", "user")
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		IsActive *bool  `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !loginEmailRe.MatchString(email) || len(email) > 191 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	var name *string
	if n := strings.TrimSpace(body.Name); n != "" {
		name = &n
	}
	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}

	id, err := h.users.Create(c.Request().Context(), email, name, active)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// UpdateUser handles PUT /admin/users/:id patching name and/or is_active.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	middleware.Annotate(c, "UPDATE", "user")
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var patch repository.UserPatch
	if raw, ok := body["name"]; ok {
		var name *string
		if s, _ := raw.(string); strings.TrimSpace(s) != "" {
			trimmed := strings.TrimSpace(s)
			name = &trimmed
		}
		patch.Name = &name
	}
	if raw, ok := body["is_active"]; ok {
		if b, ok := raw.(bool); ok {
			patch.IsActive = &b
		}
	}

	err = h.users.UpdateUser(c.Request().Context(), id, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ReplaceUserRoles handles PUT /admin/users/:id/roles, swapping the user's
// role set for the supplied codes. Unknown codes are skipped.
func (h *AdminHandler) ReplaceUserRoles(c echo.Context) error {
	middleware.Annotate(c, "ASSIGN_ROLES", "user")
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Roles []string `json:"roles"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	if _, err := h.users.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	var roleIDs []uint64
	for _, code := range body.Roles {
		role, err := h.rbac.RoleByCode(ctx, strings.TrimSpace(code))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		roleIDs = append(roleIDs, role.ID)
	}
	if err := h.users.ReplaceRoles(ctx, id, roleIDs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ListRoles handles GET /admin/roles.
func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.rbac.ListRoles(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(roles))
	for _, r := range roles {
		out = append(out, echo.Map{"id": r.ID, "code": r.Code, "name": r.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateRole handles POST /admin/roles/create.
func (h *AdminHandler) CreateRole(c echo.Context) error {
	middleware.Annotate(c, "CREATE", "role")
	var body struct {
		RoleCode string `json:"roleCode"`
		RoleName string `json:"roleName"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	code := strings.TrimSpace(body.RoleCode)
	if code == "" || len(code) > 191 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roleCode is required"})
	}
	var name *string
	if n := strings.TrimSpace(body.RoleName); n != "" {
		name = &n
	}

	id, err := h.rbac.CreateRole(c.Request().Context(), code, name)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Role code already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// ListPermissions handles GET /admin/permissions.
func (h *AdminHandler) ListPermissions(c echo.Context) error {
	perms, err := h.rbac.ListPermissions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(perms))
	for code, id := range perms {
		out = append(out, echo.Map{"id": id, "code": code})
	}
	// deterministic order for the admin grid
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i]["code"].(string)
		b, _ := out[j]["code"].(string)
		return a < b
	})
	return c.JSON(http.StatusOK, out)
}

// RolePermissions handles GET /admin/roles/:code/permissions.
func (h *AdminHandler) RolePermissions(c echo.Context) error {
	ctx := c.Request().Context()
	role, err := h.rbac.RoleByCode(ctx, c.Param("code"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Role not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	codes, err := h.rbac.RolePermissions(ctx, role.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if codes == nil {
		codes = []string{}
	}
	return c.JSON(http.StatusOK, codes)
}

// ReplaceRolePermissions handles PUT /admin/roles/:code/permissions.
func (h *AdminHandler) ReplaceRolePermissions(c echo.Context) error {
	middleware.Annotate(c, "SET_PERMS", "role")
	var body struct {
		Perms []string `json:"perms"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	role, err := h.rbac.RoleByCode(ctx, c.Param("code"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Role not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	ids, err := h.rbac.PermissionIDsByCodes(ctx, body.Perms)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.rbac.ReplaceRolePermissions(ctx, role.ID, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, role.ID)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
