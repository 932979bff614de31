package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// CtxPerms is the context key holding the caller's permission code set.
const CtxPerms = "perms"

// CtxRoles is the context key holding the caller's role code set.
const CtxRoles = "roles"

// AttachPermissions loads the authenticated user's permission and role codes
// once per request. Runs after JWTAuth; a lookup failure fails closed with an
// empty set rather than erroring the request.
func AttachPermissions(rbac *repository.RBACRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			perms := map[string]bool{}
			roles := map[string]bool{}
			if uid := UserID(c); uid != 0 {
				ctx := c.Request().Context()
				codes, err := rbac.PermissionsForUser(ctx, uid)
				if err != nil {
					c.Logger().Errorf("load permissions for user %d: %v", uid, err)
				}
				for _, code := range codes {
					perms[code] = true
				}
				roleCodes, err := rbac.RoleCodesForUser(ctx, uid)
				if err != nil {
					c.Logger().Errorf("load roles for user %d: %v", uid, err)
				}
				for _, code := range roleCodes {
					roles[code] = true
				}
			}
			c.Set(CtxPerms, perms)
			c.Set(CtxRoles, roles)
			return next(c)
		}
	}
}

// RequirePerm gates a route on one permission code. The response names the
// missing code so the UI can explain the denial.
func RequirePerm(code string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasPerm(c, code) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden", "need": code})
			}
			return next(c)
		}
	}
}

// HasPerm reports whether the caller holds the permission code. Used by
// handlers that gate on a code chosen at request time, like the entity
// factory routes.
func HasPerm(c echo.Context, code string) bool {
	perms, ok := c.Get(CtxPerms).(map[string]bool)
	return ok && perms[code]
}

// HasRole reports whether the caller holds the role code.
func HasRole(c echo.Context, code string) bool {
	roles, ok := c.Get(CtxRoles).(map[string]bool)
	return ok && roles[code]
}

// ForbidPerm writes the standard 403 body for a dynamically checked code.
func ForbidPerm(c echo.Context, code string) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden", "need": code})
}
