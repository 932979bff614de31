package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// AuditHandler serves the admin audit-trail browser.
type AuditHandler struct {
	audits *repository.AuditRepo
}

// NewAuditHandler builds the audit handler.
func NewAuditHandler(audits *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List handles GET /admin/audit?user_id=&entity=&action=&limit=&offset=.
func (h *AuditHandler) List(c echo.Context) error {
	limit, offset := parsePaging(c)
	f := repository.AuditFilter{
		Entity: strings.TrimSpace(c.QueryParam("entity")),
		Action: strings.TrimSpace(c.QueryParam("action")),
		Limit:  limit,
		Offset: offset,
	}
	if v, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64); err == nil {
		f.UserID = v
	}

	rows, total, err := h.audits.List(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rows": rows, "total": total, "limit": limit, "offset": offset})
}
