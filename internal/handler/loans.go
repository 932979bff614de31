package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// LoanHandler serves the dynamic loan-booking surface. Unlike the static
// entity routes, the target module is chosen per request by key, so
// permission checks happen inside the handler instead of route middleware.
type LoanHandler struct {
	entities *repository.EntityRepo
	seq      *repository.SequenceRepo
	fields   *repository.FieldRepo
}

// NewLoanHandler builds the loan booking/list handler.
func NewLoanHandler(entities *repository.EntityRepo, seq *repository.SequenceRepo, fields *repository.FieldRepo) *LoanHandler {
	return &LoanHandler{entities: entities, seq: seq, fields: fields}
}

// Modules handles GET /loans/modules, listing the registry so the UI
// can build its module picker without hardcoding keys.
func (h *LoanHandler) Modules(c echo.Context) error {
	keys := make([]string, 0, len(entity.Modules))
	for k := range entity.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]echo.Map, 0, len(keys))
	for _, k := range keys {
		cfg := entity.Modules[k]
		out = append(out, echo.Map{
			"key":         k,
			"entity":      cfg.EntityName,
			"code_prefix": cfg.CodePrefix,
			"perms": echo.Map{
				"read":  cfg.Perms.Read,
				"write": cfg.Perms.Write,
			},
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"modules": out})
}

// Create handles POST /loans/booking. The body carries the module key plus
// the module's own fields.
func (h *LoanHandler) Create(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	key, _ := body["module"].(string)
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module is required"})
	}
	cfg, ok := entity.Module(strings.TrimSpace(key))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown module: " + key})
	}
	if !middleware.HasPerm(c, cfg.Perms.Write) {
		return middleware.ForbidPerm(c, cfg.Perms.Write)
	}
	middleware.Annotate(c, "CREATE", cfg.EntityName)

	id, code, errResp := createOne(c, cfg, body, h.entities, h.seq, h.fields)
	if errResp != nil {
		return errResp(c)
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{"id": id, cfg.CodeField: code})
}

// Bulk handles POST /loans/booking/bulk with {"module": ..., "items": [...]}.
func (h *LoanHandler) Bulk(c echo.Context) error {
	var body struct {
		Module string           `json:"module"`
		Items  []map[string]any `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Module == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module is required"})
	}
	cfg, ok := entity.Module(strings.TrimSpace(body.Module))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown module: " + body.Module})
	}
	if !middleware.HasPerm(c, cfg.Perms.Write) {
		return middleware.ForbidPerm(c, cfg.Perms.Write)
	}
	middleware.Annotate(c, "BULK_CREATE", cfg.EntityName)
	return bulkCreate(c, cfg, body.Items, h.entities, h.seq, h.fields)
}

// List handles GET /loans/list?module=&status=&search=&limit=&offset=. The
// response projects every module onto the same grid columns regardless of
// how the underlying table names them.
func (h *LoanHandler) List(c echo.Context) error {
	key := c.QueryParam("module")
	if strings.TrimSpace(key) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module is required"})
	}
	cfg, ok := entity.Module(strings.TrimSpace(key))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown module: " + key})
	}
	// admin roles see every module's grid without per-module read grants
	if !middleware.HasRole(c, "ADMIN") && !middleware.HasRole(c, "SUPER_ADMIN") &&
		!middleware.HasPerm(c, cfg.Perms.Read) {
		return middleware.ForbidPerm(c, cfg.Perms.Read)
	}
	middleware.Annotate(c, "LIST", cfg.EntityName)

	limit, offset := parsePaging(c)
	p := repository.ListParams{
		Limit:  limit,
		Offset: offset,
		Search: strings.TrimSpace(c.QueryParam("search")),
		Status: strings.TrimSpace(c.QueryParam("status")),
	}
	rows, total, err := h.entities.ListGrid(c.Request().Context(), cfg, gridColumns(cfg.EntityName), p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rows": rows, "total": total, "limit": limit, "offset": offset})
}

// gridColumns maps a module's table onto the unified grid projection. The EV
// product predates the shared column naming and keeps its own spellings.
func gridColumns(entityName string) repository.GridColumns {
	cols := repository.GridColumns{Name: "applicant_name", Phone: "phone", Amount: "amount"}
	switch entityName {
	case "product_ev":
		cols = repository.GridColumns{Name: "customer_name", Phone: "mobile_number", Amount: "loan_amount"}
	case "lender_ev":
		cols.Amount = "loan_amount"
	}
	return cols
}
