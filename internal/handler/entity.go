// Package handler contains the HTTP handlers behind the REST API. The
// entity handler is generic: one instance per configured entity serves the
// whole list/read/create/update/bulk/review surface, driven entirely by the
// entity's Config.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/schema"
)

// EntityHandler serves the CRUD surface of one configured entity.
type EntityHandler struct {
	cfg      entity.Config
	entities *repository.EntityRepo
	seq      *repository.SequenceRepo
	fields   *repository.FieldRepo
}

// NewEntityHandler builds the handler for one entity config.
func NewEntityHandler(cfg entity.Config, entities *repository.EntityRepo, seq *repository.SequenceRepo, fields *repository.FieldRepo) *EntityHandler {
	return &EntityHandler{cfg: cfg, entities: entities, seq: seq, fields: fields}
}

// query paging bounds
const (
	defaultLimit = 20
	maxLimit     = 100
)

func parsePaging(c echo.Context) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func parseID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// List handles GET / with ?search=&status=&limit=&offset=.
func (h *EntityHandler) List(c echo.Context) error {
	middleware.Annotate(c, "LIST", h.cfg.EntityName)
	limit, offset := parsePaging(c)
	p := repository.ListParams{
		Limit:  limit,
		Offset: offset,
		Search: strings.TrimSpace(c.QueryParam("search")),
		Status: strings.TrimSpace(c.QueryParam("status")),
	}
	rows, total, err := h.entities.List(c.Request().Context(), h.cfg, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rows": rows, "total": total, "limit": limit, "offset": offset})
}

// Get handles GET /:id.
func (h *EntityHandler) Get(c echo.Context) error {
	middleware.Annotate(c, "READ", h.cfg.EntityName)
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	row, err := h.entities.GetByID(c.Request().Context(), h.cfg, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.cfg.EntityName + " not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, row)
}

// Create handles POST /. A business code is drawn from the sequence only
// after validation passes, so rejected payloads never consume a number.
func (h *EntityHandler) Create(c echo.Context) error {
	middleware.Annotate(c, "CREATE", h.cfg.EntityName)
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	id, code, errResp := createOne(c, h.cfg, body, h.entities, h.seq, h.fields)
	if errResp != nil {
		return errResp(c)
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{"id": id, h.cfg.CodeField: code})
}

// Update handles PUT /:id with a partial patch.
func (h *EntityHandler) Update(c echo.Context) error {
	middleware.Annotate(c, "UPDATE", h.cfg.EntityName)
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	v, errs := h.cfg.UpdateSchema.Validate(body)
	if len(errs) > 0 {
		return validationFailed(c, errs)
	}
	patch := h.cfg.MapBodyToRow(v)

	// custom applies only when the client sent the key: present rewrites the
	// whole JSON column, an empty object clears it, absent leaves it alone
	if _, sent := body["custom"]; sent && h.cfg.JSONColumn != "" {
		custom, errs := h.validateCustom(c, v["custom"])
		if len(errs) > 0 {
			return validationFailed(c, errs)
		}
		patch[h.cfg.JSONColumn] = encodeCustom(custom)
	}

	err = h.entities.Update(c.Request().Context(), h.cfg, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.cfg.EntityName + " not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate value"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Bulk handles POST /bulk with {"items": [...]}, typically a spreadsheet
// import. Each item is validated independently; valid rows are inserted as a
// batch and failures are reported per item index.
func (h *EntityHandler) Bulk(c echo.Context) error {
	middleware.Annotate(c, "BULK_CREATE", h.cfg.EntityName)
	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return bulkCreate(c, h.cfg, body.Items, h.entities, h.seq, h.fields)
}

// Review handles PATCH /:id/status with {"action": "approve"|"reject",
// "reason": ...}. The transition is guarded: only a record still in its
// initial status can be reviewed, and a lost race reports 409 with the
// current status.
func (h *EntityHandler) Review(c echo.Context) error {
	middleware.Annotate(c, "STATUS", h.cfg.EntityName)
	if !h.cfg.HasStatus() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Status not enabled for this entity"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var status string
	switch strings.ToLower(body.Action) {
	case "approve":
		status = "APPROVED"
	case "reject":
		status = "REJECTED"
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid action"})
	}

	var reason *string
	if r := strings.TrimSpace(body.Reason); r != "" {
		if len(r) > 1000 {
			r = r[:1000]
		}
		reason = &r
	}

	err = h.entities.ReviewStatus(c.Request().Context(), h.cfg, id, status, reason)
	var conflict *repository.StatusConflictError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": h.cfg.EntityName + " not found"})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Error(), "current": conflict.Current})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// validateCustom checks the free-form payload against the entity's active
// field definitions. With no definitions on file the payload passes through
// as-is.
func (h *EntityHandler) validateCustom(c echo.Context, raw any) (map[string]any, []schema.FieldError) {
	return validateCustom(c, h.cfg, raw, h.fields)
}

// ---- shared pieces, also used by the loan booking handler ----

type errorResponder func(echo.Context) error

func validationFailed(c echo.Context, errs []schema.FieldError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": errs})
}

func validateCustom(c echo.Context, cfg entity.Config, raw any, fields *repository.FieldRepo) (map[string]any, []schema.FieldError) {
	custom := schema.NormalizeCustom(raw)
	if len(custom) == 0 || fields == nil {
		return custom, nil
	}
	defs, err := fields.ListByEntity(c.Request().Context(), cfg.EntityName, true)
	if err != nil || len(defs) == 0 {
		// definitions are an admin aid, not a gate; store unvalidated
		return custom, nil
	}
	out, errs := schema.FromDefs(defs).Validate(custom)
	if len(errs) > 0 {
		for i := range errs {
			errs[i].Field = "custom." + errs[i].Field
		}
		return nil, errs
	}
	return out, nil
}

func encodeCustom(custom map[string]any) any {
	if len(custom) == 0 {
		return nil
	}
	buf, err := json.Marshal(custom)
	if err != nil {
		return nil
	}
	return string(buf)
}

// createOne validates one create payload against cfg, assigns a business
// code and inserts the row. On failure it returns a responder that writes
// the proper error; the sequence is only consumed after validation passes.
func createOne(c echo.Context, cfg entity.Config, body map[string]any, entities *repository.EntityRepo, seq *repository.SequenceRepo, fields *repository.FieldRepo) (uint64, string, errorResponder) {
	v, errs := cfg.CreateSchema.Validate(body)
	if len(errs) > 0 {
		return 0, "", func(c echo.Context) error { return validationFailed(c, errs) }
	}
	var custom map[string]any
	if cfg.JSONColumn != "" {
		var cerrs []schema.FieldError
		custom, cerrs = validateCustom(c, cfg, v["custom"], fields)
		if len(cerrs) > 0 {
			return 0, "", func(c echo.Context) error { return validationFailed(c, cerrs) }
		}
	}

	ctx := c.Request().Context()
	code, err := seq.NextCode(ctx, cfg.EntityName, cfg.CodePrefix)
	if err != nil {
		return 0, "", func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}

	row := cfg.MapBodyToRow(v)
	row[cfg.CodeField] = code
	if cfg.HasStatus() {
		row["status"] = cfg.DefaultStatus
	}
	if cfg.JSONColumn != "" {
		row[cfg.JSONColumn] = encodeCustom(custom)
	}

	id, err := entities.Insert(ctx, cfg, row)
	if errors.Is(err, repository.ErrDuplicate) {
		return 0, "", func(c echo.Context) error {
			return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate value"})
		}
	}
	if err != nil {
		return 0, "", func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	return id, code, nil
}

// bulkCreate runs the shared bulk import flow for cfg over raw items.
func bulkCreate(c echo.Context, cfg entity.Config, items []map[string]any, entities *repository.EntityRepo, seq *repository.SequenceRepo, fields *repository.FieldRepo) error {
	if len(items) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"inserted": 0, "failed": 0, "errors": []repository.BulkError{}})
	}

	ctx := c.Request().Context()
	bulkErrors := []repository.BulkError{}
	var rowSet []map[string]any
	var indices []int

	for i, item := range items {
		v, errs := cfg.BulkItemSchema.Validate(item)
		if len(errs) > 0 {
			bulkErrors = append(bulkErrors, repository.BulkError{Index: i, Error: joinFieldErrors(errs)})
			continue
		}
		var custom map[string]any
		if cfg.JSONColumn != "" {
			var cerrs []schema.FieldError
			custom, cerrs = validateCustom(c, cfg, v["custom"], fields)
			if len(cerrs) > 0 {
				bulkErrors = append(bulkErrors, repository.BulkError{Index: i, Error: joinFieldErrors(cerrs)})
				continue
			}
		}
		base := cfg.MapBodyToRow(v)
		// blank spreadsheet rows pass a fully-optional schema; reject them
		// before a code is drawn
		if entity.EmptyRow(base) {
			bulkErrors = append(bulkErrors, repository.BulkError{Index: i, Error: "empty_row"})
			continue
		}

		code, err := seq.NextCode(ctx, cfg.EntityName, cfg.CodePrefix)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		row := base
		row[cfg.CodeField] = code
		if cfg.HasStatus() {
			row["status"] = cfg.DefaultStatus
		}
		if cfg.JSONColumn != "" {
			row[cfg.JSONColumn] = encodeCustom(custom)
		}
		rowSet = append(rowSet, row)
		indices = append(indices, i)
	}

	inserted, failures, err := entities.BulkInsert(ctx, cfg, rowSet, indices)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	bulkErrors = append(bulkErrors, failures...)
	return c.JSON(http.StatusOK, echo.Map{
		"inserted": inserted,
		"failed":   len(bulkErrors),
		"errors":   bulkErrors,
	})
}

func joinFieldErrors(errs []schema.FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return "validation_error: " + strings.Join(parts, "; ")
}
