package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

var fieldCodeRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var fieldInputTypes = map[string]bool{
	"text": true, "number": true, "date": true, "select": true, "checkbox": true,
}

// FieldHandler serves custom field definitions: a read surface for forms and
// an admin surface for managing them.
type FieldHandler struct {
	fields *repository.FieldRepo
}

// NewFieldHandler builds the field definition handler.
func NewFieldHandler(fields *repository.FieldRepo) *FieldHandler {
	return &FieldHandler{fields: fields}
}

func fieldDefJSON(d model.FieldDef) echo.Map {
	return echo.Map{
		"id":         d.ID,
		"entity":     d.Entity,
		"code":       d.Code,
		"label":      d.Label,
		"input_type": d.InputType,
		"required":   d.Required,
		"options":    d.Options,
		"sort_order": d.SortOrder,
		"is_active":  d.IsActive,
		"created_at": d.CreatedAt,
	}
}

// List handles GET /fields?entity=, open to any authenticated user so forms
// can render their dynamic inputs. Only active definitions are returned; an
// empty entity yields an empty list rather than an error.
func (h *FieldHandler) List(c echo.Context) error {
	ent := strings.TrimSpace(c.QueryParam("entity"))
	if ent == "" {
		return c.JSON(http.StatusOK, []echo.Map{})
	}
	defs, err := h.fields.ListByEntity(c.Request().Context(), ent, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(defs))
	for _, d := range defs {
		out = append(out, fieldDefJSON(d))
	}
	return c.JSON(http.StatusOK, out)
}

// AdminList handles GET /admin/fields?entity=, including inactive
// definitions.
func (h *FieldHandler) AdminList(c echo.Context) error {
	ent := strings.TrimSpace(c.QueryParam("entity"))
	if ent == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entity is required"})
	}
	defs, err := h.fields.ListByEntity(c.Request().Context(), ent, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(defs))
	for _, d := range defs {
		out = append(out, fieldDefJSON(d))
	}
	return c.JSON(http.StatusOK, out)
}

type fieldPayload struct {
	Entity    string `json:"entity"`
	Code      string `json:"code"`
	Label     string `json:"label"`
	InputType string `json:"input_type"`
	Required  *bool  `json:"required"`
	Options   any    `json:"options"`
	SortOrder *int   `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

// encodeOptions serializes the options payload: arrays become JSON, strings
// pass through (comma lists from older admin screens), anything else is
// dropped.
func encodeOptions(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return &t
	case []any:
		buf, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s := string(buf)
		return &s
	default:
		return nil
	}
}

// Create handles POST /admin/fields.
func (h *FieldHandler) Create(c echo.Context) error {
	middleware.Annotate(c, "FIELD_CREATE", "custom_field")
	var p fieldPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	p.Entity = strings.TrimSpace(p.Entity)
	p.Code = strings.TrimSpace(p.Code)
	p.Label = strings.TrimSpace(p.Label)

	if _, known := entity.DocEntities()[p.Entity]; !known {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown entity"})
	}
	if p.Code == "" || len(p.Code) > 64 || !fieldCodeRe.MatchString(p.Code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code must be letters/numbers/_"})
	}
	if p.Label == "" || len(p.Label) > 128 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label is required"})
	}
	if !fieldInputTypes[p.InputType] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input_type"})
	}

	def := model.FieldDef{
		Entity:    p.Entity,
		Code:      p.Code,
		Label:     p.Label,
		InputType: p.InputType,
		Options:   encodeOptions(p.Options),
	}
	if p.Required != nil {
		def.Required = *p.Required
	}
	if p.SortOrder != nil && *p.SortOrder >= 0 {
		def.SortOrder = *p.SortOrder
	}

	id, err := h.fields.Create(c.Request().Context(), def)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "field code already exists for this entity"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Update handles PUT /admin/fields/:id with a partial payload merged over
// the stored definition. Entity and code stay immutable so stored custom
// payloads keep pointing at their definition.
func (h *FieldHandler) Update(c echo.Context) error {
	middleware.Annotate(c, "FIELD_UPDATE", "custom_field")
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var p fieldPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	cur, err := h.fields.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	label, inputType := cur.Label, cur.InputType
	required, sortOrder, isActive := cur.Required, cur.SortOrder, cur.IsActive
	options := cur.Options

	if l := strings.TrimSpace(p.Label); l != "" {
		if len(l) > 128 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "label too long"})
		}
		label = l
	}
	if p.InputType != "" {
		if !fieldInputTypes[p.InputType] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input_type"})
		}
		inputType = p.InputType
	}
	if p.Required != nil {
		required = *p.Required
	}
	if p.SortOrder != nil && *p.SortOrder >= 0 {
		sortOrder = *p.SortOrder
	}
	if p.IsActive != nil {
		isActive = *p.IsActive
	}
	if p.Options != nil {
		options = encodeOptions(p.Options)
	}

	if err := h.fields.Update(ctx, id, label, inputType, required, options, sortOrder, isActive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Deactivate handles DELETE /admin/fields/:id as a soft delete.
func (h *FieldHandler) Deactivate(c echo.Context) error {
	middleware.Annotate(c, "FIELD_DEACTIVATE", "custom_field")
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.fields.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
