package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// upload limits
const maxUploadBytes = 20 << 20

var blockedExts = map[string]bool{".exe": true, ".bat": true, ".cmd": true, ".sh": true}

// DocHandler serves document attachments for any allowlisted entity. The
// documents table is the source of truth; bytes live on disk under
// uploads/<entity>/<record id>/.
type DocHandler struct {
	docs      *repository.DocumentRepo
	uploadDir string
}

// NewDocHandler builds the document handler rooted at uploadDir.
func NewDocHandler(docs *repository.DocumentRepo, uploadDir string) *DocHandler {
	return &DocHandler{docs: docs, uploadDir: uploadDir}
}

func docEntity(c echo.Context) (string, bool) {
	ent := c.Param("entity")
	_, ok := entity.DocEntities()[ent]
	return ent, ok
}

func docURL(d model.Document) string {
	return fmt.Sprintf("/uploads/%s/%d/%s",
		d.Entity, d.RecordID, url.PathEscape(d.StoredName))
}

// List handles GET /docs/:entity/:id.
func (h *DocHandler) List(c echo.Context) error {
	middleware.Annotate(c, "DOCS_LIST", "documents")
	ent, ok := docEntity(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad entity"})
	}
	recordID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	rows, err := h.docs.ListByRecord(c.Request().Context(), ent, recordID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]echo.Map, 0, len(rows))
	for _, d := range rows {
		out = append(out, echo.Map{
			"id":         d.ID,
			"filename":   d.Filename,
			"mime":       d.Mime,
			"size_bytes": d.SizeBytes,
			"url":        docURL(d),
			"created_at": d.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Upload handles POST /docs/:entity/:id/upload, a multipart form with a
// `file` part and an optional `filename` display-name override. Files are
// stored under a generated name so a hostile display name can never escape
// the upload directory.
func (h *DocHandler) Upload(c echo.Context) error {
	middleware.Annotate(c, "DOCS_UPLOAD", "documents")
	ent, ok := docEntity(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad entity"})
	}
	recordID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if blockedExts[ext] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unsupported file type"})
	}

	display := strings.TrimSpace(c.FormValue("filename"))
	if display == "" {
		display = fh.Filename
	}
	display = strings.ReplaceAll(strings.ReplaceAll(display, "/", "_"), "\\", "_")
	if len(display) > 180 {
		display = display[:180]
	}

	dir := filepath.Join(h.uploadDir, ent, fmt.Sprint(recordID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	stored := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	defer dst.Close()

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	defer src.Close()
	written, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}

	doc := model.Document{
		Entity:     ent,
		RecordID:   recordID,
		Filename:   display,
		StoredName: stored,
		Mime:       fh.Header.Get("Content-Type"),
		SizeBytes:  written,
	}
	if uid := middleware.UserID(c); uid != 0 {
		doc.UploadedBy = &uid
	}
	id, err := h.docs.Insert(c.Request().Context(), doc)
	if err != nil {
		// keep disk and table consistent when the insert fails
		_ = os.Remove(filepath.Join(dir, stored))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	doc.ID = id

	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         id,
		"filename":   doc.Filename,
		"size_bytes": doc.SizeBytes,
		"url":        docURL(doc),
	})
}

// Delete handles DELETE /docs/:id. The row goes first; a file left behind
// by a failed remove is harmless, a dangling row is not.
func (h *DocHandler) Delete(c echo.Context) error {
	middleware.Annotate(c, "DOCS_DELETE", "documents")
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx := c.Request().Context()
	doc, err := h.docs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.docs.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	path := filepath.Join(h.uploadDir, doc.Entity, fmt.Sprint(doc.RecordID), doc.StoredName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.Logger().Warnf("remove document file %s: %v", path, err)
	}

	middleware.SetEntityID(c, id)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
