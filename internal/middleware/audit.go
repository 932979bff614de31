package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
)

// Annotation keys handlers use to enrich the audit entry for their request.
const (
	ctxAuditAction   = "audit_action"
	ctxAuditEntity   = "audit_entity"
	ctxAuditEntityID = "audit_entity_id"
)

// sensitive request-body keys blanked before the body is persisted
var redactedKeys = []string{"password", "otp", "code", "token", "authorization"}

// maximum request-body bytes captured into the details column
const auditBodyLimit = 64 << 10

// Annotate tags the current request for the audit trail. Handlers call it
// after a successful mutation; SetEntityID adds the affected record once the
// id is known.
func Annotate(c echo.Context, action, entity string) {
	c.Set(ctxAuditAction, action)
	c.Set(ctxAuditEntity, entity)
}

// SetEntityID records the id of the record the request touched.
func SetEntityID(c echo.Context, id uint64) {
	c.Set(ctxAuditEntityID, id)
}

// AuditTrail records every handled request to audit_logs. The insert happens
// on a detached goroutine after the response is written so auditing never
// adds latency or turns a success into a failure. Unannotated 2xx GETs are
// skipped to keep read noise out of the table.
func AuditTrail(repo *repository.AuditRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			var body []byte
			if req := c.Request(); req.Body != nil && req.ContentLength != 0 &&
				strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				body, _ = io.ReadAll(io.LimitReader(req.Body, auditBodyLimit))
				req.Body = io.NopCloser(bytes.NewReader(body))
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			action, _ := c.Get(ctxAuditAction).(string)
			req := c.Request()
			if action == "" {
				if req.Method == http.MethodGet && status < 300 {
					return err
				}
				action = req.Method
			}

			entry := model.AuditLog{
				Action:     action,
				Method:     req.Method,
				Path:       req.URL.RequestURI(),
				StatusCode: status,
				Details:    sanitizeBody(body),
				IP:         c.RealIP(),
				UserAgent:  req.UserAgent(),
				DurationMS: time.Since(start).Milliseconds(),
			}
			if uid := UserID(c); uid != 0 {
				entry.UserID = &uid
			}
			if ent, ok := c.Get(ctxAuditEntity).(string); ok && ent != "" {
				entry.Entity = &ent
			}
			if eid, ok := c.Get(ctxAuditEntityID).(uint64); ok && eid != 0 {
				entry.EntityID = &eid
			}

			logger := c.Logger()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := repo.Insert(ctx, entry); err != nil {
					logger.Errorf("audit insert: %v", err)
				}
			}()
			return err
		}
	}
}

// sanitizeBody blanks sensitive keys at any depth of the captured JSON body.
// A body that does not parse is dropped rather than stored raw.
func sanitizeBody(body []byte) string {
	if len(body) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "{}"
	}
	redact(v)
	out, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func redact(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isRedacted(k) {
				t[k] = "[REDACTED]"
				continue
			}
			redact(val)
		}
	case []any:
		for _, item := range t {
			redact(item)
		}
	}
}

func isRedacted(key string) bool {
	k := strings.ToLower(key)
	for _, r := range redactedKeys {
		if k == r {
			return true
		}
	}
	return false
}
