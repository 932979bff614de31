package repository

import (
	"context"
	"database/sql"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// AuditRepo writes and lists audit_logs rows.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo constructs an AuditRepo with the provided DB handle.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert records one audit entry. Callers run this off the request path and
// only log failures.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditLog) error {
	const q = `INSERT INTO audit_logs
	           (user_id, action, entity, entity_id, method, path, status_code, details, ip, user_agent, duration_ms)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.UserID, e.Action, e.Entity, e.EntityID, e.Method, e.Path,
		e.StatusCode, e.Details, e.IP, e.UserAgent, e.DurationMS)
	return err
}

// AuditFilter narrows a List call. Zero values mean "no filter".
type AuditFilter struct {
	UserID uint64
	Entity string
	Action string
	Limit  int
	Offset int
}

// List pages through audit entries newest-first for the admin screen.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]map[string]any, int, error) {
	where := ""
	var args []any
	add := func(cond string, v any) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, v)
	}
	if f.UserID != 0 {
		add("user_id = ?", f.UserID)
	}
	if f.Entity != "" {
		add("entity = ?", f.Entity)
	}
	if f.Action != "" {
		add("action = ?", f.Action)
	}

	q := `SELECT id, user_id, action, entity, entity_id, method, path, status_code, details, ip, user_agent, duration_ms, created_at
	      FROM audit_logs` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(append([]any{}, args...), f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanMaps(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PurgeOlderThan deletes entries older than the retention window and returns
// the number removed. Runs from the nightly cron job.
func (r *AuditRepo) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < DATE_SUB(NOW(), INTERVAL ? DAY)`, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
