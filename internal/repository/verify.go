package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// VerifyRepo caches third-party verification payloads in the gst_cache and
// pan_cache tables so repeated lookups of the same identifier within a day
// cost nothing.
type VerifyRepo struct {
	db *sql.DB
}

// NewVerifyRepo constructs a VerifyRepo with the provided DB handle.
func NewVerifyRepo(db *sql.DB) *VerifyRepo {
	return &VerifyRepo{db: db}
}

// cache table layout per kind; both tables share the same shape
var verifyTables = map[string]struct{ table, key string }{
	"gst": {"gst_cache", "gstin"},
	"pan": {"pan_cache", "pan"},
}

// Get returns the cached row for an identifier if it was fetched within
// maxAge. ErrNotFound covers both a missing and a stale row.
func (r *VerifyRepo) Get(ctx context.Context, kind, id string, maxAge time.Duration) (*model.VerifyCache, error) {
	t, ok := verifyTables[kind]
	if !ok {
		return nil, errors.New("unknown verify kind: " + kind)
	}
	var v model.VerifyCache
	var err error
	if kind == "pan" {
		const q = `SELECT pan, payload, status, holder_name, fetched_at FROM pan_cache WHERE pan = ?`
		err = r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Payload, &v.Status, &v.HolderName, &v.FetchedAt)
	} else {
		q := `SELECT ` + t.key + `, payload, status, fetched_at FROM ` + t.table + ` WHERE ` + t.key + ` = ?`
		err = r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Payload, &v.Status, &v.FetchedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if time.Since(v.FetchedAt) > maxAge {
		return nil, ErrNotFound
	}
	return &v, nil
}

// Put upserts a fresh provider payload for the identifier. PAN rows also
// carry the holder name the provider reported.
func (r *VerifyRepo) Put(ctx context.Context, kind string, v model.VerifyCache) error {
	t, ok := verifyTables[kind]
	if !ok {
		return errors.New("unknown verify kind: " + kind)
	}
	if kind == "pan" {
		const q = `INSERT INTO pan_cache (pan, payload, status, holder_name, fetched_at)
		           VALUES (?, ?, ?, ?, NOW())
		           ON DUPLICATE KEY UPDATE payload = VALUES(payload), status = VALUES(status),
		                                   holder_name = VALUES(holder_name), fetched_at = NOW()`
		_, err := r.db.ExecContext(ctx, q, v.ID, v.Payload, v.Status, v.HolderName)
		return err
	}
	q := `INSERT INTO ` + t.table + ` (` + t.key + `, payload, status, fetched_at)
	      VALUES (?, ?, ?, NOW())
	      ON DUPLICATE KEY UPDATE payload = VALUES(payload), status = VALUES(status), fetched_at = NOW()`
	_, err := r.db.ExecContext(ctx, q, v.ID, v.Payload, v.Status)
	return err
}
