package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// DocumentRepo manages the documents table. Rows are the source of truth for
// uploads; the bytes on disk are addressed through StoredName.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo constructs a DocumentRepo with the provided DB handle.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const docCols = `id, entity, record_id, filename, stored_name, mime, size_bytes, uploaded_by, created_at`

// Insert records one uploaded file and returns its id.
func (r *DocumentRepo) Insert(ctx context.Context, d model.Document) (uint64, error) {
	const q = `INSERT INTO documents (entity, record_id, filename, stored_name, mime, size_bytes, uploaded_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, d.Entity, d.RecordID, d.Filename, d.StoredName,
		d.Mime, d.SizeBytes, d.UploadedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListByRecord returns a record's documents newest-first.
func (r *DocumentRepo) ListByRecord(ctx context.Context, entity string, recordID uint64) ([]model.Document, error) {
	const q = `SELECT ` + docCols + ` FROM documents WHERE entity = ? AND record_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, entity, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Entity, &d.RecordID, &d.Filename, &d.StoredName,
			&d.Mime, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetByID returns one document row, ErrNotFound when absent.
func (r *DocumentRepo) GetByID(ctx context.Context, id uint64) (*model.Document, error) {
	const q = `SELECT ` + docCols + ` FROM documents WHERE id = ?`
	var d model.Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Entity, &d.RecordID, &d.Filename,
		&d.StoredName, &d.Mime, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes the row. The caller removes the file afterwards; a leaked
// file is recoverable, a dangling row is not.
func (r *DocumentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
