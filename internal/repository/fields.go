package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// FieldRepo manages the custom_fields table of admin-defined dynamic fields.
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo constructs a FieldRepo with the provided DB handle.
func NewFieldRepo(db *sql.DB) *FieldRepo {
	return &FieldRepo{db: db}
}

const fieldCols = `id, entity, code, label, input_type, required, options, sort_order, is_active, created_at`

// ListByEntity returns the field definitions for one entity in display
// order. activeOnly narrows to live definitions, which is what validation
// and form rendering use; the admin screen lists everything.
func (r *FieldRepo) ListByEntity(ctx context.Context, entity string, activeOnly bool) ([]model.FieldDef, error) {
	q := `SELECT ` + fieldCols + ` FROM custom_fields WHERE entity = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, q, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []model.FieldDef
	for rows.Next() {
		var d model.FieldDef
		if err := rows.Scan(&d.ID, &d.Entity, &d.Code, &d.Label, &d.InputType,
			&d.Required, &d.Options, &d.SortOrder, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// GetByID returns one definition, ErrNotFound when absent.
func (r *FieldRepo) GetByID(ctx context.Context, id uint64) (*model.FieldDef, error) {
	const q = `SELECT ` + fieldCols + ` FROM custom_fields WHERE id = ?`
	var d model.FieldDef
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Entity, &d.Code, &d.Label,
		&d.InputType, &d.Required, &d.Options, &d.SortOrder, &d.IsActive, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a definition. A (entity, code) collision maps to
// ErrDuplicate.
func (r *FieldRepo) Create(ctx context.Context, d model.FieldDef) (uint64, error) {
	const q = `INSERT INTO custom_fields (entity, code, label, input_type, required, options, sort_order, is_active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
	res, err := r.db.ExecContext(ctx, q, d.Entity, d.Code, d.Label, d.InputType,
		d.Required, d.Options, d.SortOrder)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update rewrites the mutable attributes of a definition. The code and the
// owning entity are immutable once created, otherwise stored custom payloads
// would silently detach from their definition.
func (r *FieldRepo) Update(ctx context.Context, id uint64, label, inputType string, required bool, options *string, sortOrder int, isActive bool) error {
	const q = `UPDATE custom_fields SET label = ?, input_type = ?, required = ?, options = ?, sort_order = ?, is_active = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, label, inputType, required, options, sortOrder, isActive, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a definition. Existing stored values stay in the
// JSON column untouched; they just stop being validated or rendered.
func (r *FieldRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE custom_fields SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
