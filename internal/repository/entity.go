package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
)

// EntityRepo executes the generic CRUD queries behind the entity router
// factory. It operates on any table shaped like a configured entity: numeric
// auto-increment id, a unique business-code column, scalar columns, an
// optional status column and an optional JSON custom-data column. Rows are
// read and written as maps because the column set differs per entity.
type EntityRepo struct {
	db *sql.DB

	mu   sync.Mutex
	cols map[string]bool // "table.column" existence cache
}

// NewEntityRepo constructs an EntityRepo with the provided DB handle.
func NewEntityRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db, cols: make(map[string]bool)}
}

// ListParams carries the pagination and filter inputs of a list call.
// Limit/Offset arrive pre-clamped by the handler.
type ListParams struct {
	Limit  int
	Offset int
	Search string
	Status string
}

// List returns one page of rows ordered by descending id plus the total
// match count. A non-empty search is OR-matched with LIKE against the
// config's search columns. The page and the count are two independent
// queries; under concurrent writes the total may be stale relative to the
// page, which is acceptable for an admin grid.
func (r *EntityRepo) List(ctx context.Context, cfg entity.Config, p ListParams) ([]map[string]any, int, error) {
	where, args := listFilter(cfg, p)

	q := fmt.Sprintf("SELECT * FROM %s%s ORDER BY id DESC LIMIT ? OFFSET ?", cfg.Table, where)
	rows, err := r.db.QueryContext(ctx, q, append(append([]any{}, args...), p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanMaps(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", cfg.Table, where)
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func listFilter(cfg entity.Config, p ListParams) (string, []any) {
	var conds []string
	var args []any
	if p.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, p.Status)
	}
	if p.Search != "" && len(cfg.SearchColumns) > 0 {
		like := "%" + p.Search + "%"
		ors := make([]string, len(cfg.SearchColumns))
		for i, col := range cfg.SearchColumns {
			ors[i] = col + " LIKE ?"
			args = append(args, like)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GridColumns names the per-table source columns behind the unified loan
// grid projection.
type GridColumns struct {
	Name   string
	Phone  string
	Amount string
}

// ListGrid returns a unified projection over one loan table: id,
// applicant_name, phone, amount, status and created_at, whatever the
// underlying columns are called. Amounts are cast to DECIMAL(18,2) so mixed
// column types line up in the grid.
func (r *EntityRepo) ListGrid(ctx context.Context, cfg entity.Config, cols GridColumns, p ListParams) ([]map[string]any, int, error) {
	where, args := listFilter(cfg, p)

	q := fmt.Sprintf(
		"SELECT id, %s AS applicant_name, %s AS phone, CAST(%s AS DECIMAL(18,2)) AS amount, status, created_at FROM %s%s ORDER BY id DESC LIMIT ? OFFSET ?",
		cols.Name, cols.Phone, cols.Amount, cfg.Table, where)
	rows, err := r.db.QueryContext(ctx, q, append(append([]any{}, args...), p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanMaps(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", cfg.Table, where)
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches one row by primary key. ErrNotFound when absent.
func (r *EntityRepo) GetByID(ctx context.Context, cfg entity.Config, id uint64) (map[string]any, error) {
	q := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", cfg.Table)
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// Insert writes one row and returns its auto-generated id. Column order is
// sorted so the statement is deterministic. Duplicate-key violations map to
// ErrDuplicate.
func (r *EntityRepo) Insert(ctx context.Context, cfg entity.Config, row map[string]any) (uint64, error) {
	return insertRow(ctx, r.db, cfg.Table, row)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, ex execer, table string, row map[string]any) (uint64, error) {
	cols := sortedKeys(row)
	if len(cols) == 0 {
		return 0, errors.New("empty row")
	}
	args := make([]any, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		args[i] = row[c]
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update patches the columns present in patch. ErrNotFound when the id does
// not match a row. The pool runs with CLIENT_FOUND_ROWS so RowsAffected
// counts matched rows, not changed ones.
func (r *EntityRepo) Update(ctx context.Context, cfg entity.Config, id uint64, patch map[string]any) error {
	cols := sortedKeys(patch)
	if len(cols) == 0 {
		// nothing to patch; still report whether the row exists
		_, err := r.GetByID(ctx, cfg, id)
		return err
	}
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
		args = append(args, patch[c])
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", cfg.Table, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkError reports one rejected bulk item by its original index.
type BulkError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkInsert writes pre-validated rows. indices carries each row's position
// in the caller's original item list for error reporting. The rows go in as
// one multi-row insert inside a transaction; if that batch fails as a whole
// (one duplicate key poisons the whole statement), a second transaction
// retries row-by-row so only the genuinely offending rows are reported and
// all others still commit.
func (r *EntityRepo) BulkInsert(ctx context.Context, cfg entity.Config, rowSet []map[string]any, indices []int) (int, []BulkError, error) {
	if len(rowSet) == 0 {
		return 0, nil, nil
	}

	if err := r.batchInsert(ctx, cfg.Table, rowSet); err == nil {
		return len(rowSet), nil, nil
	}

	// fallback: per-row inserts in a fresh transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	inserted := 0
	var failures []BulkError
	for i, row := range rowSet {
		if _, err := insertRow(ctx, tx, cfg.Table, row); err != nil {
			failures = append(failures, BulkError{Index: indices[i], Error: err.Error()})
			continue
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	return inserted, failures, nil
}

func (r *EntityRepo) batchInsert(ctx context.Context, table string, rowSet []map[string]any) error {
	// rows validated against a partial schema may carry different key sets;
	// the batch statement uses their union with NULL fills
	colSet := map[string]bool{}
	for _, row := range rowSet {
		for c := range row {
			colSet[c] = true
		}
	}
	cols := sortedKeys2(colSet)

	marks := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	tuples := make([]string, len(rowSet))
	args := make([]any, 0, len(cols)*len(rowSet))
	for i, row := range rowSet {
		tuples[i] = marks
		for _, c := range cols {
			args = append(args, row[c])
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), strings.Join(tuples, ", "))
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ReviewStatus performs the guarded review transition. The update is an
// optimistic compare-and-swap: only a PENDING row (or a row still in the
// entity's configured initial status) may move to the new status. Zero rows
// affected means either not-found or already-transitioned; a follow-up read
// disambiguates to ErrNotFound or StatusConflictError.
func (r *EntityRepo) ReviewStatus(ctx context.Context, cfg entity.Config, id uint64, status string, reason *string) error {
	sets := []string{"status = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []any{status}
	if col, ok := r.reasonColumn(ctx, cfg.Table); ok {
		sets = append(sets, col+" = ?")
		args = append(args, reason)
	}
	args = append(args, id, cfg.DefaultStatus)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND status = ?", cfg.Table, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current string
	readQ := fmt.Sprintf("SELECT status FROM %s WHERE id = ?", cfg.Table)
	if err := r.db.QueryRowContext(ctx, readQ, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return &StatusConflictError{Current: current}
}

// reasonColumn probes for an optional review-reason column. Tables predate
// the generic factory and named it differently; both spellings are accepted.
// Lookups hit information_schema once per table and are cached.
func (r *EntityRepo) reasonColumn(ctx context.Context, table string) (string, bool) {
	for _, col := range []string{"review_reason", "status_reason"} {
		if r.hasColumn(ctx, table, col) {
			return col, true
		}
	}
	return "", false
}

func (r *EntityRepo) hasColumn(ctx context.Context, table, col string) bool {
	key := table + "." + col
	r.mu.Lock()
	if v, ok := r.cols[key]; ok {
		r.mu.Unlock()
		return v
	}
	r.mu.Unlock()

	const q = `SELECT COUNT(*) FROM information_schema.columns
	           WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, table, col).Scan(&n); err != nil {
		return false // do not cache on error
	}
	r.mu.Lock()
	r.cols[key] = n > 0
	r.mu.Unlock()
	return n > 0
}

// scanMaps reads all rows into maps keyed by column name. []byte values
// (TEXT/VARCHAR under the MySQL driver) come back as strings.
func scanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
			} else {
				m[c] = vals[i]
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys2(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
