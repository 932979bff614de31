package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceRepo issues the human-readable business codes (e.g. DLR00101)
// assigned to every created record. Counters live in the `id_sequences`
// table, one row per entity name.
type SequenceRepo struct {
	db *sql.DB
}

// NewSequenceRepo constructs a SequenceRepo with the provided DB handle.
func NewSequenceRepo(db *sql.DB) *SequenceRepo {
	return &SequenceRepo{db: db}
}

// NextCode atomically advances the counter for entityName and returns the
// next code as prefix + zero-padded 5 digits. The increment happens inside a
// single upsert so two concurrent callers can never observe the same value;
// LAST_INSERT_ID(expr) makes the new counter readable from the statement
// result without a follow-up SELECT. A fresh counter starts at 100; codes
// below 100 are reserved for manually seeded legacy rows.
func (r *SequenceRepo) NextCode(ctx context.Context, entityName, prefix string) (string, error) {
	const q = `INSERT INTO id_sequences (entity, last_num) VALUES (?, 100)
	           ON DUPLICATE KEY UPDATE last_num = LAST_INSERT_ID(last_num + 1)`
	res, err := r.db.ExecContext(ctx, q, entityName)
	if err != nil {
		return "", err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	if n == 0 {
		// first insert path: LAST_INSERT_ID is untouched, counter is 100
		n = 100
	}
	return fmt.Sprintf("%s%05d", prefix, n), nil
}
