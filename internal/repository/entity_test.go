package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/entity"
)

var widgetCfg = entity.Config{
	EntityName:    "widget",
	Table:         "widgets",
	CodeField:     "widget_id",
	CodePrefix:    "WID",
	DefaultStatus: "PENDING",
	SearchColumns: []string{"name", "phone"},
}

func newEntityRepo(t *testing.T) (*EntityRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewEntityRepo(db), mock, func() { db.Close() }
}

func TestEntityList(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM widgets ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(2), []byte("beta")).
			AddRow(int64(1), []byte("alpha")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows, total, err := repo.List(context.Background(), widgetCfg, ListParams{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	// []byte columns surface as strings
	assert.Equal(t, "beta", rows[0]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityListSearchAndStatus(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	want := "SELECT * FROM widgets WHERE status = ? AND (name LIKE ? OR phone LIKE ?) ORDER BY id DESC LIMIT ? OFFSET ?"
	mock.ExpectQuery(regexp.QuoteMeta(want)).
		WithArgs("PENDING", "%acme%", "%acme%", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM widgets WHERE status = ? AND (name LIKE ? OR phone LIKE ?)")).
		WithArgs("PENDING", "%acme%", "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rows, total, err := repo.List(context.Background(), widgetCfg, ListParams{
		Limit: 10, Offset: 20, Search: "acme", Status: "PENDING",
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityGetByIDNotFound(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM widgets WHERE id = ?")).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), widgetCfg, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityInsert(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	// columns sorted alphabetically
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO widgets (name, status, widget_id) VALUES (?, ?, ?)")).
		WithArgs("Acme", "PENDING", "WID00101").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Insert(context.Background(), widgetCfg, map[string]any{
		"widget_id": "WID00101",
		"name":      "Acme",
		"status":    "PENDING",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestEntityInsertDuplicate(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectExec("INSERT INTO widgets").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Insert(context.Background(), widgetCfg, map[string]any{"name": "Acme"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestEntityUpdate(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")).
		WithArgs("New Name", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), widgetCfg, 3, map[string]any{"name": "New Name"})
	assert.NoError(t, err)
}

func TestEntityUpdateNotFound(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectExec("UPDATE widgets SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), widgetCfg, 3, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityUpdateEmptyPatchChecksExistence(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM widgets WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	err := repo.Update(context.Background(), widgetCfg, 3, map[string]any{})
	assert.NoError(t, err)
}

func TestBulkInsertBatchPath(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO widgets (name) VALUES (?), (?)")).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	inserted, failures, err := repo.BulkInsert(context.Background(), widgetCfg,
		[]map[string]any{{"name": "a"}, {"name": "b"}}, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Empty(t, failures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertFallbackReportsOriginalIndex(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a'"}

	// the batch statement fails as a whole
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO widgets").WillReturnError(dup)
	mock.ExpectRollback()

	// per-row retry: the second row is the offender
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO widgets").
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO widgets").
		WithArgs("b").
		WillReturnError(dup)
	mock.ExpectExec("INSERT INTO widgets").
		WithArgs("c").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	// indices 2, 5, 9 simulate earlier items rejected by validation
	inserted, failures, err := repo.BulkInsert(context.Background(), widgetCfg,
		[]map[string]any{{"name": "a"}, {"name": "b"}, {"name": "c"}}, []int{2, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, failures, 1)
	assert.Equal(t, 5, failures[0].Index)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewStatusConflict(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	// reason column probe, cached afterwards
	probe := regexp.QuoteMeta("SELECT COUNT(*) FROM information_schema.columns")
	mock.ExpectQuery(probe).
		WithArgs("widgets", "review_reason").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET status = ?, updated_at = CURRENT_TIMESTAMP, review_reason = ? WHERE id = ? AND status = ?")).
		WithArgs("REJECTED", "missing documents", uint64(4), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM widgets WHERE id = ?")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("APPROVED"))

	reason := "missing documents"
	err := repo.ReviewStatus(context.Background(), widgetCfg, 4, "REJECTED", &reason)

	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "APPROVED", conflict.Current)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewStatusApplied(t *testing.T) {
	repo, mock, done := newEntityRepo(t)
	defer done()

	// no reason column on this table
	probe := regexp.QuoteMeta("SELECT COUNT(*) FROM information_schema.columns")
	mock.ExpectQuery(probe).
		WithArgs("widgets", "review_reason").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(probe).
		WithArgs("widgets", "status_reason").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE widgets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?")).
		WithArgs("APPROVED", uint64(4), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReviewStatus(context.Background(), widgetCfg, 4, "APPROVED", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
