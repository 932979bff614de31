package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

func TestAuditInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	uid := uint64(3)
	ent := "dealer"
	eid := uint64(42)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(uid, "CREATE", ent, eid, "POST", "/dealers", 201, `{"name":"Acme"}`,
			"10.0.0.9", "curl/8.0", int64(12)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAuditRepo(db)
	err = repo.Insert(context.Background(), model.AuditLog{
		UserID:     &uid,
		Action:     "CREATE",
		Entity:     &ent,
		EntityID:   &eid,
		Method:     "POST",
		Path:       "/dealers",
		StatusCode: 201,
		Details:    `{"name":"Acme"}`,
		IP:         "10.0.0.9",
		UserAgent:  "curl/8.0",
		DurationMS: 12,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "user_id", "action", "entity", "entity_id", "method", "path",
		"status_code", "details", "ip", "user_agent", "duration_ms", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM audit_logs WHERE user_id = ? AND entity = ? ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs(uint64(3), "dealer", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(9, 3, "UPDATE", "dealer", 42, "PUT", "/dealers/42", 200, "{}",
				"10.0.0.9", "curl/8.0", 8, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM audit_logs WHERE user_id = ? AND entity = ?")).
		WithArgs(uint64(3), "dealer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewAuditRepo(db)
	rows, total, err := repo.List(context.Background(), AuditFilter{
		UserID: 3, Entity: "dealer", Limit: 20, Offset: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "UPDATE", rows[0]["action"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPurgeOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM audit_logs WHERE created_at < DATE_SUB(NOW(), INTERVAL ? DAY)")).
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 57))

	repo := NewAuditRepo(db)
	n, err := repo.PurgeOlderThan(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(57), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
