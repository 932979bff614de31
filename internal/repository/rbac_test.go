package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRBACRepo(db)

	mock.ExpectQuery("SELECT DISTINCT p.code").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).
			AddRow("DEALERS_READ").
			AddRow("DEALERS_WRITE"))

	codes, err := repo.PermissionsForUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"DEALERS_READ", "DEALERS_WRITE"}, codes)
}

func TestRoleByCodeNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRBACRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name FROM roles WHERE code = ?")).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}))

	_, err = repo.RoleByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceRolePermissions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRBACRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE role_id = ?")).
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)")).
		WithArgs(uint64(2), uint64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)")).
		WithArgs(uint64(2), uint64(11)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = repo.ReplaceRolePermissions(context.Background(), 2, []uint64{10, 11})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionIDsByCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRBACRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM permissions WHERE code IN (?, ?)")).
		WithArgs("DEALERS_READ", "BOGUS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(4)))

	ids, err := repo.PermissionIDsByCodes(context.Background(), []string{"DEALERS_READ", "BOGUS"})
	require.NoError(t, err)
	// unknown codes are skipped, not errors
	assert.Equal(t, []uint64{4}, ids)

	ids, err = repo.PermissionIDsByCodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}
