package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// RBACRepo reads and edits the roles, permissions and role_permissions
// tables. Permission codes are the unit of authorization; they attach to
// roles and roles attach to users.
type RBACRepo struct {
	db *sql.DB
}

// NewRBACRepo constructs an RBACRepo with the provided DB handle.
func NewRBACRepo(db *sql.DB) *RBACRepo {
	return &RBACRepo{db: db}
}

// PermissionsForUser resolves the distinct permission codes a user holds
// through all of their roles. Called on every authenticated request.
func (r *RBACRepo) PermissionsForUser(ctx context.Context, userID uint64) ([]string, error) {
	const q = `SELECT DISTINCT p.code
	           FROM permissions p
	           JOIN role_permissions rp ON rp.permission_id = p.id
	           JOIN user_roles ur ON ur.role_id = rp.role_id
	           WHERE ur.user_id = ?`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// RoleCodesForUser resolves the role codes a user holds. Attached alongside
// permissions so handlers can special-case admin roles.
func (r *RBACRepo) RoleCodesForUser(ctx context.Context, userID uint64) ([]string, error) {
	const q = `SELECT r.code
	           FROM roles r
	           JOIN user_roles ur ON ur.role_id = r.id
	           WHERE ur.user_id = ?`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// ListRoles returns all roles ordered by code.
func (r *RBACRepo) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name FROM roles ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Code, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissions returns every known permission code with its id.
func (r *RBACRepo) ListPermissions(ctx context.Context) (map[string]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := make(map[string]uint64)
	for rows.Next() {
		var id uint64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		perms[code] = id
	}
	return perms, rows.Err()
}

// RolePermissions returns the permission codes attached to one role.
func (r *RBACRepo) RolePermissions(ctx context.Context, roleID uint64) ([]string, error) {
	const q = `SELECT p.code FROM permissions p
	           JOIN role_permissions rp ON rp.permission_id = p.id
	           WHERE rp.role_id = ? ORDER BY p.code`
	rows, err := r.db.QueryContext(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// RoleByCode resolves one role by its code, ErrNotFound when absent.
func (r *RBACRepo) RoleByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := r.db.QueryRowContext(ctx, `SELECT id, code, name FROM roles WHERE code = ?`, code).
		Scan(&role.ID, &role.Code, &role.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// PermissionIDsByCodes maps permission codes to ids; unknown codes are
// silently skipped, matching replace-grant semantics.
func (r *RBACRepo) PermissionIDsByCodes(ctx context.Context, codes []string) ([]uint64, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(codes)), ", ")
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM permissions WHERE code IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignRole grants one role to a user, ignoring an existing grant.
func (r *RBACRepo) AssignRole(ctx context.Context, userID, roleID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID)
	return err
}

// CreateRole inserts a role; duplicate codes map to ErrDuplicate.
func (r *RBACRepo) CreateRole(ctx context.Context, code string, name *string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO roles (code, name) VALUES (?, ?)`, code, name)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ReplaceRolePermissions swaps a role's grant set atomically.
func (r *RBACRepo) ReplaceRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, roleID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`, roleID, pid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
