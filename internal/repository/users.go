package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
)

// UserRepo handles the users, otp and user_roles tables.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the provided DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByEmail returns the user with the given email, case-insensitively.
// ErrNotFound when no such user exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, email, name, is_active, created_at FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, strings.ToLower(email)))
}

// GetByID returns the user with the given id, ErrNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, email, name, is_active, created_at FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users ordered by id with their role codes aggregated.
func (r *UserRepo) List(ctx context.Context) ([]model.User, map[uint64][]string, error) {
	const q = `SELECT id, email, name, is_active, created_at FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	const rq = `SELECT ur.user_id, r.code FROM user_roles ur
	            JOIN roles r ON r.id = ur.role_id ORDER BY ur.user_id, r.code`
	rrows, err := r.db.QueryContext(ctx, rq)
	if err != nil {
		return nil, nil, err
	}
	defer rrows.Close()

	roles := make(map[uint64][]string)
	for rrows.Next() {
		var uid uint64
		var code string
		if err := rrows.Scan(&uid, &code); err != nil {
			return nil, nil, err
		}
		roles[uid] = append(roles[uid], code)
	}
	return users, roles, rrows.Err()
}

// Create inserts a new user. Emails are stored lowercased; a duplicate email
// maps to ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, email string, name *string, isActive bool) (uint64, error) {
	const q = `INSERT INTO users (email, name, is_active) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.ToLower(email), name, isActive)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// UserPatch carries the optional fields of an admin user update. A nil
// pointer means "leave unchanged"; Name points at nil-able storage so the
// name can also be cleared.
type UserPatch struct {
	Name     **string
	IsActive *bool
}

// UpdateUser applies a partial patch. ErrNotFound when the id is unknown.
func (r *UserRepo) UpdateUser(ctx context.Context, id uint64, p UserPatch) error {
	var sets []string
	var args []any
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRoles swaps a user's entire role assignment atomically.
func (r *UserRepo) ReplaceRoles(ctx context.Context, userID uint64, roleIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, rid := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, rid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CreateOTP stores a fresh OTP hash for the email, invalidating any earlier
// unconsumed codes first so only the newest one can verify.
func (r *UserRepo) CreateOTP(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	email = strings.ToLower(email)
	if _, err := tx.ExecContext(ctx,
		`UPDATE otp SET consumed = 1 WHERE email = ? AND consumed = 0`, email); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otp (email, code_hash, expires_at) VALUES (?, ?, ?)`,
		email, codeHash, expiresAt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LatestOTP returns the newest unconsumed OTP row for the email, expired or
// not; the caller distinguishes expiry from absence. ErrNotFound when no
// unconsumed row exists.
func (r *UserRepo) LatestOTP(ctx context.Context, email string) (*model.OTP, error) {
	const q = `SELECT id, email, code_hash, expires_at, attempts, consumed, created_at
	           FROM otp WHERE email = ? AND consumed = 0
	           ORDER BY id DESC LIMIT 1`
	var o model.OTP
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(email)).Scan(
		&o.ID, &o.Email, &o.CodeHash, &o.ExpiresAt, &o.Attempts, &o.Consumed, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BumpOTPAttempts records one failed verification against the row.
func (r *UserRepo) BumpOTPAttempts(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otp SET attempts = attempts + 1 WHERE id = ?`, id)
	return err
}

// ConsumeOTP marks the row used so it can never verify again.
func (r *UserRepo) ConsumeOTP(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otp SET consumed = 1 WHERE id = ?`, id)
	return err
}
