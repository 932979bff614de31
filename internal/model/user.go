package model

import "time"

// User represents an application user record as stored in the `users` table.
// Accounts are created implicitly the first time an OTP is requested for an
// email address; access is controlled entirely through role assignments.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Email     – unique email address (stored lowercased).
//	Name      – optional display name.
//	IsActive  – whether the account may sign in.
//	CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    // users.id
	Email     string    // users.email
	Name      *string   // users.name (nullable)
	IsActive  bool      // users.is_active
	CreatedAt time.Time // users.created_at
}

// Role represents a row in the `roles` table. Permissions attach to roles
// through role_permissions and roles attach to users through user_roles.
type Role struct {
	ID   uint64 // roles.id
	Code string // roles.code (e.g. RBAC_ADMIN)
	Name *string
}

// OTP models an entry in the `otp` table. The plain code is never stored;
// only its bcrypt hash. A row is single-use: Consumed flips on the first
// successful verification and Attempts counts failed tries against the
// retry limit.
type OTP struct {
	ID        uint64    // otp.id
	Email     string    // otp.email
	CodeHash  string    // otp.code_hash
	ExpiresAt time.Time // otp.expires_at
	Attempts  int       // otp.attempts
	Consumed  bool      // otp.consumed
	CreatedAt time.Time // otp.created_at
}
