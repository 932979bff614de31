// Package repository contains data access logic separated from HTTP
// handlers. This file defines error values reused across repositories so
// handlers can map failure scenarios onto HTTP status codes without string
// matching.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row lookup or a targeted update matches
// nothing. Handlers translate it into a 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// Handlers translate it into a 409 response.
var ErrDuplicate = errors.New("duplicate entry")

// StatusConflictError is returned by the guarded status transition when the
// row exists but has already left PENDING. Handlers translate it into a 409
// carrying the current state.
type StatusConflictError struct {
	Current string
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("cannot change status from %s", e.Current)
}

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
