// Package repository defines error types that are reused across the
// MySQL and Redis repositories.  These sentinel values allow the service
// layer to distinguish "missing" from "conflicting" without inspecting
// driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row (or no hash).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with a unique key that has
// no more specific sentinel.
var ErrConflict = errors.New("conflict")

// ErrEmailExists and ErrUsernameExists report which unique key of `users`
// rejected an insert or update.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a duplicate-key violation and, if so,
// the name of the violated key as printed by MySQL ("users.uq_users_email").
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return "", false
	}
	msg := me.Message
	if i := strings.LastIndex(msg, "for key '"); i >= 0 {
		return strings.TrimSuffix(msg[i+len("for key '"):], "'"), true
	}
	return "", true
}

// translateUserWrite maps a duplicate-key error on `users` onto the field
// sentinel so callers can report which value conflicted.
func translateUserWrite(err error) error {
	key, dup := duplicateKey(err)
	if !dup {
		return err
	}
	switch {
	case strings.Contains(key, "uq_users_username"):
		return ErrUsernameExists
	case strings.Contains(key, "uq_users_email"):
		return ErrEmailExists
	}
	return ErrConflict
}
