// Package repository is the MySQL-backed credential store. It owns the
// users, students and revoked_tokens tables plus the contract and donation
// records that session holders create. Errors returned from here are
// either one of the sentinels below or a raw driver error.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound replaces sql.ErrNoRows so callers do not depend on database/sql.
var ErrNotFound = errors.New("not found")

// ErrConflict is the parent of every uniqueness violation. Handlers
// translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// Field-specific uniqueness violations. errors.Is(err, ErrConflict) holds
// for each of them.
var (
	ErrEmailExists      = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrPhoneExists      = fmt.Errorf("phone number already registered: %w", ErrConflict)
	ErrNationalIDExists = fmt.Errorf("national id already registered: %w", ErrConflict)
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors to the package sentinels. Duplicate-key
// errors are told apart by the name of the violated unique key, which
// MySQL reports as "... for key 'users.uq_users_email'".
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		key := duplicateKey(me.Message)
		switch {
		case strings.Contains(key, "national_id"):
			return ErrNationalIDExists
		case strings.Contains(key, "email"):
			return ErrEmailExists
		case strings.Contains(key, "phone"):
			return ErrPhoneExists
		}
		return ErrConflict
	}
	return err
}

// duplicateKey extracts the key name from an ER_DUP_ENTRY message. The
// duplicated value comes earlier in the message and is user input, so it
// is never inspected.
func duplicateKey(msg string) string {
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	key := msg[i+len("for key '"):]
	key = strings.TrimSuffix(key, "'")
	return strings.ToLower(key)
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
