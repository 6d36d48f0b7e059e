package service

import (
	"context"
	"errors"

	"github.com/iliyamo/donation-identity/internal/repository"
)

// Registry answers "is this identifier free in either table". The unique
// keys stay the authoritative guard against concurrent inserts; this
// check closes the gap the keys leave between users and students and
// gives the friendlier error in the common case.
type Registry struct {
	users    UserStore
	students StudentStore
}

func NewRegistry(users UserStore, students StudentStore) Registry {
	return Registry{users: users, students: students}
}

// EnsureAvailable returns a ConflictError for the first of email, phone,
// nationalID (skipping empty ones) already present in users or students.
func (r Registry) EnsureAvailable(ctx context.Context, email, phone, nationalID string) error {
	checks := []struct {
		field    string
		value    string
		user     func(context.Context, string) error
		students func(context.Context, string) error
	}{
		{"email", email,
			func(ctx context.Context, v string) error { _, err := r.users.GetByEmail(ctx, v); return err },
			func(ctx context.Context, v string) error { _, err := r.students.GetByEmail(ctx, v); return err }},
		{"phoneNumber", phone,
			func(ctx context.Context, v string) error { _, err := r.users.GetByPhone(ctx, v); return err },
			func(ctx context.Context, v string) error { _, err := r.students.GetByPhone(ctx, v); return err }},
		{"nationalId", nationalID,
			func(ctx context.Context, v string) error { _, err := r.users.GetByNationalID(ctx, v); return err },
			func(ctx context.Context, v string) error { _, err := r.students.GetByNationalID(ctx, v); return err }},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		for _, lookup := range []func(context.Context, string) error{c.user, c.students} {
			err := lookup(ctx, c.value)
			if err == nil {
				return &ConflictError{Field: c.field}
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
