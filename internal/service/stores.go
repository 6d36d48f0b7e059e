package service

import (
	"context"
	"time"

	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/notify"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// UserStore is the users table as the identity core needs it.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByPhone(ctx context.Context, phone string) (model.User, error)
	GetByNationalID(ctx context.Context, nationalID string) (model.User, error)
	SetOTP(ctx context.Context, id uint64, code string, expiry time.Time) error
	ConsumeOTP(ctx context.Context, id uint64, code string, now time.Time) (bool, error)
	ResetPasswordWithOTP(ctx context.Context, id uint64, code, hash string, now time.Time) (bool, error)
	ApproveIfPending(ctx context.Context, id uint64) (bool, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

// StudentStore is the students table. *repository.StudentRepo satisfies it.
type StudentStore interface {
	Create(ctx context.Context, s *model.Student) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Student, error)
	GetByEmail(ctx context.Context, email string) (model.Student, error)
	GetByPhone(ctx context.Context, phone string) (model.Student, error)
	GetByNationalID(ctx context.Context, nationalID string) (model.Student, error)
}

// Enqueuer hands a delivery to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, m notify.Message) error
}

// SessionMinter issues session tokens. *utils.SessionIssuer satisfies it.
type SessionMinter interface {
	Issue(id uint64, role string) (utils.SessionToken, error)
}

// Session is what a successful authentication returns.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal model.Principal
}
