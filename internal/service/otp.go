package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/notify"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// OTPEngine issues and verifies the (otp, otpExpiry) challenge stored on a
// users row.
type OTPEngine struct {
	users   UserStore
	queue   Enqueuer
	logger  *log.Logger
	now     func() time.Time
	newCode func() (string, error)
}

func NewOTPEngine(users UserStore, queue Enqueuer, logger *log.Logger) *OTPEngine {
	return &OTPEngine{
		users:   users,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
		newCode: utils.NewOTPCode,
	}
}

// Issue stores a fresh code valid for utils.OTPValidity and queues its
// delivery. channel picks the destination; "" means SMS when the user has
// a phone number and email otherwise. A queueing failure is logged and
// swallowed: the code is already stored and a fresh one can be requested.
func (e *OTPEngine) Issue(ctx context.Context, u model.User, purpose, channel string) error {
	code, err := e.newCode()
	if err != nil {
		return err
	}
	expiry := e.now().UTC().Add(utils.OTPValidity)
	if err := e.users.SetOTP(ctx, u.ID, code, expiry); err != nil {
		return err
	}

	msg, ok := destination(u, channel)
	if !ok {
		e.logger.Warnf("user %d has no %q destination for %s code", u.ID, channel, purpose)
		return nil
	}
	msg.Code = code
	msg.Purpose = purpose
	msg.ExpiresAt = expiry
	if err := e.queue.Enqueue(ctx, msg); err != nil {
		e.logger.Errorf("queue %s code for user %d: %v", purpose, u.ID, err)
	}
	return nil
}

// Verify consumes u's challenge when code matches and has not expired.
// Every failure, including "no challenge outstanding", is
// ErrInvalidOrExpiredOTP.
func (e *OTPEngine) Verify(ctx context.Context, u model.User, code string) error {
	now := e.now().UTC()
	if !utils.OTPMatches(u.OTP, u.OTPExpiry, code, now) {
		return ErrInvalidOrExpiredOTP
	}
	ok, err := e.users.ConsumeOTP(ctx, u.ID, code, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}
	return nil
}

func destination(u model.User, channel string) (notify.Message, bool) {
	phone, email := u.PhoneNumber, u.Email
	switch channel {
	case notify.ChannelSMS:
		email = nil
	case notify.ChannelEmail:
		phone = nil
	}
	if phone != nil && *phone != "" {
		return notify.Message{Channel: notify.ChannelSMS, To: *phone}, true
	}
	if email != nil && *email != "" {
		return notify.Message{Channel: notify.ChannelEmail, To: *email}, true
	}
	return notify.Message{}, false
}
