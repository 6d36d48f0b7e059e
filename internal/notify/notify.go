// Package notify delivers one-time codes to a phone or an inbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Channels a code can travel on.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Purposes a code is issued for. They only change the message wording.
const (
	PurposeRegistration  = "registration"
	PurposePhoneLogin    = "phone_login"
	PurposePasswordReset = "password_reset"
)

// ErrNotConfigured is returned at send time by a sender whose provider
// credentials are missing.
var ErrNotConfigured = errors.New("delivery provider not configured")

// Message is a single code delivery.
type Message struct {
	Channel   string    `json:"channel"`
	To        string    `json:"to"`
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sender delivers a message on one channel.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Router dispatches to the sender registered for the message channel.
type Router struct {
	SMS   Sender
	Email Sender
}

func (r Router) Send(ctx context.Context, m Message) error {
	var s Sender
	switch m.Channel {
	case ChannelSMS:
		s = r.SMS
	case ChannelEmail:
		s = r.Email
	default:
		return fmt.Errorf("unknown delivery channel %q", m.Channel)
	}
	if s == nil {
		return fmt.Errorf("%s: %w", m.Channel, ErrNotConfigured)
	}
	return s.Send(ctx, m)
}

func subject(purpose string) string {
	switch purpose {
	case PurposeRegistration:
		return "Confirm your registration"
	case PurposePhoneLogin:
		return "Your login code"
	case PurposePasswordReset:
		return "Reset your password"
	}
	return "Your verification code"
}

func body(m Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your verification code is %s.", m.Code)
	if !m.ExpiresAt.IsZero() {
		mins := int(time.Until(m.ExpiresAt).Round(time.Minute).Minutes())
		if mins < 1 {
			mins = 1
		}
		fmt.Fprintf(&b, " It expires in %d minutes.", mins)
	}
	if m.Purpose == PurposePasswordReset {
		b.WriteString(" If you did not ask to reset your password you can ignore this message.")
	}
	return b.String()
}
