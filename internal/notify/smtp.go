package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPEmail sends codes by mail through an SMTP relay.
type SMTPEmail struct {
	d    dialer
	from string
}

// NewSMTPEmail builds a sender. Missing host or sender address is reported
// by Send as ErrNotConfigured.
func NewSMTPEmail(host string, port int, username, password, from string) *SMTPEmail {
	if host == "" || from == "" {
		return &SMTPEmail{}
	}
	return &SMTPEmail{d: gomail.NewDialer(host, port, username, password), from: from}
}

func (s *SMTPEmail) Send(_ context.Context, m Message) error {
	if s.d == nil {
		return fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", subject(m.Purpose))
	msg.SetBody("text/plain", body(m))

	if err := s.d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
