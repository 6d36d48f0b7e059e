package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio API the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMS sends codes as text messages.
type TwilioSMS struct {
	api        messageCreator
	fromNumber string
}

// NewTwilioSMS builds a sender. Missing credentials are not an error here;
// Send reports ErrNotConfigured instead.
func NewTwilioSMS(accountSID, authToken, fromNumber string) *TwilioSMS {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return &TwilioSMS{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, fromNumber: fromNumber}
}

func (t *TwilioSMS) Send(_ context.Context, m Message) error {
	if t.api == nil {
		return fmt.Errorf("twilio: %w", ErrNotConfigured)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(m.To)
	params.SetFrom(t.fromNumber)
	params.SetBody(body(m))

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
