// Package queue moves OTP deliveries off the request path. Requests enqueue
// a delivery and return; a worker (in process or behind RabbitMQ) sends it
// with bounded retries and logs the outcome.
package queue

import (
	"time"

	"github.com/iliyamo/donation-identity/internal/notify"
)

// OTPQueueName is the durable RabbitMQ queue carrying deliveries.
const OTPQueueName = "otp.delivery"

// OTPDeliveryEvent is the message body published for each issued code.
type OTPDeliveryEvent struct {
	notify.Message
	RequestedAt time.Time `json:"requested_at"`
}
