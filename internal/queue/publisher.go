package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/donation-identity/internal/notify"
)

// defaultDialTimeout bounds connect plus AMQP handshake for one publish.
const defaultDialTimeout = 2 * time.Second

// Publisher enqueues deliveries on RabbitMQ. It dials per publish, which
// keeps it free of connection state at the cost of a round trip; issuance
// is rare enough for that to be fine.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	logger      *log.Logger
}

func NewPublisher(url string, logger *log.Logger) *Publisher {
	return &Publisher{url: url, dialTimeout: defaultDialTimeout, logger: logger}
}

// WithDialTimeout overrides the connect and handshake bound.
func (p *Publisher) WithDialTimeout(d time.Duration) *Publisher {
	p.dialTimeout = d
	return p
}

// dial connects within the dial timeout or ctx's deadline, whichever is
// sooner.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Enqueue publishes m as a persistent message on OTPQueueName. Errors are
// logged and returned so the caller can ignore them.
func (p *Publisher) Enqueue(ctx context.Context, m notify.Message) error {
	conn, err := p.dial(ctx)
	if err != nil {
		p.logger.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch); err != nil {
		p.logger.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(OTPDeliveryEvent{Message: m, RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", OTPQueueName, false, false, pub); err != nil {
		p.logger.Warnf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// declare makes sure the durable queue exists (idempotent).
func declare(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		OTPQueueName, // name
		true,         // durable
		false,        // autoDelete
		false,        // exclusive
		false,        // noWait
		nil,          // args
	)
}
