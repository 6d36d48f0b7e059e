package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/donation-identity/internal/notify"
)

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// flakySender fails the first failures calls, then succeeds.
type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []notify.Message
	done     chan struct{}
}

func (f *flakySender) Send(_ context.Context, m notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, m)
	if f.done != nil {
		close(f.done)
	}
	return nil
}

var fastRetry = RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

func TestDeliverRetriesUntilSuccess(t *testing.T) {
	s := &flakySender{failures: 2}
	err := deliver(context.Background(), s, notify.Message{Channel: notify.ChannelSMS}, fastRetry, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, s.calls)
	assert.Len(t, s.sent, 1)
}

func TestDeliverGivesUp(t *testing.T) {
	s := &flakySender{failures: 10}
	err := deliver(context.Background(), s, notify.Message{Channel: notify.ChannelEmail}, fastRetry, quietLogger())
	assert.EqualError(t, err, "provider unavailable")
	assert.Equal(t, 3, s.calls)
}

func TestDeliverHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &flakySender{failures: 10}
	err := deliver(ctx, s, notify.Message{}, RetryPolicy{Attempts: 3, Backoff: time.Hour}, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.calls)
}

func TestWorkerDelivers(t *testing.T) {
	s := &flakySender{failures: 1, done: make(chan struct{})}
	w := NewWorker(s, 2, 8, fastRetry, quietLogger())

	require.NoError(t, w.Enqueue(context.Background(), notify.Message{Channel: notify.ChannelSMS, To: "09121234567", Code: "123456"}))

	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not happen")
	}
	w.Stop(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.sent, 1)
	assert.Equal(t, "123456", s.sent[0].Code)
}

type blockingSender struct{ release chan struct{} }

func (b *blockingSender) Send(ctx context.Context, _ notify.Message) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestWorkerQueueFullAndStopped(t *testing.T) {
	b := &blockingSender{release: make(chan struct{})}
	w := NewWorker(b, 1, 1, fastRetry, quietLogger())
	ctx := context.Background()

	// One job occupies the goroutine, one fills the buffer; wait for the
	// first to be picked up before filling.
	require.NoError(t, w.Enqueue(ctx, notify.Message{}))
	require.Eventually(t, func() bool { return len(w.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, w.Enqueue(ctx, notify.Message{}))
	assert.ErrorIs(t, w.Enqueue(ctx, notify.Message{}), ErrQueueFull)

	close(b.release)
	w.Stop(ctx)
	assert.ErrorIs(t, w.Enqueue(ctx, notify.Message{}), ErrWorkerStopped)
	w.Stop(ctx)
}

func TestConsumerHandle(t *testing.T) {
	s := &flakySender{}
	c := NewConsumer("amqp://unused", s, fastRetry, quietLogger())

	body, err := json.Marshal(OTPDeliveryEvent{
		Message:     notify.Message{Channel: notify.ChannelEmail, To: "a@x.com", Code: "123456", ExpiresAt: time.Now().Add(10 * time.Minute)},
		RequestedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), body))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "a@x.com", s.sent[0].To)

	expired, err := json.Marshal(OTPDeliveryEvent{Message: notify.Message{Channel: notify.ChannelSMS, ExpiresAt: time.Now().Add(-time.Minute)}})
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), expired))
	assert.Len(t, s.sent, 1, "expired codes are not sent")

	assert.ErrorContains(t, c.handle(context.Background(), []byte("{")), "unmarshal")
}

func TestEventJSONShape(t *testing.T) {
	body, err := json.Marshal(OTPDeliveryEvent{Message: notify.Message{Channel: "sms", To: "0912", Code: "1", Purpose: "phone_login"}})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	for _, k := range []string{"channel", "to", "code", "purpose", "expires_at", "requested_at"} {
		assert.Contains(t, m, k)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****4567", mask("09121234567"))
	assert.Equal(t, "****", mask("abc"))
}

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublisherGivesUpOnStalledBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t), quietLogger()).WithDialTimeout(200 * time.Millisecond)
	m := notify.Message{Channel: notify.ChannelSMS, To: "09121234567", Code: "123456", Purpose: notify.PurposeRegistration}

	start := time.Now()
	err := p.Enqueue(context.Background(), m)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPublisherHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Enqueue(ctx, notify.Message{Channel: notify.ChannelEmail, To: "a@x.com", Code: "123456"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), defaultDialTimeout)
}
