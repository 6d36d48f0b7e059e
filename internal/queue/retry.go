package queue

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/donation-identity/internal/notify"
)

// RetryPolicy bounds delivery attempts. Backoff doubles after each failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is used by the worker and the broker consumer.
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// deliver sends m, retrying per p. The last error is returned once
// attempts are exhausted or ctx is done.
func deliver(ctx context.Context, s notify.Sender, m notify.Message, p RetryPolicy, logger *log.Logger) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Backoff
	var err error
	for i := 1; i <= attempts; i++ {
		if err = s.Send(ctx, m); err == nil {
			logger.Infof("delivered %s code (%s) on attempt %d", m.Channel, m.Purpose, i)
			return nil
		}
		logger.Warnf("%s delivery attempt %d/%d failed: %v", m.Channel, i, attempts, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
