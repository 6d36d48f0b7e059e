package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/donation-identity/internal/notify"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room. The code
// stays persisted so the caller can ask for a fresh one.
var ErrQueueFull = errors.New("delivery queue full")

// ErrWorkerStopped is returned by Enqueue after Stop.
var ErrWorkerStopped = errors.New("delivery worker stopped")

// Worker is the in-process delivery queue used when no broker is
// configured. Deliveries are lost if the process exits before they run.
type Worker struct {
	sender notify.Sender
	retry  RetryPolicy
	logger *log.Logger

	jobs    chan notify.Message
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
}

// NewWorker starts n goroutines draining a queue of size buffer.
func NewWorker(sender notify.Sender, n, buffer int, retry RetryPolicy, logger *log.Logger) *Worker {
	if n < 1 {
		n = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		sender: sender,
		retry:  retry,
		logger: logger,
		jobs:   make(chan notify.Message, buffer),
		cancel: cancel,
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
	return w
}

// Enqueue hands m to the worker without blocking.
func (w *Worker) Enqueue(_ context.Context, m notify.Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	select {
	case w.jobs <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new work, lets queued deliveries finish and waits for the
// goroutines. Backoff waits are cut short when ctx is done.
func (w *Worker) Stop(ctx context.Context) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobs)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.cancel()
		<-done
	}
	w.cancel()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for m := range w.jobs {
		if err := deliver(ctx, w.sender, m, w.retry, w.logger); err != nil {
			w.logger.Errorf("dropping %s delivery to %s after retries: %v", m.Channel, mask(m.To), err)
		}
	}
}

// mask keeps enough of a destination to correlate logs without
// writing full phone numbers or addresses.
func mask(to string) string {
	if len(to) <= 4 {
		return "****"
	}
	return "****" + to[len(to)-4:]
}
