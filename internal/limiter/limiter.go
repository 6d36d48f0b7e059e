// Package limiter throttles repeated login attempts per identifier.
//
// A window opens on the first attempt and lasts Window. Within a window
// the first MaxAttempts attempts are allowed and every later one is denied
// until the window lapses or Clear is called after a successful login.
package limiter

import (
	"context"
	"errors"
	"time"
)

const (
	// Window is how long an attempt window stays open.
	Window = 15 * time.Minute
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts = 5
)

// ErrLimited is returned by Check when the identifier has no attempts left.
var ErrLimited = errors.New("too many attempts")

// Limiter is the injectable throttle consulted before every login.
type Limiter interface {
	// Check counts one attempt and returns ErrLimited when the attempt
	// must be refused.
	Check(ctx context.Context, identifier string) error
	// Clear forgets the identifier's window.
	Clear(ctx context.Context, identifier string) error
}
