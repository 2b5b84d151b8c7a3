package quota

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const freeMessagePrefix = "x402:free:"

// FreeMessageResult reports the outcome of a free-tier check.
type FreeMessageResult struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

// FreeMeter counts chat turns against a fixed lifetime quota per identity.
// The counter lives in a fixed 30-day window anchored at its first increment.
type FreeMeter struct {
	store      Store
	limit      int
	window     time.Duration
	failClosed bool
}

// NewFreeMeter returns a FreeMeter. A nil store disables metering: every
// check passes (or is rejected, when failClosed is set).
func NewFreeMeter(store Store, limit int, window time.Duration, failClosed bool) *FreeMeter {
	return &FreeMeter{store: store, limit: limit, window: window, failClosed: failClosed}
}

// Check atomically increments the identity's counter and compares the
// post-increment value against the limit. The increment-then-compare must be
// a single store round trip so two concurrent turns cannot both slip past the
// boundary on a stale read. Unavailable store fails open.
func (m *FreeMeter) Check(ctx context.Context, identity string) FreeMessageResult {
	if m.store == nil {
		return m.degraded(nil)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	key := freeMessagePrefix + strings.ToLower(identity)
	used, err := m.store.Incr(ctx, key)
	if err != nil {
		return m.degraded(err)
	}

	// Fixed window: the expiry is set once, on the first message, and not
	// renewed by later increments.
	if used == 1 {
		if err := m.store.Expire(ctx, key, m.window); err != nil {
			slog.Warn("failed to set free message window expiry", "error", err)
		}
	}

	return FreeMessageResult{
		Allowed: int(used) <= m.limit,
		Used:    int(used),
		Limit:   m.limit,
	}
}

// degraded is the outcome when the store is absent or unreachable.
func (m *FreeMeter) degraded(err error) FreeMessageResult {
	if err != nil {
		slog.Warn("free message store unavailable", "fail_closed", m.failClosed, "error", err)
	}
	if m.failClosed {
		return FreeMessageResult{Allowed: false, Used: 0, Limit: m.limit}
	}
	return FreeMessageResult{Allowed: true, Used: 0, Limit: m.limit}
}
