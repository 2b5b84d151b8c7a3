package quota

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	hourlyPrefix = "ratelimit:chat:hourly"
	dailyPrefix  = "ratelimit:chat:daily"
)

// RateLimitResult reports the outcome of a rate-limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Window names which ceiling rejected the request ("hourly" or "daily").
	Window string
	// Reset is when the rejecting window's current fixed bucket rolls over.
	// With the two-bucket approximation the weighted count can drop below
	// the ceiling before this instant, so Reset is an upper bound on the
	// wait, not an exact admission time.
	Reset time.Time
}

// RateLimiter enforces hourly and daily sliding-window ceilings per identity.
type RateLimiter struct {
	store       Store
	hourlyLimit int
	dailyLimit  int
	failClosed  bool
	now         func() time.Time
}

// NewRateLimiter returns a RateLimiter. A nil store disables enforcement:
// every check passes (or fails, when failClosed is set).
func NewRateLimiter(store Store, hourlyLimit, dailyLimit int, failClosed bool) *RateLimiter {
	return &RateLimiter{
		store:       store,
		hourlyLimit: hourlyLimit,
		dailyLimit:  dailyLimit,
		failClosed:  failClosed,
		now:         time.Now,
	}
}

// Check evaluates both windows for an identity. The hourly window is checked
// first and short-circuits on rejection. Every check increments both windows
// it reaches, so counts reflect attempts rather than successes.
func (l *RateLimiter) Check(ctx context.Context, identity string) RateLimitResult {
	if l.store == nil {
		return l.degraded(nil)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	identity = strings.ToLower(identity)

	hourly, err := l.slidingCount(ctx, hourlyPrefix, identity, time.Hour)
	if err != nil {
		return l.degraded(err)
	}
	if hourly > l.hourlyLimit {
		return RateLimitResult{
			Allowed: false,
			Limit:   l.hourlyLimit,
			Window:  "hourly",
			Reset:   l.windowReset(time.Hour),
		}
	}

	daily, err := l.slidingCount(ctx, dailyPrefix, identity, 24*time.Hour)
	if err != nil {
		return l.degraded(err)
	}
	if daily > l.dailyLimit {
		return RateLimitResult{
			Allowed: false,
			Limit:   l.dailyLimit,
			Window:  "daily",
			Reset:   l.windowReset(24 * time.Hour),
		}
	}

	remaining := l.hourlyLimit - hourly
	if d := l.dailyLimit - daily; d < remaining {
		remaining = d
	}
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Allowed: true, Remaining: remaining}
}

// slidingCount implements the standard two-bucket approximation: the current
// fixed bucket is incremented and the previous bucket is weighted by the
// unelapsed fraction of the window.
func (l *RateLimiter) slidingCount(ctx context.Context, prefix, identity string, window time.Duration) (int, error) {
	now := l.now()
	bucket := now.UnixNano() / int64(window)
	currKey := fmt.Sprintf("%s:%s:%d", prefix, identity, bucket)
	prevKey := fmt.Sprintf("%s:%s:%d", prefix, identity, bucket-1)

	curr, err := l.store.Incr(ctx, currKey)
	if err != nil {
		return 0, err
	}
	if curr == 1 {
		if err := l.store.Expire(ctx, currKey, 2*window); err != nil {
			return 0, err
		}
	}

	prev, err := l.store.Get(ctx, prevKey)
	if err != nil {
		return 0, err
	}

	elapsed := float64(now.UnixNano()-bucket*int64(window)) / float64(window)
	count := float64(prev)*(1-elapsed) + float64(curr)
	return int(count), nil
}

func (l *RateLimiter) windowReset(window time.Duration) time.Time {
	now := l.now()
	bucket := now.UnixNano() / int64(window)
	return time.Unix(0, (bucket+1)*int64(window))
}

// degraded is the outcome when the store is absent or unreachable.
func (l *RateLimiter) degraded(err error) RateLimitResult {
	if err != nil {
		slog.Warn("rate limit store unavailable", "fail_closed", l.failClosed, "error", err)
	}
	if l.failClosed {
		return RateLimitResult{
			Allowed: false,
			Limit:   l.hourlyLimit,
			Window:  "hourly",
			Reset:   l.windowReset(time.Hour),
		}
	}
	return RateLimitResult{Allowed: true, Remaining: l.hourlyLimit}
}
