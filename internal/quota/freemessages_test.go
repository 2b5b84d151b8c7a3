package quota

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFreeMeterCountsUpToLimit(t *testing.T) {
	m := NewFreeMeter(newFakeStore(), 3, 30*24*time.Hour, false)

	for i := 1; i <= 3; i++ {
		res := m.Check(context.Background(), "0xAbC")
		if !res.Allowed {
			t.Fatalf("message %d within the quota was rejected: %+v", i, res)
		}
		if res.Used != i {
			t.Fatalf("used = %d after message %d", res.Used, i)
		}
		if res.Limit != 3 {
			t.Fatalf("limit = %d, want 3", res.Limit)
		}
	}
}

func TestFreeMeterRejectsBeyondLimit(t *testing.T) {
	m := NewFreeMeter(newFakeStore(), 2, 30*24*time.Hour, false)

	m.Check(context.Background(), "0xabc")
	m.Check(context.Background(), "0xabc")
	res := m.Check(context.Background(), "0xabc")
	if res.Allowed {
		t.Fatalf("message beyond the quota was allowed")
	}
	if res.Used != 3 {
		t.Fatalf("used = %d, want 3", res.Used)
	}
}

func TestFreeMeterBoundaryMessageIsAllowed(t *testing.T) {
	m := NewFreeMeter(newFakeStore(), 1, 30*24*time.Hour, false)

	if res := m.Check(context.Background(), "0xabc"); !res.Allowed {
		t.Fatalf("the message that lands exactly on the limit must pass")
	}
	if res := m.Check(context.Background(), "0xabc"); res.Allowed {
		t.Fatalf("limit+1 must be rejected")
	}
}

func TestFreeMeterLowercasesIdentity(t *testing.T) {
	store := newFakeStore()
	m := NewFreeMeter(store, 1, 30*24*time.Hour, false)

	m.Check(context.Background(), "0xDEADBEEF")
	res := m.Check(context.Background(), "0xdeadbeef")
	if res.Allowed {
		t.Fatalf("mixed-case spellings must share one counter")
	}
	if _, ok := store.counts[freeMessagePrefix+"0xdeadbeef"]; !ok {
		t.Fatalf("key should use the lowercase identity: %v", store.counts)
	}
}

func TestFreeMeterSetsWindowOnFirstMessageOnly(t *testing.T) {
	store := newFakeStore()
	window := 30 * 24 * time.Hour
	m := NewFreeMeter(store, 10, window, false)

	m.Check(context.Background(), "0xabc")
	key := freeMessagePrefix + "0xabc"
	if store.expires[key] != window {
		t.Fatalf("window expiry = %v, want %v", store.expires[key], window)
	}

	store.expires = make(map[string]time.Duration)
	m.Check(context.Background(), "0xabc")
	if len(store.expires) != 0 {
		t.Fatalf("later messages must not renew the window, got %v", store.expires)
	}
}

func TestFreeMeterFailsOpenOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("connection reset")
	m := NewFreeMeter(store, 1, 30*24*time.Hour, false)

	if res := m.Check(context.Background(), "0xabc"); !res.Allowed {
		t.Fatalf("store outage with fail-open must allow the message")
	}
}

func TestFreeMeterFailsClosedWhenConfigured(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("connection reset")
	m := NewFreeMeter(store, 1, 30*24*time.Hour, true)

	if res := m.Check(context.Background(), "0xabc"); res.Allowed {
		t.Fatalf("store outage with fail-closed must reject the message")
	}
}

func TestFreeMeterNilStoreDisablesMetering(t *testing.T) {
	m := NewFreeMeter(nil, 1, 30*24*time.Hour, false)

	for i := 0; i < 5; i++ {
		if res := m.Check(context.Background(), "0xabc"); !res.Allowed {
			t.Fatalf("nil store must pass every message")
		}
	}
}

func TestFreeMeterExpireFailureDoesNotReject(t *testing.T) {
	store := newFakeStore()
	store.expireErr = errors.New("readonly replica")
	m := NewFreeMeter(store, 5, 30*24*time.Hour, false)

	if res := m.Check(context.Background(), "0xabc"); !res.Allowed {
		t.Fatalf("a failed expiry set must not reject the message")
	}
}
