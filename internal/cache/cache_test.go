package cache

import (
	"context"
	"testing"
	"time"

	"github.com/reimagine/reimagine/internal/testutil"
)

// These tests run against a real Redis instance and are skipped unless
// TEST_REDIS_URL is set.

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	url := testutil.RequireEnv(t, "TEST_REDIS_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := New(ctx, url)
	if err != nil {
		t.Skipf("skipping: redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

func TestEditLock_SecondAcquireBlocked(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	acquired, err := c.AcquireEditLock(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire denied")
	}

	acquired, err = c.AcquireEditLock(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Error("second acquire succeeded while lock held")
	}

	// A different user is unaffected.
	acquired, err = c.AcquireEditLock(ctx, "user-2", time.Minute)
	if err != nil {
		t.Fatalf("other user acquire: %v", err)
	}
	if !acquired {
		t.Error("lock for another user denied")
	}
}

func TestEditLock_ReleaseAllowsReacquire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if acquired, _ := c.AcquireEditLock(ctx, "user-1", time.Minute); !acquired {
		t.Fatal("initial acquire denied")
	}

	c.ReleaseEditLock(ctx, "user-1")

	acquired, err := c.AcquireEditLock(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !acquired {
		t.Error("reacquire denied after release")
	}
}

func TestUserRateLimit_BurstThenReject(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	const burst = 3

	for i := 0; i < burst; i++ {
		result, err := c.CheckUserRateLimit(ctx, "user-1", 10, burst)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d denied inside burst", i)
		}
	}

	result, err := c.CheckUserRateLimit(ctx, "user-1", 10, burst)
	if err != nil {
		t.Fatalf("check over burst: %v", err)
	}
	if result.Allowed {
		t.Error("request allowed after burst exhausted")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("retry after = %s, want > 0", result.RetryAfter)
	}
}

func TestIPRateLimit_IndependentSources(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	const burst = 2

	for i := 0; i < burst; i++ {
		if result, err := c.CheckIPRateLimit(ctx, "203.0.113.7:1234", 1, burst); err != nil || !result.Allowed {
			t.Fatalf("first source check %d: allowed=%v err=%v", i, result.Allowed, err)
		}
	}
	if result, _ := c.CheckIPRateLimit(ctx, "203.0.113.7:1234", 1, burst); result.Allowed {
		t.Error("first source allowed past burst")
	}

	// A different source address gets a fresh bucket.
	if result, err := c.CheckIPRateLimit(ctx, "198.51.100.9:5678", 1, burst); err != nil || !result.Allowed {
		t.Errorf("second source denied: allowed=%v err=%v", result.Allowed, err)
	}
}
