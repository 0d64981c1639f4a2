package memory

import (
	"context"
	"testing"
	"time"
)

func TestConsumeWithinBudget(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewRateLimitStore().WithClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		res, err := store.Consume(context.Background(), "203.0.113.1-alice", 1, 5, time.Minute)
		if err != nil {
			t.Fatalf("Consume returned error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d unexpectedly rejected", i+1)
		}
		if res.Remaining != 5-(i+1) {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 5-(i+1), res.Remaining)
		}
	}

	res, err := store.Consume(context.Background(), "203.0.113.1-alice", 1, 5, time.Minute)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if res.Allowed {
		t.Fatal("sixth attempt should have been rejected")
	}
	if retry := res.RetryAfter(now); retry <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retry)
	}
}

func TestConsumeWindowExpiryResetsBucket(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewRateLimitStore().WithClock(func() time.Time { return now })

	for i := 0; i < 6; i++ {
		if _, err := store.Consume(context.Background(), "key", 1, 5, time.Minute); err != nil {
			t.Fatalf("Consume returned error: %v", err)
		}
	}

	now = now.Add(61 * time.Second)

	res, err := store.Consume(context.Background(), "key", 1, 5, time.Minute)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected fresh window to admit the request")
	}
	if res.Remaining != 4 {
		t.Fatalf("expected remaining 4 in fresh window, got %d", res.Remaining)
	}
}

func TestConsumeWeightedPoints(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewRateLimitStore().WithClock(func() time.Time { return now })

	res, err := store.Consume(context.Background(), "alice", 3, 10, time.Minute)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if res.Remaining != 7 {
		t.Fatalf("expected remaining 7 after weighted consume, got %d", res.Remaining)
	}

	res, err = store.Consume(context.Background(), "alice", 8, 10, time.Minute)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected weighted consume to exhaust the bucket")
	}
}

func TestConsumeIndependentKeys(t *testing.T) {
	store := NewRateLimitStore()

	if _, err := store.Consume(context.Background(), "a", 5, 5, time.Minute); err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}

	res, err := store.Consume(context.Background(), "b", 1, 5, time.Minute)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected key b to have its own budget")
	}
}
