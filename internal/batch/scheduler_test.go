package batch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSchedule_CoalescesFragments(t *testing.T) {
	s := NewScheduler(30 * time.Millisecond)

	var mu sync.Mutex
	var got []string

	fire := func(_ context.Context, combined string) {
		mu.Lock()
		got = append(got, combined)
		mu.Unlock()
	}

	ctx := context.Background()
	s.Schedule(ctx, "k", "I want", fire)
	s.Schedule(ctx, "k", "the red shirt", fire)
	s.Schedule(ctx, "k", "size medium", fire)

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("fire count = %d, want 1", len(got))
	}
	if got[0] != "I want\nthe red shirt\nsize medium" {
		t.Errorf("combined = %q", got[0])
	}
}

func TestSchedule_TrailingEdge(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)

	var mu sync.Mutex
	fired := 0
	fire := func(context.Context, string) {
		mu.Lock()
		fired++
		mu.Unlock()
	}

	ctx := context.Background()
	// Keep poking before the window elapses; the timer must keep moving.
	s.Schedule(ctx, "k", "a", fire)
	time.Sleep(30 * time.Millisecond)
	s.Schedule(ctx, "k", "b", fire)
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	if fired != 0 {
		mu.Unlock()
		t.Fatal("batch fired before the quiet window elapsed")
	}
	mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("fire count = %d, want 1", fired)
	}
}

func TestSchedule_IndependentKeys(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)

	var mu sync.Mutex
	got := map[string]string{}
	fire := func(key string) FireFunc {
		return func(_ context.Context, combined string) {
			mu.Lock()
			got[key] = combined
			mu.Unlock()
		}
	}

	ctx := context.Background()
	s.Schedule(ctx, "a", "from a", fire("a"))
	s.Schedule(ctx, "b", "from b", fire("b"))

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if got["a"] != "from a" || got["b"] != "from b" {
		t.Errorf("per-key batches mixed: %v", got)
	}
}

func TestFlush(t *testing.T) {
	s := NewScheduler(time.Hour)

	done := make(chan string, 1)
	s.Schedule(context.Background(), "k", "pending", func(_ context.Context, combined string) {
		done <- combined
	})

	s.Flush("k")

	select {
	case combined := <-done:
		if combined != "pending" {
			t.Errorf("flushed = %q", combined)
		}
	case <-time.After(time.Second):
		t.Fatal("Flush did not fire the pending batch")
	}

	if len(s.PendingKeys()) != 0 {
		t.Error("flushed key should no longer be pending")
	}
}

func TestFragmentDuringFireStartsFreshBatch(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)

	firstFiring := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var fires []string

	slow := func(_ context.Context, combined string) {
		mu.Lock()
		fires = append(fires, combined)
		n := len(fires)
		mu.Unlock()
		if n == 1 {
			close(firstFiring)
			<-release
		}
	}

	ctx := context.Background()
	s.Schedule(ctx, "k", "one", slow)
	<-firstFiring

	// Arrives while the first batch is mid-resolution.
	s.Schedule(ctx, "k", "two", slow)
	close(release)

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fires) != 2 || fires[0] != "one" || fires[1] != "two" {
		t.Errorf("fires = %v, want [one two]", fires)
	}
}
