package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinInterval != DefaultMinInterval {
		t.Errorf("MinInterval = %v, want %v", cfg.MinInterval, DefaultMinInterval)
	}
}

func TestNewGate_ZeroIntervalFallsBackToDefault(t *testing.T) {
	gate := NewGate(Config{}, zerolog.Nop())

	if gate.MinInterval() != DefaultMinInterval {
		t.Errorf("MinInterval = %v, want %v", gate.MinInterval(), DefaultMinInterval)
	}
}

func TestAcquire_FirstPermitIsImmediate(t *testing.T) {
	gate := NewGate(Config{MinInterval: time.Second}, zerolog.Nop())

	start := time.Now()
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("First acquire took %v, expected no wait", elapsed)
	}
}

func TestAcquire_EnforcesSpacingAcrossWorkers(t *testing.T) {
	const (
		workers  = 4
		permits  = 12
		interval = 30 * time.Millisecond
	)

	gate := NewGate(Config{MinInterval: interval}, zerolog.Nop())

	var mu sync.Mutex
	starts := make([]time.Time, 0, permits)

	jobs := make(chan struct{}, permits)
	for i := 0; i < permits; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if err := gate.Acquire(context.Background()); err != nil {
					t.Errorf("Acquire() failed: %v", err)
					return
				}
				now := time.Now()
				mu.Lock()
				starts = append(starts, now)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(starts) != permits {
		t.Fatalf("Permits granted = %d, want %d", len(starts), permits)
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	// Timestamps are taken just after the permit, so allow a small
	// scheduling tolerance when checking pairwise spacing.
	const tolerance = 5 * time.Millisecond
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < interval-tolerance {
			t.Errorf("Gap between permit %d and %d = %v, want >= %v", i-1, i, gap, interval)
		}
	}

	// The whole batch cannot finish faster than the gate allows.
	total := starts[len(starts)-1].Sub(starts[0])
	if minTotal := time.Duration(permits-1)*interval - tolerance; total < minTotal {
		t.Errorf("Total span = %v, want >= %v", total, minTotal)
	}
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	gate := NewGate(Config{MinInterval: 5 * time.Second}, zerolog.Nop())

	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gate.Acquire(ctx)
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestAcquire_IndependentGatesDoNotInterfere(t *testing.T) {
	a := NewGate(Config{MinInterval: time.Second}, zerolog.Nop())
	b := NewGate(Config{MinInterval: time.Second}, zerolog.Nop())

	if err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	start := time.Now()
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Second gate waited %v, gates must be independent", elapsed)
	}
}
