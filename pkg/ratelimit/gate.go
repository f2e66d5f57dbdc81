// Package ratelimit implements the shared throttle that bounds the
// aggregate outbound call rate against the ViaCEP API. Every worker must
// acquire the gate before issuing a request, retries included, so the
// whole run never exceeds the configured call spacing.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for gate operations.
var (
	gateAcquisitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cep_rate_gate_acquisitions_total",
		Help: "Total number of permits granted by the rate gate",
	})

	gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cep_rate_gate_wait_seconds",
		Help:    "Time spent waiting for a rate gate permit",
		Buckets: []float64{0.01, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// DefaultMinInterval keeps the run below ~57 requests per minute, a safety
// margin under the ViaCEP limit.
const DefaultMinInterval = 1050 * time.Millisecond

// Config holds the gate configuration.
type Config struct {
	// MinInterval is the minimum wall-clock spacing between the start of
	// any two permitted calls, across all workers combined.
	MinInterval time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MinInterval: DefaultMinInterval,
	}
}

// Gate serializes outbound call starts so that at least MinInterval
// elapses between any two of them. The last permitted instant is the only
// state shared across workers; the full read-wait-update sequence runs
// under one mutex so two workers can never both observe a stale instant
// and proceed without waiting.
//
// A Gate is scoped to one run. Independent runs must use independent
// gates.
type Gate struct {
	mu     sync.Mutex
	last   time.Time
	config Config
	logger zerolog.Logger
}

// NewGate creates a gate for a single run.
func NewGate(cfg Config, logger zerolog.Logger) *Gate {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &Gate{
		config: cfg,
		logger: logger,
	}
}

// Acquire blocks the calling worker until it is safe to start the next
// outbound call. The wait is measured on the monotonic clock. Returns the
// context error if ctx is cancelled while waiting; the permit is not
// granted in that case.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		elapsed := time.Since(g.last)
		if wait := g.config.MinInterval - elapsed; wait > 0 {
			gateWaitSeconds.Observe(wait.Seconds())
			g.logger.Debug().
				Dur("wait", wait).
				Msg("Rate gate holding worker")

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	g.last = time.Now()
	gateAcquisitionsTotal.Inc()
	return nil
}

// MinInterval returns the configured spacing.
func (g *Gate) MinInterval() time.Duration {
	return g.config.MinInterval
}
