// Package fetcher fans a CEP sequence out across a bounded worker pool
// and collects the outcomes back in input order.
package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/viacep"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds worker pool configuration.
type Config struct {
	// Workers is the number of concurrent lookups. The rate gate bounds
	// real throughput, so a handful of workers is enough; more of them
	// only contend on the gate.
	Workers int

	// ProgressEvery logs a progress line every N completed lookups.
	// Zero disables progress logging.
	ProgressEvery int
}

// DefaultConfig returns safe defaults for production runs.
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		ProgressEvery: 50,
	}
}

// Pool runs lookups through a Resolver with bounded concurrency.
type Pool struct {
	resolver viacep.Resolver
	config   Config
	logger   zerolog.Logger
}

// NewPool creates a pool over the given resolver.
func NewPool(resolver viacep.Resolver, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Pool{
		resolver: resolver,
		config:   cfg,
		logger:   log.With().Str("component", "fetch-pool").Logger(),
	}
}

// FetchAll resolves every key and returns outcomes in input order:
// out[i] corresponds to keys[i]. It returns only once every key has an
// outcome; a single key's permanent failure never aborts the batch.
func (p *Pool) FetchAll(ctx context.Context, keys []string) []viacep.Outcome {
	start := time.Now()
	out := make([]viacep.Outcome, len(keys))

	if len(keys) == 0 {
		return out
	}

	p.logger.Info().
		Int("keys", len(keys)).
		Int("workers", p.config.Workers).
		Msg("Starting batch lookup")

	jobs := make(chan int, len(keys))
	for i := range keys {
		jobs <- i
	}
	close(jobs)

	var completed atomic.Int64
	var failed atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, keys, jobs, out, &completed, &failed)
		}(w)
	}
	wg.Wait()

	p.logger.Info().
		Int("keys", len(keys)).
		Int64("failed", failed.Load()).
		Dur("duration", time.Since(start)).
		Msg("Batch lookup complete")

	return out
}

// worker pulls indexed jobs from the queue. Each index is written by
// exactly one worker, so the result slice needs no lock.
func (p *Pool) worker(ctx context.Context, workerID int, keys []string, jobs <-chan int, out []viacep.Outcome, completed, failed *atomic.Int64) {
	processed := 0

	for i := range jobs {
		out[i] = p.resolver.Fetch(ctx, keys[i])
		processed++

		if !out[i].Success() {
			failed.Add(1)
		}

		done := completed.Add(1)
		if p.config.ProgressEvery > 0 && done%int64(p.config.ProgressEvery) == 0 {
			p.logger.Info().
				Int64("fetched", done).
				Int("total", len(keys)).
				Float64("progress_pct", float64(done)/float64(len(keys))*100).
				Msg("Lookup progress")
		}
	}

	if processed > 0 {
		p.logger.Debug().
			Int("worker_id", workerID).
			Int("keys_processed", processed).
			Msg("Worker completed")
	}
}
