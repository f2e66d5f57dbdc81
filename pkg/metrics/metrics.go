// Package metrics provides the centralized Prometheus registry for the
// CEP pipeline. Metrics are defined in their respective packages
// (ratelimit, viacep, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Gate Metrics (pkg/ratelimit):
//   - cep_rate_gate_acquisitions_total (Counter): Permits granted by the gate
//   - cep_rate_gate_wait_seconds (Histogram): Time spent waiting for a permit
//
// Lookup Metrics (pkg/viacep):
//   - cep_lookups_total{result} (Counter): Lookups by result
//     (success, not_found, invalid_format, connection_error, http_error, cache_hit)
//   - cep_lookup_duration_seconds (Histogram): Lookup duration, gate wait included
//   - cep_lookup_retries_total (Counter): Retry attempts for transient statuses
//   - cep_lookup_retry_backoff_seconds (Histogram): Backoff slept before retries
//   - cep_lookup_retry_exhausted_total (Counter): Lookups that ran out of retries
//
// Cache Metrics (pkg/cache):
//   - cep_cache_hits_total (Counter): Lookups served from Redis
//   - cep_cache_misses_total (Counter): Cache misses
//   - cep_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(cep_cache_hits_total[5m]) /
//   (rate(cep_cache_hits_total[5m]) + rate(cep_cache_misses_total[5m]))
//
//   # Effective outbound call rate (should stay under the gate's bound)
//   rate(cep_rate_gate_acquisitions_total[1m])
//
//   # Lookup Error Rate
//   sum(rate(cep_lookups_total{result!~"success|cache_hit"}[5m]))
//
//   # P95 Lookup Latency
//   histogram_quantile(0.95, rate(cep_lookup_duration_seconds_bucket[5m]))
