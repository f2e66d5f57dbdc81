package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups served from Redis.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cep_cache_hits_total",
			Help: "Total number of CEP lookups served from cache",
		},
	)

	// CacheMisses tracks lookups that had to go to the service.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cep_cache_misses_total",
			Help: "Total number of CEP cache misses",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cep_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
