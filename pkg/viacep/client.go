// Package viacep provides the rate-limited ViaCEP lookup client with
// bounded retry and uniform outcome records.
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/cache"
	"github.com/KaiqueMeireles/case-data-engineer/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for lookup operations.
var (
	cepLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cep_lookups_total",
		Help: "Total CEP lookups by result",
	}, []string{"result"})

	cepLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cep_lookup_duration_seconds",
		Help:    "CEP lookup duration in seconds, gate wait included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	cepRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cep_lookup_retries_total",
		Help: "Total number of retry attempts for transient HTTP statuses",
	})

	cepRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cep_lookup_retry_backoff_seconds",
		Help:    "Backoff duration slept before retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	cepRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cep_lookup_retry_exhausted_total",
		Help: "Total number of lookups that exhausted all retry attempts",
	})
)

// Failure messages. The transform layer classifies errors by substring
// match on these, so they are part of the contract.
const (
	MsgInvalidFormat = "invalid format"
	MsgNotFound      = "not found"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the lookup service.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout is the hard per-call timeout.
	Timeout time.Duration

	// Retry is the transient-failure policy.
	Retry RetryConfig

	// Cache is an optional lookup cache. Nil disables caching.
	Cache *cache.Cache
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "cep-pipeline/1.0 (+https://github.com/KaiqueMeireles/case-data-engineer)",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client resolves CEPs against the ViaCEP service. One client shares a
// single connection-pooled transport across every lookup in a run.
type Client struct {
	httpClient *http.Client
	gate       *ratelimit.Gate
	cache      *cache.Cache
	config     Config
	logger     zerolog.Logger
}

// New creates a lookup client bound to a rate gate.
func New(cfg Config, gate *ratelimit.Gate) (*Client, error) {
	if gate == nil {
		return nil, fmt.Errorf("rate gate is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.BackoffMultiplier <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "viacep-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
		gate:   gate,
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch resolves one CEP to an Outcome. It is total: every failure path
// resolves to a Failure outcome, never an error or panic past this
// boundary.
func (c *Client) Fetch(ctx context.Context, raw string) Outcome {
	startTime := time.Now()
	defer func() {
		cepLookupDuration.Observe(time.Since(startTime).Seconds())
	}()

	key, err := ValidateKey(raw)
	if err != nil {
		cepLookupsTotal.WithLabelValues("invalid_format").Inc()
		c.logger.Debug().Str("cep", raw).Msg("Rejected malformed CEP before network call")
		return Outcome{Key: NormalizeKey(raw), Status: StatusFailure, Message: MsgInvalidFormat}
	}

	if addr, ok := c.fromCache(ctx, key); ok {
		cepLookupsTotal.WithLabelValues("cache_hit").Inc()
		return Outcome{Key: key, Status: StatusSuccess, Address: addr}
	}

	out := c.fetchRemote(ctx, key)

	if out.Success() && c.cache != nil {
		if data, err := json.Marshal(out.Address); err == nil {
			if err := c.cache.Set(ctx, key, data); err != nil {
				c.logger.Warn().Err(err).Str("cep", key).Msg("Failed to cache address")
			}
		}
	}

	return out
}

// fromCache tries the optional lookup cache. A corrupt entry falls
// through to the network path.
func (c *Client) fromCache(ctx context.Context, key string) (*Address, bool) {
	if c.cache == nil {
		return nil, false
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("cep", key).Msg("Cache get error")
		}
		return nil, false
	}

	var addr Address
	if err := json.Unmarshal(data, &addr); err != nil {
		c.logger.Warn().Err(err).Str("cep", key).Msg("Discarding corrupt cache entry")
		return nil, false
	}

	c.logger.Debug().Str("cep", key).Msg("Lookup served from cache")
	return &addr, true
}

// fetchRemote issues the outbound call with bounded retry. Every attempt,
// retries included, acquires the rate gate first: retries cost additional
// gate waits, never a burst.
func (c *Client) fetchRemote(ctx context.Context, key string) Outcome {
	retry := c.config.Retry
	backoff := retry.InitialBackoff
	lastStatus := 0

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := withJitter(backoff)
			cepRetriesTotal.Inc()
			cepRetryBackoffSeconds.Observe(wait.Seconds())
			c.logger.Debug().
				Str("cep", key).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying lookup after backoff")

			select {
			case <-ctx.Done():
				return c.connectionFailure(key, ctx.Err())
			case <-time.After(wait):
			}
			backoff = retry.next(backoff)
		}

		if err := c.gate.Acquire(ctx); err != nil {
			return c.connectionFailure(key, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lookupURL(key), nil)
		if err != nil {
			return c.connectionFailure(key, err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("cep", key).Msg("HTTP request failed")
			return c.connectionFailure(key, err)
		}

		if resp.StatusCode == http.StatusOK {
			return c.parseBody(key, resp.Body)
		}

		resp.Body.Close()
		lastStatus = resp.StatusCode

		if !retry.retryable(resp.StatusCode) {
			cepLookupsTotal.WithLabelValues("http_error").Inc()
			c.logger.Warn().
				Str("cep", key).
				Int("status", resp.StatusCode).
				Msg("Lookup failed with non-retryable status")
			return Outcome{Key: key, Status: StatusFailure, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}

		c.logger.Warn().
			Str("cep", key).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Transient HTTP status")
	}

	cepRetryExhaustedTotal.Inc()
	cepLookupsTotal.WithLabelValues("http_error").Inc()
	c.logger.Warn().
		Str("cep", key).
		Int("status", lastStatus).
		Int("max_attempts", retry.MaxRetries+1).
		Msg("Retry attempts exhausted")
	return Outcome{
		Key:     key,
		Status:  StatusFailure,
		Message: fmt.Sprintf("HTTP %d after %d attempts", lastStatus, retry.MaxRetries+1),
	}
}

// parseBody decodes a 200 response. ViaCEP signals an unknown CEP with an
// "erro" marker in an otherwise valid body.
func (c *Client) parseBody(key string, body io.ReadCloser) Outcome {
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return c.connectionFailure(key, err)
	}

	var probe struct {
		Erro json.RawMessage `json:"erro"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return c.connectionFailure(key, fmt.Errorf("decode response: %w", err))
	}
	if len(probe.Erro) > 0 {
		cepLookupsTotal.WithLabelValues("not_found").Inc()
		c.logger.Debug().Str("cep", key).Msg("CEP not found")
		return Outcome{Key: key, Status: StatusFailure, Message: MsgNotFound}
	}

	var addr Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return c.connectionFailure(key, fmt.Errorf("decode response: %w", err))
	}

	cepLookupsTotal.WithLabelValues("success").Inc()
	return Outcome{Key: key, Status: StatusSuccess, Address: &addr}
}

func (c *Client) connectionFailure(key string, err error) Outcome {
	cepLookupsTotal.WithLabelValues("connection_error").Inc()
	return Outcome{
		Key:     key,
		Status:  StatusFailure,
		Message: fmt.Sprintf("connection error: %v", err),
	}
}

func (c *Client) lookupURL(key string) string {
	return fmt.Sprintf("%s/ws/%s/json/", strings.TrimRight(c.config.BaseURL, "/"), key)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
