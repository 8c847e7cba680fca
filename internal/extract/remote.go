package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ishan121028/RadiologyAI/internal/metrics"
	"github.com/ishan121028/RadiologyAI/internal/models"
)

// RemoteConfig holds extraction service client configuration.
type RemoteConfig struct {
	// URL is the extraction endpoint; document bytes are POSTed to it.
	URL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Timeout bounds a single extraction call. The per-document context
	// deadline still applies on top.
	Timeout time.Duration
	// RatePerSecond throttles outbound calls. Zero disables throttling.
	RatePerSecond float64
	// BreakerFailures is the consecutive-failure count that opens the
	// circuit. Zero selects the default of 5.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open. Zero selects
	// the default of 30 seconds.
	BreakerCooldown time.Duration
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("extraction service URL is required")
	}
	return nil
}

// RemoteExtractor calls an external document-AI service over HTTP. Calls
// are rate limited and wrapped in a circuit breaker so a degraded service
// fails fast instead of stalling the worker pool.
type RemoteExtractor struct {
	config  RemoteConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*models.ExtractionResult]
	limiter *rate.Limiter
}

// NewRemoteExtractor creates a remote extraction client.
func NewRemoteExtractor(config RemoteConfig) (*RemoteExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := config.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	var limiter *rate.Limiter
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}

	breaker := gobreaker.NewCircuitBreaker[*models.ExtractionResult](gobreaker.Settings{
		Name:    "extraction-service",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	return &RemoteExtractor{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: breaker,
		limiter: limiter,
	}, nil
}

// Extract sends the document to the extraction service and decodes the
// structured result. Context cancellation and deadline are honored while
// waiting on the rate limiter and during the call.
func (e *RemoteExtractor) Extract(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := e.breaker.Execute(func() (*models.ExtractionResult, error) {
		return e.call(ctx, content, filename)
	})
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionErrorsTotal.Inc()
		return nil, err
	}
	return result, nil
}

func (e *RemoteExtractor) call(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.URL, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("X-Filename", filename)
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction service error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result models.ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return &result, nil
}
