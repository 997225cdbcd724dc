package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// The research service is slow and metered; price lookups are cheap.
	evidenceRatePerSec = 2
	priceRatePerSec    = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config describes the evidence and price endpoints.
type Config struct {
	BaseURL   string
	PriceURL  string
	APIKey    string
	Timeout   time.Duration
	RetryWait time.Duration // base backoff, 500ms when zero
}

// Client es el HTTP client del servicio de evidencia con rate limiting,
// retries y deduplicación de consultas de precio concurrentes.
type Client struct {
	http            *http.Client
	evidenceBase    string
	priceBase       string
	apiKey          string
	retryWait       time.Duration
	evidenceLimiter *rate.Limiter
	priceLimiter    *rate.Limiter
	prices          singleflight.Group
}

// NewClient crea un Client. PriceURL defaults to BaseURL.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = baseRetryWait
	}
	if cfg.PriceURL == "" {
		cfg.PriceURL = cfg.BaseURL
	}
	return &Client{
		http:            &http.Client{Timeout: cfg.Timeout},
		evidenceBase:    cfg.BaseURL,
		priceBase:       cfg.PriceURL,
		apiKey:          cfg.APIKey,
		retryWait:       cfg.RetryWait,
		evidenceLimiter: rate.NewLimiter(evidenceRatePerSec, 2),
		priceLimiter:    rate.NewLimiter(priceRatePerSec, 5),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.headers(req)
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.headers(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 and 5xx are retried; other 4xx fail immediately.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by evidence API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
