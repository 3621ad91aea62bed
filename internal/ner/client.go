package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"mrc_prep/internal/entity"
)

type ClientConfig struct {
	Endpoint       string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:       endpoint,
		Timeout:        30 * time.Second,
		RequestsPerSec: 20,
		Burst:          5,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

type tagRequest struct {
	Texts []string `json:"texts"`
}

type tagResponse struct {
	Entities [][]entity.Entity `json:"entities"`
}

// Client talks to an HTTP tagging service that accepts {"texts": [...]} and
// answers {"entities": [[{"start", "type", "text"}, ...], ...]}.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ner endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

func (c *Client) Tag(ctx context.Context, texts []string) ([][]entity.Entity, error) {
	body, err := json.Marshal(tagRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode tag request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}
	retries := max(c.cfg.MaxRetries, 0)
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	attempt := 0
	var out [][]entity.Entity
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		res, err := c.post(ctx, body)
		if err != nil {
			c.logger.Warn("ner request failed", "attempt", attempt, "error", err)
			return err
		}
		out = res
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("tag %d texts: %w", len(texts), err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: %d texts, %d results", ErrTagCount, len(texts), len(out))
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([][]entity.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ner service returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var decoded tagResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return decoded.Entities, nil
}
