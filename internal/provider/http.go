package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/swapbnb/exchange-coordinator/internal/metrics"
)

// HTTPClient posts JSON to a provider endpoint. Transport errors and 5xx
// answers are retried with exponential backoff; anything else is final.
type HTTPClient struct {
	name       string
	baseURL    string
	apiKey     string
	hc         *http.Client
	maxElapsed time.Duration
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(hc *http.Client) HTTPOption { return func(c *HTTPClient) { c.hc = hc } }

// WithMaxElapsed bounds the total time spent retrying one call.
func WithMaxElapsed(d time.Duration) HTTPOption { return func(c *HTTPClient) { c.maxElapsed = d } }

func NewHTTPClient(name, baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		hc:         &http.Client{Timeout: timeout},
		maxElapsed: 30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	return c.createSession(ctx, "/checkout/sessions", req.IdempotencyKey, req)
}

func (c *HTTPClient) CreateVerificationSession(ctx context.Context, req VerificationRequest) (Session, error) {
	return c.createSession(ctx, "/identity/sessions", req.IdempotencyKey, req)
}

func (c *HTTPClient) createSession(ctx context.Context, path, idemKey string, body any) (Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	attempt := 0
	op := func() error {
		attempt++
		s, err := c.post(ctx, path, idemKey, payload)
		if err != nil {
			slog.WarnContext(ctx, "provider call failed", "provider", c.name, "path", path, "attempt", attempt, "err", err)
			return err
		}
		sess = s
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		metrics.ProviderCalls.WithLabelValues(c.name, "error").Inc()
		return Session{}, fmt.Errorf("%s %s: %w", c.name, path, err)
	}
	metrics.ProviderCalls.WithLabelValues(c.name, "ok").Inc()
	return sess, nil
}

func (c *HTTPClient) post(ctx context.Context, path, idemKey string, payload []byte) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Session{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idemKey != "" {
		// the provider dedups retried creates on this key
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, err
	}

	switch {
	case resp.StatusCode >= 500:
		return Session{}, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return Session{}, backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil || s.ID == "" {
		return Session{}, backoff.Permanent(ErrMalformed)
	}
	return s, nil
}
