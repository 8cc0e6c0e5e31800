// Package generation talks to the external text-generation service.
//
// A Client folds over an ordered list of providers: the first success wins,
// retryable failures move on to the next provider, and a fatal failure stops
// the fold. Attempts are strictly sequential.
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/pkg/contracts"
)

// DefaultAttemptTimeout bounds a single provider attempt.
const DefaultAttemptTimeout = 45 * time.Second

// Client implements contracts.Generator over a provider fallback list.
type Client struct {
	providers      []contracts.Provider
	attemptTimeout time.Duration
	metrics        *metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithAttemptTimeout overrides DefaultAttemptTimeout. Zero disables it.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) { c.attemptTimeout = d }
}

// WithMetrics records attempts and fallbacks.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client trying providers in the given order.
func NewClient(providers []contracts.Provider, opts ...Option) *Client {
	c := &Client{providers: providers, attemptTimeout: DefaultAttemptTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models lists the provider names in fallback order.
func (c *Client) Models() []string {
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Generate returns the first successful raw response. It fails with a
// fatal *AttemptError, or with *QuotaError when every provider failed
// retryably.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var attempts []*AttemptError
	for i, p := range c.providers {
		text, err := c.try(ctx, p, prompt)
		if err == nil {
			c.metrics.GenerationAttempt(p.Name(), metrics.OutcomeSuccess)
			if i > 0 {
				log.Info().Str("model", p.Name()).Int("attempt", i+1).Msg("Generation succeeded on fallback model")
			}
			return text, nil
		}

		ae := &AttemptError{Model: p.Name(), Retryable: Retryable(ctx, err), Err: err}
		attempts = append(attempts, ae)
		log.Warn().
			Str("model", p.Name()).
			Int("attempt", i+1).
			Bool("retryable", ae.Retryable).
			Err(err).
			Msg("Generation attempt failed")

		if !ae.Retryable {
			c.metrics.GenerationAttempt(p.Name(), metrics.OutcomeFatal)
			return "", ae
		}
		c.metrics.GenerationAttempt(p.Name(), metrics.OutcomeRetryable)
		if i < len(c.providers)-1 {
			c.metrics.GenerationFallback()
		}
	}
	return "", &QuotaError{Attempts: attempts}
}

func (c *Client) try(ctx context.Context, p contracts.Provider, prompt string) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	text, err := p.Generate(ctx, prompt)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	return text, err
}

// IsUpstreamQuota reports whether err should surface as an upstream
// quota failure (HTTP 429) rather than a generic one.
func IsUpstreamQuota(err error) bool {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}
	var ae *AttemptError
	return errors.As(err, &ae) && IsQuota(ae.Err)
}
