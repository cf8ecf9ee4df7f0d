package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxRetries = 2
	DefaultBaseWait   = 200 * time.Millisecond
	DefaultMaxWait    = 5 * time.Second
)

type config struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
}

// Option configures Do.
type Option func(*config)

// WithMaxRetries sets how many times a failed attempt is repeated. Zero means
// the function runs exactly once.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithBaseWait sets the delay before the first retry. Later delays double.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) {
		c.baseWait = d
	}
}

// WithMaxWait caps the delay between attempts.
func WithMaxWait(d time.Duration) Option {
	return func(c *config) {
		c.maxWait = d
	}
}

// Do calls fn until it succeeds, returns an error that is not recoverable,
// the retries are used up, or ctx is done. The last error from fn is
// returned as is.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	cfg := &config{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
		maxWait:    DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= cfg.maxRetries || !IsRecoverable(err) {
			return err
		}
		timer := time.NewTimer(backoff(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// backoff returns the delay after the given attempt, with up to 25% jitter.
func backoff(cfg *config, attempt int) time.Duration {
	wait := cfg.baseWait << attempt
	if wait <= 0 || wait > cfg.maxWait {
		wait = cfg.maxWait
	}
	if wait <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(wait)/4 + 1))
	return wait - jitter
}
