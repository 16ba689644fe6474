package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default adapter call bounds.
const (
	DefaultCallTimeout    = 10 * time.Second
	DefaultCallRetries    = 3
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultQueryRetries   = 5
)

// RetryConfig bounds every adapter call.
type RetryConfig struct {
	// CallTimeout bounds a single adapter call. Zero disables the timeout.
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout"`

	// CallRetries is how many times a failing call is retried before it is
	// treated as a transient failure.
	CallRetries int `yaml:"call_retries" json:"call_retries"`

	// InitialBackoff is the first wait between retries.
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`

	// MaxBackoff caps the exponential wait.
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`

	// QueryRetries is how many empty query results are tolerated, each
	// followed by a workspace reset, before the empty result is accepted.
	QueryRetries int `yaml:"query_retries" json:"query_retries"`
}

// DefaultRetryConfig returns the default bounds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		CallTimeout:    DefaultCallTimeout,
		CallRetries:    DefaultCallRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		QueryRetries:   DefaultQueryRetries,
	}
}

// newBackOff builds a capped exponential policy allowing at most retries
// retries. The elapsed-time limit is disabled; the retry count bounds it.
func (r RetryConfig) newBackOff(ctx context.Context, retries int) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialBackoff
	eb.MaxInterval = r.MaxBackoff
	eb.MaxElapsedTime = 0
	eb.Reset()

	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// callContext applies the per-call timeout.
func (r RetryConfig) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.CallTimeout)
}
