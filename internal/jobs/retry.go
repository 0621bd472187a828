package jobs

import (
	"context"
	"strings"
	"time"
)

// RetryOptions configures Invoke. Zero values fall back to the defaults used
// for every external analysis call.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// retryableSignals are substrings of error messages that indicate a
// transient upstream condition worth retrying. Anything else is fatal.
var retryableSignals = []string{
	"overloaded",
	"rate limit",
	"rate-limited",
	"resource exhausted",
	"resource_exhausted",
	"unavailable",
	"429",
	"529",
}

// IsRetryable classifies an error by its message signature.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range retryableSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoke calls fn, retrying on retryable errors with exponential backoff
// (base, 2*base, 4*base, ...). A non-retryable error, context cancellation,
// or exhaustion of attempts propagates immediately.
func Invoke(ctx context.Context, fn func(ctx context.Context) error, opts RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.sleep == nil {
		opts.sleep = contextSleep
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == opts.MaxAttempts {
			return lastErr
		}
		delay := opts.BaseDelay << (attempt - 1)
		if err := opts.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// InvokeValue is Invoke for calls that produce a value.
func InvokeValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	var result T
	err := Invoke(ctx, func(ctx context.Context) error {
		var ferr error
		result, ferr = fn(ctx)
		return ferr
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
