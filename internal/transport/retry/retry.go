// Package retry runs transport calls with exponential backoff on top of
// github.com/sethvargo/go-retry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy bounds a retry loop.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries int

	// Base is the wait before the first retry. It doubles for every
	// following one.
	Base time.Duration

	// OnRetry, if set, is called before waiting for the next attempt.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// backoff returns the exponential schedule bounded by Retries.
func (p Policy) backoff() goretry.Backoff {
	var b goretry.Backoff = goretry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
	if p.Base > 0 {
		b = goretry.NewExponential(p.Base)
	}
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	return goretry.WithMaxRetries(uint64(retries), b)
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns err itself.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type delayError struct {
	err  error
	wait time.Duration
}

func (e *delayError) Error() string { return e.err.Error() }
func (e *delayError) Unwrap() error { return e.err }

// After marks err as retryable after wait instead of the backoff delay.
// A zero wait retries immediately.
func After(wait time.Duration, err error) error {
	if err == nil {
		return nil
	}
	return &delayError{err: err, wait: wait}
}

// Do calls fn until it returns nil, returns a Permanent error, ctx ends or
// the policy's retries are used up. attempt counts from zero.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	var (
		attempt   int
		lastErr   error
		wait      time.Duration
		override  bool
		exhausted bool
	)

	schedule := p.backoff()
	b := goretry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := schedule.Next()
		if stop {
			exhausted = true
			return 0, true
		}
		if override {
			next = wait
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, next, lastErr)
		}
		return next, false
	})

	err := goretry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx, attempt)
		attempt++
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm
		}

		override = false
		var delayed *delayError
		if errors.As(err, &delayed) {
			wait, override, err = delayed.wait, true, delayed.err
		}
		lastErr = err
		return goretry.RetryableError(err)
	})

	var perm *permanentError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &perm):
		return perm.err
	case exhausted:
		return &ExhaustedError{Attempts: attempt, Err: lastErr}
	}
	return err
}
