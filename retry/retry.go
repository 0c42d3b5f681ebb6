// Package retry re-runs a single fallible operation a bounded number of
// times with a constant pause between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy: one attempt plus two retries, one second apart.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy bounds a retried operation.
type Policy struct {
	// Attempts is the total number of invocations, including the first.
	Attempts int

	// Delay is the constant pause between two attempts.
	Delay time.Duration

	// Notify, if set, is called before every pause with the error that
	// triggered the retry and the pause length.
	Notify func(err error, delay time.Duration)
}

// Default returns the default policy.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Do invokes op until it succeeds or p.Attempts invocations have failed.
// The error of the last attempt is returned unchanged, even when ctx
// expired while that attempt ran. Cancelling ctx interrupts a pending
// pause and returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	var (
		last   error
		calls  int
		pauses int
	)
	record := func() (T, error) {
		calls++
		v, err := op()
		last = err
		return v, err
	}
	notify := func(err error, d time.Duration) {
		pauses++
		if p.Notify != nil {
			p.Notify(err, d)
		}
	}

	res, err := backoff.RetryNotifyWithData[T](record, b, notify)
	if err == nil {
		return res, nil
	}
	// A pause was started after the last call and never finished.
	if pauses == calls {
		return res, err
	}
	return res, last
}

// Run is Do for operations that only return an error.
func Run(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
