package dbmcp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Bounded runs fn with a deadline of timeout and returns a *TimeoutError when
// the deadline passes first. fn runs on its own goroutine, so a backend that
// ignores its context cannot hold the caller past the deadline; the abandoned
// goroutine finishes in the background and its result is discarded.
//
// A panic inside fn is recovered and returned as an error.
// A timeout of zero or less disables the deadline.
func Bounded[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	return BoundedLate(ctx, timeout, op, fn, nil)
}

// BoundedLate is Bounded with a hook for abandoned work: when the deadline
// passes first, late is called from a background goroutine with whatever fn
// eventually returns. Callers use it to release resources a slow fn acquired
// after its caller gave up.
func BoundedLate[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error), late func(T, error)) (T, error) {
	if timeout <= 0 {
		return guarded(ctx, op, fn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := guarded(ctx, op, fn)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return r.value, &TimeoutError{Op: op, Timeout: timeout}
		}
		return r.value, r.err
	case <-ctx.Done():
		if late != nil {
			go func() {
				r := <-done
				late(r.value, r.err)
			}()
		}
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &TimeoutError{Op: op, Timeout: timeout}
		}
		return zero, ctx.Err()
	}
}

// BoundedErr is Bounded for operations without a result value.
func BoundedErr(ctx context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	_, err := Bounded(ctx, timeout, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func guarded[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn(ctx)
}
