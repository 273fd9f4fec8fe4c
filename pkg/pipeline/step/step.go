// Package step runs one external call at a time with an explicit per-call
// timeout and optional token-bucket pacing.
package step

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	// RequestTimeout bounds each call. Set to <=0 to disable.
	RequestTimeout time.Duration

	// RateLimitRPS paces callers of Wait. Set to <=0 to disable.
	RateLimitRPS float64
}

// Runner applies Options to sequential calls. A nil *Runner runs calls unbounded.
type Runner struct {
	opts    Options
	limiter *rate.Limiter
}

func New(opts Options) *Runner {
	r := &Runner{opts: opts}
	if opts.RateLimitRPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return r
}

// Options returns the effective options.
func (r *Runner) Options() Options {
	if r == nil {
		return Options{}
	}
	return r.opts
}

// Wait blocks until the limiter admits the next unit of work.
func (r *Runner) Wait(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Run invokes fn with a context bounded by RequestTimeout.
func (r *Runner) Run(ctx context.Context, fn func(context.Context) error) error {
	_, err := Call(ctx, r, func(reqCtx context.Context) (struct{}, error) {
		return struct{}{}, fn(reqCtx)
	})
	return err
}

// Call invokes fn with a context bounded by the runner's RequestTimeout.
//
// If the parent context is already done, fn is not invoked.
func Call[Out any](ctx context.Context, r *Runner, fn func(context.Context) (Out, error)) (Out, error) {
	var zero Out
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout := r.Options().RequestTimeout; timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := fn(reqCtx)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return out, ctx.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return out, &TimeoutError{After: r.Options().RequestTimeout, Err: err}
	}
	return out, err
}

// TimeoutError reports a call that exceeded RequestTimeout.
type TimeoutError struct {
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e == nil || e.Err == nil {
		return "request timed out"
	}
	return "request timed out after " + e.After.String() + ": " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
