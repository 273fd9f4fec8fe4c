package step_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shpitdev/dependents-outreach/pkg/pipeline/step"
)

func TestCall_AppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	r := step.New(step.Options{RequestTimeout: 20 * time.Millisecond})
	_, err := step.Call(context.Background(), r, func(ctx context.Context) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected a deadline on the call context")
		}
		<-ctx.Done()
		return "", ctx.Err()
	})

	var te *step.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %T %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped DeadlineExceeded, got %v", err)
	}
	if te.After != 20*time.Millisecond {
		t.Fatalf("After=%s", te.After)
	}
}

func TestCall_NoTimeoutWhenDisabled(t *testing.T) {
	t.Parallel()

	got, err := step.Call(context.Background(), step.New(step.Options{}), func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Errorf("unexpected deadline")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("got=%d err=%v", got, err)
	}
}

func TestCall_ParentCanceledSkipsCall(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := step.Call(ctx, step.New(step.Options{RequestTimeout: time.Second}), func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run on a canceled context")
	}
}

func TestCall_PermanentErrorPassesThrough(t *testing.T) {
	t.Parallel()

	want := errors.New("permanent")
	err := step.New(step.Options{RequestTimeout: time.Second}).Run(context.Background(), func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	var te *step.TimeoutError
	if errors.As(err, &te) {
		t.Fatalf("permanent error must not be reported as timeout")
	}
}

func TestWait_Paces(t *testing.T) {
	t.Parallel()

	r := step.New(step.Options{RateLimitRPS: 50})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// Burst of 1: the 2nd and 3rd admissions wait ~20ms each.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected pacing, elapsed=%s", elapsed)
	}
}

func TestNilRunner(t *testing.T) {
	t.Parallel()

	var r *step.Runner
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got, err := step.Call(context.Background(), r, func(context.Context) (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}
