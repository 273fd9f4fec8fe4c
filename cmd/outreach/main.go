// outreach finds the dependents of a GitHub repository and drafts a
// personalised email to each reachable owner.
//
// Usage:
//
//	outreach batch --repository owner/repo [--output emails.csv]
//	outreach serve [--addr :8080]
//	outreach version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shpitdev/dependents-outreach/internal/config"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code: 0 on success,
// 2 for configuration and usage errors, 1 for run failures.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, loadErr := config.Load()
	root := newRootCmd(&cfg, loadErr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ce *configError
	if errors.As(err, &ce) {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Secrets(ce.Err.Error()))
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "%s\n", redact.Secrets(err.Error()))
	return 1
}

// configError marks failures that map to exit code 2.
type configError struct {
	Err error
}

func (e *configError) Error() string { return e.Err.Error() }

func (e *configError) Unwrap() error { return e.Err }

func asConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{Err: err}
}
