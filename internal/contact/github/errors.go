package github

import (
	"context"
	"errors"
	"net"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

// classify marks rate limits, upstream 5xx and timeouts as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var te *contact.TransientError
	if errors.As(err, &te) {
		return err
	}
	if httperr.IsRateLimited(err) || httperr.IsServerError(err) || errors.Is(err, context.DeadlineExceeded) {
		return &contact.TransientError{Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &contact.TransientError{Err: err}
	}
	return err
}
