package contact

import "fmt"

// NetworkError is a run-level failure reaching an upstream.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: network error", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TransientError marks an upstream failure that would likely succeed later
// (rate limits, 5xx, timeouts). Nothing retries it; it only changes how the
// failure is logged and reported.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
