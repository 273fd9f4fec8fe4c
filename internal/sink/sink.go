// Package sink delivers pipeline events: a CSV export, an ndjson stream,
// a styled console renderer, and a fan-out over several of them.
package sink

import (
	"errors"

	"github.com/shpitdev/dependents-outreach/internal/pipeline"
)

// Sink consumes the events of one run. Emit is called from a single goroutine.
type Sink interface {
	Emit(ev pipeline.Event) error
	Close() error
}

// Multi fans events out to every sink in order. The first Emit error stops
// the fan-out for that event.
type Multi []Sink

func (m Multi) Emit(ev pipeline.Event) error {
	for _, s := range m {
		if err := s.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
