package sink

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shpitdev/dependents-outreach/internal/pipeline"
)

// NDJSON writes one JSON object per line and flushes after every event when
// the writer supports it.
type NDJSON struct {
	w      io.Writer
	enc    *json.Encoder
	closed bool
}

func NewNDJSON(w io.Writer) *NDJSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSON{w: w, enc: enc}
}

func (s *NDJSON) Emit(ev pipeline.Event) error {
	if s.closed {
		return errors.New("ndjson sink: emit after close")
	}
	if err := s.enc.Encode(ev); err != nil {
		return err
	}
	switch f := s.w.(type) {
	case http.Flusher:
		f.Flush()
	case interface{ Flush() error }:
		return f.Flush()
	}
	return nil
}

func (s *NDJSON) Close() error {
	s.closed = true
	return nil
}
