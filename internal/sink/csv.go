package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shpitdev/dependents-outreach/internal/pipeline"
	localio "github.com/shpitdev/dependents-outreach/pkg/pipeline/io/local"
)

// CSV accumulates drafts and writes the name,email export on Close.
type CSV struct {
	open   func() (io.WriteCloser, error)
	rows   []localio.Contact
	closed bool
}

// NewCSV writes the export to w. w is not closed.
func NewCSV(w io.Writer) *CSV {
	return &CSV{open: func() (io.WriteCloser, error) { return nopCloser{w}, nil }}
}

// NewCSVFile writes the export to path on Close, replacing any previous file.
// The file is written to a temporary sibling first and renamed into place.
func NewCSVFile(path string) *CSV {
	return &CSV{open: func() (io.WriteCloser, error) {
		return createAtomic(path)
	}}
}

func (c *CSV) Emit(ev pipeline.Event) error {
	if c.closed {
		return errors.New("csv sink: emit after close")
	}
	if ev.Kind != pipeline.KindDraft || ev.Draft == nil {
		return nil
	}
	c.rows = append(c.rows, localio.Contact{
		Name:  strings.TrimSpace(ev.Draft.RecipientName),
		Email: strings.TrimSpace(ev.Draft.RecipientEmail),
	})
	return nil
}

// Rows returns the number of drafts collected so far.
func (c *CSV) Rows() int { return len(c.rows) }

func (c *CSV) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	w, err := c.open()
	if err != nil {
		return err
	}
	if err := localio.WriteContactsCSV(w, c.rows); err != nil {
		if a, ok := w.(aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return err
	}
	return w.Close()
}

// aborter discards a partially written output instead of publishing it.
type aborter interface {
	Abort() error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

const outputFileMode = 0o644

type atomicFile struct {
	*os.File
	path string
}

func createAtomic(path string) (*atomicFile, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create csv output: %w", err)
	}
	return &atomicFile{File: f, path: path}, nil
}

// Close publishes the temporary file at path with mode 0644.
func (a *atomicFile) Close() error {
	if err := a.File.Chmod(outputFileMode); err != nil {
		_ = a.Abort()
		return fmt.Errorf("write csv output: %w", err)
	}
	if err := a.File.Close(); err != nil {
		_ = os.Remove(a.Name())
		return err
	}
	if err := os.Rename(a.Name(), a.path); err != nil {
		_ = os.Remove(a.Name())
		return fmt.Errorf("write csv output: %w", err)
	}
	return nil
}

// Abort closes and removes the temporary file, leaving path untouched.
func (a *atomicFile) Abort() error {
	_ = a.File.Close()
	return os.Remove(a.Name())
}
