package sink

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/pipeline"
	localio "github.com/shpitdev/dependents-outreach/pkg/pipeline/io/local"
)

func draft(user string) pipeline.Event {
	return pipeline.DraftEvent(contact.Draft{
		Username:       user,
		RecipientName:  strings.ToUpper(user),
		RecipientEmail: user + "@example.com",
		SourceRepo:     user + "/app",
		Subject:        "Hi",
		Body:           "Hello " + user,
	})
}

func TestCSVSinkWritesOneRowPerDraft(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf)

	events := []pipeline.Event{
		pipeline.Status("Fetching"),
		draft("alice"),
		pipeline.Warning("No email found for bob"),
		draft("carol"),
		pipeline.Status("Finished"),
	}
	for _, ev := range events {
		if err := s.Emit(ev); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("csv must be written on close, got %q", buf.String())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected N+1 lines, got %d: %q", len(lines), buf.String())
	}
	got, err := localio.ReadContactsCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadContactsCSV: %v", err)
	}
	want := []localio.Contact{{Name: "ALICE", Email: "alice@example.com"}, {Name: "CAROL", Email: "carol@example.com"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if err := s.Emit(draft("late")); err == nil {
		t.Fatalf("expected emit after close to fail")
	}
}

func TestCSVFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.csv")
	s := NewCSVFile(path)
	if err := s.Emit(draft("alice")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file must not exist before close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "name,email\nALICE,alice@example.com\n" {
		t.Fatalf("unexpected csv: %q", b)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o644 {
		t.Fatalf("file mode: want 0644, got %o", got)
	}
}

func TestCSVFileSinkKeepsPreviousExportOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emails.csv")
	if err := os.WriteFile(path, []byte("name,email\nOLD,old@example.com\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// The temp file is closed before the export is written, so every write fails.
	s := &CSV{open: func() (io.WriteCloser, error) {
		a, err := createAtomic(path)
		if err != nil {
			return nil, err
		}
		_ = a.File.Close()
		return a, nil
	}}
	if err := s.Emit(draft("alice")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := s.Close(); err == nil {
		t.Fatalf("expected write error")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "name,email\nOLD,old@example.com\n" {
		t.Fatalf("previous export was replaced: %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestNDJSONSinkFlushesEachEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewNDJSON(rec)

	if err := s.Emit(pipeline.Status("Fetching dependents for a/b...")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !rec.Flushed {
		t.Fatalf("expected flush after emit")
	}
	if err := s.Emit(draft("alice")); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 || lines[0]["status"] != "Fetching dependents for a/b..." || lines[1]["email_address"] != "alice@example.com" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsole(&buf, true)
	for _, ev := range []pipeline.Event{pipeline.Status("working"), pipeline.Warning("careful"), pipeline.Error("broken"), draft("alice")} {
		if err := s.Emit(ev); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	out := buf.String()
	for _, want := range []string{"working", "careful", "broken", "ALICE <alice@example.com>", "Hello alice"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Emit(pipeline.Event) error { return errors.New("disk full") }
func (f *failingSink) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	csv := NewCSV(&buf)
	bad := &failingSink{}

	m := Multi{csv, bad}
	if err := m.Emit(draft("alice")); err == nil {
		t.Fatalf("expected emit error")
	}
	if csv.Rows() != 1 {
		t.Fatalf("first sink should still receive the event")
	}
	if err := m.Close(); err == nil || !bad.closed {
		t.Fatalf("expected every sink closed and errors joined, err=%v", err)
	}
	if !strings.HasPrefix(buf.String(), "name,email\n") {
		t.Fatalf("csv not written: %q", buf.String())
	}
}
