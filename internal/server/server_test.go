package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/pipeline"
)

type fakeRunner struct {
	events  []pipeline.Event
	err     error
	gotRepo string
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, repo string, emit func(pipeline.Event) error) (pipeline.Summary, error) {
	f.calls++
	f.gotRepo = repo
	for _, ev := range f.events {
		if err := emit(ev); err != nil {
			return pipeline.Summary{}, &pipeline.EmitError{Err: err}
		}
	}
	return pipeline.Summary{RunID: "run-1"}, f.err
}

func readLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid ndjson line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestGenerateEmailsStreamsEvents(t *testing.T) {
	runner := &fakeRunner{events: []pipeline.Event{
		pipeline.Status("Fetching dependents for mem0ai/mem0..."),
		pipeline.DraftEvent(contact.Draft{Username: "alice", RecipientName: "Alice", RecipientEmail: "alice@example.com", SourceRepo: "alice/app", Subject: "Hi", Body: "Hello"}),
		pipeline.Status("Finished processing. Generated emails for 1 users."),
	}}
	srv := httptest.NewServer(NewRouter(runner, RouterOptions{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/generate_emails", "application/json", strings.NewReader(`{"repository":" mem0ai/mem0 "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type = %q", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	var sb strings.Builder
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		sb.WriteString(sc.Text() + "\n")
	}
	lines := readLines(t, sb.String())
	want := []map[string]any{
		{"status": "Fetching dependents for mem0ai/mem0..."},
		{"user": "alice", "name": "Alice", "email_address": "alice@example.com", "repo": "alice/app", "email_body": "Hello", "email_subject": "Hi"},
		{"status": "Finished processing. Generated emails for 1 users."},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("stream mismatch (-want +got):\n%s", diff)
	}
	if runner.gotRepo != "mem0ai/mem0" {
		t.Fatalf("repo = %q", runner.gotRepo)
	}
}

func TestGenerateEmailsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad json", body: `{"repository":`, want: "invalid JSON"},
		{name: "empty body", body: ``, want: "empty body"},
		{name: "missing repository", body: `{}`, want: "Repository not provided"},
		{name: "no slash", body: `{"repository":"mem0"}`, want: "Invalid repository format. Use 'owner/repo'."},
		{name: "trailing data", body: `{"repository":"a/b"} {}`, want: "unexpected trailing data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			h := NewRouter(runner, RouterOptions{})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/generate_emails", strings.NewReader(tt.body))
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(body["error"], tt.want) {
				t.Fatalf("error = %q, want %q", body["error"], tt.want)
			}
			if runner.calls != 0 {
				t.Fatalf("runner must not start on bad input")
			}
		})
	}
}

func TestGenerateEmailsRunErrorKeepsStream(t *testing.T) {
	runner := &fakeRunner{
		events: []pipeline.Event{pipeline.Status("Fetching"), pipeline.Error("Could not fetch dependents")},
		err:    errors.New("404"),
	}
	rec := httptest.NewRecorder()
	NewRouter(runner, RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate_emails", strings.NewReader(`{"repository":"a/b"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	lines := readLines(t, rec.Body.String())
	if len(lines) != 2 || lines[1]["error"] != "Could not fetch dependents" {
		t.Fatalf("unexpected stream: %v", lines)
	}
	if !rec.Flushed {
		t.Fatalf("expected flushed stream")
	}
}

func TestHealthzAndVersion(t *testing.T) {
	h := NewRouter(&fakeRunner{}, RouterOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version"`) {
		t.Fatalf("version: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := NewRouter(&fakeRunner{}, RouterOptions{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/generate_emails", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRecoverJSON(t *testing.T) {
	h := recoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCaptureWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK}
	_, _ = cw.Write([]byte("x"))
	cw.Flush()
	if !rec.Flushed || cw.bytes != 1 {
		t.Fatalf("flushed=%v bytes=%d", rec.Flushed, cw.bytes)
	}
}

type blockingRunner struct {
	started chan struct{}
	ctxErr  chan error
}

func (b *blockingRunner) Run(ctx context.Context, _ string, _ func(pipeline.Event) error) (pipeline.Summary, error) {
	close(b.started)
	<-ctx.Done()
	b.ctxErr <- ctx.Err()
	return pipeline.Summary{}, ctx.Err()
}

func TestServeCancelsInFlightRunOnShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	runner := &blockingRunner{started: make(chan struct{}), ctxErr: make(chan error, 1)}
	srv := New(ln.Addr().String(), NewRouter(runner, RouterOptions{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/generate_emails", "application/json", strings.NewReader(`{"repository":"mem0ai/mem0"}`))
		if err != nil {
			return
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
	}()

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not start")
	}
	cancel()

	select {
	case err := <-runner.ctxErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run ctx err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run context was not cancelled")
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after shutdown")
	}
}
