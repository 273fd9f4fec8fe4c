package httperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

func TestNew(t *testing.T) {
	t.Run("github message envelope", func(t *testing.T) {
		resp := &http.Response{StatusCode: 404, Status: "404 Not Found", Header: http.Header{}}
		err := httperr.New("github", "getUser", resp, []byte(`{"message":"Not Found","documentation_url":"https://docs.github.com"}`))
		if !httperr.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if got := err.Error(); !strings.Contains(got, "github api error: op=getUser status=404 Not Found") || !strings.Contains(got, "message=Not Found") {
			t.Fatalf("unexpected error text: %q", got)
		}
	})

	t.Run("mem0 detail envelope", func(t *testing.T) {
		resp := &http.Response{StatusCode: 409, Header: http.Header{}}
		err := httperr.New("mem0", "add", resp, []byte(`{"detail":"memory already exists"}`))
		if !httperr.IsConflict(err) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if !strings.Contains(err.Error(), "status=409 Conflict") {
			t.Fatalf("expected synthesized status, got %q", err.Error())
		}
	})

	t.Run("non json body is redacted and truncated", func(t *testing.T) {
		resp := &http.Response{StatusCode: 500, Status: "500 Internal Server Error", Header: http.Header{}}
		body := "oops Bearer sekret " + strings.Repeat("x", 400)
		err := httperr.New("github", "dependents", resp, []byte(body))
		got := err.Error()
		if strings.Contains(got, "sekret") {
			t.Fatalf("secret leaked: %q", got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("expected truncation marker: %q", got)
		}
		if !httperr.IsServerError(err) {
			t.Fatalf("expected server error classification")
		}
	})

	t.Run("retry after is captured", func(t *testing.T) {
		resp := &http.Response{StatusCode: 429, Status: "429 Too Many Requests", Header: http.Header{"Retry-After": []string{"30"}}}
		err := httperr.New("github", "getUser", resp, nil)
		var he *httperr.HTTPError
		if !errors.As(err, &he) || he.RetryAfter != "30" {
			t.Fatalf("unexpected error: %#v", err)
		}
		if !httperr.IsRateLimited(err) {
			t.Fatalf("expected rate limited")
		}
	})
}

func TestStatusOf_Wrapped(t *testing.T) {
	base := httperr.New("github", "getUser", &http.Response{StatusCode: 403, Header: http.Header{}}, nil)
	wrapped := fmt.Errorf("enrich alice: %w", base)
	if got := httperr.StatusOf(wrapped); got != 403 {
		t.Fatalf("StatusOf=%d want 403", got)
	}
	if httperr.StatusOf(errors.New("plain")) != 0 {
		t.Fatalf("plain errors carry no status")
	}
}
