// Package httperr summarizes non-2xx responses from upstream APIs without
// leaking response bodies or credentials.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/dependents-outreach/pkg/pipeline/redact"
)

// errorEnvelope covers the error body shapes returned by GitHub ("message")
// and mem0 ("detail"/"error").
type errorEnvelope struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
	Error   string `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx upstream response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Service    string
	Op         string
	StatusCode int
	Status     string
	Message    string

	// Snippet is a redacted, truncated hint for bodies without a known envelope.
	Snippet string

	// RetryAfter is the raw Retry-After header, when present.
	RetryAfter string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	service := strings.TrimSpace(e.Service)
	if service == "" {
		service = "upstream"
	}
	parts := []string{
		fmt.Sprintf("%s api error: op=%s status=%s", service, strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// New builds an *HTTPError from a response and its (already read) body.
func New(service, op string, resp *http.Response, body []byte) error {
	h := &HTTPError{
		Service: service,
		Op:      op,
	}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
		h.RetryAfter = strings.TrimSpace(resp.Header.Get("Retry-After"))
	}
	if h.Status == "" && h.StatusCode != 0 {
		h.Status = fmt.Sprintf("%d %s", h.StatusCode, http.StatusText(h.StatusCode))
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = strings.TrimSpace(env.Error)
		}
		if msg == "" {
			if s, ok := env.Detail.(string); ok {
				msg = strings.TrimSpace(s)
			}
		}
		if msg != "" {
			h.Message = redactAndTruncate([]byte(msg))
			return h
		}
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

// StatusOf returns the upstream status code carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsConflict reports whether err is an upstream 409.
func IsConflict(err error) bool { return StatusOf(err) == http.StatusConflict }

// IsRateLimited reports whether err is an upstream 429 or a 403 (GitHub secondary rate limit).
func IsRateLimited(err error) bool {
	code := StatusOf(err)
	return code == http.StatusTooManyRequests || code == http.StatusForbidden
}

// IsServerError reports whether err is an upstream 5xx.
func IsServerError(err error) bool { return StatusOf(err)/100 == 5 }

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	// Keep this small: response bodies can contain sensitive data.
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
