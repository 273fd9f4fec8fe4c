package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" and "Token <key>" authorization values.
	authHeaderRe = regexp.MustCompile(`\b([Bb]earer|Token)\s+[^\s"']+`)

	// GitHub personal access tokens (classic and fine-grained) and app tokens.
	githubTokenRe = regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{20,}|github_pat_[A-Za-z0-9_]{20,})\b`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|key|gemini[_-]?api[_-]?key|mem0[_-]?api[_-]?key|github[_-]?token)\b\s*[:=]\s*[^\s"'&]+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = authHeaderRe.ReplaceAllString(out, "$1 <redacted>")
	out = githubTokenRe.ReplaceAllString(out, "<redacted_token>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
