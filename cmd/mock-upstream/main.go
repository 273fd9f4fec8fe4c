package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/dependents-outreach/internal/mockupstream"
)

func main() {
	addr := defaultString("MOCK_UPSTREAM_ADDR", ":8081")
	githubToken := defaultString("MOCK_UPSTREAM_GITHUB_TOKEN", "")
	mem0Key := defaultString("MOCK_UPSTREAM_MEM0_KEY", "")

	fs := flag.NewFlagSet("mock-upstream", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address (env: MOCK_UPSTREAM_ADDR)")
	fs.StringVar(&githubToken, "github-token", githubToken, "Require this GitHub bearer token on REST calls (env: MOCK_UPSTREAM_GITHUB_TOKEN)")
	fs.StringVar(&mem0Key, "mem0-key", mem0Key, "Require this mem0 API key (env: MOCK_UPSTREAM_MEM0_KEY)")
	_ = fs.Parse(os.Args[1:])

	srv := mockupstream.New()
	srv.Seed()
	srv.RequireGitHubToken(githubToken)
	srv.RequireMem0Key(mem0Key)

	base := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		base = "http://" + addr
	}
	_, _ = fmt.Fprintf(os.Stdout, "mock-upstream listening on %s (users=%s)\n", addr, strings.Join(srv.Users(), ","))
	_, _ = fmt.Fprintf(os.Stdout, "  GITHUB_API_URL=%[1]s GITHUB_WEB_URL=%[1]s MEM0_BASE_URL=%[1]s GEMINI_BASE_URL=%[1]s\n", base)

	hs := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	if err := hs.ListenAndServe(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
