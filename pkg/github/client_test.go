package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/dependents-outreach/pkg/github"
	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

func newTestClient(t *testing.T, h http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := github.NewClient(github.Config{APIBaseURL: srv.URL, WebBaseURL: srv.URL, Token: "ghp_testtoken"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClientUser(t *testing.T) {
	var gotAuth, gotAccept string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"login": "octocat", "type": "User", "name": "The Octocat",
			"company": "@github", "email": "octo@example.com",
		})
	})
	c := newTestClient(t, mux)

	u, err := c.User(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	want := github.User{Login: "octocat", Type: "User", Name: "The Octocat", Company: "@github", Email: "octo@example.com"}
	if diff := cmp.Diff(want, u); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}
	if gotAuth != "Bearer ghp_testtoken" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Fatalf("Accept = %q", gotAccept)
	}
}

func TestClientUserNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))

	_, err := c.User(context.Background(), "ghost")
	if !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientUserRejectsPathInjection(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	for _, login := range []string{"", "a/b", "a?x", "  "} {
		if _, err := c.User(context.Background(), login); err == nil {
			t.Fatalf("expected error for login %q", login)
		}
	}
}

func TestClientRepoAndCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widgets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"alice/widgets","description":"Widgets","stargazers_count":42,"language":"Go","topics":["cli","tools"]}`))
	})
	mux.HandleFunc("/repos/alice/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "30" {
			t.Errorf("per_page = %q", got)
		}
		_, _ = w.Write([]byte(`[{"sha":"abc","commit":{"author":{"name":"Alice","email":"alice@example.com"},"message":"init"}}]`))
	})
	c := newTestClient(t, mux)

	repo, err := c.Repo(context.Background(), "alice", "widgets")
	if err != nil {
		t.Fatalf("Repo: %v", err)
	}
	if repo.StargazersCount != 42 || repo.Language != "Go" {
		t.Fatalf("unexpected repo: %+v", repo)
	}
	if diff := cmp.Diff([]string{"cli", "tools"}, repo.Topics); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}

	commits, err := c.Commits(context.Background(), "alice", "widgets", 30)
	if err != nil {
		t.Fatalf("Commits: %v", err)
	}
	if len(commits) != 1 || commits[0].Commit.Author == nil || commits[0].Commit.Author.Email != "alice@example.com" {
		t.Fatalf("unexpected commits: %+v", commits)
	}
}

func TestClientReadme(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("# Widgets\n\nFast widgets."))
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widgets/readme", func(w http.ResponseWriter, r *http.Request) {
		// GitHub wraps base64 content at 60 columns.
		body, _ := json.Marshal(map[string]string{"encoding": "base64", "content": encoded[:10] + "\n" + encoded[10:]})
		_, _ = w.Write(body)
	})
	c := newTestClient(t, mux)

	got, err := c.Readme(context.Background(), "alice", "widgets")
	if err != nil {
		t.Fatalf("Readme: %v", err)
	}
	if got != "# Widgets\n\nFast widgets." {
		t.Fatalf("readme = %q", got)
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		name      string
		expectErr bool
	}{
		{in: "mem0ai/mem0", owner: "mem0ai", name: "mem0"},
		{in: " a / b ", owner: "a", name: "b"},
		{in: "noslash", expectErr: true},
		{in: "/repo", expectErr: true},
		{in: "owner/", expectErr: true},
		{in: "a/b/c", expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, name, err := github.SplitFullName(tt.in)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tt.owner || name != tt.name {
				t.Fatalf("got %q/%q", owner, name)
			}
		})
	}
}
