package contact

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		name      string
		expectErr bool
	}{
		{in: "mem0ai/mem0", owner: "mem0ai", name: "mem0"},
		{in: "  a/b  ", owner: "a", name: "b"},
		{in: "mem0", expectErr: true},
		{in: "", expectErr: true},
		{in: "a/b/c", expectErr: true},
	}
	for _, tt := range tests {
		owner, name, err := ParseRepository(tt.in)
		if tt.expectErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || owner != tt.owner || name != tt.name {
			t.Fatalf("%q: got %q/%q err=%v", tt.in, owner, name, err)
		}
	}
}

func TestProfileName(t *testing.T) {
	if got := (Profile{Username: "octo"}).Name(); got != "octo" {
		t.Fatalf("Name() = %q", got)
	}
	if got := (Profile{Username: "octo", DisplayName: "Octo Cat"}).Name(); got != "Octo Cat" {
		t.Fatalf("Name() = %q", got)
	}
}

func TestTargetShortName(t *testing.T) {
	if got := (Target{FullName: "mem0ai/mem0"}).ShortName(); got != "mem0" {
		t.Fatalf("ShortName() = %q", got)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("boom")
	var ne error = &NetworkError{Op: "find dependents", Err: base}
	if !errors.Is(ne, base) || ne.Error() != "find dependents: boom" {
		t.Fatalf("unexpected network error: %v", ne)
	}
	var te error = &TransientError{Err: base}
	if !errors.Is(te, base) {
		t.Fatalf("expected transient error to unwrap")
	}
}

func TestSummary(t *testing.T) {
	p := Profile{
		Username:    "alice",
		DisplayName: "Alice",
		Company:     "Acme",
		Repo:        RepoInfo{FullName: "alice/agent", Description: "is a chat agent", Stars: 3, Topics: []string{"ai", "bots"}},
	}
	got := Summary(p, "mem0ai/mem0")
	for _, want := range []string{
		"GitHub user @alice is a developer",
		"They work at Acme",
		"They have a repository called agent which is a chat agent",
		"https://github.com/alice/agent and has 3 stars",
		"The primary language used in the repository is not specified",
		"Repository topics: ai, bots",
		"They use mem0ai/mem0 in their project",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}
