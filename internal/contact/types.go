// Package contact holds the domain types shared by the outreach pipeline and
// the collaborator interfaces the orchestrator drives.
package contact

import (
	"context"
	"fmt"
	"strings"
)

// Candidate is the owner of one dependent repository, discovered during a run.
type Candidate struct {
	Username   string
	SourceRepo string // owner/repo of the dependent repository
}

// RepoInfo describes the candidate's dependent repository.
type RepoInfo struct {
	FullName    string
	Description string
	Stars       int
	Language    string
	Topics      []string
}

// Profile is a candidate enriched with public GitHub profile data.
//
// Optional fields are empty strings when the profile does not expose them.
type Profile struct {
	Username    string
	DisplayName string
	Bio         string
	Company     string
	Location    string
	Blog        string
	PublicEmail string
	Repo        RepoInfo
}

// Name returns the display name, falling back to the username.
func (p Profile) Name() string {
	if n := strings.TrimSpace(p.DisplayName); n != "" {
		return n
	}
	return p.Username
}

// Target is the repository being promoted, loaded once per run.
type Target struct {
	FullName    string
	Description string
	Stars       int
	Language    string
	Topics      []string
	Homepage    string
	KeyFeatures string
}

// ShortName returns the repository name without its owner.
func (t Target) ShortName() string {
	if _, name, ok := strings.Cut(t.FullName, "/"); ok {
		return name
	}
	return t.FullName
}

// Email is a generated message.
type Email struct {
	Subject string
	Body    string
}

// Draft is the terminal artifact for one successful candidate.
type Draft struct {
	Username       string
	RecipientName  string
	RecipientEmail string
	SourceRepo     string
	Subject        string
	Body           string
}

// ParseRepository validates an "owner/repo" string.
func ParseRepository(s string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: use 'owner/repo'", s)
	}
	return owner, name, nil
}

// Finder discovers candidates depending on a repository.
type Finder interface {
	Find(ctx context.Context, repo string) ([]Candidate, error)
}

// Enricher fetches the public profile of a candidate.
type Enricher interface {
	Enrich(ctx context.Context, c Candidate) (Profile, error)
}

// MemoryStore persists and recalls per-user context.
type MemoryStore interface {
	Remember(ctx context.Context, username, summary string) error
	Recall(ctx context.Context, username, query string) (string, error)
}

// Generator writes outreach emails.
type Generator interface {
	Generate(ctx context.Context, p Profile, t Target, memory string) (Email, error)
}

// TargetLoader loads the context of the repository being promoted.
type TargetLoader interface {
	LoadTarget(ctx context.Context, repo string) (Target, error)
}

// FeatureExtractor summarizes the key features of a README.
type FeatureExtractor interface {
	KeyFeatures(ctx context.Context, readme string) (string, error)
}
