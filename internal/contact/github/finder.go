// Package github implements the contact collaborators backed by GitHub: the
// dependents finder, the profile enricher and the target loader.
package github

import (
	"context"
	"strings"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	gh "github.com/shpitdev/dependents-outreach/pkg/github"
)

// DefaultMaxPages bounds the dependents walk when no limit is configured.
const DefaultMaxPages = 10

// Finder scrapes the dependency graph of a repository for candidates.
type Finder struct {
	client   *gh.Client
	maxPages int
}

// NewFinder returns a Finder. maxPages <= 0 uses DefaultMaxPages.
func NewFinder(client *gh.Client, maxPages int) *Finder {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Finder{client: client, maxPages: maxPages}
}

// Find walks the dependents pages of repo and returns one candidate per
// distinct owner, in discovery order. The first repository seen for an owner
// is kept.
//
// A failure on the first page is returned as *contact.NetworkError. Failures
// on later pages end the walk with the candidates found so far.
func (f *Finder) Find(ctx context.Context, repo string) ([]contact.Candidate, error) {
	owner, name, err := contact.ParseRepository(repo)
	if err != nil {
		return nil, err
	}
	pageURL, err := f.client.DependentsURL(owner, name)
	if err != nil {
		return nil, err
	}
	log := logger.C(ctx).With().Str("component", "finder").Str("repository", repo).Logger()

	var out []contact.Candidate
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := f.client.DependentsPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, &contact.NetworkError{Op: "fetch dependents of " + repo, Err: classify(err)}
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("page", page).Int("found", len(out)).Msg("dependents walk stopped early")
			break
		}
		log.Debug().Int("page", page).Int("rows", len(p.Dependents)).Msg("dependents page")
		if len(p.Dependents) == 0 {
			break
		}
		for _, d := range p.Dependents {
			key := strings.ToLower(d.Owner)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, contact.Candidate{Username: d.Owner, SourceRepo: d.FullName()})
		}
		if p.Next == "" || page >= f.maxPages {
			break
		}
		pageURL = p.Next
	}
	return out, nil
}
