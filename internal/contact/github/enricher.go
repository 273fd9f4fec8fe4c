package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	gh "github.com/shpitdev/dependents-outreach/pkg/github"
)

const noreplySuffix = "@users.noreply.github.com"

// Enricher builds profiles from the GitHub REST API.
type Enricher struct {
	client *gh.Client
}

func NewEnricher(client *gh.Client) *Enricher {
	return &Enricher{client: client}
}

// Enrich looks up the candidate's public profile. Only the user lookup is
// required; source repository details and the commit email fallback degrade
// to empty fields.
func (e *Enricher) Enrich(ctx context.Context, c contact.Candidate) (contact.Profile, error) {
	u, err := e.client.User(ctx, c.Username)
	if err != nil {
		return contact.Profile{}, classify(fmt.Errorf("fetch profile of %s: %w", c.Username, err))
	}

	p := contact.Profile{
		Username:    firstNonEmpty(u.Login, c.Username),
		DisplayName: strings.TrimSpace(u.Name),
		Bio:         strings.TrimSpace(u.Bio),
		Company:     strings.TrimSpace(u.Company),
		Location:    strings.TrimSpace(u.Location),
		Blog:        strings.TrimSpace(u.Blog),
		PublicEmail: strings.TrimSpace(u.Email),
		Repo:        contact.RepoInfo{FullName: c.SourceRepo},
	}

	owner, name, err := gh.SplitFullName(c.SourceRepo)
	if err != nil {
		return p, nil
	}
	log := logger.C(ctx).With().Str("component", "enricher").Str("user", c.Username).Logger()

	repo, err := e.client.Repo(ctx, owner, name)
	if err != nil {
		log.Debug().Err(err).Str("repo", c.SourceRepo).Msg("source repo lookup failed")
	} else {
		p.Repo = contact.RepoInfo{
			FullName:    firstNonEmpty(repo.FullName, c.SourceRepo),
			Description: strings.TrimSpace(repo.Description),
			Stars:       repo.StargazersCount,
			Language:    repo.Language,
			Topics:      repo.Topics,
		}
	}

	if p.PublicEmail == "" {
		email, err := e.commitEmail(ctx, owner, name)
		if err != nil {
			log.Debug().Err(err).Str("repo", c.SourceRepo).Msg("commit email lookup failed")
		}
		p.PublicEmail = email
	}
	return p, nil
}

// commitEmail returns the first commit author email that is not a GitHub
// noreply address.
func (e *Enricher) commitEmail(ctx context.Context, owner, name string) (string, error) {
	commits, err := e.client.Commits(ctx, owner, name, 30)
	if err != nil {
		return "", err
	}
	for _, c := range commits {
		if c.Commit.Author == nil {
			continue
		}
		email := strings.TrimSpace(c.Commit.Author.Email)
		if email == "" || strings.HasSuffix(strings.ToLower(email), noreplySuffix) {
			continue
		}
		return email, nil
	}
	return "", nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
