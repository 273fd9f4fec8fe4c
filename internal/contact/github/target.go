package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	gh "github.com/shpitdev/dependents-outreach/pkg/github"
)

const (
	noDescription     = "No description available"
	noReadme          = "No README available"
	noFeatures        = "Could not extract features from README"
	targetUnavailable = "Could not fetch repository details"
	readmeUnavailable = "Could not fetch README"
)

// TargetLoader loads the promoted repository's metadata and README features.
type TargetLoader struct {
	client   *gh.Client
	features contact.FeatureExtractor
}

// NewTargetLoader returns a loader. features may be nil, in which case the
// key features fall back to a fixed text.
func NewTargetLoader(client *gh.Client, features contact.FeatureExtractor) *TargetLoader {
	return &TargetLoader{client: client, features: features}
}

// LoadTarget always returns a usable Target. The error reports why the
// repository metadata could not be loaded; README failures only degrade
// KeyFeatures.
func (l *TargetLoader) LoadTarget(ctx context.Context, repo string) (contact.Target, error) {
	fallback := contact.Target{FullName: strings.TrimSpace(repo), Description: targetUnavailable, KeyFeatures: readmeUnavailable}
	owner, name, err := contact.ParseRepository(repo)
	if err != nil {
		return fallback, err
	}
	r, err := l.client.Repo(ctx, owner, name)
	if err != nil {
		return fallback, fmt.Errorf("load target %s: %w", repo, classify(err))
	}

	t := contact.Target{
		FullName:    firstNonEmpty(r.FullName, owner+"/"+name),
		Description: firstNonEmpty(r.Description, noDescription),
		Stars:       r.StargazersCount,
		Language:    r.Language,
		Topics:      r.Topics,
		Homepage:    r.Homepage,
	}

	log := logger.C(ctx).With().Str("component", "target").Str("repository", t.FullName).Logger()
	readme, err := l.client.Readme(ctx, owner, name)
	if err != nil || strings.TrimSpace(readme) == "" {
		log.Warn().Err(err).Msg("readme unavailable")
		t.KeyFeatures = noReadme
		return t, nil
	}
	if l.features == nil {
		t.KeyFeatures = noFeatures
		return t, nil
	}
	kf, err := l.features.KeyFeatures(ctx, readme)
	if err != nil || strings.TrimSpace(kf) == "" {
		log.Warn().Err(err).Msg("key feature extraction failed")
		t.KeyFeatures = noFeatures
		return t, nil
	}
	t.KeyFeatures = strings.TrimSpace(kf)
	return t, nil
}
