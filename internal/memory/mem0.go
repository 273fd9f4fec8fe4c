package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/dependents-outreach/pkg/httperr"
	"github.com/shpitdev/dependents-outreach/pkg/mem0"
)

const defaultTopK = 10

// Mem0Store keeps one mem0 user per GitHub username.
type Mem0Store struct {
	client *mem0.Client
	topK   int
}

func NewMem0Store(client *mem0.Client) *Mem0Store {
	return &Mem0Store{client: client, topK: defaultTopK}
}

// Remember stores summary verbatim. A 409 from mem0 means the memory already
// exists and counts as success.
func (s *Mem0Store) Remember(ctx context.Context, username, summary string) error {
	err := s.client.Add(ctx, username, []mem0.Message{{Role: "user", Content: summary}})
	if err != nil && !httperr.IsConflict(err) {
		return fmt.Errorf("remember %s: %w", username, err)
	}
	return nil
}

// Recall returns the memories of username relevant to query, one per line.
func (s *Mem0Store) Recall(ctx context.Context, username, query string) (string, error) {
	mems, err := s.client.Search(ctx, username, query, s.topK)
	if err != nil {
		return "", fmt.Errorf("recall %s: %w", username, err)
	}
	lines := make([]string, 0, len(mems))
	seen := make(map[string]struct{}, len(mems))
	for _, m := range mems {
		text := strings.TrimSpace(m.Memory)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n"), nil
}
