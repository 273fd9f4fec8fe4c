// Package app wires configuration into a ready-to-run outreach pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shpitdev/dependents-outreach/internal/config"
	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/contact/gemini"
	ghcontact "github.com/shpitdev/dependents-outreach/internal/contact/github"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/internal/memory"
	"github.com/shpitdev/dependents-outreach/internal/pipeline"
	gh "github.com/shpitdev/dependents-outreach/pkg/github"
	"github.com/shpitdev/dependents-outreach/pkg/mem0"
)

const redisPingTimeout = 5 * time.Second

// App owns the collaborators built from a Config.
type App struct {
	Orchestrator *pipeline.Orchestrator
	Model        string

	closers []func() error
}

// Build constructs every collaborator. cfg must already be validated.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.Named("app")
	a := &App{}

	ghClient, err := gh.NewClient(gh.Config{
		APIBaseURL: cfg.GitHubAPIURL,
		WebBaseURL: cfg.GitHubWebURL,
		Token:      cfg.GitHubToken,
		Timeout:    cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	prompts, err := gemini.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Prompts: prompts,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	a.Model = gen.Model()

	store, err := a.buildMemory(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	orch, err := pipeline.New(pipeline.Deps{
		Finder:    ghcontact.NewFinder(ghClient, cfg.MaxPages),
		Enricher:  newTracedEnricher(ghcontact.NewEnricher(ghClient)),
		Memory:    newTracedMemory(store, cfg.MemoryBackend),
		Generator: newTracedGenerator(gen, gen.Model()),
		Target:    ghcontact.NewTargetLoader(ghClient, gen),
	}, pipeline.Options{
		MaxCandidates:  cfg.MaxDependents,
		RequestTimeout: cfg.RequestTimeout,
		CandidateRPS:   cfg.CandidateRPS,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Orchestrator = orch

	log.Info().
		Str("model", a.Model).
		Str("memory_backend", cfg.MemoryBackend).
		Int("max_dependents", cfg.MaxDependents).
		Int("max_pages", cfg.MaxPages).
		Dur("request_timeout", cfg.RequestTimeout).
		Dur("http_timeout", cfg.HTTPTimeout).
		Float64("candidate_rps", cfg.CandidateRPS).
		Msg("pipeline ready")
	return a, nil
}

func (a *App) buildMemory(ctx context.Context, cfg config.Config) (contact.MemoryStore, error) {
	switch cfg.MemoryBackend {
	case memory.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		a.closers = append(a.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return memory.NewRedisStore(rdb, cfg.RedisMemoryTTL), nil
	default:
		client, err := mem0.NewClient(mem0.Config{
			BaseURL: cfg.Mem0BaseURL,
			APIKey:  cfg.Mem0APIKey,
			Timeout: cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("mem0 client: %w", err)
		}
		return memory.NewMem0Store(client), nil
	}
}

// Run implements server.Runner.
func (a *App) Run(ctx context.Context, repo string, emit func(pipeline.Event) error) (pipeline.Summary, error) {
	return a.Orchestrator.Run(ctx, repo, emit)
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
