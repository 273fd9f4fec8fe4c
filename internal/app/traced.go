package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/redact"
)

// The traced collaborators log one request line and one response line per
// call, with the call duration and the remaining deadline. Error text is
// redacted before it is logged.

func deadlineIn(ctx context.Context) string {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d).Round(time.Millisecond).String()
	}
	return "none"
}

func traceResponse(log *zerolog.Logger, op string, elapsed time.Duration, err error) *zerolog.Event {
	if err != nil {
		var transient *contact.TransientError
		return log.Warn().
			Str("op", op).
			Dur("duration", elapsed).
			Str("status", "error").
			Bool("transient", errors.As(err, &transient)).
			Str("error", redact.Secrets(err.Error()))
	}
	return log.Debug().
		Str("op", op).
		Dur("duration", elapsed).
		Str("status", "ok")
}

type tracedEnricher struct {
	next contact.Enricher
}

func newTracedEnricher(next contact.Enricher) *tracedEnricher {
	return &tracedEnricher{next: next}
}

func (t *tracedEnricher) Enrich(ctx context.Context, c contact.Candidate) (contact.Profile, error) {
	log := logger.C(ctx).With().Str("component", "enricher").Str("user", c.Username).Logger()
	log.Debug().Str("op", "enrich").Str("source_repo", c.SourceRepo).Str("deadline_in", deadlineIn(ctx)).Msg("request")

	start := time.Now()
	p, err := t.next.Enrich(ctx, c)
	traceResponse(&log, "enrich", time.Since(start).Round(time.Millisecond), err).
		Bool("has_email", p.PublicEmail != "").
		Str("repo_language", p.Repo.Language).
		Msg("response")
	return p, err
}

type tracedGenerator struct {
	next  contact.Generator
	model string
}

func newTracedGenerator(next contact.Generator, model string) *tracedGenerator {
	return &tracedGenerator{next: next, model: model}
}

func (t *tracedGenerator) Generate(ctx context.Context, p contact.Profile, target contact.Target, memory string) (contact.Email, error) {
	log := logger.C(ctx).With().Str("component", "generator").Str("user", p.Username).Str("model", t.model).Logger()
	log.Debug().
		Str("op", "generate").
		Str("target", target.FullName).
		Int("memory_chars", len(memory)).
		Str("deadline_in", deadlineIn(ctx)).
		Msg("request")

	start := time.Now()
	e, err := t.next.Generate(ctx, p, target, memory)
	traceResponse(&log, "generate", time.Since(start).Round(time.Millisecond), err).
		Str("subject", e.Subject).
		Int("body_chars", len(e.Body)).
		Msg("response")
	return e, err
}

type tracedMemory struct {
	next    contact.MemoryStore
	backend string
}

func newTracedMemory(next contact.MemoryStore, backend string) *tracedMemory {
	return &tracedMemory{next: next, backend: backend}
}

func (t *tracedMemory) Remember(ctx context.Context, username, summary string) error {
	log := logger.C(ctx).With().Str("component", "memory").Str("backend", t.backend).Str("user", username).Logger()
	log.Debug().Str("op", "remember").Int("summary_chars", len(summary)).Str("deadline_in", deadlineIn(ctx)).Msg("request")

	start := time.Now()
	err := t.next.Remember(ctx, username, summary)
	traceResponse(&log, "remember", time.Since(start).Round(time.Millisecond), err).Msg("response")
	return err
}

func (t *tracedMemory) Recall(ctx context.Context, username, query string) (string, error) {
	log := logger.C(ctx).With().Str("component", "memory").Str("backend", t.backend).Str("user", username).Logger()
	log.Debug().Str("op", "recall").Str("query", query).Str("deadline_in", deadlineIn(ctx)).Msg("request")

	start := time.Now()
	out, err := t.next.Recall(ctx, username, query)
	traceResponse(&log, "recall", time.Since(start).Round(time.Millisecond), err).
		Int("memory_chars", len(out)).
		Msg("response")
	return out, err
}
