package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/redact"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/step"
)

type Options struct {
	// MaxCandidates caps processed candidates. 0 means unlimited.
	MaxCandidates int

	// RequestTimeout bounds each collaborator call. Set to <=0 to disable.
	RequestTimeout time.Duration

	// CandidateRPS paces candidates. Set to <=0 to disable.
	CandidateRPS float64
}

// Deps are the collaborators of a run. Target is optional.
type Deps struct {
	Finder    contact.Finder
	Enricher  contact.Enricher
	Memory    contact.MemoryStore
	Generator contact.Generator
	Target    contact.TargetLoader
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	State      State
	Discovered int
	Processed  int
	Drafts     int
	Skipped    int
}

// EmitError wraps a failure of the event consumer (closed stream, sink write).
type EmitError struct {
	Err error
}

func (e *EmitError) Error() string {
	if e == nil || e.Err == nil {
		return "emit event"
	}
	return "emit event: " + e.Err.Error()
}

func (e *EmitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Orchestrator runs candidates through the collaborators one at a time.
type Orchestrator struct {
	deps          Deps
	runner        *step.Runner
	maxCandidates int
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Finder == nil || deps.Enricher == nil || deps.Memory == nil || deps.Generator == nil {
		return nil, errors.New("pipeline: finder, enricher, memory and generator are required")
	}
	if opts.MaxCandidates < 0 {
		return nil, fmt.Errorf("pipeline: max candidates must be >= 0 (got %d)", opts.MaxCandidates)
	}
	return &Orchestrator{
		deps:          deps,
		runner:        step.New(step.Options{RequestTimeout: opts.RequestTimeout, RateLimitRPS: opts.CandidateRPS}),
		maxCandidates: opts.MaxCandidates,
	}, nil
}

// Run processes repo and reports progress through emit, strictly in order,
// from the calling goroutine. It returns when the run finishes, when a
// finder failure ends it (after a single error event), when ctx is done, or
// when emit fails.
func (o *Orchestrator) Run(ctx context.Context, repo string, emit func(Event) error) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), State: StateStarted}
	ctx = logger.WithRun(ctx, sum.RunID)
	log := logger.C(ctx).With().Str("component", "pipeline").Str("repository", repo).Logger()
	start := time.Now()

	send := func(ev Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(ev); err != nil {
			return &EmitError{Err: err}
		}
		return nil
	}
	fatal := func(err error, format string, args ...any) (Summary, error) {
		sum.State = StateFatal
		log.Error().Err(err).Str("state", sum.State.String()).Msg("run failed")
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if sendErr := send(Error(format, args...)); sendErr != nil {
			return sum, sendErr
		}
		return sum, err
	}

	repo = strings.TrimSpace(repo)
	if _, _, err := contact.ParseRepository(repo); err != nil {
		return fatal(err, "Invalid target repository format: %s. Use 'owner/repo'.", repo)
	}
	log.Info().Int("max_candidates", o.maxCandidates).Msg("run start")

	sum.State = StateDiscovering
	if err := send(Status("Fetching dependents for %s...", repo)); err != nil {
		return sum, err
	}
	candidates, err := o.deps.Finder.Find(ctx, repo)
	if err != nil {
		return fatal(err, "Could not fetch dependents for %s: %s", repo, redact.Secrets(err.Error()))
	}
	sum.Discovered = len(candidates)

	limit := len(candidates)
	if o.maxCandidates > 0 && limit > o.maxCandidates {
		limit = o.maxCandidates
	}
	if err := send(Status("Found %d dependents. Processing up to %d...", len(candidates), limit)); err != nil {
		return sum, err
	}

	target := contact.Target{FullName: repo}
	if limit > 0 && o.deps.Target != nil {
		t, err := step.Call(ctx, o.runner, func(ctx context.Context) (contact.Target, error) {
			return o.deps.Target.LoadTarget(ctx, repo)
		})
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if err != nil {
			log.Warn().Err(err).Msg("target context unavailable")
		}
		if strings.TrimSpace(t.FullName) != "" {
			target = t
		}
	}

	processed := make(map[string]struct{}, limit)
	for i, c := range candidates[:limit] {
		key := strings.ToLower(strings.TrimSpace(c.Username))
		if _, ok := processed[key]; ok {
			log.Debug().Str("user", c.Username).Msg("candidate already processed")
			continue
		}
		processed[key] = struct{}{}

		if err := o.runner.Wait(ctx); err != nil {
			return sum, err
		}
		if err := send(Status("Processing dependent %d/%d: %s", i+1, limit, c.SourceRepo)); err != nil {
			return sum, err
		}
		sum.Processed++

		drafted, err := o.processCandidate(ctx, log, c, target, send)
		if err != nil {
			return sum, err
		}
		if drafted {
			sum.Drafts++
		} else {
			sum.Skipped++
		}
	}

	sum.State = StateFinished
	log.Info().
		Int("discovered", sum.Discovered).
		Int("processed", sum.Processed).
		Int("drafts", sum.Drafts).
		Int("skipped", sum.Skipped).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("run finished")
	if err := send(Status("Finished processing. Generated emails for %d users.", sum.Drafts)); err != nil {
		return sum, err
	}
	return sum, nil
}

// processCandidate reports whether a draft was emitted. Only context and
// emit failures are returned as errors; everything else skips the candidate.
func (o *Orchestrator) processCandidate(
	ctx context.Context,
	runLog zerolog.Logger,
	c contact.Candidate,
	target contact.Target,
	send func(Event) error,
) (bool, error) {
	log := runLog.With().Str("user", c.Username).Str("source_repo", c.SourceRepo).Logger()
	transition := func(s State) {
		log.Debug().Str("state", s.String()).Msg("candidate state")
	}
	skip := func(err error, ev Event) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		transition(StateSkipped)
		ll := log.Warn()
		if err != nil {
			var te *contact.TransientError
			ll = ll.Err(err).Bool("transient", errors.As(err, &te))
		}
		ll.Msg(ev.Message)
		return false, send(ev)
	}

	transition(StateEnriching)
	profile, err := step.Call(ctx, o.runner, func(ctx context.Context) (contact.Profile, error) {
		return o.deps.Enricher.Enrich(ctx, c)
	})
	if err != nil {
		return skip(err, Warning("Could not fetch user data for dependent: %s", c.SourceRepo))
	}
	if strings.TrimSpace(profile.PublicEmail) == "" {
		return skip(nil, Warning("No email found for %s", profile.Username))
	}

	transition(StateStoringMemory)
	memory := o.exchangeMemory(ctx, log, profile, target, send)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if memory.err != nil {
		return false, memory.err
	}

	transition(StateGenerating)
	email, err := step.Call(ctx, o.runner, func(ctx context.Context) (contact.Email, error) {
		return o.deps.Generator.Generate(ctx, profile, target, memory.text)
	})
	if err != nil {
		return skip(err, Warning("Could not generate email for %s", profile.Username))
	}

	draft := contact.Draft{
		Username:       profile.Username,
		RecipientName:  profile.Name(),
		RecipientEmail: strings.TrimSpace(profile.PublicEmail),
		SourceRepo:     c.SourceRepo,
		Subject:        email.Subject,
		Body:           email.Body,
	}
	if err := send(DraftEvent(draft)); err != nil {
		return false, err
	}
	transition(StateEmitted)
	return true, nil
}

type memoryResult struct {
	text string
	err  error // emit failure only
}

// exchangeMemory stores the profile summary and recalls context for the
// prompt. Store failures are warnings and yield an empty memory.
func (o *Orchestrator) exchangeMemory(
	ctx context.Context,
	log zerolog.Logger,
	p contact.Profile,
	target contact.Target,
	send func(Event) error,
) memoryResult {
	summary := contact.Summary(p, target.FullName)
	err := o.runner.Run(ctx, func(ctx context.Context) error {
		return o.deps.Memory.Remember(ctx, p.Username, summary)
	})
	if err != nil {
		log.Warn().Err(err).Msg("memory store failed")
		return memoryResult{err: sendUnlessDone(ctx, send, Warning("Could not store memory for %s; continuing without it", p.Username))}
	}

	query := fmt.Sprintf("Write a short, personalised email to %s about their use of %s.", p.Name(), target.ShortName())
	text, err := step.Call(ctx, o.runner, func(ctx context.Context) (string, error) {
		return o.deps.Memory.Recall(ctx, p.Username, query)
	})
	if err != nil {
		log.Warn().Err(err).Msg("memory recall failed")
		return memoryResult{err: sendUnlessDone(ctx, send, Warning("Could not recall memory for %s; continuing without it", p.Username))}
	}
	return memoryResult{text: text}
}

func sendUnlessDone(ctx context.Context, send func(Event) error, ev Event) error {
	if ctx.Err() != nil {
		return nil
	}
	return send(ev)
}
