package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/internal/pipeline"
	"github.com/shpitdev/dependents-outreach/internal/sink"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/schema"
)

// Runner runs one pipeline for a repository.
type Runner interface {
	Run(ctx context.Context, repo string, emit func(pipeline.Event) error) (pipeline.Summary, error)
}

type BatchOptions struct {
	// OutputPath receives the name,email export. Required.
	OutputPath string

	// Progress receives human-readable (batch) or ndjson (stream) progress.
	// Nil disables progress output.
	Progress     io.Writer
	ProgressMode schema.DeliveryMode

	// ShowBody includes generated email bodies in console progress.
	ShowBody bool
}

// RunBatch runs the pipeline once and writes the CSV export. The export is
// written even when the run ends early, so drafts produced before a failure
// are kept.
func RunBatch(ctx context.Context, runner Runner, repo string, opts BatchOptions) (pipeline.Summary, error) {
	if strings.TrimSpace(opts.OutputPath) == "" {
		return pipeline.Summary{}, errors.New("batch: output path is required")
	}
	log := logger.Named("batch")

	csvSink := sink.NewCSVFile(opts.OutputPath)
	sinks := sink.Multi{csvSink}
	if opts.Progress != nil {
		switch opts.ProgressMode {
		case schema.DeliveryModeStream:
			sinks = append(sinks, sink.NewNDJSON(opts.Progress))
		default:
			sinks = append(sinks, sink.NewConsole(opts.Progress, opts.ShowBody))
		}
	}

	start := time.Now()
	sum, runErr := runner.Run(ctx, repo, sinks.Emit)
	closeErr := sinks.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("write %s: %w", opts.OutputPath, closeErr)
	}

	log.Info().
		Str("run_id", sum.RunID).
		Str("state", sum.State.String()).
		Str("output", opts.OutputPath).
		Int("rows", csvSink.Rows()).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("batch complete")
	return sum, errors.Join(runErr, closeErr)
}
