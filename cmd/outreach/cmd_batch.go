package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shpitdev/dependents-outreach/internal/app"
	"github.com/shpitdev/dependents-outreach/internal/config"
	"github.com/shpitdev/dependents-outreach/internal/contact"
	"github.com/shpitdev/dependents-outreach/pkg/pipeline/schema"
)

func newBatchCmd(cfg *config.Config) *cobra.Command {
	var (
		output   string
		progress string
		showBody bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run once for a repository and write the drafts to a CSV file",
		Example: "  outreach batch --repository mem0ai/mem0 --output emails.csv\n" +
			"  TARGET_REPOSITORY=mem0ai/mem0 outreach batch --progress ndjson",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := strings.TrimSpace(cfg.TargetRepository)
			if repo == "" {
				return asConfigError(errors.New("batch requires --repository or TARGET_REPOSITORY"))
			}
			if _, _, err := contact.ParseRepository(repo); err != nil {
				return asConfigError(err)
			}
			if strings.TrimSpace(output) == "" {
				return asConfigError(errors.New("--output must not be empty"))
			}
			if err := finalizeConfig(cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx, *cfg)
			if err != nil {
				return asConfigError(err)
			}
			defer func() { _ = a.Close() }()

			sum, err := app.RunBatch(ctx, a, repo, app.BatchOptions{
				OutputPath:   output,
				Progress:     cmd.OutOrStdout(),
				ProgressMode: schema.NormalizeMode(progress),
				ShowBody:     showBody,
			})
			if err != nil {
				return fmt.Errorf("batch run failed: %w", err)
			}
			if schema.NormalizeMode(progress) == schema.DeliveryModeBatch {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d drafts to %s\n", sum.Drafts, output)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.TargetRepository, "repository", "r", cfg.TargetRepository, "Target repository as owner/repo (env: TARGET_REPOSITORY)")
	fs.StringVarP(&output, "output", "o", config.DefaultOutputPath, "CSV output path")
	fs.StringVar(&progress, "progress", "console", "Progress format on stdout: console|ndjson")
	fs.BoolVar(&showBody, "show-body", false, "Print generated email bodies in console progress")
	bindPipelineFlags(cmd, cfg)
	return cmd
}
