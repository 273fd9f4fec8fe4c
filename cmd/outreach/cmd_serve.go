package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shpitdev/dependents-outreach/internal/app"
	"github.com/shpitdev/dependents-outreach/internal/config"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var slow time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /generate_emails as an ndjson stream",
		Long: `Starts the HTTP service. Each POST /generate_emails request with body
{"repository": "owner/repo"} runs the pipeline once and streams one JSON object
per line: status, warning, error and draft events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := finalizeConfig(cfg); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.Build(ctx, *cfg)
			if err != nil {
				return asConfigError(err)
			}
			defer func() { _ = a.Close() }()

			router := server.NewRouter(a, server.RouterOptions{
				CORSOrigins: cfg.CORSOrigins,
				SlowRequest: slow,
			})
			logger.Named("serve").Info().
				Strs("cors_origins", cfg.CORSOrigins).
				Msg("starting outreach service")
			return server.New(cfg.Addr, router).Run(ctx)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address (env: ADDR)")
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origins", cfg.CORSOrigins, "Allowed CORS origins, empty disables CORS (env: CORS_ORIGINS)")
	fs.DurationVar(&slow, "slow-request", 0, "Log requests slower than this at warn level, 0 disables")
	bindPipelineFlags(cmd, cfg)
	return cmd
}
