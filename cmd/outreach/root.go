package main

import (
	"github.com/spf13/cobra"

	"github.com/shpitdev/dependents-outreach/internal/config"
	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/internal/memory"
	"github.com/shpitdev/dependents-outreach/internal/version"
)

// newRootCmd builds the command tree. Flag defaults come from cfg, which
// was loaded from the environment; parsed flags write back into cfg.
// loadErr is reported before any subcommand runs.
func newRootCmd(cfg *config.Config, loadErr error) *cobra.Command {
	logOpts := logger.FromEnv()

	root := &cobra.Command{
		Use:   "outreach",
		Short: "Draft outreach emails to the owners of a repository's dependents",
		Long: "outreach scrapes the dependents of a GitHub repository, enriches each owner's\n" +
			"profile, stores it as memory and asks Gemini for a personalised email.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(logOpts)
			if cmd.Name() == "version" {
				return nil
			}
			return asConfigError(loadErr)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return asConfigError(err)
	})
	root.PersistentFlags().StringVar(&logOpts.Level, "log-level", logOpts.Level, "Log level: trace|debug|info|warn|error|off (env: LOG_LEVEL)")
	root.PersistentFlags().StringVar(&logOpts.Format, "log-format", logOpts.Format, "Log format: console|json (env: LOG_FORMAT)")

	root.AddCommand(newBatchCmd(cfg))
	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newVersionCmd())
	return root
}

// bindPipelineFlags registers the settings shared by batch and serve.
func bindPipelineFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	fs.IntVar(&cfg.MaxDependents, "max-dependents", cfg.MaxDependents, "Max dependents processed per run, 0 means unlimited (env: MAX_DEPENDENTS)")
	fs.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "Max dependents pages scraped per run, at least 1 (env: MAX_PAGES)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-call timeout for profile, memory and generation calls (env: REQUEST_TIMEOUT)")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "HTTP client timeout for GitHub and mem0 (env: HTTP_TIMEOUT)")
	fs.Float64Var(&cfg.CandidateRPS, "candidate-rps", cfg.CandidateRPS, "Candidates started per second, 0 disables pacing (env: CANDIDATE_RPS)")
	fs.StringVar(&cfg.GeminiModel, "gemini-model", cfg.GeminiModel, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&cfg.GeminiBaseURL, "gemini-base-url", cfg.GeminiBaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.StringVar(&cfg.PromptsFile, "prompts-file", cfg.PromptsFile, "YAML file overriding the prompt templates (env: PROMPTS_FILE)")
	fs.StringVar(&cfg.MemoryBackend, "memory-backend", cfg.MemoryBackend, "Memory backend: mem0|redis (env: MEMORY_BACKEND)")
}

// finalizeConfig normalizes flag input and checks credentials.
func finalizeConfig(cfg *config.Config) error {
	backend, err := memory.NormalizeBackend(cfg.MemoryBackend)
	if err != nil {
		return asConfigError(err)
	}
	cfg.MemoryBackend = backend
	return asConfigError(cfg.Validate())
}
