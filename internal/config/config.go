// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shpitdev/dependents-outreach/internal/memory"
)

const (
	DefaultMaxDependents  = 5
	DefaultMaxPages       = 10
	DefaultRequestTimeout = 30 * time.Second
	DefaultHTTPTimeout    = 60 * time.Second
	DefaultCandidateRPS   = 1.0
	DefaultAddr           = ":8080"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultRedisAddr      = "localhost:6379"
	DefaultOutputPath     = "emails.csv"
)

// Config is built once at startup and passed into constructors.
type Config struct {
	GitHubToken  string
	GitHubAPIURL string
	GitHubWebURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	PromptsFile   string

	MemoryBackend  string
	Mem0APIKey     string
	Mem0BaseURL    string
	RedisAddr      string
	RedisDB        int
	RedisMemoryTTL time.Duration

	MaxDependents  int
	MaxPages       int
	RequestTimeout time.Duration
	HTTPTimeout    time.Duration
	CandidateRPS   float64

	Addr             string
	CORSOrigins      []string
	TargetRepository string
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
// Credentials are not checked here; see Validate.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit .env paths. Missing files are ignored.
func LoadFiles(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	backend, err := memory.NormalizeBackend(os.Getenv("MEMORY_BACKEND"))
	if err != nil {
		return Config{}, err
	}
	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	redisTTL, err := envDuration("REDIS_MEMORY_TTL", 0)
	if err != nil {
		return Config{}, err
	}
	maxDependents, err := envInt("MAX_DEPENDENTS", DefaultMaxDependents)
	if err != nil {
		return Config{}, err
	}
	maxPages, err := envInt("MAX_PAGES", DefaultMaxPages)
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	httpTimeout, err := envDuration("HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return Config{}, err
	}
	candidateRPS, err := envFloat("CANDIDATE_RPS", DefaultCandidateRPS)
	if err != nil {
		return Config{}, err
	}

	return Config{
		GitHubToken:  envString("GITHUB_TOKEN", ""),
		GitHubAPIURL: envString("GITHUB_API_URL", ""),
		GitHubWebURL: envString("GITHUB_WEB_URL", ""),

		GeminiAPIKey:  envString("GEMINI_API_KEY", ""),
		GeminiModel:   envString("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL: envString("GEMINI_BASE_URL", ""),
		PromptsFile:   envString("PROMPTS_FILE", ""),

		MemoryBackend:  backend,
		Mem0APIKey:     envString("MEM0_API_KEY", ""),
		Mem0BaseURL:    envString("MEM0_BASE_URL", ""),
		RedisAddr:      envString("REDIS_ADDR", DefaultRedisAddr),
		RedisDB:        redisDB,
		RedisMemoryTTL: redisTTL,

		MaxDependents:  maxDependents,
		MaxPages:       maxPages,
		RequestTimeout: requestTimeout,
		HTTPTimeout:    httpTimeout,
		CandidateRPS:   candidateRPS,

		Addr:             envString("ADDR", DefaultAddr),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ORIGINS")),
		TargetRepository: envString("TARGET_REPOSITORY", ""),
	}, nil
}

// Validate reports missing credentials and out-of-range values. All problems
// are joined into one error so a misconfigured process reports them together.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GitHubToken) == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required"))
	}
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	switch c.MemoryBackend {
	case memory.BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when MEMORY_BACKEND=redis"))
		}
	default:
		if strings.TrimSpace(c.Mem0APIKey) == "" {
			errs = append(errs, errors.New("MEM0_API_KEY is required (or set MEMORY_BACKEND=redis)"))
		}
	}
	if c.MaxDependents < 0 {
		errs = append(errs, fmt.Errorf("MAX_DEPENDENTS must be >= 0 (got %d)", c.MaxDependents))
	}
	if c.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must be >= 1 (got %d)", c.MaxPages))
	}
	if c.CandidateRPS < 0 {
		errs = append(errs, fmt.Errorf("CANDIDATE_RPS must be >= 0 (got %g)", c.CandidateRPS))
	}
	return errors.Join(errs...)
}

func envString(varName, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
