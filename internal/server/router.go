// Package server exposes the outreach pipeline over HTTP: POST
// /generate_emails streams ndjson progress events for one repository.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shpitdev/dependents-outreach/internal/logger"
	"github.com/shpitdev/dependents-outreach/internal/pipeline"
	"github.com/shpitdev/dependents-outreach/internal/sink"
	"github.com/shpitdev/dependents-outreach/internal/version"
)

// Runner runs one pipeline for a repository.
type Runner interface {
	Run(ctx context.Context, repo string, emit func(pipeline.Event) error) (pipeline.Summary, error)
}

type RouterOptions struct {
	// CORSOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSOrigins []string

	// SlowRequest marks access log lines at warn level. 0 disables.
	SlowRequest time.Duration
}

// NewRouter mounts the service routes.
func NewRouter(runner Runner, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(accessLog(opts.SlowRequest))
	r.Use(recoverJSON)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	h := &handlers{runner: runner}
	r.Get("/healthz", h.healthz)
	r.Get("/version", h.version)
	r.Post("/generate_emails", h.generateEmails)
	return r
}

type handlers struct {
	runner Runner
}

type generateRequest struct {
	Repository string `json:"repository" validate:"required,ownerrepo"`
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Current, "commit": version.Commit})
}

func (h *handlers) generateEmails(w http.ResponseWriter, r *http.Request) {
	log := logger.C(r.Context())

	req, err := parseJSON[generateRequest](r)
	if err != nil {
		var bre *BadRequestError
		if errors.As(err, &bre) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": bre.Msg})
			return
		}
		log.Error().Err(err).Msg("bind request")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	repo := strings.TrimSpace(req.Repository)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := sink.NewNDJSON(w)
	defer func() {
		_ = out.Close()
	}()

	sum, err := h.runner.Run(r.Context(), repo, out.Emit)
	var emitErr *pipeline.EmitError
	switch {
	case err == nil:
		log.Info().Str("run_id", sum.RunID).Str("repository", repo).Int("drafts", sum.Drafts).Msg("stream finished")
	case errors.Is(err, context.Canceled) || errors.As(err, &emitErr):
		log.Info().Err(err).Str("run_id", sum.RunID).Str("repository", repo).Msg("client disconnected")
	default:
		// Already reported to the client as an error event.
		log.Warn().Err(err).Str("run_id", sum.RunID).Str("repository", repo).Msg("stream ended with error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
