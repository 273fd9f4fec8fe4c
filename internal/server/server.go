package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/shpitdev/dependents-outreach/internal/logger"
)

const shutdownTimeout = 15 * time.Second

// Server is a thin wrapper over the router and a stdlib http.Server.
// WriteTimeout stays unset so long ndjson streams are not cut off.
type Server struct {
	addr string
	srv  *http.Server
}

func New(addr string, handler http.Handler) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. Request
// contexts derive from ctx, so in-flight runs are cancelled on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.Named("http")
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("http listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("http shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
