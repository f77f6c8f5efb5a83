package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"vidtrack/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type apiServer struct {
	bind     string
	logger   *slog.Logger
	handler  http.Handler
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

func newAPIServer(bind string, handler http.Handler, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:    strings.TrimSpace(bind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		handler: handler,
	}
}

func (s *apiServer) start() error {
	if s.bind == "" {
		return errors.New("api listen: bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.done = make(chan struct{})
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Uploads stream large bodies; only idle connections are bounded.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_failed"),
			)
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.listener == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "api_shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight uploads were cut off"),
		)
	}
	<-s.done
	s.listener = nil
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}
