package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Server exposes the Registry over HTTP: /metrics for Prometheus scrapes,
// /health and /ready for probes.
type Server struct {
	server          *http.Server
	logger          *zap.Logger
	registry        *Registry
	shutdownTimeout time.Duration
}

// ServerConfig holds configuration for the metrics server. Timeout bounds
// request handling and also caps graceful shutdown.
type ServerConfig struct {
	Port    int           `env:"METRICS_PORT" envDefault:"9090"`
	Timeout time.Duration `env:"METRICS_TIMEOUT" envDefault:"30s"`
}

// NewServer builds the metrics server around the given registry. Start must
// be called before anything is served.
func NewServer(config ServerConfig, registry *Registry, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/health", probeHandler("healthy"))
	mux.HandleFunc("/ready", probeHandler("ready"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  config.Timeout * 2,
	}

	shutdownTimeout := config.Timeout
	if shutdownTimeout <= 0 || shutdownTimeout > defaultShutdownTimeout {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &Server{
		server:          server,
		logger:          logger.Named("metrics-server"),
		registry:        registry,
		shutdownTimeout: shutdownTimeout,
	}
}

func probeHandler(status string) http.HandlerFunc {
	body := []byte(fmt.Sprintf(`{"status":%q,"service":"redstream-metrics"}`, status))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting metrics server", zap.String("addr", s.server.Addr))

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop(ctx)
	}
}

// Stop drains in-flight scrapes and shuts the listener down, waiting at most
// the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping metrics server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to gracefully shutdown metrics server", zap.Error(err))
		return err
	}

	s.logger.Info("metrics server stopped")
	return nil
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
