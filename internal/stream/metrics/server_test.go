package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestServer(t *testing.T, config ServerConfig) *Server {
	t.Helper()
	return NewServer(config, NewRegistry(), zap.NewNop())
}

func TestServerEndpoints(t *testing.T) {
	s := newTestServer(t, ServerConfig{Port: 0, Timeout: time.Second})

	for _, path := range []string{"/metrics", "/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.server.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", path, rec.Code)
		}
	}
}

func TestServerShutdownTimeoutDerivesFromConfig(t *testing.T) {
	if s := newTestServer(t, ServerConfig{Timeout: time.Second}); s.shutdownTimeout != time.Second {
		t.Fatalf("want shutdown timeout from config, got %v", s.shutdownTimeout)
	}

	// an unset or oversized request timeout must not stall shutdown
	if s := newTestServer(t, ServerConfig{}); s.shutdownTimeout != defaultShutdownTimeout {
		t.Fatalf("want default shutdown timeout, got %v", s.shutdownTimeout)
	}
	if s := newTestServer(t, ServerConfig{Timeout: time.Minute}); s.shutdownTimeout != defaultShutdownTimeout {
		t.Fatalf("want shutdown timeout capped at default, got %v", s.shutdownTimeout)
	}
}
