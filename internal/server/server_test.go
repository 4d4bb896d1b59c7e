// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/health"
)

func newTestServer(h *health.Handler) *Server {
	return New(Config{
		ServerConfig: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		HealthHandler: h,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNew_Addr(t *testing.T) {
	s := newTestServer(nil)
	assert.Equal(t, "127.0.0.1:0", s.Addr())
}

func TestRouter_RecoversPanics(t *testing.T) {
	s := newTestServer(nil)
	s.Router().Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdown_FailsLivenessAndStopsServer(t *testing.T) {
	h := health.NewHandler()
	s := newTestServer(h)
	h.RegisterRoutes(s.Router())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		return s.Shutdown(ctx, 10*time.Millisecond) == nil
	}, time.Second, 20*time.Millisecond)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
