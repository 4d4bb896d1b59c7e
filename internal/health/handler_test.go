// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthy() Checker { return pingFunc(func(context.Context) error { return nil }) }

func failing() Checker {
	return pingFunc(func(context.Context) error { return errors.New("connection refused") })
}

func get(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, Report) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveness(t *testing.T) {
	h := NewHandler(Check{Name: "database", Checker: failing()})

	for _, path := range []string{"/healthz", "/livez"} {
		rec, body := get(t, h, path)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body.Status)
	}

	h.Drain()
	rec, body := get(t, h, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "shutting_down", body.Status)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantCode   int
		wantStatus string
	}{
		{
			name: "all healthy",
			checks: []Check{
				{Name: "database", Checker: healthy()},
				{Name: "redis", Checker: healthy()},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "one failing",
			checks: []Check{
				{Name: "database", Checker: healthy()},
				{Name: "redis", Checker: failing()},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "missing checker",
			checks:     []Check{{Name: "database"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, NewHandler(tt.checks...), "/readyz")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, body.Status)
			require.Len(t, body.Checks, len(tt.checks))
			for i, c := range tt.checks {
				assert.Equal(t, c.Name, body.Checks[i].Name)
			}
		})
	}
}

func TestReadiness_Draining(t *testing.T) {
	h := NewHandler(Check{Name: "database", Checker: healthy()})
	h.Drain()

	rec, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusShuttingDown, body.Status)
	assert.Empty(t, body.Checks)
}
