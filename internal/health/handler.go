// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 5 * time.Second

const (
	StatusOK           = "ok"
	StatusDegraded     = "degraded"
	StatusShuttingDown = "shutting_down"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// Check is a named dependency pinged by /readyz.
type Check struct {
	Name    string
	Checker Checker
}

func (c Check) run(ctx context.Context) Result {
	if c.Checker == nil {
		return Result{Name: c.Name, Message: c.Name + " checker not configured"}
	}

	start := time.Now()
	err := c.Checker.Ping(ctx)

	res := Result{
		Name:    c.Name,
		Healthy: err == nil,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		res.Message = "ping failed"
	}
	return res
}

type Result struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type Report struct {
	Status string   `json:"status"`
	Checks []Result `json:"checks,omitempty"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	checks   []Check
	draining atomic.Bool
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

// Drain makes both endpoints fail so the instance is taken out of rotation
// before the listener closes.
func (h *Handler) Drain() {
	h.draining.Store(true)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.draining.Load() {
		writeReport(w, http.StatusServiceUnavailable, Report{Status: StatusShuttingDown})
		return
	}
	writeReport(w, http.StatusOK, Report{Status: StatusOK})
}

// Readiness pings every dependency concurrently and reports degraded when
// any of them fails.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		writeReport(w, http.StatusServiceUnavailable, Report{Status: StatusShuttingDown})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make([]Result, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Go(func() { results[i] = c.run(ctx) })
	}
	wg.Wait()

	report := Report{Status: StatusOK, Checks: results}
	code := http.StatusOK
	if slices.ContainsFunc(results, func(res Result) bool { return !res.Healthy }) {
		report.Status = StatusDegraded
		code = http.StatusServiceUnavailable
	}

	writeReport(w, code, report)
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(report)
}
