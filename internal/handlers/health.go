package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/hanko-field/promoclock/internal/platform/httpx"
)

const defaultReadyTimeout = 3 * time.Second

// HealthCheck checks a dependency; a nil error means ready.
type HealthCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	started time.Time
	now     func() time.Time
	version string
	timeout time.Duration
	checks  map[string]HealthCheck
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthCheck registers a named readiness check.
func WithHealthCheck(name string, check HealthCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name == "" || check == nil {
			return
		}
		h.checks[name] = check
	}
}

// WithHealthVersion sets the build version reported by both endpoints.
func WithHealthVersion(version string) HealthOption {
	return func(h *HealthHandlers) {
		h.version = version
	}
}

// WithHealthClock overrides the wall clock, for tests.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// WithHealthTimeout bounds the time all readiness checks share.
func WithHealthTimeout(d time.Duration) HealthOption {
	return func(h *HealthHandlers) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHealthHandlers constructs the health handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		now:     time.Now,
		timeout: defaultReadyTimeout,
		checks:  make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.started = h.now()
	return h
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.basePayload("ok"))
}

// Readyz runs every registered check and answers 503 if any fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	payload := h.basePayload("ok")
	if status != http.StatusOK {
		payload["status"] = "unavailable"
	}
	payload["checks"] = results
	httpx.WriteJSON(w, status, payload)
}

func (h *HealthHandlers) basePayload(status string) map[string]any {
	now := h.now()
	payload := map[string]any{
		"status":    status,
		"uptime":    now.Sub(h.started).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.version != "" {
		payload["version"] = h.version
	}
	return payload
}
