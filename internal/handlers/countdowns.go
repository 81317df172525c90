package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/platform/httpx"
	"github.com/hanko-field/promoclock/internal/services"
)

const countdownCacheControl = "no-store"

// CountdownHandlers exposes promotion countdowns and ad-hoc previews.
type CountdownHandlers struct {
	countdowns services.PromotionCountdownService
}

// NewCountdownHandlers constructs countdown handlers.
func NewCountdownHandlers(svc services.PromotionCountdownService) *CountdownHandlers {
	return &CountdownHandlers{countdowns: svc}
}

// Routes registers countdown endpoints against the provided router.
func (h *CountdownHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/promotions/{code}/countdown", h.getCountdown)
	r.Post("/countdowns/preview", h.preview)
}

func (h *CountdownHandlers) getCountdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.countdowns == nil {
		httpx.WriteError(ctx, w, httpx.NewError("countdown_service_unavailable", "countdown service is not configured", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	view, err := h.countdowns.GetCountdown(ctx, chi.URLParam(r, "code"), query.Get("variant"), requestLanguage(r))
	if err != nil {
		writeCountdownError(ctx, w, err, false)
		return
	}
	w.Header().Set("Cache-Control", countdownCacheControl)
	httpx.WriteJSON(w, http.StatusOK, view)
}

type previewRequest struct {
	StartsAt   any                        `json:"startsAt"`
	EndsAt     any                        `json:"endsAt"`
	Now        any                        `json:"now"`
	Variant    string                     `json:"variant"`
	Thresholds *countdown.ThresholdConfig `json:"thresholds"`
	Lang       string                     `json:"lang"`
}

func (h *CountdownHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.countdowns == nil {
		httpx.WriteError(ctx, w, httpx.NewError("countdown_service_unavailable", "countdown service is not configured", http.StatusServiceUnavailable))
		return
	}

	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	lang := strings.TrimSpace(req.Lang)
	if lang == "" {
		lang = requestLanguage(r)
	}

	view, err := h.countdowns.Preview(ctx, services.PreviewCommand{
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Now:        req.Now,
		Variant:    req.Variant,
		Thresholds: req.Thresholds,
		Lang:       lang,
	})
	if err != nil {
		writeCountdownError(ctx, w, err, true)
		return
	}
	w.Header().Set("Cache-Control", countdownCacheControl)
	httpx.WriteJSON(w, http.StatusOK, view)
}

// requestLanguage prefers ?lang= over Accept-Language.
func requestLanguage(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}
