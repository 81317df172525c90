package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
	"github.com/hanko-field/promoclock/internal/platform/httpx"
	"github.com/hanko-field/promoclock/internal/services"
)

// WatchHandlers manages server-side countdowns that publish edge events.
// A nil watcher answers every route with 503.
type WatchHandlers struct {
	watcher services.CountdownWatcher
}

// NewWatchHandlers constructs watch handlers.
func NewWatchHandlers(watcher services.CountdownWatcher) *WatchHandlers {
	return &WatchHandlers{watcher: watcher}
}

// Routes registers watch endpoints against the provided router.
func (h *WatchHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/watches", h.listWatches)
	r.Post("/watches:sync", h.syncWatches)
	r.Delete("/watches/{watchID}", h.deleteWatch)
	r.Post("/promotions/{code}/watch", h.createWatch)
}

type watchPayload struct {
	ID            string                  `json:"id"`
	PromotionCode string                  `json:"promotionCode"`
	Variant       string                  `json:"variant"`
	StartsAt      *countdown.Instant      `json:"startsAt,omitempty"`
	EndsAt        countdown.Instant       `json:"endsAt"`
	StartedAt     countdown.Instant       `json:"startedAt"`
	Remaining     countdown.TimeRemaining `json:"remaining"`
}

func buildWatchPayload(watch domain.Watch) watchPayload {
	payload := watchPayload{
		ID:            watch.ID,
		PromotionCode: watch.PromotionCode,
		Variant:       watch.Variant,
		EndsAt:        watch.Window.End,
		StartedAt:     watch.StartedAt,
		Remaining:     watch.Snapshot,
	}
	if watch.Window.HasStart {
		start := watch.Window.Start
		payload.StartsAt = &start
	}
	return payload
}

func (h *WatchHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.watcher == nil {
		writeCountdownError(r.Context(), w, services.ErrWatcherDisabled, false)
		return false
	}
	return true
}

func (h *WatchHandlers) listWatches(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	watches := h.watcher.List(r.Context())
	items := make([]watchPayload, 0, len(watches))
	for _, watch := range watches {
		items = append(items, buildWatchPayload(watch))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createWatchRequest struct {
	Variant string `json:"variant"`
}

func (h *WatchHandlers) createWatch(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	ctx := r.Context()

	var req createWatchRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
	}
	variant := strings.TrimSpace(req.Variant)
	if variant == "" {
		variant = r.URL.Query().Get("variant")
	}

	watch, err := h.watcher.Watch(ctx, chi.URLParam(r, "code"), variant)
	if err != nil {
		writeCountdownError(ctx, w, err, false)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildWatchPayload(watch))
}

func (h *WatchHandlers) deleteWatch(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	if err := h.watcher.Unwatch(r.Context(), chi.URLParam(r, "watchID")); err != nil {
		writeCountdownError(r.Context(), w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchHandlers) syncWatches(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	result, err := h.watcher.Sync(r.Context())
	if err != nil {
		writeCountdownError(r.Context(), w, err, false)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}
