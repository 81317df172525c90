package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/platform/httpx"
	"github.com/hanko-field/promoclock/internal/services"
)

// writeCountdownError maps service errors onto the JSON envelope. Window and
// threshold errors are the caller's fault on preview but point at bad stored
// data when a promotion is read.
func writeCountdownError(ctx context.Context, w http.ResponseWriter, err error, clientInput bool) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCountdownInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_promotion_code", "promotion code is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCountdownUnknownVariant):
		httpx.WriteError(ctx, w, httpx.NewError("unknown_variant", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCountdownPromotionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("promotion_not_found", "promotion not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCountdownPromotionUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("promotion_unavailable", "promotion has no running countdown", http.StatusConflict))
	case errors.Is(err, services.ErrWatchNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("watch_not_found", "watch not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCountdownRepositoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("promotion_store_unavailable", "promotion store is unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrWatcherDisabled), errors.Is(err, services.ErrWatcherClosed):
		httpx.WriteError(ctx, w, httpx.NewError("watcher_unavailable", err.Error(), http.StatusServiceUnavailable))
	case countdown.IsInvalidInput(err), countdown.IsConfigError(err):
		if clientInput {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_countdown", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("promotion_schedule_invalid", "promotion schedule is invalid", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("countdown_error", "failed to evaluate countdown", http.StatusInternalServerError))
	}
}
