package handlers

import (
	"context"

	"github.com/hanko-field/promoclock/internal/domain"
	"github.com/hanko-field/promoclock/internal/services"
)

type stubCountdownService struct {
	getFunc     func(ctx context.Context, code, variant, lang string) (services.PromotionCountdown, error)
	previewFunc func(ctx context.Context, cmd services.PreviewCommand) (services.CountdownView, error)
}

func (s *stubCountdownService) GetCountdown(ctx context.Context, code, variant, lang string) (services.PromotionCountdown, error) {
	return s.getFunc(ctx, code, variant, lang)
}

func (s *stubCountdownService) Preview(ctx context.Context, cmd services.PreviewCommand) (services.CountdownView, error) {
	return s.previewFunc(ctx, cmd)
}

type stubWatcher struct {
	watchFunc   func(ctx context.Context, code, variant string) (domain.Watch, error)
	unwatchFunc func(ctx context.Context, id string) error
	watches     []domain.Watch
	syncResult  services.SyncResult
	syncErr     error
}

func (s *stubWatcher) Watch(ctx context.Context, code, variant string) (domain.Watch, error) {
	return s.watchFunc(ctx, code, variant)
}

func (s *stubWatcher) Unwatch(ctx context.Context, id string) error {
	return s.unwatchFunc(ctx, id)
}

func (s *stubWatcher) List(context.Context) []domain.Watch { return s.watches }

func (s *stubWatcher) Sync(context.Context) (services.SyncResult, error) {
	return s.syncResult, s.syncErr
}

func (s *stubWatcher) Close() error { return nil }
