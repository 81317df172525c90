package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
	"github.com/hanko-field/promoclock/internal/presets"
)

func newTestCountdownService(t *testing.T, repo *stubPromotionRepository, now countdown.Instant) PromotionCountdownService {
	t.Helper()
	svc, err := NewPromotionCountdownService(PromotionCountdownServiceDeps{
		Promotions:      repo,
		Clock:           countdown.NewManualClock(now),
		DefaultLanguage: "en",
	})
	if err != nil {
		t.Fatalf("NewPromotionCountdownService: %v", err)
	}
	return svc
}

func TestPromotionCountdownService_GetCountdown(t *testing.T) {
	repo := newStubRepo(domain.Promotion{
		Code:     "SUMMER25",
		Name:     "Summer sale",
		Status:   domain.PromotionStatusActive,
		StartsAt: instantPtr(base),
		EndsAt:   base.Add(48 * time.Hour),
		Variant:  "flash_sale",
	})
	svc := newTestCountdownService(t, repo, base.Add(24*time.Hour))

	view, err := svc.GetCountdown(context.Background(), " summer25 ", "", "ja")
	if err != nil {
		t.Fatalf("GetCountdown: %v", err)
	}
	if repo.lastCode != "SUMMER25" {
		t.Fatalf("repository looked up wrong code %s", repo.lastCode)
	}
	if view.Code != "SUMMER25" || view.Name != "Summer sale" {
		t.Fatalf("unexpected identity %+v", view)
	}
	if view.Variant != "flash_sale" || view.IntervalMs != 1000 {
		t.Fatalf("expected stored variant, got %s/%d", view.Variant, view.IntervalMs)
	}
	if view.Remaining.State != countdown.Running || view.Remaining.Days != 1 {
		t.Fatalf("unexpected remaining %+v", view.Remaining)
	}
	if view.Progress == nil || *view.Progress != 50 {
		t.Fatalf("expected 50%% progress, got %v", view.Progress)
	}
	if view.Label != "終了まで 1日 00:00:00" {
		t.Fatalf("unexpected label %q", view.Label)
	}
	if view.Lang != "ja" {
		t.Fatalf("unexpected lang %s", view.Lang)
	}
}

func TestPromotionCountdownService_GetCountdownVariantOverride(t *testing.T) {
	repo := newStubRepo(domain.Promotion{
		Code:   "BADGE",
		Status: domain.PromotionStatusActive,
		EndsAt: base.Add(2 * time.Hour),
	})
	svc := newTestCountdownService(t, repo, base)

	view, err := svc.GetCountdown(context.Background(), "BADGE", "product_badge", "")
	if err != nil {
		t.Fatalf("GetCountdown: %v", err)
	}
	// product_badge turns critical below three hours
	if view.Remaining.State != countdown.Critical {
		t.Fatalf("expected critical, got %s", view.Remaining.State)
	}
	if view.Progress != nil {
		t.Fatalf("open window should not report progress")
	}
	if view.Label != "Ends in 02:00:00" {
		t.Fatalf("unexpected label %q", view.Label)
	}

	if _, err := svc.GetCountdown(context.Background(), "BADGE", "ticker", ""); !errors.Is(err, ErrCountdownUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", err)
	}
}

func TestPromotionCountdownService_GetCountdownErrors(t *testing.T) {
	repo := newStubRepo(domain.Promotion{Code: "DRAFT", Status: domain.PromotionStatusDraft, EndsAt: base + 1})
	svc := newTestCountdownService(t, repo, base)
	ctx := context.Background()

	if _, err := svc.GetCountdown(ctx, "  ", "", ""); !errors.Is(err, ErrCountdownInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if _, err := svc.GetCountdown(ctx, "MISSING", "", ""); !errors.Is(err, ErrCountdownPromotionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetCountdown(ctx, "DRAFT", "", ""); !errors.Is(err, ErrCountdownPromotionUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	repo.err = &stubRepoError{unavailable: true}
	if _, err := svc.GetCountdown(ctx, "DRAFT", "", ""); !errors.Is(err, ErrCountdownRepositoryUnavailable) {
		t.Fatalf("expected repository unavailable, got %v", err)
	}
}

func TestPromotionCountdownService_GetCountdownInvalidStoredWindow(t *testing.T) {
	repo := newStubRepo(domain.Promotion{
		Code:     "BROKEN",
		Status:   domain.PromotionStatusScheduled,
		StartsAt: instantPtr(base + 10),
		EndsAt:   base,
	})
	svc := newTestCountdownService(t, repo, base)
	if _, err := svc.GetCountdown(context.Background(), "BROKEN", "", ""); !countdown.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestPromotionCountdownService_Preview(t *testing.T) {
	svc := newTestCountdownService(t, newStubRepo(), base)
	ctx := context.Background()

	view, err := svc.Preview(ctx, PreviewCommand{
		StartsAt: "2025-01-01T00:00:00Z",
		EndsAt:   float64(base.Add(time.Hour)),
		Now:      "2025-01-01T00:55:00Z",
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if view.Remaining.State != countdown.Critical || view.Remaining.Minutes != 5 {
		t.Fatalf("unexpected remaining %+v", view.Remaining)
	}
	if view.Thresholds.UrgentMs != countdown.DefaultUrgentMs {
		t.Fatalf("expected default thresholds, got %+v", view.Thresholds)
	}
	if view.Label != "Ends in 00:05:00" {
		t.Fatalf("unexpected label %q", view.Label)
	}

	view, err = svc.Preview(ctx, PreviewCommand{
		EndsAt:     base.Add(30 * time.Minute),
		Thresholds: &countdown.ThresholdConfig{UrgentMs: countdown.Ms(10 * 60_000)},
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if view.Remaining.State != countdown.Running || view.Thresholds.CriticalMs != 600_000 {
		t.Fatalf("unexpected preview %+v", view)
	}

	view, err = svc.Preview(ctx, PreviewCommand{EndsAt: base - 1, Lang: "ja"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if view.Remaining.State != countdown.Expired || view.Label != "終了" {
		t.Fatalf("unexpected expired preview %+v", view)
	}
}

func TestPromotionCountdownService_PreviewWithoutVariantUsesConfiguredThresholds(t *testing.T) {
	svc, err := NewPromotionCountdownService(PromotionCountdownServiceDeps{
		Promotions:        newStubRepo(),
		Clock:             countdown.NewManualClock(base),
		DefaultThresholds: countdown.ThresholdsFromDurations(2*time.Hour, 30*time.Minute),
		DefaultLanguage:   "en",
	})
	if err != nil {
		t.Fatalf("NewPromotionCountdownService: %v", err)
	}
	fallback, _ := presets.Default().Lookup("")

	view, err := svc.Preview(context.Background(), PreviewCommand{EndsAt: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if view.Variant != "" {
		t.Fatalf("expected no variant, got %q", view.Variant)
	}
	if view.Thresholds.UrgentMs != 7_200_000 || view.Thresholds.CriticalMs != 1_800_000 {
		t.Fatalf("expected configured thresholds, got %+v", view.Thresholds)
	}
	if view.IntervalMs != fallback.IntervalMs || view.Remaining.State != countdown.Urgent {
		t.Fatalf("unexpected preview %+v", view)
	}

	view, err = svc.Preview(context.Background(), PreviewCommand{EndsAt: base.Add(90 * time.Minute), Variant: fallback.Name})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if view.Variant != fallback.Name || view.Thresholds.UrgentMs != *fallback.Thresholds.UrgentMs {
		t.Fatalf("expected %s preset thresholds, got %+v", fallback.Name, view)
	}
}

func TestPromotionCountdownService_PreviewErrors(t *testing.T) {
	svc := newTestCountdownService(t, newStubRepo(), base)
	ctx := context.Background()

	cases := []struct {
		name  string
		cmd   PreviewCommand
		check func(error) bool
	}{
		{name: "inverted window", cmd: PreviewCommand{StartsAt: base + 10, EndsAt: base}, check: countdown.IsConfigError},
		{name: "bad end", cmd: PreviewCommand{EndsAt: "later"}, check: countdown.IsInvalidInput},
		{name: "bad now", cmd: PreviewCommand{EndsAt: base, Now: "now"}, check: countdown.IsInvalidInput},
		{
			name:  "inverted thresholds",
			cmd:   PreviewCommand{EndsAt: base, Thresholds: &countdown.ThresholdConfig{UrgentMs: countdown.Ms(1), CriticalMs: countdown.Ms(2)}},
			check: countdown.IsConfigError,
		},
		{
			name:  "unknown variant",
			cmd:   PreviewCommand{EndsAt: base, Variant: "ticker"},
			check: func(err error) bool { return errors.Is(err, ErrCountdownUnknownVariant) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Preview(ctx, tc.cmd)
			if !tc.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestNewPromotionCountdownServiceRequiresRepository(t *testing.T) {
	if _, err := NewPromotionCountdownService(PromotionCountdownServiceDeps{}); !errors.Is(err, ErrCountdownRepositoryMissing) {
		t.Fatalf("expected ErrCountdownRepositoryMissing, got %v", err)
	}
}
