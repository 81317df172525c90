package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
	"github.com/hanko-field/promoclock/internal/format"
	"github.com/hanko-field/promoclock/internal/presets"
	"github.com/hanko-field/promoclock/internal/repositories"
)

// PromotionCountdownServiceDeps bundles the collaborators of the countdown service.
type PromotionCountdownServiceDeps struct {
	Promotions repositories.PromotionRepository
	Presets    *presets.Catalog
	Clock      countdown.TimeSource
	// DefaultThresholds applies to previews that name neither a variant nor
	// explicit thresholds.
	DefaultThresholds countdown.ThresholdConfig
	DefaultLanguage   string
}

type promotionCountdownService struct {
	repo        repositories.PromotionRepository
	presets     *presets.Catalog
	clock       countdown.TimeSource
	defaults    countdown.ThresholdConfig
	defaultLang string
}

// NewPromotionCountdownService wires a PromotionCountdownService.
func NewPromotionCountdownService(deps PromotionCountdownServiceDeps) (PromotionCountdownService, error) {
	if deps.Promotions == nil {
		return nil, ErrCountdownRepositoryMissing
	}
	if _, err := countdown.NewThresholdPolicy(deps.DefaultThresholds); err != nil {
		return nil, fmt.Errorf("countdown service: default thresholds: %w", err)
	}
	catalog := deps.Presets
	if catalog == nil {
		catalog = presets.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = countdown.SystemClock{}
	}
	lang := strings.TrimSpace(deps.DefaultLanguage)
	if lang == "" {
		lang = "ja"
	}
	return &promotionCountdownService{
		repo:        deps.Promotions,
		presets:     catalog,
		clock:       clock,
		defaults:    deps.DefaultThresholds,
		defaultLang: lang,
	}, nil
}

func (s *promotionCountdownService) GetCountdown(ctx context.Context, code, variant, lang string) (PromotionCountdown, error) {
	promotion, err := loadPromotion(ctx, s.repo, code)
	if err != nil {
		return PromotionCountdown{}, err
	}
	preset, err := resolvePreset(s.presets, variant, promotion.Variant)
	if err != nil {
		return PromotionCountdown{}, err
	}
	window, err := promotion.Window()
	if err != nil {
		return PromotionCountdown{}, err
	}
	view, err := s.render(window, preset, preset.Thresholds, s.clock.Now(), lang)
	if err != nil {
		return PromotionCountdown{}, err
	}
	return PromotionCountdown{Code: promotion.Code, Name: promotion.Name, CountdownView: view}, nil
}

func (s *promotionCountdownService) Preview(_ context.Context, cmd PreviewCommand) (CountdownView, error) {
	window, err := countdown.ParseSaleWindow(cmd.StartsAt, cmd.EndsAt)
	if err != nil {
		return CountdownView{}, err
	}
	now := s.clock.Now()
	if cmd.Now != nil {
		if now, err = countdown.ParseInstant(cmd.Now); err != nil {
			return CountdownView{}, err
		}
	}

	// without a variant the configured thresholds apply, so the view names
	// no preset and only borrows the default cadence
	fallback, _ := s.presets.Lookup("")
	preset := presets.Preset{IntervalMs: fallback.IntervalMs}
	thresholds := s.defaults
	if strings.TrimSpace(cmd.Variant) != "" {
		if preset, err = s.presets.Get(cmd.Variant); err != nil {
			return CountdownView{}, fmt.Errorf("%w: %s", ErrCountdownUnknownVariant, strings.TrimSpace(cmd.Variant))
		}
		thresholds = preset.Thresholds
	}
	if cmd.Thresholds != nil {
		thresholds = *cmd.Thresholds
	}
	return s.render(window, preset, thresholds, now, cmd.Lang)
}

func (s *promotionCountdownService) render(window countdown.SaleWindow, preset presets.Preset, thresholds countdown.ThresholdConfig, now countdown.Instant, lang string) (CountdownView, error) {
	clock, err := countdown.NewCountdownClock(window, thresholds)
	if err != nil {
		return CountdownView{}, err
	}
	snap := clock.Snapshot(now)
	policy := clock.Policy()

	if strings.TrimSpace(lang) == "" {
		lang = s.defaultLang
	}
	view := CountdownView{
		Variant:    preset.Name,
		IntervalMs: preset.IntervalMs,
		Thresholds: Thresholds{UrgentMs: policy.UrgentMs(), CriticalMs: policy.CriticalMs()},
		EndsAt:     window.End,
		ServerTime: now,
		Remaining:  snap,
		Label:      format.Remaining(snap, lang),
		Lang:       format.Negotiate(lang).String(),
	}
	if window.HasStart {
		start := window.Start
		view.StartsAt = &start
		pct, err := countdown.Percentage(window, now)
		if err != nil {
			return CountdownView{}, err
		}
		view.Progress = &pct
	}
	return view, nil
}

// loadPromotion resolves code to a countable promotion, mapping repository
// failures onto the service sentinels.
func loadPromotion(ctx context.Context, repo repositories.PromotionRepository, code string) (domain.Promotion, error) {
	normalized := repositories.NormalizeCode(code)
	if normalized == "" {
		return domain.Promotion{}, ErrCountdownInvalidCode
	}
	promotion, err := repo.FindByCode(ctx, normalized)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			switch {
			case repoErr.IsNotFound():
				return domain.Promotion{}, ErrCountdownPromotionNotFound
			case repoErr.IsUnavailable():
				return domain.Promotion{}, fmt.Errorf("%w: %v", ErrCountdownRepositoryUnavailable, err)
			}
		}
		return domain.Promotion{}, err
	}
	if promotion.Status != domain.PromotionStatusEnded && !promotion.Status.Countable() {
		return domain.Promotion{}, ErrCountdownPromotionUnavailable
	}
	return promotion, nil
}

// resolvePreset prefers an explicitly requested variant, which must exist,
// then the promotion's stored variant, then the catalog default.
func resolvePreset(catalog *presets.Catalog, requested, stored string) (presets.Preset, error) {
	if strings.TrimSpace(requested) != "" {
		p, err := catalog.Get(requested)
		if err != nil {
			return presets.Preset{}, fmt.Errorf("%w: %s", ErrCountdownUnknownVariant, strings.TrimSpace(requested))
		}
		return p, nil
	}
	p, _ := catalog.Lookup(stored)
	return p, nil
}
