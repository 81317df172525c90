package repositories

import (
	"context"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
)

// RepositoryError categorises persistence failures for services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// PromotionRepository reads promotion schedules.
type PromotionRepository interface {
	// FindByCode returns a RepositoryError with IsNotFound when no promotion
	// carries code.
	FindByCode(ctx context.Context, code string) (domain.Promotion, error)
	// ListScheduled returns countable promotions that have not ended at now,
	// ordered by end instant, at most limit entries.
	ListScheduled(ctx context.Context, now countdown.Instant, limit int) ([]domain.Promotion, error)
}
