package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
	pfirestore "github.com/hanko-field/promoclock/internal/platform/firestore"
	"github.com/hanko-field/promoclock/internal/repositories"
)

const promotionsCollection = "promotions"

// PromotionRepository reads promotion schedules from Firestore.
type PromotionRepository struct {
	reader *pfirestore.Reader[map[string]any]
	logger *zap.Logger
}

// PromotionRepositoryOption customises the repository.
type PromotionRepositoryOption func(*PromotionRepository)

// WithPromotionLogger sets the logger used to report undecodable documents.
func WithPromotionLogger(logger *zap.Logger) PromotionRepositoryOption {
	return func(r *PromotionRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewPromotionRepository builds a Firestore-backed promotion repository.
func NewPromotionRepository(provider *pfirestore.Provider, opts ...PromotionRepositoryOption) (*PromotionRepository, error) {
	reader, err := pfirestore.NewReader(provider, promotionsCollection, pfirestore.MapDecoder())
	if err != nil {
		return nil, fmt.Errorf("promotion repository: %w", err)
	}
	repo := &PromotionRepository{reader: reader, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

var _ repositories.PromotionRepository = (*PromotionRepository)(nil)

// FindByCode looks the promotion up by its code field.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	code = repositories.NormalizeCode(code)
	if code == "" {
		return domain.Promotion{}, pfirestore.NotFound("promotions.find_by_code", errors.New("promotion code is required"))
	}
	docs, err := r.reader.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Promotion{}, err
	}
	if len(docs) == 0 {
		return domain.Promotion{}, pfirestore.NotFound("promotions.find_by_code", fmt.Errorf("promotion %s not found", code))
	}
	return decodeDocument(docs[0])
}

// ListScheduled returns scheduled or active promotions that end after now.
// Bounds are stored in mixed representations, so the end filter runs after
// decoding rather than in the query.
func (r *PromotionRepository) ListScheduled(ctx context.Context, now countdown.Instant, limit int) ([]domain.Promotion, error) {
	docs, err := r.reader.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "in", []string{
			string(domain.PromotionStatusScheduled),
			string(domain.PromotionStatusActive),
		})
	})
	if err != nil {
		return nil, err
	}

	promotions := make([]domain.Promotion, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeDocument(doc)
		if err != nil {
			r.logger.Warn("skipping undecodable promotion", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if p.EndsAt <= now {
			continue
		}
		promotions = append(promotions, p)
	}
	sort.SliceStable(promotions, func(i, j int) bool {
		return promotions[i].EndsAt < promotions[j].EndsAt
	})
	if limit > 0 && len(promotions) > limit {
		promotions = promotions[:limit]
	}
	return promotions, nil
}

func decodeDocument(doc pfirestore.Document[map[string]any]) (domain.Promotion, error) {
	p, err := repositories.DecodePromotion(doc.ID, doc.Data)
	if err != nil {
		return domain.Promotion{}, err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = doc.UpdateTime.UTC()
	}
	return p, nil
}
