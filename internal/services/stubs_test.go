package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
)

// base is 2025-01-01T00:00:00Z.
const base countdown.Instant = 1_735_689_600_000

type stubRepoError struct {
	notFound    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubPromotionRepository struct {
	mu         sync.Mutex
	promotions map[string]domain.Promotion
	err        error
	listErr    error
	lastCode   string
	finds      int
}

func newStubRepo(promotions ...domain.Promotion) *stubPromotionRepository {
	repo := &stubPromotionRepository{promotions: make(map[string]domain.Promotion)}
	for _, p := range promotions {
		repo.promotions[p.Code] = p
	}
	return repo
}

func (r *stubPromotionRepository) remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.promotions, code)
}

func (r *stubPromotionRepository) FindByCode(_ context.Context, code string) (domain.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastCode = code
	r.finds++
	if r.err != nil {
		return domain.Promotion{}, r.err
	}
	p, ok := r.promotions[code]
	if !ok {
		return domain.Promotion{}, &stubRepoError{notFound: true}
	}
	return p, nil
}

func (r *stubPromotionRepository) findCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds
}

func (r *stubPromotionRepository) ListScheduled(_ context.Context, now countdown.Instant, limit int) ([]domain.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Promotion
	for _, p := range r.promotions {
		if p.Status.Countable() && p.EndsAt > now {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []CountdownEventMessage
	fail     bool
}

func (p *recordingPublisher) PublishCountdownEvent(_ context.Context, msg CountdownEventMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return "", errors.New("topic unavailable")
	}
	p.messages = append(p.messages, msg)
	return "msg-" + msg.EventID, nil
}

func (p *recordingPublisher) edges(code string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.messages {
		if m.PromotionCode == code {
			out = append(out, m.Edge)
		}
	}
	return out
}

func instantPtr(v countdown.Instant) *countdown.Instant { return &v }

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%03d", n)
	}
}

// gatedPublisher holds the first publish until release is closed.
type gatedPublisher struct {
	*recordingPublisher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{
		recordingPublisher: &recordingPublisher{},
		entered:            make(chan struct{}),
		release:            make(chan struct{}),
	}
}

func (p *gatedPublisher) PublishCountdownEvent(ctx context.Context, msg CountdownEventMessage) (string, error) {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return p.recordingPublisher.PublishCountdownEvent(ctx, msg)
}
