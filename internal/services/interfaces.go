package services

import (
	"context"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
)

// PromotionCountdownService computes countdown views on demand.
type PromotionCountdownService interface {
	GetCountdown(ctx context.Context, code, variant, lang string) (PromotionCountdown, error)
	Preview(ctx context.Context, cmd PreviewCommand) (CountdownView, error)
}

// CountdownWatcher keeps server-side countdowns running for promotions and
// publishes an event for every edge they cross.
type CountdownWatcher interface {
	Watch(ctx context.Context, code, variant string) (domain.Watch, error)
	Unwatch(ctx context.Context, watchID string) error
	List(ctx context.Context) []domain.Watch
	Sync(ctx context.Context) (SyncResult, error)
	Close() error
}

// CountdownEventPublisher delivers edge events to downstream consumers.
type CountdownEventPublisher interface {
	PublishCountdownEvent(ctx context.Context, message CountdownEventMessage) (string, error)
}

// CountdownEventMessage is the Pub/Sub payload for one crossed edge.
type CountdownEventMessage struct {
	EventID       string    `json:"eventId"`
	WatchID       string    `json:"watchId"`
	PromotionCode string    `json:"promotionCode"`
	Edge          string    `json:"edge"`
	State         string    `json:"state"`
	RemainingMs   int64     `json:"remainingMs"`
	EndsAt        time.Time `json:"endsAt"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// DedupeKey identifies the edge independently of the watch that saw it, so
// consumers can drop repeats after a restart.
func (m CountdownEventMessage) DedupeKey() string {
	return m.PromotionCode + ":" + m.Edge + ":" + m.EndsAt.UTC().Format(time.RFC3339)
}

// PreviewCommand describes an ad-hoc window. StartsAt and EndsAt accept
// epoch milliseconds or ISO-8601 strings; a blank StartsAt means no start.
type PreviewCommand struct {
	StartsAt   any
	EndsAt     any
	Now        any
	Variant    string
	Thresholds *countdown.ThresholdConfig
	Lang       string
}

// Thresholds echoes the policy applied to a view.
type Thresholds struct {
	UrgentMs   int64 `json:"urgentMs"`
	CriticalMs int64 `json:"criticalMs"`
}

// CountdownView is a rendered snapshot plus everything a client needs to
// keep ticking locally.
type CountdownView struct {
	// Variant is empty when no preset supplied the thresholds.
	Variant    string                  `json:"variant"`
	IntervalMs int64                   `json:"intervalMs"`
	Thresholds Thresholds              `json:"thresholds"`
	StartsAt   *countdown.Instant      `json:"startsAt,omitempty"`
	EndsAt     countdown.Instant       `json:"endsAt"`
	ServerTime countdown.Instant       `json:"serverTime"`
	Remaining  countdown.TimeRemaining `json:"remaining"`
	Progress   *float64                `json:"progress,omitempty"`
	Label      string                  `json:"label"`
	Lang       string                  `json:"lang"`
}

// PromotionCountdown is a CountdownView for a stored promotion.
type PromotionCountdown struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	CountdownView
}

// SyncResult summarises one Sync pass.
type SyncResult struct {
	Started  int `json:"started"`
	Existing int `json:"existing"`
	Stopped  int `json:"stopped"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
