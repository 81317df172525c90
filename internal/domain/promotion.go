package domain

import (
	"strings"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
)

// PromotionStatus is the lifecycle state an operator assigns to a promotion.
type PromotionStatus string

const (
	PromotionStatusDraft     PromotionStatus = "draft"
	PromotionStatusScheduled PromotionStatus = "scheduled"
	PromotionStatusActive    PromotionStatus = "active"
	PromotionStatusEnded     PromotionStatus = "ended"
)

// NormalizePromotionStatus lower-cases and trims raw status values.
func NormalizePromotionStatus(raw string) PromotionStatus {
	return PromotionStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Countable reports whether a countdown should be shown for the status.
func (s PromotionStatus) Countable() bool {
	return s == PromotionStatusScheduled || s == PromotionStatusActive
}

// Promotion is a time-boxed sale as stored by the merchandising team.
type Promotion struct {
	ID       string
	Code     string
	Name     string
	Status   PromotionStatus
	StartsAt *countdown.Instant
	EndsAt   countdown.Instant
	// Variant names the countdown preset used to display the promotion.
	Variant   string
	UpdatedAt time.Time
}

// Window returns the sale window of the promotion.
func (p Promotion) Window() (countdown.SaleWindow, error) {
	if p.StartsAt == nil {
		return countdown.NewOpenSaleWindow(p.EndsAt), nil
	}
	return countdown.NewSaleWindow(*p.StartsAt, p.EndsAt)
}
