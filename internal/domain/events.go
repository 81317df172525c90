package domain

import "github.com/hanko-field/promoclock/internal/countdown"

// Watch describes an active server-side countdown for a promotion.
type Watch struct {
	ID            string
	PromotionCode string
	Variant       string
	Window        countdown.SaleWindow
	Snapshot      countdown.TimeRemaining
	StartedAt     countdown.Instant
}
