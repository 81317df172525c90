package services

import "errors"

var (
	// ErrCountdownRepositoryMissing indicates the promotion repository dependency is absent.
	ErrCountdownRepositoryMissing = errors.New("countdown service: repository is not configured")
	// ErrCountdownInvalidCode signals a blank promotion code.
	ErrCountdownInvalidCode = errors.New("countdown service: invalid promotion code")
	// ErrCountdownPromotionNotFound indicates no promotion exists for the code.
	ErrCountdownPromotionNotFound = errors.New("countdown service: promotion not found")
	// ErrCountdownPromotionUnavailable marks draft or withdrawn promotions.
	ErrCountdownPromotionUnavailable = errors.New("countdown service: promotion unavailable")
	// ErrCountdownRepositoryUnavailable wraps transient storage outages.
	ErrCountdownRepositoryUnavailable = errors.New("countdown service: repository unavailable")
	// ErrCountdownUnknownVariant is returned when an explicitly requested variant does not exist.
	ErrCountdownUnknownVariant = errors.New("countdown service: unknown variant")
)

var (
	// ErrWatcherDisabled is returned when the watcher feature flag is off.
	ErrWatcherDisabled = errors.New("countdown watcher: disabled")
	// ErrWatcherClosed is returned after Close.
	ErrWatcherClosed = errors.New("countdown watcher: closed")
	// ErrWatchNotFound indicates no active watch carries the id.
	ErrWatchNotFound = errors.New("countdown watcher: watch not found")
)
