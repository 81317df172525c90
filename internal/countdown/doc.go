// Package countdown turns a sale window into time-remaining snapshots,
// urgency tiers and progress, and keeps them fresh with polling
// subscriptions that fire edge callbacks (start, urgent, critical, expire)
// exactly once each and in severity order.
//
// All time arithmetic is integer epoch milliseconds; there is no calendar
// or timezone handling.
package countdown
