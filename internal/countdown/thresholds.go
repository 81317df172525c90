package countdown

import "time"

const (
	// DefaultUrgentMs is the remaining time below which a window becomes Urgent.
	DefaultUrgentMs int64 = 3_600_000
	// DefaultCriticalMs is the remaining time below which a window becomes Critical.
	DefaultCriticalMs int64 = 600_000
)

// ThresholdConfig is the raw, possibly partial threshold input. A nil field
// means "use the default", clamped against the field that was supplied: an
// omitted CriticalMs becomes min(DefaultCriticalMs, UrgentMs) and an omitted
// UrgentMs becomes max(DefaultUrgentMs, CriticalMs). So {UrgentMs: 1000}
// yields 1000/1000 rather than rejecting the default 600000 critical.
type ThresholdConfig struct {
	UrgentMs   *int64 `json:"urgentMs,omitempty" yaml:"urgentMs,omitempty"`
	CriticalMs *int64 `json:"criticalMs,omitempty" yaml:"criticalMs,omitempty"`
}

// Ms returns a pointer to v for ThresholdConfig literals.
func Ms(v int64) *int64 {
	return &v
}

// ThresholdsFromDurations builds a fully specified ThresholdConfig.
func ThresholdsFromDurations(urgent, critical time.Duration) ThresholdConfig {
	return ThresholdConfig{
		UrgentMs:   Ms(urgent.Milliseconds()),
		CriticalMs: Ms(critical.Milliseconds()),
	}
}

// ThresholdPolicy is a validated ThresholdConfig with defaults applied.
type ThresholdPolicy struct {
	urgentMs   int64
	criticalMs int64
}

// DefaultThresholdPolicy returns the 1h / 10m policy.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{urgentMs: DefaultUrgentMs, criticalMs: DefaultCriticalMs}
}

// NewThresholdPolicy applies defaults to omitted fields and validates the result.
//
// When only one bound is supplied the omitted one is pulled towards it so the
// pair stays ordered: an omitted critical never exceeds the given urgent, and
// an omitted urgent never falls below the given critical.
func NewThresholdPolicy(cfg ThresholdConfig) (ThresholdPolicy, error) {
	if cfg.UrgentMs != nil && *cfg.UrgentMs < 0 {
		return ThresholdPolicy{}, newConfigError("thresholds.urgentMs", "must be >= 0")
	}
	if cfg.CriticalMs != nil && *cfg.CriticalMs < 0 {
		return ThresholdPolicy{}, newConfigError("thresholds.criticalMs", "must be >= 0")
	}

	policy := DefaultThresholdPolicy()
	switch {
	case cfg.UrgentMs != nil && cfg.CriticalMs != nil:
		policy.urgentMs = *cfg.UrgentMs
		policy.criticalMs = *cfg.CriticalMs
	case cfg.UrgentMs != nil:
		policy.urgentMs = *cfg.UrgentMs
		policy.criticalMs = min(DefaultCriticalMs, policy.urgentMs)
	case cfg.CriticalMs != nil:
		policy.criticalMs = *cfg.CriticalMs
		policy.urgentMs = max(DefaultUrgentMs, policy.criticalMs)
	}

	if policy.criticalMs > policy.urgentMs {
		return ThresholdPolicy{}, newConfigError("thresholds", "criticalMs must not exceed urgentMs")
	}
	return policy, nil
}

// UrgentMs returns the urgent boundary in milliseconds.
func (p ThresholdPolicy) UrgentMs() int64 { return p.urgentMs }

// CriticalMs returns the critical boundary in milliseconds.
func (p ThresholdPolicy) CriticalMs() int64 { return p.criticalMs }

// Config returns the fully specified config equivalent to p.
func (p ThresholdPolicy) Config() ThresholdConfig {
	return ThresholdConfig{UrgentMs: Ms(p.urgentMs), CriticalMs: Ms(p.criticalMs)}
}

// Classify maps the remaining time of an open window to a tier.
func (p ThresholdPolicy) Classify(remainingMs int64) CountdownState {
	switch {
	case remainingMs < p.criticalMs:
		return Critical
	case remainingMs < p.urgentMs:
		return Urgent
	default:
		return Running
	}
}
