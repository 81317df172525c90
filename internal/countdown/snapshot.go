package countdown

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// TimeRemaining is an immutable snapshot of a countdown. For NotStarted it
// counts down to the window start, otherwise to the window end. For every
// state except Expired the unit fields sum exactly to TotalMs; Expired is
// all zeros.
type TimeRemaining struct {
	Days         int64          `json:"days"`
	Hours        int64          `json:"hours"`
	Minutes      int64          `json:"minutes"`
	Seconds      int64          `json:"seconds"`
	Milliseconds int64          `json:"milliseconds"`
	TotalMs      int64          `json:"totalMs"`
	State        CountdownState `json:"state"`
}

// CountdownClock turns a validated window and policy into snapshots.
type CountdownClock struct {
	window SaleWindow
	policy ThresholdPolicy
}

// NewCountdownClock validates window and thresholds. Invalid input fails
// here rather than producing a misleading snapshot later.
func NewCountdownClock(window SaleWindow, thresholds ThresholdConfig) (*CountdownClock, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	policy, err := NewThresholdPolicy(thresholds)
	if err != nil {
		return nil, err
	}
	return &CountdownClock{window: window, policy: policy}, nil
}

// Window returns the clock's window.
func (c *CountdownClock) Window() SaleWindow { return c.window }

// Policy returns the clock's threshold policy.
func (c *CountdownClock) Policy() ThresholdPolicy { return c.policy }

// Snapshot computes the remaining time at now.
func (c *CountdownClock) Snapshot(now Instant) TimeRemaining {
	w := c.window
	switch {
	case w.HasStart && now < w.Start:
		return decompose(int64(w.Start-now), NotStarted)
	case now >= w.End:
		return TimeRemaining{State: Expired}
	default:
		remaining := int64(w.End - now)
		return decompose(remaining, c.policy.Classify(remaining))
	}
}

// ComputeSnapshot is the one-shot form of NewCountdownClock + Snapshot.
func ComputeSnapshot(window SaleWindow, now Instant, thresholds ThresholdConfig) (TimeRemaining, error) {
	clock, err := NewCountdownClock(window, thresholds)
	if err != nil {
		return TimeRemaining{}, err
	}
	return clock.Snapshot(now), nil
}

func decompose(totalMs int64, state CountdownState) TimeRemaining {
	rest := totalMs
	days := rest / msPerDay
	rest %= msPerDay
	hours := rest / msPerHour
	rest %= msPerHour
	minutes := rest / msPerMinute
	rest %= msPerMinute
	seconds := rest / msPerSecond
	return TimeRemaining{
		Days:         days,
		Hours:        hours,
		Minutes:      minutes,
		Seconds:      seconds,
		Milliseconds: rest % msPerSecond,
		TotalMs:      totalMs,
		State:        state,
	}
}

// Sum recomposes the unit fields into milliseconds.
func (t TimeRemaining) Sum() int64 {
	return t.Days*msPerDay + t.Hours*msPerHour + t.Minutes*msPerMinute + t.Seconds*msPerSecond + t.Milliseconds
}
