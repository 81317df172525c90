package countdown

import "fmt"

// CountdownState classifies a snapshot. Values are ordered by severity.
type CountdownState int

const (
	NotStarted CountdownState = iota
	Running
	Urgent
	Critical
	Expired
)

var stateNames = [...]string{
	NotStarted: "not_started",
	Running:    "running",
	Urgent:     "urgent",
	Critical:   "critical",
	Expired:    "expired",
}

// String implements fmt.Stringer.
func (s CountdownState) String() string {
	if s < NotStarted || s > Expired {
		return fmt.Sprintf("CountdownState(%d)", int(s))
	}
	return stateNames[s]
}

// AtLeast reports whether s is as severe as other or more.
func (s CountdownState) AtLeast(other CountdownState) bool {
	return s >= other
}

// Active reports whether the window is open (Running, Urgent or Critical).
func (s CountdownState) Active() bool {
	return s >= Running && s < Expired
}

// MarshalText encodes the state by name.
func (s CountdownState) MarshalText() ([]byte, error) {
	if s < NotStarted || s > Expired {
		return nil, fmt.Errorf("countdown: unknown state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name.
func (s *CountdownState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = CountdownState(i)
			return nil
		}
	}
	return fmt.Errorf("countdown: unknown state %q", string(text))
}
