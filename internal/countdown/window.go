package countdown

import "strings"

// SaleWindow is a promotion's active period. Start is meaningful only when
// HasStart is set; a window without a start is "running until End".
type SaleWindow struct {
	Start    Instant
	End      Instant
	HasStart bool
}

// NewSaleWindow builds a validated window with both bounds.
func NewSaleWindow(start, end Instant) (SaleWindow, error) {
	w := SaleWindow{Start: start, End: end, HasStart: true}
	if err := w.Validate(); err != nil {
		return SaleWindow{}, err
	}
	return w, nil
}

// NewOpenSaleWindow builds a window that has already started and ends at end.
func NewOpenSaleWindow(end Instant) SaleWindow {
	return SaleWindow{End: end}
}

// Validate enforces Start < End when a start is present.
func (w SaleWindow) Validate() error {
	if w.HasStart && w.Start >= w.End {
		return newConfigError("window", "startTime must be before endTime")
	}
	return nil
}

// Duration reports End-Start in milliseconds, or 0 without a start.
func (w SaleWindow) Duration() int64 {
	if !w.HasStart {
		return 0
	}
	return int64(w.End - w.Start)
}

// ParseSaleWindow normalises raw start/end values at the boundary. A nil or
// blank start means the window has no start.
func ParseSaleWindow(start, end any) (SaleWindow, error) {
	endAt, err := ParseInstant(end)
	if err != nil {
		return SaleWindow{}, err
	}
	if isAbsent(start) {
		return NewOpenSaleWindow(endAt), nil
	}
	startAt, err := ParseInstant(start)
	if err != nil {
		return SaleWindow{}, err
	}
	return NewSaleWindow(startAt, endAt)
}

func isAbsent(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case *Instant:
		return value == nil
	}
	return false
}
