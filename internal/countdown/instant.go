package countdown

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Instant is a point in time expressed as UTC epoch milliseconds.
type Instant int64

// InstantFromTime converts t to epoch milliseconds.
func InstantFromTime(t time.Time) Instant {
	return Instant(t.UnixMilli())
}

// Time returns the instant as a UTC time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

// Add returns the instant shifted by d, truncated to milliseconds.
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d.Milliseconds())
}

// Sub returns i-j as a duration.
func (i Instant) Sub(j Instant) time.Duration {
	return time.Duration(int64(i)-int64(j)) * time.Millisecond
}

// String renders the instant as RFC3339 with millisecond precision.
func (i Instant) String() string {
	return i.Time().Format("2006-01-02T15:04:05.000Z07:00")
}

const maxInstantFloat = float64(1 << 63)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant normalises the representations accepted from catalog and
// promotion payloads: epoch-millisecond numbers (including numeric strings
// and json.Number), ISO-8601 strings, and time.Time values.
func ParseInstant(v any) (Instant, error) {
	switch value := v.(type) {
	case Instant:
		return value, nil
	case *Instant:
		if value == nil {
			return 0, newInvalidInputError(v, "nil instant", nil)
		}
		return *value, nil
	case int:
		return Instant(value), nil
	case int8:
		return Instant(value), nil
	case int16:
		return Instant(value), nil
	case int32:
		return Instant(value), nil
	case int64:
		return Instant(value), nil
	case uint:
		return instantFromUint(uint64(value))
	case uint8:
		return Instant(value), nil
	case uint16:
		return Instant(value), nil
	case uint32:
		return Instant(value), nil
	case uint64:
		return instantFromUint(value)
	case float64:
		return instantFromFloat(value)
	case float32:
		return instantFromFloat(float64(value))
	case json.Number:
		if ms, err := value.Int64(); err == nil {
			return Instant(ms), nil
		}
		// 1.7e12 and 1700000000000.0 are still whole milliseconds
		if f, err := value.Float64(); err == nil {
			return instantFromFloat(f)
		}
		return parseInstantString(value.String())
	case string:
		return parseInstantString(value)
	case time.Time:
		if value.IsZero() {
			return 0, newInvalidInputError(v, "zero time", nil)
		}
		return InstantFromTime(value), nil
	case *time.Time:
		if value == nil {
			return 0, newInvalidInputError(v, "nil time", nil)
		}
		return ParseInstant(*value)
	case nil:
		return 0, newInvalidInputError(v, "missing timestamp", nil)
	default:
		return 0, newInvalidInputError(v, "unsupported timestamp type", nil)
	}
}

func instantFromFloat(value float64) (Instant, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, newInvalidInputError(value, "not a finite number", nil)
	}
	if value != math.Trunc(value) {
		return 0, newInvalidInputError(value, "fractional milliseconds", nil)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if value >= maxInstantFloat || value < -maxInstantFloat {
		return 0, newInvalidInputError(value, "out of range", nil)
	}
	return Instant(int64(value)), nil
}

func instantFromUint(value uint64) (Instant, error) {
	if value > math.MaxInt64 {
		return 0, newInvalidInputError(value, "out of range", nil)
	}
	return Instant(int64(value)), nil
}

func parseInstantString(raw string) (Instant, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, newInvalidInputError(raw, "empty timestamp", nil)
	}
	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Instant(ms), nil
	}
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, trimmed)
		if err == nil {
			return InstantFromTime(t), nil
		}
		lastErr = err
	}
	return 0, newInvalidInputError(raw, "not an epoch-millisecond or ISO-8601 timestamp", lastErr)
}
