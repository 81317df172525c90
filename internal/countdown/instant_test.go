package countdown

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	ref := time.Date(2025, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	refMs := Instant(ref.UnixMilli())

	cases := []struct {
		name  string
		input any
		want  Instant
	}{
		{name: "int64", input: int64(refMs), want: refMs},
		{name: "int", input: int(refMs), want: refMs},
		{name: "float64 from json", input: float64(refMs), want: refMs},
		{name: "json number", input: json.Number("1741964966535"), want: refMs},
		{name: "json number with fraction zero", input: json.Number("1741964966535.0"), want: refMs},
		{name: "json number exponent", input: json.Number("1.741964966535e12"), want: refMs},
		{name: "uint64", input: uint64(refMs), want: refMs},
		{name: "int16", input: int16(1000), want: 1000},
		{name: "numeric string", input: " 1741964966535 ", want: refMs},
		{name: "rfc3339 millis", input: "2025-03-14T15:09:26.535Z", want: refMs},
		{name: "rfc3339 offset", input: "2025-03-15T00:09:26.535+09:00", want: refMs},
		{name: "no zone", input: "2025-03-14T15:09:26.535", want: refMs},
		{name: "date only", input: "2025-03-14", want: Instant(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC).UnixMilli())},
		{name: "time.Time", input: ref, want: refMs},
		{name: "instant", input: refMs, want: refMs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseInstant(tc.input)
			if err != nil {
				t.Fatalf("ParseInstant(%v): %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseInstantRejectsGarbage(t *testing.T) {
	inputs := []any{
		"", "tomorrow", "2025-13-45", 1.5, nil, []int{1}, time.Time{},
		float64(math.MaxInt64),
		math.Inf(1),
		json.Number("9223372036854775808"),
		json.Number("1e300"),
		json.Number("1.5"),
		uint64(math.MaxUint64),
	}
	for _, input := range inputs {
		_, err := ParseInstant(input)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseInstant(%#v): expected invalid input, got %v", input, err)
		}
		var inputErr *InvalidInputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("ParseInstant(%#v): expected *InvalidInputError", input)
		}
	}
}

func TestParseSaleWindow(t *testing.T) {
	w, err := ParseSaleWindow(nil, "2025-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseSaleWindow: %v", err)
	}
	if w.HasStart {
		t.Fatalf("expected window without start")
	}

	w, err = ParseSaleWindow(float64(base), "2025-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseSaleWindow: %v", err)
	}
	if !w.HasStart || w.Start != base || w.End != base+msPerDay {
		t.Fatalf("unexpected window %+v", w)
	}

	if _, err := ParseSaleWindow("2025-01-03", "2025-01-02"); !IsConfigError(err) {
		t.Fatalf("expected config error for inverted window, got %v", err)
	}
	if _, err := ParseSaleWindow("soon", "2025-01-02"); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for bad start, got %v", err)
	}
	if _, err := ParseSaleWindow(nil, ""); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for missing end, got %v", err)
	}
}
