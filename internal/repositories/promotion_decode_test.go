package repositories

import (
	"testing"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
)

func TestDecodePromotionNormalisesBounds(t *testing.T) {
	end := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		start any
		end   any
	}{
		{name: "epoch numbers", start: int64(1735689600000), end: int64(1735776000000)},
		{name: "float from json import", start: float64(1735689600000), end: float64(1735776000000)},
		{name: "iso strings", start: "2025-01-01T00:00:00Z", end: "2025-01-02T09:00:00+09:00"},
		{name: "timestamps", start: end.Add(-24 * time.Hour), end: end},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodePromotion("doc-1", map[string]any{
				"code":     " summer25 ",
				"status":   "Scheduled",
				"startsAt": tc.start,
				"endsAt":   tc.end,
				"variant":  "flash_sale",
			})
			if err != nil {
				t.Fatalf("DecodePromotion: %v", err)
			}
			if p.Code != "SUMMER25" {
				t.Fatalf("unexpected code %q", p.Code)
			}
			if p.StartsAt == nil || *p.StartsAt != 1735689600000 {
				t.Fatalf("unexpected start %v", p.StartsAt)
			}
			if p.EndsAt != 1735776000000 {
				t.Fatalf("unexpected end %d", p.EndsAt)
			}
		})
	}
}

func TestDecodePromotionWithoutStart(t *testing.T) {
	p, err := DecodePromotion("WINTER", map[string]any{"endsAt": "2025-02-01", "startsAt": ""})
	if err != nil {
		t.Fatalf("DecodePromotion: %v", err)
	}
	if p.StartsAt != nil {
		t.Fatalf("expected no start")
	}
	if p.Code != "WINTER" {
		t.Fatalf("expected code from id, got %q", p.Code)
	}
}

func TestDecodePromotionRejectsBadBounds(t *testing.T) {
	_, err := DecodePromotion("x", map[string]any{"endsAt": "next week"})
	if !countdown.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = DecodePromotion("x", map[string]any{"endsAt": int64(1), "startsAt": true})
	if !countdown.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for bool start, got %v", err)
	}
}
