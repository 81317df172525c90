package repositories

import (
	"fmt"
	"strings"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
)

// DecodePromotion builds a Promotion from a loosely typed document. Sale
// bounds may be stored as epoch milliseconds, ISO strings or timestamps; any
// other shape is reported as a countdown.InvalidInputError.
func DecodePromotion(id string, data map[string]any) (domain.Promotion, error) {
	p := domain.Promotion{
		ID:      id,
		Code:    NormalizeCode(stringField(data, "code")),
		Name:    strings.TrimSpace(stringField(data, "name")),
		Status:  domain.NormalizePromotionStatus(stringField(data, "status")),
		Variant: strings.TrimSpace(stringField(data, "variant")),
	}
	if p.Code == "" {
		p.Code = NormalizeCode(id)
	}
	if ts, ok := data["updatedAt"].(time.Time); ok {
		p.UpdatedAt = ts.UTC()
	}

	end, err := countdown.ParseInstant(data["endsAt"])
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("promotion %s: endsAt: %w", id, err)
	}
	p.EndsAt = end

	if raw, ok := data["startsAt"]; ok && !blank(raw) {
		start, err := countdown.ParseInstant(raw)
		if err != nil {
			return domain.Promotion{}, fmt.Errorf("promotion %s: startsAt: %w", id, err)
		}
		p.StartsAt = &start
	}
	return p, nil
}

// NormalizeCode upper-cases and trims a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func blank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	}
	return false
}
