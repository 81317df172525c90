//go:build integration

package firestore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hanko-field/promoclock/internal/countdown"
	pconfig "github.com/hanko-field/promoclock/internal/platform/config"
	pfirestore "github.com/hanko-field/promoclock/internal/platform/firestore"
	"github.com/hanko-field/promoclock/internal/repositories"
	repo "github.com/hanko-field/promoclock/internal/repositories/firestore"
)

func TestPromotionRepositoryAgainstEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    fmt.Sprintf("promoclock-it-%d", time.Now().UnixNano()),
		EmulatorHost: host,
	})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	now := countdown.Instant(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	seed := map[string]map[string]any{
		"summer": {"code": "SUMMER", "status": "scheduled", "startsAt": "2025-01-01T12:00:00Z", "endsAt": int64(now) + 86_400_000},
		"flash":  {"code": "FLASH", "status": "active", "endsAt": time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)},
		"old":    {"code": "OLD", "status": "active", "endsAt": int64(now) - 1},
		"draft":  {"code": "DRAFT", "status": "draft", "endsAt": int64(now) + 1_000},
		"broken": {"code": "BROKEN", "status": "active", "endsAt": "whenever"},
	}
	for id, data := range seed {
		if _, err := client.Collection("promotions").Doc(id).Set(ctx, data); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	r, err := repo.NewPromotionRepository(provider)
	if err != nil {
		t.Fatalf("NewPromotionRepository: %v", err)
	}

	p, err := r.FindByCode(ctx, "summer")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if p.StartsAt == nil || p.EndsAt != now+86_400_000 {
		t.Fatalf("unexpected promotion %+v", p)
	}

	_, err = r.FindByCode(ctx, "missing")
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := r.ListScheduled(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(list) != 2 || list[0].Code != "FLASH" || list[1].Code != "SUMMER" {
		t.Fatalf("unexpected schedule %+v", list)
	}
}
