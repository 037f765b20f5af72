package engine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

func TestDedupKey_StableAcrossCalls(t *testing.T) {
	hunt := uuid.MustParse("6a6f2a74-58d2-4c3e-9c7a-2f6c3cf3a001")
	listing := uuid.MustParse("6a6f2a74-58d2-4c3e-9c7a-2f6c3cf3a002")

	a := DedupKey(hunt, listing, models.DecisionBuy, 3)
	b := DedupKey(hunt, listing, models.DecisionBuy, 3)
	if a != b {
		t.Fatalf("same tuple must map to same key: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}

func TestDedupKey_DistinguishesEveryComponent(t *testing.T) {
	hunt := uuid.New()
	listing := uuid.New()
	base := DedupKey(hunt, listing, models.DecisionBuy, 1)

	variants := []string{
		DedupKey(uuid.New(), listing, models.DecisionBuy, 1),
		DedupKey(hunt, uuid.New(), models.DecisionBuy, 1),
		DedupKey(hunt, listing, models.DecisionWatch, 1),
		DedupKey(hunt, listing, models.DecisionBuy, 2),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base key", i)
		}
	}
}
