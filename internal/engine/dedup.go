package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// DedupKey maps the same logical alert event to the same key across
// restarts: a deterministic hash of (hunt, listing, decision, criteria
// version). Because the decision is part of the key, a listing flipping
// BUY→WATCH→BUY within one criteria version re-alerts on each distinct
// transition, while re-running an unchanged scan emits nothing new.
func DedupKey(huntID, listingID uuid.UUID, decision models.Decision, criteriaVersion int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", huntID, listingID, decision, criteriaVersion)))
	return hex.EncodeToString(sum[:16])
}
