package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

func testSnapshot() CriteriaSnapshot {
	return CriteriaSnapshot{
		HuntID:  uuid.New(),
		Version: 1,
		Identity: models.IdentityTarget{
			Make:         "Toyota",
			Model:        "Landcruiser",
			ModelRoot:    "landcruiser",
			SeriesFamily: "79 series",
			Badge:        "GXL",
			BodyType:     "ute",
			EngineCode:   "1GD",
			CabType:      "dual cab",
		},
		ProvenExitValue: 50000,
		Thresholds: models.Thresholds{
			MinGapAbsBuy:           3000,
			MinGapPctBuy:           5,
			MinGapAbsWatch:         1000,
			MinGapPctWatch:         2,
			MaxListingAgeDaysBuy:   14,
			MaxListingAgeDaysWatch: 30,
		},
		MustHaveMode:      models.MustHaveSoft,
		Weights:           DefaultGateWeights(),
		VerifiedThreshold: VerifiedThreshold,
	}
}

func resolvedListing(price float64) models.CandidateListing {
	return models.CandidateListing{
		ID: uuid.New(),
		Identity: models.IdentityFields{
			Resolved: &models.ResolvedIdentity{
				Make:         "Toyota",
				Model:        "Landcruiser 79",
				ModelRoot:    "landcruiser",
				SeriesFamily: "79 series",
				Badge:        "GXL",
				BodyType:     "ute",
				EngineCode:   "1GD",
				CabType:      "dual cab",
			},
			RawText: "2021 Toyota Landcruiser 79 Series GXL dual cab 1GD",
		},
		Price:       &price,
		SourceTier:  models.TierAuction,
		SourceName:  "pickles",
		FirstSeenAt: time.Now().Add(-72 * time.Hour),
	}
}

func TestEvaluateGate_FullMatchScoresTen(t *testing.T) {
	res := EvaluateGate(testSnapshot(), resolvedListing(45000))
	if !res.Passed {
		t.Fatalf("expected pass, got blocked: %s", res.BlockedReason)
	}
	if res.Score < 9.99 {
		t.Fatalf("expected score ~10 for full match, got %.2f", res.Score)
	}
}

func TestEvaluateGate_EngineCodeMismatchBlocks(t *testing.T) {
	listing := resolvedListing(45000)
	listing.Identity.Resolved.EngineCode = "2GD"

	res := EvaluateGate(testSnapshot(), listing)
	if res.Passed {
		t.Fatal("expected gate failure on engine mismatch")
	}
	if res.BlockedReason != models.ReasonEngineMismatch {
		t.Fatalf("expected ENGINE_MISMATCH, got %s", res.BlockedReason)
	}
}

func TestEvaluateGate_SeriesMismatchBlocks(t *testing.T) {
	listing := resolvedListing(45000)
	listing.Identity.Resolved.SeriesFamily = "200 series"
	listing.Identity.Resolved.ModelRoot = ""

	res := EvaluateGate(testSnapshot(), listing)
	if res.Passed || res.BlockedReason != models.ReasonSeriesMismatch {
		t.Fatalf("expected SERIES_MISMATCH block, got passed=%v reason=%s", res.Passed, res.BlockedReason)
	}
}

func TestEvaluateGate_BodyMismatchBlocks(t *testing.T) {
	listing := resolvedListing(45000)
	listing.Identity.Resolved.BodyType = "wagon"

	res := EvaluateGate(testSnapshot(), listing)
	if res.Passed || res.BlockedReason != models.ReasonBodyMismatch {
		t.Fatalf("expected BODY_MISMATCH block, got passed=%v reason=%s", res.Passed, res.BlockedReason)
	}
}

func TestEvaluateGate_BadgeMismatchOnlyLowersScore(t *testing.T) {
	listing := resolvedListing(45000)
	listing.Identity.Resolved.Badge = "Workmate"

	res := EvaluateGate(testSnapshot(), listing)
	if !res.Passed {
		t.Fatalf("badge mismatch must not block, got %s", res.BlockedReason)
	}
	if res.Score >= 10 {
		t.Fatalf("expected reduced score on badge mismatch, got %.2f", res.Score)
	}
}

func TestEvaluateGate_StrictMissingTokenBlocks(t *testing.T) {
	snap := testSnapshot()
	snap.MustHaveMode = models.MustHaveStrict
	snap.MustHaveTokens = []string{"bullbar"}

	res := EvaluateGate(snap, resolvedListing(45000))
	if res.Passed || res.BlockedReason != models.ReasonMissingRequiredToken {
		t.Fatalf("expected MISSING_REQUIRED_TOKEN, got passed=%v reason=%s", res.Passed, res.BlockedReason)
	}
}

func TestEvaluateGate_SoftMissingTokenPasses(t *testing.T) {
	snap := testSnapshot()
	snap.MustHaveMode = models.MustHaveSoft
	snap.MustHaveTokens = []string{"bullbar"}

	res := EvaluateGate(snap, resolvedListing(45000))
	if !res.Passed {
		t.Fatalf("soft mode must not block on missing token, got %s", res.BlockedReason)
	}
}

func TestEvaluateGate_UnresolvedPassesBelowVerifiedThreshold(t *testing.T) {
	price := 45000.0
	listing := models.CandidateListing{
		ID:          uuid.New(),
		Identity:    models.IdentityFields{RawText: "toyota landcruiser 79 gxl 1gd cheap"},
		Price:       &price,
		FirstSeenAt: time.Now(),
	}

	res := EvaluateGate(testSnapshot(), listing)
	if !res.Passed {
		t.Fatalf("unresolved identity must pass, got blocked: %s", res.BlockedReason)
	}
	if res.Score >= VerifiedThreshold {
		t.Fatalf("unresolved score %.2f must stay below verified threshold %.2f", res.Score, VerifiedThreshold)
	}
}

func TestEvaluateGate_NotAListing(t *testing.T) {
	listing := models.CandidateListing{
		ID:          uuid.New(),
		Identity:    models.IdentityFields{RawText: "ten tips for winter driving"},
		FirstSeenAt: time.Now(),
	}

	res := EvaluateGate(testSnapshot(), listing)
	if res.Passed || res.BlockedReason != models.ReasonNotAListing {
		t.Fatalf("expected NOT_A_LISTING, got passed=%v reason=%s", res.Passed, res.BlockedReason)
	}
}

func TestEvaluateGate_UntaggedFieldIsNotAMismatch(t *testing.T) {
	listing := resolvedListing(45000)
	listing.Identity.Resolved.EngineCode = ""
	listing.Identity.Resolved.EngineFamily = ""

	res := EvaluateGate(testSnapshot(), listing)
	if !res.Passed {
		t.Fatalf("missing listing tag must not block, got %s", res.BlockedReason)
	}
	if res.Score >= 10 {
		t.Fatalf("missing tag should earn no engine credit, got %.2f", res.Score)
	}
}
