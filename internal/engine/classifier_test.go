package engine

import (
	"testing"
	"time"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

func gapFor(t *testing.T, snap CriteriaSnapshot, price float64, ageDays int) Gap {
	t.Helper()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	firstSeen := now.Add(-time.Duration(ageDays) * 24 * time.Hour)
	return ComputeGap(snap.ProvenExitValue, &price, firstSeen, now)
}

func passingGate() GateResult {
	return GateResult{Passed: true, Score: 10}
}

func TestClassify_BuyScenario(t *testing.T) {
	snap := testSnapshot()
	// price=45000 → gap=5000 (10%), age=3d: clears every BUY threshold.
	ev := Classify(snap, passingGate(), gapFor(t, snap, 45000, 3))
	if ev.Decision != models.DecisionBuy {
		t.Fatalf("expected BUY, got %s (%s)", ev.Decision, ev.Reason)
	}
	if ev.Reason != "" {
		t.Fatalf("BUY must carry no reason, got %s", ev.Reason)
	}
}

func TestClassify_WatchScenario(t *testing.T) {
	snap := testSnapshot()
	// price=48500 → gap=1500 (3%): fails BUY, clears WATCH (1000 abs, 2 pct).
	ev := Classify(snap, passingGate(), gapFor(t, snap, 48500, 3))
	if ev.Decision != models.DecisionWatch {
		t.Fatalf("expected WATCH, got %s (%s)", ev.Decision, ev.Reason)
	}
}

func TestClassify_ThresholdsAreInclusive(t *testing.T) {
	snap := testSnapshot()
	// Exactly at every BUY threshold: gap=3000 (exactly min abs), pct=6%
	// needs adjusting so both land exactly on the line. Use exit=60000,
	// buy abs=3000, buy pct=5 → price=57000 gives gap=3000, pct=5.
	snap.ProvenExitValue = 60000
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	price := 57000.0
	firstSeen := now.Add(-time.Duration(snap.Thresholds.MaxListingAgeDaysBuy) * 24 * time.Hour)
	gap := ComputeGap(snap.ProvenExitValue, &price, firstSeen, now)

	if gap.GapDollars == nil || *gap.GapDollars != snap.Thresholds.MinGapAbsBuy {
		t.Fatalf("test setup: gap dollars = %v, want exactly %v", gap.GapDollars, snap.Thresholds.MinGapAbsBuy)
	}
	if *gap.GapPct != snap.Thresholds.MinGapPctBuy {
		t.Fatalf("test setup: gap pct = %v, want exactly %v", *gap.GapPct, snap.Thresholds.MinGapPctBuy)
	}
	if gap.ListingAgeDays != snap.Thresholds.MaxListingAgeDaysBuy {
		t.Fatalf("test setup: age = %d, want exactly %d", gap.ListingAgeDays, snap.Thresholds.MaxListingAgeDaysBuy)
	}

	ev := Classify(snap, passingGate(), gap)
	if ev.Decision != models.DecisionBuy {
		t.Fatalf("candidate exactly at all BUY thresholds must be BUY, got %s (%s)", ev.Decision, ev.Reason)
	}
}

func TestClassify_GatePrecedenceOverPrice(t *testing.T) {
	snap := testSnapshot()
	gate := GateResult{Passed: false, BlockedReason: models.ReasonEngineMismatch}
	// Ridiculously favorable gap: still IGNORE.
	ev := Classify(snap, gate, gapFor(t, snap, 10000, 1))
	if ev.Decision != models.DecisionIgnore {
		t.Fatalf("gate failure must be IGNORE regardless of gap, got %s", ev.Decision)
	}
	if ev.Reason != models.ReasonEngineMismatch {
		t.Fatalf("expected gate reason carried through, got %s", ev.Reason)
	}
}

func TestClassify_NoPriceIsUnverified(t *testing.T) {
	snap := testSnapshot()
	now := time.Now()
	gap := ComputeGap(snap.ProvenExitValue, nil, now.Add(-24*time.Hour), now)

	ev := Classify(snap, passingGate(), gap)
	if ev.Decision != models.DecisionUnverified || ev.Reason != models.ReasonNoPrice {
		t.Fatalf("expected UNVERIFIED/NO_PRICE, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestClassify_LowIdentityConfidence(t *testing.T) {
	snap := testSnapshot()
	gate := GateResult{Passed: true, Score: 3.5} // below verified threshold
	// Gap too small for either tier.
	ev := Classify(snap, gate, gapFor(t, snap, 49800, 3))
	if ev.Decision != models.DecisionUnverified || ev.Reason != models.ReasonLowIdentityConf {
		t.Fatalf("expected UNVERIFIED/LOW_IDENTITY_CONFIDENCE, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestClassify_AgedOutIsStaleListing(t *testing.T) {
	snap := testSnapshot()
	// Gap clears BUY but the listing is 60 days old, past both ceilings.
	ev := Classify(snap, passingGate(), gapFor(t, snap, 45000, 60))
	if ev.Decision != models.DecisionIgnore || ev.Reason != models.ReasonStaleListing {
		t.Fatalf("expected IGNORE/STALE_LISTING, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestClassify_GapInsufficient(t *testing.T) {
	snap := testSnapshot()
	ev := Classify(snap, passingGate(), gapFor(t, snap, 49900, 3))
	if ev.Decision != models.DecisionIgnore || ev.Reason != models.ReasonGapInsufficient {
		t.Fatalf("expected IGNORE/GAP_INSUFFICIENT, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestClassify_BothGapLegsMustClear(t *testing.T) {
	snap := testSnapshot()
	// Huge absolute gap on a huge exit value, tiny percentage: exit 1M,
	// price 996000 → gap 4000 (0.4%). Abs clears BUY, pct clears nothing.
	snap.ProvenExitValue = 1_000_000
	ev := Classify(snap, passingGate(), gapFor(t, snap, 996000, 3))
	if ev.Decision != models.DecisionIgnore || ev.Reason != models.ReasonGapInsufficient {
		t.Fatalf("abs-only gap must not qualify, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	snap := testSnapshot()
	gate := passingGate()
	gap := gapFor(t, snap, 46500, 5)

	first := Classify(snap, gate, gap)
	for i := 0; i < 50; i++ {
		if got := Classify(snap, gate, gap); got != first {
			t.Fatalf("classification not deterministic: %v vs %v", got, first)
		}
	}
}

func TestEnsureDecision_FallbackToIgnore(t *testing.T) {
	ev := ensureDecision("hunt", Evaluation{Decision: "BOGUS"})
	if ev.Decision != models.DecisionIgnore || ev.Reason != models.ReasonClassifierFallback {
		t.Fatalf("expected IGNORE/CLASSIFIER_FALLBACK, got %s/%s", ev.Decision, ev.Reason)
	}
}

func TestComputeGap_AgeFloor(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	firstSeen := now.Add(-47 * time.Hour) // 1.96 days
	price := 40000.0

	gap := ComputeGap(50000, &price, firstSeen, now)
	if gap.ListingAgeDays != 1 {
		t.Fatalf("expected floor(47h/24h)=1, got %d", gap.ListingAgeDays)
	}
	if gap.GapDollars == nil || *gap.GapDollars != 10000 {
		t.Fatalf("expected gap 10000, got %v", gap.GapDollars)
	}
	if *gap.GapPct != 20 {
		t.Fatalf("expected gap pct 20, got %v", *gap.GapPct)
	}
}
