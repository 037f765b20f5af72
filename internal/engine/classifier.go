package engine

import (
	"log"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// Evaluation is one classification outcome. Reason is empty for BUY.
type Evaluation struct {
	Decision models.Decision
	Reason   string
}

// Classify combines the gate verdict, price gap and listing age into a
// single decision. Pure and deterministic: identical inputs always yield
// the identical decision and reason. Rules are evaluated in order, first
// match wins; thresholds are inclusive (>= / <=), and both the absolute
// and percentage gap must independently clear a tier.
func Classify(snap CriteriaSnapshot, gate GateResult, gap Gap) Evaluation {
	if !gate.Passed {
		return Evaluation{Decision: models.DecisionIgnore, Reason: gate.BlockedReason}
	}

	if gap.GapDollars == nil || gap.GapPct == nil {
		return Evaluation{Decision: models.DecisionUnverified, Reason: models.ReasonNoPrice}
	}

	t := snap.Thresholds
	dollars, pct := *gap.GapDollars, *gap.GapPct

	buyGap := dollars >= t.MinGapAbsBuy && pct >= t.MinGapPctBuy
	watchGap := dollars >= t.MinGapAbsWatch && pct >= t.MinGapPctWatch

	if buyGap && gap.ListingAgeDays <= t.MaxListingAgeDaysBuy {
		return Evaluation{Decision: models.DecisionBuy}
	}
	if watchGap && gap.ListingAgeDays <= t.MaxListingAgeDaysWatch {
		return Evaluation{Decision: models.DecisionWatch, Reason: ""}
	}

	if gate.Score < snap.VerifiedThreshold {
		return Evaluation{Decision: models.DecisionUnverified, Reason: models.ReasonLowIdentityConf}
	}

	// A gap that cleared a tier but aged out is distinct from a gap that
	// was never big enough.
	if buyGap || watchGap {
		return Evaluation{Decision: models.DecisionIgnore, Reason: models.ReasonStaleListing}
	}
	return Evaluation{Decision: models.DecisionIgnore, Reason: models.ReasonGapInsufficient}
}

// ensureDecision is the defensive fallback for an outcome the rule order
// should make impossible. It never fires in practice; if it does, the
// candidate lands in IGNORE and the log makes the defect visible.
func ensureDecision(huntID string, ev Evaluation) Evaluation {
	switch ev.Decision {
	case models.DecisionBuy, models.DecisionWatch, models.DecisionUnverified, models.DecisionIgnore:
		return ev
	}
	log.Printf("[engine] CLASSIFIER_FALLBACK: hunt=%s produced decision %q, this is a bug", huntID, ev.Decision)
	return Evaluation{Decision: models.DecisionIgnore, Reason: models.ReasonClassifierFallback}
}
