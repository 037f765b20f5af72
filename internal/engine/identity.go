package engine

import (
	"strings"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// GateResult is the identity gate's verdict for one candidate.
type GateResult struct {
	Passed        bool
	Score         float64 // 0..10
	BlockedReason string  // empty when not blocked
}

// EvaluateGate checks whether a candidate's vehicle identity is
// compatible with the hunt's target. Sub-checks run in a fixed order:
// series/model-root, engine family/code, body/cab type, badge, then
// must-have tokens. Each earns a partial weight; the sum is normalized
// to 0..10.
//
// Candidates whose identity could not be resolved into structured tags
// are not rejected: they pass with a score capped below the verified
// threshold and surface downstream as UNVERIFIED.
func EvaluateGate(snap CriteriaSnapshot, listing models.CandidateListing) GateResult {
	raw := strings.ToLower(listing.Identity.RawText)

	if notAListing(snap, listing, raw) {
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonNotAListing}
	}

	if listing.Identity.Resolved == nil {
		return evaluateUnresolved(snap, raw)
	}

	return evaluateResolved(snap, *listing.Identity.Resolved, raw)
}

// notAListing flags pages that carry neither a price nor any plausible
// vehicle identity. News and review pages misidentified as listings land
// here instead of polluting the UNVERIFIED bucket.
func notAListing(snap CriteriaSnapshot, listing models.CandidateListing, raw string) bool {
	if listing.Price != nil {
		return false
	}
	if listing.Identity.Resolved != nil {
		return false
	}
	if strings.TrimSpace(raw) == "" {
		return true
	}

	for _, hint := range []string{snap.Identity.Make, snap.Identity.Model, snap.Identity.ModelRoot, snap.Identity.SeriesFamily} {
		if hint != "" && strings.Contains(raw, strings.ToLower(hint)) {
			return false
		}
	}
	return true
}

func evaluateUnresolved(snap CriteriaSnapshot, raw string) GateResult {
	w := snap.Weights
	earned := 0.0

	// Text hints earn partial series/engine credit but can never verify.
	if hit(raw, snap.Identity.ModelRoot) || hit(raw, snap.Identity.SeriesFamily) || hit(raw, snap.Identity.Model) {
		earned += w.Series / 2
	}
	if hit(raw, snap.Identity.EngineCode) || hit(raw, snap.Identity.EngineFamily) {
		earned += w.Engine / 2
	}
	if hit(raw, snap.Identity.Badge) {
		earned += w.Badge / 2
	}

	found, missing := tokenHits(snap.MustHaveTokens, raw)
	if missing > 0 && snap.MustHaveMode == models.MustHaveStrict {
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonMissingRequiredToken}
	}
	earned += tokenWeight(w.Tokens, found, len(snap.MustHaveTokens))

	score := normalize(earned, w.total())
	if score > unresolvedScoreCap {
		score = unresolvedScoreCap
	}
	return GateResult{Passed: true, Score: score}
}

func evaluateResolved(snap CriteriaSnapshot, id models.ResolvedIdentity, raw string) GateResult {
	w := snap.Weights
	target := snap.Identity
	earned := 0.0

	// Series / model root. A tagged value that contradicts the hunt is a
	// hard block; an untagged field earns nothing but does not block.
	switch matchField(firstNonEmpty(target.SeriesFamily, target.ModelRoot), firstNonEmpty(id.SeriesFamily, id.ModelRoot)) {
	case fieldMatch, fieldUnconstrained:
		earned += w.Series
	case fieldMismatch:
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonSeriesMismatch}
	}

	switch matchField(firstNonEmpty(target.EngineCode, target.EngineFamily), firstNonEmpty(id.EngineCode, id.EngineFamily)) {
	case fieldMatch, fieldUnconstrained:
		earned += w.Engine
	case fieldMismatch:
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonEngineMismatch}
	}

	bodyOutcome := matchField(target.BodyType, id.BodyType)
	cabOutcome := matchField(target.CabType, id.CabType)
	if bodyOutcome == fieldMismatch || cabOutcome == fieldMismatch {
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonBodyMismatch}
	}
	if bodyOutcome != fieldUnknown && cabOutcome != fieldUnknown {
		earned += w.Body
	} else if bodyOutcome == fieldMatch || cabOutcome == fieldMatch {
		earned += w.Body / 2
	} else if bodyOutcome == fieldUnconstrained && cabOutcome == fieldUnconstrained {
		earned += w.Body
	}

	// Badge mismatches demote the score, never block: badge swaps are
	// common and cheap to verify by eye.
	if matchField(target.Badge, id.Badge) == fieldMatch || target.Badge == "" {
		earned += w.Badge
	}

	haystack := raw + " " + strings.ToLower(strings.Join([]string{
		id.Make, id.Model, id.ModelRoot, id.SeriesFamily, id.Badge, id.BodyType, id.EngineCode, id.CabType,
	}, " "))
	found, missing := tokenHits(snap.MustHaveTokens, haystack)
	if missing > 0 && snap.MustHaveMode == models.MustHaveStrict {
		return GateResult{Passed: false, Score: 0, BlockedReason: models.ReasonMissingRequiredToken}
	}
	earned += tokenWeight(w.Tokens, found, len(snap.MustHaveTokens))

	return GateResult{Passed: true, Score: normalize(earned, w.total())}
}

type fieldOutcome int

const (
	fieldUnconstrained fieldOutcome = iota // hunt does not specify the field
	fieldUnknown                           // hunt specifies it, listing tag missing
	fieldMatch
	fieldMismatch
)

func matchField(want, got string) fieldOutcome {
	want = strings.ToLower(strings.TrimSpace(want))
	got = strings.ToLower(strings.TrimSpace(got))

	if want == "" {
		return fieldUnconstrained
	}
	if got == "" {
		return fieldUnknown
	}
	if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
		return fieldMatch
	}
	return fieldMismatch
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func hit(haystack, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	return needle != "" && strings.Contains(haystack, needle)
}

func tokenHits(tokens []string, haystack string) (found, missing int) {
	for _, tok := range tokens {
		if hit(haystack, tok) {
			found++
		} else {
			missing++
		}
	}
	return found, missing
}

// tokenWeight awards the full token weight when no tokens are required.
func tokenWeight(weight float64, found, required int) float64 {
	if required == 0 {
		return weight
	}
	return weight * float64(found) / float64(required)
}

func normalize(earned, total float64) float64 {
	if total <= 0 {
		return 0
	}
	score := earned / total * 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
