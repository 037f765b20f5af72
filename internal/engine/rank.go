package engine

import (
	"math"
	"sort"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// Evaluated is one candidate after the gate → gap → classify pipeline,
// ready for ranking and persistence.
type Evaluated struct {
	Listing       models.CandidateListing
	Gate          GateResult
	Gap           Gap
	Decision      models.Decision
	Reason        string
	PriorityScore float64
	IsCheapest    bool
}

// Rank orders candidates for display: auction tier before marketplace
// before dealer, then decision (BUY first), then identity score, then
// price (nils last), ties broken by earliest first-seen. It also stamps
// each candidate's PriorityScore and flags the cheapest passing one.
func Rank(evals []*Evaluated) {
	for _, e := range evals {
		e.PriorityScore = priorityScore(e.Listing.SourceTier, e.Decision, e.Gate.Score, e.Listing.Price)
		e.IsCheapest = false
	}

	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore < b.PriorityScore
		}
		return a.Listing.FirstSeenAt.Before(b.Listing.FirstSeenAt)
	})

	var cheapest *Evaluated
	for _, e := range evals {
		if e.Decision == models.DecisionIgnore || e.Listing.Price == nil {
			continue
		}
		if cheapest == nil || *e.Listing.Price < *cheapest.Listing.Price {
			cheapest = e
		}
	}
	if cheapest != nil {
		cheapest.IsCheapest = true
	}
}

func decisionRank(d models.Decision) int {
	switch d {
	case models.DecisionBuy:
		return 3
	case models.DecisionWatch:
		return 2
	case models.DecisionUnverified:
		return 1
	default:
		return 0
	}
}

// priceCeiling caps the price component of the priority encoding.
const priceCeiling = 10_000_000

// priorityScore is a monotonic numeric encoding of the ranking key
// (lower sorts first) so storage layers can ORDER BY it without
// recomputation. Identity score is quantized to 0.1 steps and price to
// dollars so the components never bleed into each other:
//
//	tier*1e6 + (3-decision_rank)*1e5 + (100 - score*10)*1e2 + price/1e5*100
func priorityScore(tier int, decision models.Decision, score float64, price *float64) float64 {
	scoreSteps := math.Round((10 - score) * 10) // 0..100
	if scoreSteps < 0 {
		scoreSteps = 0
	}

	priceTerm := 99.99 // nil price sorts last within its score band
	if price != nil {
		p := *price
		if p < 0 {
			p = 0
		}
		if p > priceCeiling {
			p = priceCeiling
		}
		priceTerm = p / priceCeiling * 99.9
	}

	return float64(tier)*1e6 + float64(3-decisionRank(decision))*1e5 + scoreSteps*1e2 + priceTerm
}
