package engine

import "time"

// Gap is the price attractiveness of a candidate relative to a hunt's
// proven exit value. GapDollars and GapPct are nil when the candidate
// has no price; such candidates can never resolve to BUY or WATCH.
type Gap struct {
	GapDollars     *float64
	GapPct         *float64
	ListingAgeDays int
}

// ComputeGap derives the dollar and percentage gap plus listing age.
// Positive gap means the candidate is cheaper than the proven exit.
func ComputeGap(provenExitValue float64, price *float64, firstSeenAt, now time.Time) Gap {
	age := 0
	if now.After(firstSeenAt) {
		age = int(now.Sub(firstSeenAt).Hours() / 24)
	}

	if price == nil {
		return Gap{ListingAgeDays: age}
	}

	dollars := provenExitValue - *price
	pct := 0.0
	if provenExitValue != 0 {
		pct = dollars / provenExitValue * 100
	}

	return Gap{GapDollars: &dollars, GapPct: &pct, ListingAgeDays: age}
}
