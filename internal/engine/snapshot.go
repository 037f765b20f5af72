package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

var (
	// ErrInvalidHuntConfig aborts a scan before any write.
	ErrInvalidHuntConfig = errors.New("invalid hunt config")

	// ErrScanInProgress means another scan holds this hunt's lock.
	ErrScanInProgress = errors.New("scan already in progress for hunt")

	// ErrNoSources means every configured source failed to provide candidates.
	ErrNoSources = errors.New("no sources available")
)

// GateWeights are the tunable contributions of each identity sub-check.
// The sum is the denominator used to normalize scores to 0..10.
type GateWeights struct {
	Series float64
	Engine float64
	Body   float64
	Badge  float64
	Tokens float64
}

// DefaultGateWeights reflect how discriminating each field is in practice:
// series family narrows the hardest, engine next, the rest refine.
func DefaultGateWeights() GateWeights {
	return GateWeights{Series: 3.0, Engine: 2.5, Body: 1.5, Badge: 1.5, Tokens: 1.5}
}

func (w GateWeights) total() float64 {
	return w.Series + w.Engine + w.Body + w.Badge + w.Tokens
}

// VerifiedThreshold is the identity score at or above which a candidate
// counts as identity-verified. Below it a passing candidate is tagged
// UNVERIFIED rather than rejected.
const VerifiedThreshold = 6.0

// unresolvedScoreCap keeps text-only candidates below VerifiedThreshold
// so they surface as UNVERIFIED, never as false negatives.
const unresolvedScoreCap = 4.0

// CriteriaSnapshot is the immutable copy of a hunt's criteria taken at
// scan start. The scan completes under this version even if a concurrent
// edit bumps the hunt mid-scan; the version check on the next scan
// subsumes it.
type CriteriaSnapshot struct {
	HuntID            uuid.UUID
	Version           int
	Identity          models.IdentityTarget
	ProvenExitValue   float64
	Thresholds        models.Thresholds
	MustHaveTokens    []string
	MustHaveMode      models.MustHaveMode
	Sources           models.SourceScope
	Geo               models.GeoScope
	Weights           GateWeights
	VerifiedThreshold float64
}

// SnapshotFromHunt freezes the fields a scan needs. Callers must not
// hold a reference to the live hunt record afterwards.
func SnapshotFromHunt(h models.Hunt) CriteriaSnapshot {
	tokens := make([]string, len(h.MustHaveTokens))
	copy(tokens, h.MustHaveTokens)

	return CriteriaSnapshot{
		HuntID:            h.ID,
		Version:           h.CriteriaVersion,
		Identity:          h.Identity,
		ProvenExitValue:   h.ProvenExitValue,
		Thresholds:        h.Thresholds,
		MustHaveTokens:    tokens,
		MustHaveMode:      h.MustHaveMode,
		Sources:           h.Sources,
		Geo:               h.Geo,
		Weights:           DefaultGateWeights(),
		VerifiedThreshold: VerifiedThreshold,
	}
}

// Validate rejects configurations that would make every decision
// meaningless. Fatal before any match is written.
func (s CriteriaSnapshot) Validate() error {
	if s.ProvenExitValue <= 0 {
		return fmt.Errorf("%w: proven_exit_value must be positive, got %.2f", ErrInvalidHuntConfig, s.ProvenExitValue)
	}

	t := s.Thresholds
	if t.MinGapAbsBuy < 0 || t.MinGapAbsWatch < 0 || t.MinGapPctBuy < 0 || t.MinGapPctWatch < 0 {
		return fmt.Errorf("%w: gap thresholds must be non-negative", ErrInvalidHuntConfig)
	}
	if t.MinGapAbsBuy < t.MinGapAbsWatch || t.MinGapPctBuy < t.MinGapPctWatch {
		return fmt.Errorf("%w: BUY thresholds must not be looser than WATCH thresholds", ErrInvalidHuntConfig)
	}
	if t.MaxListingAgeDaysBuy <= 0 || t.MaxListingAgeDaysWatch <= 0 {
		return fmt.Errorf("%w: listing age ceilings must be positive", ErrInvalidHuntConfig)
	}
	if s.Weights.total() <= 0 {
		return fmt.Errorf("%w: gate weights sum to zero", ErrInvalidHuntConfig)
	}
	if s.MustHaveMode != "" && s.MustHaveMode != models.MustHaveSoft && s.MustHaveMode != models.MustHaveStrict {
		return fmt.Errorf("%w: unknown must_have_mode %q", ErrInvalidHuntConfig, s.MustHaveMode)
	}

	return nil
}
