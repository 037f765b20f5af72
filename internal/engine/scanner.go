package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// Store is the persistence surface a scan needs. db.Store implements it.
type Store interface {
	HuntSnapshot(ctx context.Context, huntID uuid.UUID) (CriteriaSnapshot, error)
	MarkStale(ctx context.Context, huntID uuid.UUID, currentVersion int) error
	BeginScan(ctx context.Context, huntID uuid.UUID, criteriaVersion int) (uuid.UUID, error)
	CompleteScan(ctx context.Context, scanID uuid.UUID, scan models.HuntScan) error
	FailScan(ctx context.Context, scanID uuid.UUID, message string) error
	SaveMatches(ctx context.Context, matches []models.HuntMatch) error
	// EmitAlert inserts an alert unless its dedup key already exists.
	// Returns false when suppressed. The insert-if-absent is what
	// serializes emission across concurrent scans.
	EmitAlert(ctx context.Context, alert models.HuntAlert) (bool, error)
}

// Provider hands a scan its already-fetched candidate batch together
// with per-source coverage (including failed sources).
type Provider interface {
	Candidates(ctx context.Context, snap CriteriaSnapshot) ([]models.CandidateListing, []models.SourceCoverage, error)
}

// Locker guards against two concurrent scans of the same hunt. Acquire
// returns ErrScanInProgress when the lock is held; the release func is
// safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, huntID uuid.UUID) (release func(), err error)
}

// Summary is what the "run scan" caller gets back.
type Summary struct {
	ScanID            uuid.UUID `json:"scan_id"`
	CandidatesChecked int       `json:"candidates_checked"`
	MatchesFound      int       `json:"matches_found"`
	Buy               int       `json:"buy"`
	Watch             int       `json:"watch"`
	Unverified        int       `json:"unverified"`
	AlertsEmitted     int       `json:"alerts_emitted"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// Scanner runs one hunt's scan cycle as a short-lived batch job.
type Scanner struct {
	Store    Store
	Provider Provider
	Locker   Locker // optional
	Workers  int
	Timeout  time.Duration
	Now      func() time.Time
}

func NewScanner(store Store, provider Provider, locker Locker) *Scanner {
	return &Scanner{
		Store:    store,
		Provider: provider,
		Locker:   locker,
		Workers:  8,
		Timeout:  2 * time.Minute,
		Now:      time.Now,
	}
}

// Run executes one scan: snapshot → gate → gap → classify → rank →
// persist matches → emit deduplicated alerts → record the audit row.
// Criteria are read once at the start and held fixed; a concurrent edit
// only affects the next scan.
func (s *Scanner) Run(ctx context.Context, huntID uuid.UUID) (Summary, error) {
	snap, err := s.Store.HuntSnapshot(ctx, huntID)
	if err != nil {
		return Summary{}, fmt.Errorf("loading hunt %s: %w", huntID, err)
	}
	if err := snap.Validate(); err != nil {
		return Summary{}, err
	}

	if s.Locker != nil {
		release, err := s.Locker.Acquire(ctx, huntID)
		if err != nil {
			return Summary{}, err
		}
		defer release()
	}

	// Sweep stale rows from older criteria versions before writing new ones.
	if err := s.Store.MarkStale(ctx, huntID, snap.Version); err != nil {
		return Summary{}, fmt.Errorf("stale sweep: %w", err)
	}

	scanID, err := s.Store.BeginScan(ctx, huntID, snap.Version)
	if err != nil {
		return Summary{}, fmt.Errorf("recording scan start: %w", err)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	summary, scanErr := s.run(ctx, scanID, snap)
	summary.ScanID = scanID
	if scanErr != nil {
		if failErr := s.Store.FailScan(context.WithoutCancel(ctx), scanID, scanErr.Error()); failErr != nil {
			log.Printf("[scan %s] failed to mark scan as errored: %v", scanID, failErr)
		}
		return summary, scanErr
	}
	return summary, nil
}

func (s *Scanner) run(ctx context.Context, scanID uuid.UUID, snap CriteriaSnapshot) (Summary, error) {
	now := s.Now().UTC()

	listings, coverage, err := s.Provider.Candidates(ctx, snap)
	if err != nil {
		return Summary{}, fmt.Errorf("candidate batch: %w", err)
	}

	var warnings []string
	okSources := 0
	for _, cov := range coverage {
		if cov.Failed {
			warnings = append(warnings, fmt.Sprintf("SOURCE_UNAVAILABLE: %s: %s", cov.Source, cov.Error))
		} else {
			okSources++
		}
	}
	if len(coverage) > 0 && okSources == 0 {
		return Summary{Warnings: warnings}, ErrNoSources
	}

	evals := s.evaluateAll(snap, listings, now)
	Rank(evals)

	matches := make([]models.HuntMatch, 0, len(evals))
	histogram := make(map[string]int)
	summary := Summary{CandidatesChecked: len(evals), Warnings: warnings}

	for _, e := range evals {
		var reason *string
		if e.Reason != "" {
			r := e.Reason
			reason = &r
			histogram[r]++
		}

		matches = append(matches, models.HuntMatch{
			HuntID:          snap.HuntID,
			ListingID:       e.Listing.ID,
			CriteriaVersion: snap.Version,
			IdentityScore:   e.Gate.Score,
			Decision:        e.Decision,
			GapDollars:      e.Gap.GapDollars,
			GapPct:          e.Gap.GapPct,
			ListingAgeDays:  e.Gap.ListingAgeDays,
			BlockedReason:   reason,
			PriorityScore:   e.PriorityScore,
			IsCheapest:      e.IsCheapest,
			MatchedAt:       now,
		})

		switch e.Decision {
		case models.DecisionBuy:
			summary.Buy++
		case models.DecisionWatch:
			summary.Watch++
		case models.DecisionUnverified:
			summary.Unverified++
		}
	}
	summary.MatchesFound = summary.Buy + summary.Watch + summary.Unverified

	if err := s.Store.SaveMatches(ctx, matches); err != nil {
		return summary, fmt.Errorf("STORAGE_WRITE_FAILURE: saving matches: %w", err)
	}

	for _, e := range evals {
		if e.Decision != models.DecisionBuy && e.Decision != models.DecisionWatch {
			continue
		}
		alert := models.HuntAlert{
			ID:              uuid.New(),
			HuntID:          snap.HuntID,
			ListingID:       e.Listing.ID,
			AlertType:       e.Decision,
			CriteriaVersion: snap.Version,
			DedupKey:        DedupKey(snap.HuntID, e.Listing.ID, e.Decision, snap.Version),
			Payload: models.AlertPayload{
				Title:         e.Listing.Identity.RawText,
				URL:           e.Listing.URL,
				SourceName:    e.Listing.SourceName,
				Price:         e.Listing.Price,
				GapDollars:    e.Gap.GapDollars,
				GapPct:        e.Gap.GapPct,
				IdentityScore: e.Gate.Score,
			},
			CreatedAt: now,
		}
		emitted, err := s.Store.EmitAlert(ctx, alert)
		if err != nil {
			return summary, fmt.Errorf("STORAGE_WRITE_FAILURE: emitting alert: %w", err)
		}
		if emitted {
			summary.AlertsEmitted++
		}
	}

	completedScan := models.HuntScan{
		ScanID:            scanID,
		HuntID:            snap.HuntID,
		Status:            models.ScanOK,
		CriteriaVersion:   snap.Version,
		CandidatesChecked: summary.CandidatesChecked,
		MatchesFound:      summary.MatchesFound,
		AlertsEmitted:     summary.AlertsEmitted,
		RejectionReasons:  histogram,
		Sources:           coverage,
	}
	if err := s.Store.CompleteScan(ctx, scanID, completedScan); err != nil {
		return summary, fmt.Errorf("STORAGE_WRITE_FAILURE: completing scan: %w", err)
	}

	return summary, nil
}

// evaluateAll runs gate → gap → classify across a bounded worker pool.
// Each worker reads only its own listing plus the immutable snapshot.
func (s *Scanner) evaluateAll(snap CriteriaSnapshot, listings []models.CandidateListing, now time.Time) []*Evaluated {
	evals := make([]*Evaluated, len(listings))

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				evals[i] = s.evaluateOne(snap, listings[i], now)
			}
		}()
	}
	for i := range listings {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return evals
}

// evaluateOne classifies a single candidate. One bad row must never fail
// the batch: a panic downgrades that candidate to UNVERIFIED.
func (s *Scanner) evaluateOne(snap CriteriaSnapshot, listing models.CandidateListing, now time.Time) (out *Evaluated) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] candidate %s evaluation panicked, downgrading to UNVERIFIED: %v", listing.ID, r)
			out = &Evaluated{
				Listing:  listing,
				Decision: models.DecisionUnverified,
				Reason:   models.ReasonLowIdentityConf,
			}
		}
	}()

	gate := EvaluateGate(snap, listing)
	gap := ComputeGap(snap.ProvenExitValue, listing.Price, listing.FirstSeenAt, now)
	ev := ensureDecision(snap.HuntID.String(), Classify(snap, gate, gap))

	return &Evaluated{
		Listing:  listing,
		Gate:     gate,
		Gap:      gap,
		Decision: ev.Decision,
		Reason:   ev.Reason,
	}
}
