package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// memStore is an in-memory Store for scanner tests. Alert emission uses
// the same insert-if-absent contract as the SQL layer.
type memStore struct {
	mu       sync.Mutex
	snapshot CriteriaSnapshot
	snapErr  error

	matches map[string]models.HuntMatch // keyed hunt|listing|version
	alerts  map[string]models.HuntAlert // keyed dedup_key
	scans   map[uuid.UUID]models.HuntScan
}

func newMemStore(snap CriteriaSnapshot) *memStore {
	return &memStore{
		snapshot: snap,
		matches:  make(map[string]models.HuntMatch),
		alerts:   make(map[string]models.HuntAlert),
		scans:    make(map[uuid.UUID]models.HuntScan),
	}
}

func (m *memStore) HuntSnapshot(_ context.Context, _ uuid.UUID) (CriteriaSnapshot, error) {
	return m.snapshot, m.snapErr
}

func (m *memStore) MarkStale(_ context.Context, huntID uuid.UUID, currentVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, match := range m.matches {
		if match.HuntID == huntID && match.CriteriaVersion < currentVersion {
			match.IsStale = true
			m.matches[k] = match
		}
	}
	for k, alert := range m.alerts {
		if alert.HuntID == huntID && alert.CriteriaVersion < currentVersion {
			alert.IsStale = true
			m.alerts[k] = alert
		}
	}
	return nil
}

func (m *memStore) BeginScan(_ context.Context, huntID uuid.UUID, version int) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.scans[id] = models.HuntScan{ScanID: id, HuntID: huntID, Status: models.ScanRunning, CriteriaVersion: version, StartedAt: time.Now()}
	return id, nil
}

func (m *memStore) CompleteScan(_ context.Context, scanID uuid.UUID, scan models.HuntScan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan.ScanID = scanID
	now := time.Now()
	scan.CompletedAt = &now
	m.scans[scanID] = scan
	return nil
}

func (m *memStore) FailScan(_ context.Context, scanID uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan := m.scans[scanID]
	scan.Status = models.ScanError
	scan.Error = message
	now := time.Now()
	scan.CompletedAt = &now
	m.scans[scanID] = scan
	return nil
}

func (m *memStore) SaveMatches(_ context.Context, matches []models.HuntMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, match := range matches {
		key := fmt.Sprintf("%s|%s|%d", match.HuntID, match.ListingID, match.CriteriaVersion)
		m.matches[key] = match
	}
	return nil
}

func (m *memStore) EmitAlert(_ context.Context, alert models.HuntAlert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.alerts[alert.DedupKey]; exists {
		return false, nil
	}
	m.alerts[alert.DedupKey] = alert
	return true, nil
}

type memProvider struct {
	listings []models.CandidateListing
	coverage []models.SourceCoverage
	err      error
}

func (p *memProvider) Candidates(_ context.Context, _ CriteriaSnapshot) ([]models.CandidateListing, []models.SourceCoverage, error) {
	return p.listings, p.coverage, p.err
}

func okCoverage(source string, n int) models.SourceCoverage {
	return models.SourceCoverage{Source: source, Candidates: n}
}

func TestScanner_BuyEmitsAlertOnce(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	listing := resolvedListing(45000) // BUY under testSnapshot thresholds
	provider := &memProvider{
		listings: []models.CandidateListing{listing},
		coverage: []models.SourceCoverage{okCoverage("pickles", 1)},
	}
	scanner := NewScanner(store, provider, nil)

	first, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if first.Buy != 1 || first.AlertsEmitted != 1 {
		t.Fatalf("expected 1 BUY and 1 alert, got buy=%d alerts=%d", first.Buy, first.AlertsEmitted)
	}

	// Dedup idempotence: unchanged candidates and criteria emit nothing new.
	second, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if second.AlertsEmitted != 0 {
		t.Fatalf("second identical scan must emit 0 alerts, got %d", second.AlertsEmitted)
	}
	if second.Buy != 1 {
		t.Fatalf("second scan must still classify BUY, got %d", second.Buy)
	}
}

func TestScanner_DecisionFlipReAlerts(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	listing := resolvedListing(45000)
	provider := &memProvider{
		listings: []models.CandidateListing{listing},
		coverage: []models.SourceCoverage{okCoverage("pickles", 1)},
	}
	scanner := NewScanner(store, provider, nil)

	if _, err := scanner.Run(context.Background(), snap.HuntID); err != nil {
		t.Fatal(err)
	}

	// Price rises: BUY → WATCH is a distinct transition, alert again.
	watchPrice := 48500.0
	provider.listings[0].Price = &watchPrice
	summary, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Watch != 1 || summary.AlertsEmitted != 1 {
		t.Fatalf("expected WATCH re-alert, got watch=%d alerts=%d", summary.Watch, summary.AlertsEmitted)
	}

	// Price drops back: the (hunt, listing, BUY, version) tuple already
	// alerted, so the dedup key suppresses it.
	buyPrice := 45000.0
	provider.listings[0].Price = &buyPrice
	summary, err = scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.AlertsEmitted != 0 {
		t.Fatalf("identical BUY tuple must stay suppressed, got %d alerts", summary.AlertsEmitted)
	}
}

func TestScanner_CriteriaBumpStalesOldRowsAndReAlerts(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	listing := resolvedListing(45000)
	provider := &memProvider{
		listings: []models.CandidateListing{listing},
		coverage: []models.SourceCoverage{okCoverage("pickles", 1)},
	}
	scanner := NewScanner(store, provider, nil)

	if _, err := scanner.Run(context.Background(), snap.HuntID); err != nil {
		t.Fatal(err)
	}

	// Hunt edited: version bumps, old matches/alerts must go stale and
	// the same listing alerts again under the new version.
	store.snapshot.Version = 2
	summary, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.AlertsEmitted != 1 {
		t.Fatalf("new criteria version must re-alert, got %d", summary.AlertsEmitted)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	staleMatches, staleAlerts := 0, 0
	for _, m := range store.matches {
		if m.CriteriaVersion == 1 && m.IsStale {
			staleMatches++
		}
		if m.CriteriaVersion == 1 && !m.IsStale {
			t.Fatal("version-1 match still live after bump")
		}
	}
	for _, a := range store.alerts {
		if a.CriteriaVersion == 1 && a.IsStale {
			staleAlerts++
		}
	}
	if staleMatches == 0 || staleAlerts == 0 {
		t.Fatalf("expected stale version-1 rows, got matches=%d alerts=%d", staleMatches, staleAlerts)
	}
}

func TestScanner_InvalidConfigAbortsBeforeAnyWrite(t *testing.T) {
	snap := testSnapshot()
	snap.ProvenExitValue = 0
	store := newMemStore(snap)
	scanner := NewScanner(store, &memProvider{}, nil)

	_, err := scanner.Run(context.Background(), snap.HuntID)
	if !errors.Is(err, ErrInvalidHuntConfig) {
		t.Fatalf("expected ErrInvalidHuntConfig, got %v", err)
	}
	if len(store.scans) != 0 || len(store.matches) != 0 {
		t.Fatal("invalid config must abort before writing anything")
	}
}

func TestScanner_AllSourcesDownFailsScan(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	provider := &memProvider{
		coverage: []models.SourceCoverage{
			{Source: "pickles", Failed: true, Error: "timeout"},
			{Source: "gumtree", Failed: true, Error: "503"},
		},
	}
	scanner := NewScanner(store, provider, nil)

	_, err := scanner.Run(context.Background(), snap.HuntID)
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.scans) != 1 {
		t.Fatalf("expected one recorded scan, got %d", len(store.scans))
	}
	for _, scan := range store.scans {
		if scan.Status != models.ScanError {
			t.Fatalf("scan must be marked error, got %s", scan.Status)
		}
	}
}

func TestScanner_PartialSourceFailureIsAWarning(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	provider := &memProvider{
		listings: []models.CandidateListing{resolvedListing(45000)},
		coverage: []models.SourceCoverage{
			okCoverage("pickles", 1),
			{Source: "gumtree", Failed: true, Error: "timeout"},
		},
	}
	scanner := NewScanner(store, provider, nil)

	summary, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatalf("partial failure must not fail the scan: %v", err)
	}
	if len(summary.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", summary.Warnings)
	}
}

func TestScanner_RecordsRejectionHistogram(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)

	mismatch := resolvedListing(45000)
	mismatch.Identity.Resolved.EngineCode = "2GD"
	noPrice := resolvedListing(0)
	noPrice.Price = nil

	provider := &memProvider{
		listings: []models.CandidateListing{resolvedListing(45000), mismatch, noPrice},
		coverage: []models.SourceCoverage{okCoverage("pickles", 3)},
	}
	scanner := NewScanner(store, provider, nil)

	summary, err := scanner.Run(context.Background(), snap.HuntID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.CandidatesChecked != 3 {
		t.Fatalf("expected 3 checked, got %d", summary.CandidatesChecked)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, scan := range store.scans {
		if scan.Status != models.ScanOK {
			t.Fatalf("expected ok scan, got %s", scan.Status)
		}
		if scan.RejectionReasons[models.ReasonEngineMismatch] != 1 {
			t.Fatalf("histogram missing ENGINE_MISMATCH: %v", scan.RejectionReasons)
		}
		if scan.RejectionReasons[models.ReasonNoPrice] != 1 {
			t.Fatalf("histogram missing NO_PRICE: %v", scan.RejectionReasons)
		}
		if scan.CandidatesChecked != 3 || scan.AlertsEmitted != summary.AlertsEmitted {
			t.Fatalf("scan counts out of sync with summary: %+v", scan)
		}
	}
}

type stubLocker struct{ err error }

func (l *stubLocker) Acquire(_ context.Context, _ uuid.UUID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

func TestScanner_LockedHuntRefusesSecondScan(t *testing.T) {
	snap := testSnapshot()
	store := newMemStore(snap)
	scanner := NewScanner(store, &memProvider{coverage: []models.SourceCoverage{okCoverage("pickles", 0)}}, &stubLocker{err: ErrScanInProgress})

	_, err := scanner.Run(context.Background(), snap.HuntID)
	if !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
}
