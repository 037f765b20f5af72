package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/ingest"
)

// Scheduler drives the two background loops: a frequent tick that scans
// hunts whose interval has elapsed, and a slower full-ingest cycle that
// refreshes every active source.
type Scheduler struct {
	Store    *db.Store
	Scanner  *engine.Scanner
	Pipeline *ingest.Pipeline
	Signal   *db.AlertSignal // optional

	ScanTickSpec   string // default "@every 1m"
	IngestLoopSpec string // default "@every 30m"

	cron *cron.Cron
	mu   sync.Mutex
}

func New(store *db.Store, scanner *engine.Scanner, pipeline *ingest.Pipeline, signal *db.AlertSignal) *Scheduler {
	return &Scheduler{
		Store:          store,
		Scanner:        scanner,
		Pipeline:       pipeline,
		Signal:         signal,
		ScanTickSpec:   "@every 1m",
		IngestLoopSpec: "@every 30m",
	}
}

// Start registers the cron jobs and begins ticking. Returns after
// scheduling; jobs run on the cron goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	c := cron.New()

	if _, err := c.AddFunc(s.ScanTickSpec, func() { s.scanDueHunts(ctx) }); err != nil {
		return err
	}
	if s.Pipeline != nil {
		if _, err := c.AddFunc(s.IngestLoopSpec, func() { s.ingestAll(ctx) }); err != nil {
			return err
		}
	}

	c.Start()
	s.cron = c
	log.Printf("[scheduler] started: scan tick %s, ingest loop %s", s.ScanTickSpec, s.IngestLoopSpec)
	return nil
}

// Stop halts the cron loops and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	log.Printf("[scheduler] stopped")
}

// scanDueHunts runs one scan per hunt whose interval has elapsed.
// Failures are per-hunt: one broken hunt never blocks the rest.
func (s *Scheduler) scanDueHunts(ctx context.Context) {
	due, err := s.Store.DueHunts(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("[scheduler] due-hunt query failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	log.Printf("[scheduler] %d hunts due for scan", len(due))
	for _, huntID := range due {
		summary, err := s.Scanner.Run(ctx, huntID)
		switch {
		case errors.Is(err, engine.ErrScanInProgress):
			// Another scan already holds this hunt, e.g. an operator
			// triggered one manually. Skip quietly.
			continue
		case err != nil:
			log.Printf("[scheduler] scan failed for hunt %s: %v", huntID, err)
			continue
		}

		log.Printf("[scheduler] hunt %s: checked=%d matches=%d alerts=%d",
			huntID, summary.CandidatesChecked, summary.MatchesFound, summary.AlertsEmitted)
		if s.Signal != nil {
			s.Signal.NewAlerts(ctx, huntID, summary.AlertsEmitted)
		}
	}
}

func (s *Scheduler) ingestAll(ctx context.Context) {
	results, err := s.Pipeline.IngestAll(ctx)
	if err != nil {
		log.Printf("[scheduler] ingest cycle failed: %v", err)
		return
	}
	total := 0
	for _, stats := range results {
		total += stats.TotalSaved
	}
	log.Printf("[scheduler] ingest cycle done: %d listings saved across %d sources", total, len(results))
}
