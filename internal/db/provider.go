package db

import (
	"context"
	"sort"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// SourceRefresher pulls fresh listings from remote sources into the
// listings table before a scan reads them. ingest.Pipeline implements it.
type SourceRefresher interface {
	Refresh(ctx context.Context, sources []string) []models.SourceCoverage
}

// CandidateProvider feeds the scanner its candidate batch from the
// listings table, optionally refreshing sources first. With no
// refresher the scan runs over whatever ingestion last stored, which is
// also what the scheduler does between full ingest cycles.
type CandidateProvider struct {
	Store     *Store
	Refresher SourceRefresher
}

func (p *CandidateProvider) Candidates(ctx context.Context, snap engine.CriteriaSnapshot) ([]models.CandidateListing, []models.SourceCoverage, error) {
	var coverage []models.SourceCoverage
	if p.Refresher != nil {
		coverage = p.Refresher.Refresh(ctx, snap.Sources.EnabledSources)
	}

	listings, err := p.Store.ActiveListings(ctx, snap.Sources.EnabledSources, snap.Geo.States)
	if err != nil {
		return nil, coverage, err
	}

	counts, err := p.Store.SourceCounts(ctx, snap.Sources.EnabledSources)
	if err != nil {
		return nil, coverage, err
	}

	coverage = mergeCoverage(coverage, counts)
	return listings, coverage, nil
}

// mergeCoverage folds stored per-source counts into refresh coverage so
// the scan audit row reflects both fetch outcomes and batch sizes.
func mergeCoverage(coverage []models.SourceCoverage, counts map[string]int) []models.SourceCoverage {
	seen := make(map[string]int, len(coverage))
	for i, cov := range coverage {
		seen[cov.Source] = i
		if n, ok := counts[cov.Source]; ok && !cov.Failed {
			coverage[i].Candidates = n
		}
	}

	var missing []string
	for source := range counts {
		if _, ok := seen[source]; !ok {
			missing = append(missing, source)
		}
	}
	sort.Strings(missing)
	for _, source := range missing {
		coverage = append(coverage, models.SourceCoverage{Source: source, Candidates: counts[source]})
	}
	return coverage
}
