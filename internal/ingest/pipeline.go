package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// Pipeline turns raw scraped listings into normalized rows in the
// listings table. Strategies call SaveRaw per item; the scheduler and
// scan path call Refresh/IngestAll.
type Pipeline struct {
	Store    *db.Store
	Fetcher  Fetcher
	Registry *Registry
	Now      func() time.Time
}

func NewPipeline(store *db.Store, fetcher Fetcher, registry *Registry) *Pipeline {
	if fetcher == nil {
		fetcher = NewRateLimitedFetcher(FetchConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RateLimitRPS:   1.0,
		})
	}
	return &Pipeline{
		Store:    store,
		Fetcher:  fetcher,
		Registry: registry,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveRaw normalizes a raw listing and upserts it. Parsing never
// rejects a listing for missing price or unresolved identity; those
// degrade the match decision downstream instead.
func (p *Pipeline) SaveRaw(ctx context.Context, raw RawListing) error {
	if strings.TrimSpace(raw.URL) == "" {
		return fmt.Errorf("missing listing URL (source=%s, title=%q)", raw.SourceName, raw.Title)
	}
	if strings.TrimSpace(raw.SourceName) == "" {
		return fmt.Errorf("missing source name for %s", raw.URL)
	}

	now := p.Now()

	rawText := raw.RawText
	if strings.TrimSpace(rawText) == "" {
		rawText = raw.Title
	}

	year := ParseYear(raw.RawYear)
	if year == 0 {
		year = ParseYear(rawText)
	}

	listing := models.CandidateListing{
		Identity: models.IdentityFields{
			Resolved: ResolveIdentity(rawText),
			RawText:  rawText,
		},
		Year:        year,
		Km:          ParseOdometer(raw.RawOdometer),
		Price:       ParsePrice(raw.RawPrice),
		Currency:    "AUD",
		SourceTier:  raw.SourceTier,
		SourceName:  raw.SourceName,
		URL:         raw.URL,
		Location:    NormalizeLocation(raw.Location),
		Status:      NormalizeStatus(raw.RawStatus),
		FirstSeenAt: ParseListedAt(raw.RawListedAt, now),
		LastSeenAt:  now,
	}

	_, err := p.Store.UpsertListing(ctx, listing)
	return err
}

// IngestSource runs the configured strategy for one source.
func (p *Pipeline) IngestSource(ctx context.Context, name string) (IngestStats, error) {
	config, err := p.Registry.FindSource(name)
	if err != nil {
		return IngestStats{}, err
	}
	if !config.Active {
		return IngestStats{}, fmt.Errorf("source %q is disabled", name)
	}

	strategy, err := GlobalStrategyFactory.Get(config.Strategy)
	if err != nil {
		return IngestStats{}, fmt.Errorf("strategy %q not found for source %q", config.Strategy, name)
	}

	if rlf, ok := p.Fetcher.(*RateLimitedFetcher); ok && config.BaseURL != "" {
		rlf.Configure(config.BaseURL, config.Fetch)
	}

	log.Printf("[ingest] starting source %s (%s)", config.Name, config.ID)
	start := time.Now()
	stats, err := strategy.Run(ctx, *config, p)
	log.Printf("[ingest] %s done in %s: found=%d saved=%d errors=%d",
		config.ID, time.Since(start).Round(time.Millisecond), stats.TotalFound, stats.TotalSaved, stats.Errors)
	return stats, err
}

// IngestAll runs every active source, continuing past individual failures.
func (p *Pipeline) IngestAll(ctx context.Context) (map[string]IngestStats, error) {
	results := make(map[string]IngestStats)

	for _, src := range p.Registry.Sources {
		if !src.Active {
			continue
		}
		stats, err := p.IngestSource(ctx, src.ID)
		if err != nil {
			log.Printf("[ingest] source %q failed: %v", src.ID, err)
			stats.Errors++
		}
		results[src.ID] = stats
	}

	return results, nil
}

// Refresh implements db.SourceRefresher for the scan path: it re-pulls
// the named sources and reports per-source coverage, flagging the ones
// that failed so the scan can record SOURCE_UNAVAILABLE warnings.
func (p *Pipeline) Refresh(ctx context.Context, sources []string) []models.SourceCoverage {
	coverage := make([]models.SourceCoverage, 0, len(sources))

	for _, name := range sources {
		config, err := p.Registry.FindSource(name)
		if err != nil || !config.Active {
			// Unknown or disabled sources still get a coverage row so the
			// scan audit shows what was requested vs what was reachable.
			coverage = append(coverage, models.SourceCoverage{
				Source: name,
				Failed: true,
				Error:  "source not configured",
			})
			continue
		}

		stats, err := p.IngestSource(ctx, config.ID)
		cov := models.SourceCoverage{
			Source:     config.Name,
			Candidates: stats.TotalSaved,
		}
		if err != nil {
			cov.Failed = true
			cov.Error = err.Error()
		}
		coverage = append(coverage, cov)
	}

	return coverage
}
