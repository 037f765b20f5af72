package ingest

import (
	"context"
	"fmt"
	"io"
	"time"
)

// RawListing is the untrusted, unnormalized listing extracted from a
// source page or API payload before parsing and identity resolution.
type RawListing struct {
	Title       string
	RawText     string // full description text used for identity resolution
	URL         string
	SourceName  string
	SourceTier  int
	RawPrice    string
	RawOdometer string
	RawYear     string
	RawStatus   string
	RawListedAt string
	Location    string
	Extra       map[string]string
}

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// IngestStats holds metrics about a single source run.
type IngestStats struct {
	TotalFound int
	TotalSaved int
	Errors     int
}

// SourceStrategy defines the contract for any ingestion source. It
// handles fetching and parsing, saving listings via the pipeline.
type SourceStrategy interface {
	Run(ctx context.Context, config SourceConfig, pipeline *Pipeline) (IngestStats, error)
}

// StrategyFactory maps strategy IDs (from sources.yaml) to implementations.
type StrategyFactory struct {
	strategies map[string]SourceStrategy
}

func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{
		strategies: make(map[string]SourceStrategy),
	}
}

func (f *StrategyFactory) Register(id string, strategy SourceStrategy) {
	f.strategies[id] = strategy
}

func (f *StrategyFactory) Get(id string) (SourceStrategy, error) {
	strategy, ok := f.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", id)
	}
	return strategy, nil
}

var GlobalStrategyFactory = NewStrategyFactory()

func init() {
	GlobalStrategyFactory.Register("html_listing", &HTMLListingStrategy{})
	GlobalStrategyFactory.Register("api_search", &APISearchStrategy{})
}
