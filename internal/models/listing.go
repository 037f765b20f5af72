package models

import (
	"time"

	"github.com/google/uuid"
)

// Source tiers, used for ranking. Auctions outrank marketplaces which
// outrank dealer sites and web discovery.
const (
	TierAuction     = 1
	TierMarketplace = 2
	TierDealer      = 3
)

// ListingStatus is the normalized availability of a listing.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingSold    ListingStatus = "sold"
	ListingExpired ListingStatus = "expired"
)

// ResolvedIdentity holds the structured vehicle tags extracted for a
// listing. Fields are empty when the source did not expose them.
type ResolvedIdentity struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	ModelRoot    string `json:"model_root"`
	SeriesFamily string `json:"series_family"`
	Badge        string `json:"badge"`
	BodyType     string `json:"body_type"`
	EngineFamily string `json:"engine_family"`
	EngineCode   string `json:"engine_code"`
	CabType      string `json:"cab_type"`
}

// IdentityFields is a tagged variant: either the listing's identity was
// resolved into structured tags, or all we have is the raw title text.
// Callers must branch on Resolved rather than probing empty tag fields.
type IdentityFields struct {
	Resolved *ResolvedIdentity `json:"resolved,omitempty"`
	RawText  string            `json:"raw_text"`
}

// CandidateListing is one observed vehicle-for-sale from any source.
// Immutable once ingested except for price/status refresh snapshots.
type CandidateListing struct {
	ID          uuid.UUID      `json:"id"`
	Identity    IdentityFields `json:"identity"`
	Year        int            `json:"year"`
	Km          int            `json:"km"`
	Price       *float64       `json:"price"`
	Currency    string         `json:"currency"`
	SourceTier  int            `json:"source_tier"`
	SourceName  string         `json:"source_name"`
	URL         string         `json:"url"`
	Location    string         `json:"location"` // state code, e.g. "QLD"
	Status      ListingStatus  `json:"status"`
	FirstSeenAt time.Time      `json:"first_seen_at"`
	LastSeenAt  time.Time      `json:"last_seen_at"`
}
