package models

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the engine's classification of one (hunt, listing) pair.
type Decision string

const (
	DecisionBuy        Decision = "BUY"
	DecisionWatch      Decision = "WATCH"
	DecisionUnverified Decision = "UNVERIFIED"
	DecisionIgnore     Decision = "IGNORE"
)

// Blocked/downgrade reasons attached to non-BUY outcomes.
const (
	ReasonSeriesMismatch       = "SERIES_MISMATCH"
	ReasonEngineMismatch       = "ENGINE_MISMATCH"
	ReasonBodyMismatch         = "BODY_MISMATCH"
	ReasonMissingRequiredToken = "MISSING_REQUIRED_TOKEN"
	ReasonNotAListing          = "NOT_A_LISTING"
	ReasonNoPrice              = "NO_PRICE"
	ReasonLowIdentityConf      = "LOW_IDENTITY_CONFIDENCE"
	ReasonGapInsufficient      = "GAP_INSUFFICIENT"
	ReasonStaleListing         = "STALE_LISTING"
	ReasonClassifierFallback   = "CLASSIFIER_FALLBACK"
)

// HuntMatch is the engine's evaluation of one (hunt, listing) pair at a
// given criteria version. Overwritten each scan cycle under the same
// version; superseded and marked stale, never deleted, when the hunt's
// criteria change.
type HuntMatch struct {
	HuntID          uuid.UUID `json:"hunt_id"`
	ListingID       uuid.UUID `json:"listing_id"`
	CriteriaVersion int       `json:"criteria_version"`
	IdentityScore   float64   `json:"identity_score"`
	Decision        Decision  `json:"decision"`
	GapDollars      *float64  `json:"gap_dollars"`
	GapPct          *float64  `json:"gap_pct"`
	ListingAgeDays  int       `json:"listing_age_days"`
	BlockedReason   *string   `json:"blocked_reason"`
	PriorityScore   float64   `json:"priority_score"`
	IsCheapest      bool      `json:"is_cheapest"`
	IsStale         bool      `json:"is_stale"`
	MatchedAt       time.Time `json:"matched_at"`
}

// AlertPayload is the frozen snapshot stored with an alert at emission
// time. Later price or criteria changes never rewrite it.
type AlertPayload struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	SourceName    string   `json:"source_name"`
	Price         *float64 `json:"price"`
	GapDollars    *float64 `json:"gap_dollars"`
	GapPct        *float64 `json:"gap_pct"`
	IdentityScore float64  `json:"identity_score"`
}

// HuntAlert is a notification-worthy event: a match entering BUY or
// WATCH for the first time under the current criteria version.
type HuntAlert struct {
	ID              uuid.UUID    `json:"id"`
	HuntID          uuid.UUID    `json:"hunt_id"`
	ListingID       uuid.UUID    `json:"listing_id"`
	AlertType       Decision     `json:"alert_type"` // BUY or WATCH only
	CriteriaVersion int          `json:"criteria_version"`
	DedupKey        string       `json:"dedup_key"`
	Payload         AlertPayload `json:"payload"`
	IsStale         bool         `json:"is_stale"`
	AcknowledgedAt  *time.Time   `json:"acknowledged_at"`
	CreatedAt       time.Time    `json:"created_at"`
}

// ScanStatus is the lifecycle of one scan execution.
type ScanStatus string

const (
	ScanRunning ScanStatus = "running"
	ScanOK      ScanStatus = "ok"
	ScanError   ScanStatus = "error"
)

// SourceCoverage records how one source contributed to a scan.
type SourceCoverage struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// HuntScan is the append-only audit record of one scan execution.
type HuntScan struct {
	ScanID           uuid.UUID        `json:"scan_id"`
	HuntID           uuid.UUID        `json:"hunt_id"`
	Status           ScanStatus       `json:"status"`
	CriteriaVersion  int              `json:"criteria_version"`
	CandidatesChecked int             `json:"candidates_checked"`
	MatchesFound     int              `json:"matches_found"`
	AlertsEmitted    int              `json:"alerts_emitted"`
	RejectionReasons map[string]int   `json:"rejection_reasons"`
	Sources          []SourceCoverage `json:"sources"`
	Error            string           `json:"error,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
}
