package models

import (
	"time"

	"github.com/google/uuid"
)

// HuntStatus is the lifecycle state of a hunt.
type HuntStatus string

const (
	HuntActive  HuntStatus = "active"
	HuntPaused  HuntStatus = "paused"
	HuntDone    HuntStatus = "done"
	HuntExpired HuntStatus = "expired"
)

// MustHaveMode controls how required keyword tokens are enforced.
type MustHaveMode string

const (
	MustHaveSoft   MustHaveMode = "soft"   // missing tokens lower the score
	MustHaveStrict MustHaveMode = "strict" // missing tokens block the match
)

// IdentityTarget is the vehicle specification a hunt is chasing.
type IdentityTarget struct {
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	ModelRoot    string  `json:"model_root"`
	SeriesFamily string  `json:"series_family"`
	Badge        string  `json:"badge"`
	BadgeTier    string  `json:"badge_tier"`
	BodyType     string  `json:"body_type"`
	EngineFamily string  `json:"engine_family"`
	EngineCode   string  `json:"engine_code"`
	CabType      string  `json:"cab_type"`
	Cylinders    int     `json:"cylinders"`
	EngineLitres float64 `json:"engine_litres"`
	Fuel         string  `json:"fuel"`
	Transmission string  `json:"transmission"`
	Drivetrain   string  `json:"drivetrain"`
	YearMin      int     `json:"year_min"`
	YearMax      int     `json:"year_max"`
}

// Thresholds are the price-gap and freshness criteria for a decision.
type Thresholds struct {
	MinGapAbsBuy           float64 `json:"min_gap_abs_buy"`
	MinGapPctBuy           float64 `json:"min_gap_pct_buy"`
	MinGapAbsWatch         float64 `json:"min_gap_abs_watch"`
	MinGapPctWatch         float64 `json:"min_gap_pct_watch"`
	MaxListingAgeDaysBuy   int     `json:"max_listing_age_days_buy"`
	MaxListingAgeDaysWatch int     `json:"max_listing_age_days_watch"`
}

// SourceScope limits which listing sources a hunt scans.
type SourceScope struct {
	EnabledSources []string `json:"enabled_sources"`
	IncludePrivate bool     `json:"include_private"`
}

// GeoScope limits where candidate vehicles may be located.
type GeoScope struct {
	States   []string `json:"states"`
	RadiusKm int      `json:"radius_km"`
	Mode     string   `json:"mode"` // "states" or "radius"
}

// Hunt is a dealer's standing search target: an identity spec plus a
// proven exit value and the thresholds that turn a price gap into a
// decision. CriteriaVersion increments on every identity/threshold edit
// so historical matches are never reinterpreted under newer criteria.
type Hunt struct {
	ID                uuid.UUID      `json:"id"`
	DealerID          uuid.UUID      `json:"dealer_id"`
	Name              string         `json:"name"`
	Identity          IdentityTarget `json:"identity"`
	KmTarget          int            `json:"km_target"`
	KmTolerancePct    float64        `json:"km_tolerance_pct"`
	ProvenExitMethod  string         `json:"proven_exit_method"` // e.g. "last_retail", "manual"
	ProvenExitValue   float64        `json:"proven_exit_value"`
	Thresholds        Thresholds     `json:"thresholds"`
	Sources           SourceScope    `json:"sources"`
	Geo               GeoScope       `json:"geo"`
	MustHaveTokens    []string       `json:"must_have_tokens"`
	MustHaveMode      MustHaveMode   `json:"must_have_mode"`
	Status            HuntStatus     `json:"status"`
	ScanIntervalMins  int            `json:"scan_interval_minutes"`
	CriteriaVersion   int            `json:"criteria_version"`
	CriteriaUpdatedAt time.Time      `json:"criteria_updated_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Dealer owns hunts. One dealer per hunt, always.
type Dealer struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DealerName   string    `json:"dealer_name"`
	CreatedAt    time.Time `json:"created_at"`
}
