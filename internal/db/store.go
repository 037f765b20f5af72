package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// huntCols is the comprehensive column list for all hunt queries.
const huntCols = `id, dealer_id, name,
	make, model, model_root, series_family, badge, badge_tier, body_type,
	engine_family, engine_code, cab_type, cylinders, engine_litres,
	fuel, transmission, drivetrain, year_min, year_max,
	km_target, km_tolerance_pct, proven_exit_method, proven_exit_value,
	min_gap_abs_buy, min_gap_pct_buy, min_gap_abs_watch, min_gap_pct_watch,
	max_listing_age_days_buy, max_listing_age_days_watch,
	enabled_sources, include_private, geo_states, geo_radius_km, geo_mode,
	must_have_tokens, must_have_mode, status, scan_interval_minutes,
	criteria_version, criteria_updated_at, created_at, updated_at`

func scanHunt(scan func(dest ...interface{}) error) (models.Hunt, error) {
	var h models.Hunt
	err := scan(
		&h.ID, &h.DealerID, &h.Name,
		&h.Identity.Make, &h.Identity.Model, &h.Identity.ModelRoot, &h.Identity.SeriesFamily,
		&h.Identity.Badge, &h.Identity.BadgeTier, &h.Identity.BodyType,
		&h.Identity.EngineFamily, &h.Identity.EngineCode, &h.Identity.CabType,
		&h.Identity.Cylinders, &h.Identity.EngineLitres,
		&h.Identity.Fuel, &h.Identity.Transmission, &h.Identity.Drivetrain,
		&h.Identity.YearMin, &h.Identity.YearMax,
		&h.KmTarget, &h.KmTolerancePct, &h.ProvenExitMethod, &h.ProvenExitValue,
		&h.Thresholds.MinGapAbsBuy, &h.Thresholds.MinGapPctBuy,
		&h.Thresholds.MinGapAbsWatch, &h.Thresholds.MinGapPctWatch,
		&h.Thresholds.MaxListingAgeDaysBuy, &h.Thresholds.MaxListingAgeDaysWatch,
		&h.Sources.EnabledSources, &h.Sources.IncludePrivate,
		&h.Geo.States, &h.Geo.RadiusKm, &h.Geo.Mode,
		&h.MustHaveTokens, &h.MustHaveMode, &h.Status, &h.ScanIntervalMins,
		&h.CriteriaVersion, &h.CriteriaUpdatedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	return h, err
}

func (s *Store) CreateHunt(ctx context.Context, h models.Hunt) (*models.Hunt, error) {
	if h.Status == "" {
		h.Status = models.HuntActive
	}
	if h.MustHaveMode == "" {
		h.MustHaveMode = models.MustHaveSoft
	}
	if h.ScanIntervalMins <= 0 {
		h.ScanIntervalMins = 60
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO hunts (
			dealer_id, name,
			make, model, model_root, series_family, badge, badge_tier, body_type,
			engine_family, engine_code, cab_type, cylinders, engine_litres,
			fuel, transmission, drivetrain, year_min, year_max,
			km_target, km_tolerance_pct, proven_exit_method, proven_exit_value,
			min_gap_abs_buy, min_gap_pct_buy, min_gap_abs_watch, min_gap_pct_watch,
			max_listing_age_days_buy, max_listing_age_days_watch,
			enabled_sources, include_private, geo_states, geo_radius_km, geo_mode,
			must_have_tokens, must_have_mode, status, scan_interval_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38
		)
		RETURNING `+huntCols,
		h.DealerID, h.Name,
		h.Identity.Make, h.Identity.Model, h.Identity.ModelRoot, h.Identity.SeriesFamily,
		h.Identity.Badge, h.Identity.BadgeTier, h.Identity.BodyType,
		h.Identity.EngineFamily, h.Identity.EngineCode, h.Identity.CabType,
		h.Identity.Cylinders, h.Identity.EngineLitres,
		h.Identity.Fuel, h.Identity.Transmission, h.Identity.Drivetrain,
		h.Identity.YearMin, h.Identity.YearMax,
		h.KmTarget, h.KmTolerancePct, h.ProvenExitMethod, h.ProvenExitValue,
		h.Thresholds.MinGapAbsBuy, h.Thresholds.MinGapPctBuy,
		h.Thresholds.MinGapAbsWatch, h.Thresholds.MinGapPctWatch,
		h.Thresholds.MaxListingAgeDaysBuy, h.Thresholds.MaxListingAgeDaysWatch,
		h.Sources.EnabledSources, h.Sources.IncludePrivate,
		h.Geo.States, h.Geo.RadiusKm, h.Geo.Mode,
		h.MustHaveTokens, h.MustHaveMode, h.Status, h.ScanIntervalMins,
	)

	created, err := scanHunt(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("insert hunt failed: %w", err)
	}
	return &created, nil
}

func (s *Store) GetHunt(ctx context.Context, id uuid.UUID) (*models.Hunt, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+huntCols+" FROM hunts WHERE id = $1", id)
	h, err := scanHunt(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hunt failed: %w", err)
	}
	return &h, nil
}

func (s *Store) ListHunts(ctx context.Context, dealerID uuid.UUID) ([]models.Hunt, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+huntCols+" FROM hunts WHERE dealer_id = $1 ORDER BY created_at DESC", dealerID)
	if err != nil {
		return nil, fmt.Errorf("list hunts failed: %w", err)
	}
	defer rows.Close()

	hunts := []models.Hunt{}
	for rows.Next() {
		h, err := scanHunt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan hunt failed: %w", err)
		}
		hunts = append(hunts, h)
	}
	return hunts, rows.Err()
}

// DueHunts returns active hunts whose scan interval has elapsed since
// their last scan (or that were never scanned). Used by the scheduler.
func (s *Store) DueHunts(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT h.id FROM hunts h
		LEFT JOIN LATERAL (
			SELECT started_at FROM hunt_scans
			WHERE hunt_id = h.id
			ORDER BY started_at DESC LIMIT 1
		) last ON TRUE
		WHERE h.status = 'active'
		  AND (last.started_at IS NULL
		       OR last.started_at <= $1 - (h.scan_interval_minutes * INTERVAL '1 minute'))
	`, now)
	if err != nil {
		return nil, fmt.Errorf("due hunts query failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateHunt applies an edit. When any identity or threshold field
// changed, the criteria version is bumped atomically and every live
// match/alert from older versions is marked stale in the same
// transaction. Geo and source scope edits do not bump the version: they
// change which candidates are fetched, not how they are classified.
func (s *Store) UpdateHunt(ctx context.Context, h models.Hunt) (*models.Hunt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, "SELECT "+huntCols+" FROM hunts WHERE id = $1 FOR UPDATE", h.ID)
	existing, err := scanHunt(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock hunt failed: %w", err)
	}

	bump := criteriaChanged(existing, h)
	newVersion := existing.CriteriaVersion
	if bump {
		newVersion++
	}

	row = tx.QueryRow(ctx, `
		UPDATE hunts SET
			name = $2,
			make = $3, model = $4, model_root = $5, series_family = $6,
			badge = $7, badge_tier = $8, body_type = $9,
			engine_family = $10, engine_code = $11, cab_type = $12,
			cylinders = $13, engine_litres = $14,
			fuel = $15, transmission = $16, drivetrain = $17,
			year_min = $18, year_max = $19,
			km_target = $20, km_tolerance_pct = $21,
			proven_exit_method = $22, proven_exit_value = $23,
			min_gap_abs_buy = $24, min_gap_pct_buy = $25,
			min_gap_abs_watch = $26, min_gap_pct_watch = $27,
			max_listing_age_days_buy = $28, max_listing_age_days_watch = $29,
			enabled_sources = $30, include_private = $31,
			geo_states = $32, geo_radius_km = $33, geo_mode = $34,
			must_have_tokens = $35, must_have_mode = $36,
			status = $37, scan_interval_minutes = $38,
			criteria_version = $39,
			criteria_updated_at = CASE WHEN $40 THEN NOW() ELSE criteria_updated_at END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+huntCols,
		h.ID, h.Name,
		h.Identity.Make, h.Identity.Model, h.Identity.ModelRoot, h.Identity.SeriesFamily,
		h.Identity.Badge, h.Identity.BadgeTier, h.Identity.BodyType,
		h.Identity.EngineFamily, h.Identity.EngineCode, h.Identity.CabType,
		h.Identity.Cylinders, h.Identity.EngineLitres,
		h.Identity.Fuel, h.Identity.Transmission, h.Identity.Drivetrain,
		h.Identity.YearMin, h.Identity.YearMax,
		h.KmTarget, h.KmTolerancePct, h.ProvenExitMethod, h.ProvenExitValue,
		h.Thresholds.MinGapAbsBuy, h.Thresholds.MinGapPctBuy,
		h.Thresholds.MinGapAbsWatch, h.Thresholds.MinGapPctWatch,
		h.Thresholds.MaxListingAgeDaysBuy, h.Thresholds.MaxListingAgeDaysWatch,
		h.Sources.EnabledSources, h.Sources.IncludePrivate,
		h.Geo.States, h.Geo.RadiusKm, h.Geo.Mode,
		h.MustHaveTokens, h.MustHaveMode, h.Status, h.ScanIntervalMins,
		newVersion, bump,
	)
	updated, err := scanHunt(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("update hunt failed: %w", err)
	}

	if bump {
		if _, err := tx.Exec(ctx,
			"UPDATE hunt_matches SET is_stale = TRUE WHERE hunt_id = $1 AND criteria_version < $2",
			h.ID, newVersion); err != nil {
			return nil, fmt.Errorf("stale matches sweep failed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE hunt_alerts SET is_stale = TRUE WHERE hunt_id = $1 AND criteria_version < $2",
			h.ID, newVersion); err != nil {
			return nil, fmt.Errorf("stale alerts sweep failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return &updated, nil
}

// criteriaChanged reports whether an edit touched a field that affects
// classification. Only these bump the criteria version.
func criteriaChanged(old, edited models.Hunt) bool {
	if old.Identity != edited.Identity {
		return true
	}
	if old.Thresholds != edited.Thresholds {
		return true
	}
	if old.ProvenExitValue != edited.ProvenExitValue || old.ProvenExitMethod != edited.ProvenExitMethod {
		return true
	}
	if old.KmTarget != edited.KmTarget || old.KmTolerancePct != edited.KmTolerancePct {
		return true
	}
	if old.MustHaveMode != edited.MustHaveMode {
		return true
	}
	if len(old.MustHaveTokens) != len(edited.MustHaveTokens) {
		return true
	}
	for i := range old.MustHaveTokens {
		if old.MustHaveTokens[i] != edited.MustHaveTokens[i] {
			return true
		}
	}
	return false
}

// HuntOwnedBy reports whether a hunt belongs to the given dealer.
func (s *Store) HuntOwnedBy(ctx context.Context, huntID, dealerID uuid.UUID) (bool, error) {
	var owned bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM hunts WHERE id = $1 AND dealer_id = $2)",
		huntID, dealerID).Scan(&owned)
	return owned, err
}

// --- Listings ---

const listingCols = `id, raw_text, resolved, make, model, model_root, series_family,
	badge, body_type, engine_family, engine_code, cab_type,
	year, km, price, currency, source_tier, source_name, url, location,
	status, first_seen_at, last_seen_at`

func scanListing(scan func(dest ...interface{}) error) (models.CandidateListing, error) {
	var l models.CandidateListing
	var resolved bool
	var id models.ResolvedIdentity

	err := scan(
		&l.ID, &l.Identity.RawText, &resolved,
		&id.Make, &id.Model, &id.ModelRoot, &id.SeriesFamily,
		&id.Badge, &id.BodyType, &id.EngineFamily, &id.EngineCode, &id.CabType,
		&l.Year, &l.Km, &l.Price, &l.Currency, &l.SourceTier, &l.SourceName,
		&l.URL, &l.Location, &l.Status, &l.FirstSeenAt, &l.LastSeenAt,
	)
	if err != nil {
		return l, err
	}
	if resolved {
		l.Identity.Resolved = &id
	}
	return l, nil
}

// UpsertListing inserts a newly observed listing or refreshes the
// price/status snapshot of one seen before. Identity fields and
// first_seen_at never change after first ingestion.
func (s *Store) UpsertListing(ctx context.Context, l models.CandidateListing) (*models.CandidateListing, error) {
	var id models.ResolvedIdentity
	resolved := l.Identity.Resolved != nil
	if resolved {
		id = *l.Identity.Resolved
	}
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	if l.Currency == "" {
		l.Currency = "AUD"
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO listings (
			raw_text, resolved, make, model, model_root, series_family,
			badge, body_type, engine_family, engine_code, cab_type,
			year, km, price, currency, source_tier, source_name, url, location, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (source_name, url) DO UPDATE SET
			price = EXCLUDED.price,
			status = EXCLUDED.status,
			last_seen_at = NOW()
		RETURNING `+listingCols,
		l.Identity.RawText, resolved, id.Make, id.Model, id.ModelRoot, id.SeriesFamily,
		id.Badge, id.BodyType, id.EngineFamily, id.EngineCode, id.CabType,
		l.Year, l.Km, l.Price, l.Currency, l.SourceTier, l.SourceName, l.URL, l.Location, l.Status,
	)

	saved, err := scanListing(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("upsert listing failed: %w", err)
	}
	return &saved, nil
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*models.CandidateListing, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+listingCols+" FROM listings WHERE id = $1", id)
	l, err := scanListing(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing failed: %w", err)
	}
	return &l, nil
}

// ActiveListings returns the active candidate batch for a scan, scoped
// to the hunt's enabled sources and geo states when set.
func (s *Store) ActiveListings(ctx context.Context, sources []string, states []string) ([]models.CandidateListing, error) {
	where := "WHERE status = 'active'"
	var args []interface{}
	argIdx := 1

	if len(sources) > 0 {
		where += fmt.Sprintf(" AND source_name = ANY($%d)", argIdx)
		args = append(args, sources)
		argIdx++
	}
	if len(states) > 0 {
		where += fmt.Sprintf(" AND (location = '' OR location = ANY($%d))", argIdx)
		args = append(args, states)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, "SELECT "+listingCols+" FROM listings "+where+" ORDER BY first_seen_at", args...)
	if err != nil {
		return nil, fmt.Errorf("active listings query failed: %w", err)
	}
	defer rows.Close()

	var listings []models.CandidateListing
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan listing failed: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// SourceCounts returns per-source active listing counts, used for scan
// coverage metadata.
func (s *Store) SourceCounts(ctx context.Context, sources []string) (map[string]int, error) {
	where := "WHERE status = 'active'"
	var args []interface{}
	if len(sources) > 0 {
		where += " AND source_name = ANY($1)"
		args = append(args, sources)
	}

	rows, err := s.pool.Query(ctx, "SELECT source_name, COUNT(*) FROM listings "+where+" GROUP BY source_name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
