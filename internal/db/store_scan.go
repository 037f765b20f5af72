package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// engine.Store implementation. The scanner only ever sees this surface.

func (s *Store) HuntSnapshot(ctx context.Context, huntID uuid.UUID) (engine.CriteriaSnapshot, error) {
	h, err := s.GetHunt(ctx, huntID)
	if err != nil {
		return engine.CriteriaSnapshot{}, err
	}
	return engine.SnapshotFromHunt(*h), nil
}

// MarkStale sweeps matches and alerts created under a criteria version
// older than currentVersion. Rows are flagged, never deleted.
func (s *Store) MarkStale(ctx context.Context, huntID uuid.UUID, currentVersion int) error {
	if _, err := s.pool.Exec(ctx,
		"UPDATE hunt_matches SET is_stale = TRUE WHERE hunt_id = $1 AND criteria_version < $2 AND is_stale = FALSE",
		huntID, currentVersion); err != nil {
		return fmt.Errorf("stale matches sweep failed: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		"UPDATE hunt_alerts SET is_stale = TRUE WHERE hunt_id = $1 AND criteria_version < $2 AND is_stale = FALSE",
		huntID, currentVersion); err != nil {
		return fmt.Errorf("stale alerts sweep failed: %w", err)
	}
	return nil
}

func (s *Store) BeginScan(ctx context.Context, huntID uuid.UUID, criteriaVersion int) (uuid.UUID, error) {
	var scanID uuid.UUID
	err := s.pool.QueryRow(ctx,
		"INSERT INTO hunt_scans (hunt_id, status, criteria_version) VALUES ($1, 'running', $2) RETURNING scan_id",
		huntID, criteriaVersion).Scan(&scanID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert hunt scan failed: %w", err)
	}
	return scanID, nil
}

func (s *Store) CompleteScan(ctx context.Context, scanID uuid.UUID, scan models.HuntScan) error {
	reasons, err := json.Marshal(scan.RejectionReasons)
	if err != nil {
		return fmt.Errorf("marshal rejection reasons: %w", err)
	}
	sources, err := json.Marshal(scan.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE hunt_scans SET
			status = 'ok',
			candidates_checked = $2,
			matches_found = $3,
			alerts_emitted = $4,
			rejection_reasons = $5,
			sources = $6,
			completed_at = NOW()
		WHERE scan_id = $1`,
		scanID, scan.CandidatesChecked, scan.MatchesFound, scan.AlertsEmitted, reasons, sources)
	if err != nil {
		return fmt.Errorf("complete scan failed: %w", err)
	}
	return nil
}

func (s *Store) FailScan(ctx context.Context, scanID uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE hunt_scans SET status = 'error', error = $2, completed_at = NOW() WHERE scan_id = $1",
		scanID, message)
	if err != nil {
		return fmt.Errorf("fail scan failed: %w", err)
	}
	return nil
}

// SaveMatches upserts one row per (hunt, listing, criteria_version).
// Re-running a scan under the same version overwrites in place.
func (s *Store) SaveMatches(ctx context.Context, matches []models.HuntMatch) error {
	if len(matches) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(`
			INSERT INTO hunt_matches (
				hunt_id, listing_id, criteria_version, identity_score, decision,
				gap_dollars, gap_pct, listing_age_days, blocked_reason,
				priority_score, is_cheapest, is_stale, matched_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,FALSE,$12)
			ON CONFLICT (hunt_id, listing_id, criteria_version) DO UPDATE SET
				identity_score = EXCLUDED.identity_score,
				decision = EXCLUDED.decision,
				gap_dollars = EXCLUDED.gap_dollars,
				gap_pct = EXCLUDED.gap_pct,
				listing_age_days = EXCLUDED.listing_age_days,
				blocked_reason = EXCLUDED.blocked_reason,
				priority_score = EXCLUDED.priority_score,
				is_cheapest = EXCLUDED.is_cheapest,
				is_stale = FALSE,
				matched_at = EXCLUDED.matched_at`,
			m.HuntID, m.ListingID, m.CriteriaVersion, m.IdentityScore, m.Decision,
			m.GapDollars, m.GapPct, m.ListingAgeDays, m.BlockedReason,
			m.PriorityScore, m.IsCheapest, m.MatchedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range matches {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert match failed: %w", err)
		}
	}
	return nil
}

// EmitAlert inserts an alert unless its dedup key already exists. The
// unique index on dedup_key makes emission idempotent across concurrent
// scans without any lock.
func (s *Store) EmitAlert(ctx context.Context, alert models.HuntAlert) (bool, error) {
	payload, err := json.Marshal(alert.Payload)
	if err != nil {
		return false, fmt.Errorf("marshal alert payload: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO hunt_alerts (id, hunt_id, listing_id, alert_type, criteria_version, dedup_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedup_key) DO NOTHING`,
		alert.ID, alert.HuntID, alert.ListingID, alert.AlertType,
		alert.CriteriaVersion, alert.DedupKey, payload, alert.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert alert failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Read side ---

// MatchTab selects which read-side filter a matches query applies. The
// tabs are query predicates over the same table, never engine state.
type MatchTab string

const (
	TabLive          MatchTab = "live"          // BUY + WATCH, not stale
	TabOpportunities MatchTab = "opportunities" // everything passing, not stale
	TabRejected      MatchTab = "rejected"      // IGNORE, not stale
	TabAll           MatchTab = "all"           // audit view, stale included
)

type MatchListParams struct {
	HuntID uuid.UUID
	Tab    MatchTab
	Limit  int
	Offset int
}

// MatchRow is a hunt match joined with its listing for display.
type MatchRow struct {
	Match   models.HuntMatch         `json:"match"`
	Listing models.CandidateListing `json:"listing"`
}

func (s *Store) ListMatches(ctx context.Context, params MatchListParams) ([]MatchRow, error) {
	where := "WHERE m.hunt_id = $1"
	switch params.Tab {
	case TabLive, "":
		where += " AND m.is_stale = FALSE AND m.decision IN ('BUY','WATCH')"
	case TabOpportunities:
		where += " AND m.is_stale = FALSE AND m.decision IN ('BUY','WATCH','UNVERIFIED')"
	case TabRejected:
		where += " AND m.is_stale = FALSE AND m.decision = 'IGNORE'"
	case TabAll:
		// No filter: audit view.
	default:
		return nil, fmt.Errorf("unknown matches tab %q", params.Tab)
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT m.hunt_id, m.listing_id, m.criteria_version, m.identity_score, m.decision,
		       m.gap_dollars, m.gap_pct, m.listing_age_days, m.blocked_reason,
		       m.priority_score, m.is_cheapest, m.is_stale, m.matched_at,
		       %s
		FROM hunt_matches m
		JOIN listings l ON l.id = m.listing_id
		%s
		ORDER BY m.priority_score ASC, l.first_seen_at ASC
		LIMIT $2 OFFSET $3`, prefixedListingCols("l"), where),
		params.HuntID, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list matches failed: %w", err)
	}
	defer rows.Close()

	out := []MatchRow{}
	for rows.Next() {
		var row MatchRow
		var resolved bool
		var rid models.ResolvedIdentity
		m := &row.Match
		l := &row.Listing
		err := rows.Scan(
			&m.HuntID, &m.ListingID, &m.CriteriaVersion, &m.IdentityScore, &m.Decision,
			&m.GapDollars, &m.GapPct, &m.ListingAgeDays, &m.BlockedReason,
			&m.PriorityScore, &m.IsCheapest, &m.IsStale, &m.MatchedAt,
			&l.ID, &l.Identity.RawText, &resolved,
			&rid.Make, &rid.Model, &rid.ModelRoot, &rid.SeriesFamily,
			&rid.Badge, &rid.BodyType, &rid.EngineFamily, &rid.EngineCode, &rid.CabType,
			&l.Year, &l.Km, &l.Price, &l.Currency, &l.SourceTier, &l.SourceName,
			&l.URL, &l.Location, &l.Status, &l.FirstSeenAt, &l.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match row failed: %w", err)
		}
		if resolved {
			l.Identity.Resolved = &rid
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func prefixedListingCols(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.raw_text, %[1]s.resolved,
		%[1]s.make, %[1]s.model, %[1]s.model_root, %[1]s.series_family,
		%[1]s.badge, %[1]s.body_type, %[1]s.engine_family, %[1]s.engine_code, %[1]s.cab_type,
		%[1]s.year, %[1]s.km, %[1]s.price, %[1]s.currency, %[1]s.source_tier, %[1]s.source_name,
		%[1]s.url, %[1]s.location, %[1]s.status, %[1]s.first_seen_at, %[1]s.last_seen_at`, alias)
}

func (s *Store) ListAlerts(ctx context.Context, huntID uuid.UUID, unackedOnly bool) ([]models.HuntAlert, error) {
	where := "WHERE hunt_id = $1 AND is_stale = FALSE"
	if unackedOnly {
		where += " AND acknowledged_at IS NULL"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, hunt_id, listing_id, alert_type, criteria_version, dedup_key,
		       payload, is_stale, acknowledged_at, created_at
		FROM hunt_alerts `+where+`
		ORDER BY created_at DESC`, huntID)
	if err != nil {
		return nil, fmt.Errorf("list alerts failed: %w", err)
	}
	defer rows.Close()

	alerts := []models.HuntAlert{}
	for rows.Next() {
		var a models.HuntAlert
		var payload []byte
		if err := rows.Scan(&a.ID, &a.HuntID, &a.ListingID, &a.AlertType, &a.CriteriaVersion,
			&a.DedupKey, &payload, &a.IsStale, &a.AcknowledgedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert failed: %w", err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &a.Payload)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert sets acknowledged_at. Acknowledging never affects
// dedup: the key keeps blocking identical re-emission.
func (s *Store) AcknowledgeAlert(ctx context.Context, alertID, dealerID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE hunt_alerts a SET acknowledged_at = NOW()
		FROM hunts h
		WHERE a.id = $1 AND a.hunt_id = h.id AND h.dealer_id = $2 AND a.acknowledged_at IS NULL`,
		alertID, dealerID)
	if err != nil {
		return fmt.Errorf("acknowledge alert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListScans(ctx context.Context, huntID uuid.UUID, limit int) ([]models.HuntScan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT scan_id, hunt_id, status, criteria_version, candidates_checked,
		       matches_found, alerts_emitted, rejection_reasons, sources, error,
		       started_at, completed_at
		FROM hunt_scans
		WHERE hunt_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, huntID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans failed: %w", err)
	}
	defer rows.Close()

	scans := []models.HuntScan{}
	for rows.Next() {
		var sc models.HuntScan
		var reasons, sources []byte
		if err := rows.Scan(&sc.ScanID, &sc.HuntID, &sc.Status, &sc.CriteriaVersion,
			&sc.CandidatesChecked, &sc.MatchesFound, &sc.AlertsEmitted,
			&reasons, &sources, &sc.Error, &sc.StartedAt, &sc.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan hunt_scan failed: %w", err)
		}
		if len(reasons) > 0 {
			_ = json.Unmarshal(reasons, &sc.RejectionReasons)
		}
		if len(sources) > 0 {
			_ = json.Unmarshal(sources, &sc.Sources)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// Stats powers the operator dashboard counters.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var hunts, listings, alerts int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM hunts WHERE status = 'active'").Scan(&hunts)
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings WHERE status = 'active'").Scan(&listings)
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM hunt_alerts WHERE acknowledged_at IS NULL AND is_stale = FALSE").Scan(&alerts)
	stats["active_hunts"] = hunts
	stats["active_listings"] = listings
	stats["unacked_alerts"] = alerts

	decisionCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT decision, COUNT(*) FROM hunt_matches WHERE is_stale = FALSE GROUP BY decision")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var decision string
			var count int
			if scanErr := rows.Scan(&decision, &count); scanErr == nil {
				decisionCounts[decision] = count
			}
		}
	}
	stats["live_decision_counts"] = decisionCounts

	var lastScan *time.Time
	s.pool.QueryRow(ctx, "SELECT MAX(started_at) FROM hunt_scans").Scan(&lastScan)
	stats["last_scan_at"] = lastScan

	return stats, nil
}
