package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Load().DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT s.scan_id, h.name, s.status, s.criteria_version, s.candidates_checked,
		       s.matches_found, s.alerts_emitted, s.started_at, s.completed_at
		FROM hunt_scans s
		JOIN hunts h ON h.id = s.hunt_id
		ORDER BY s.started_at DESC LIMIT 20`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Hunt", "Status", "Ver", "Checked", "Matches", "Alerts", "Duration", "Started At"})

	for rows.Next() {
		var scanID, huntName, status string
		var version, checked, matches, alerts int
		var startedAt time.Time
		var completedAt *time.Time

		if err := rows.Scan(&scanID, &huntName, &status, &version, &checked, &matches, &alerts, &startedAt, &completedAt); err != nil {
			log.Printf("Scan error: %v", err)
			continue
		}

		duration := "Running..."
		if completedAt != nil {
			duration = completedAt.Sub(startedAt).Round(time.Millisecond).String()
		}

		t.AppendRow(table.Row{huntName, status, version, checked, matches, alerts, duration, startedAt.Format("15:04:05")})
	}
	t.Render()
}
