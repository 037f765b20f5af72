package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
)

func main() {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, config.Load().DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var listings, resolved, priced, hunts, matches, alerts int
	err = pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM listings),
			(SELECT count(*) FROM listings WHERE resolved),
			(SELECT count(*) FROM listings WHERE price IS NOT NULL),
			(SELECT count(*) FROM hunts WHERE status = 'active'),
			(SELECT count(*) FROM hunt_matches WHERE is_stale = FALSE),
			(SELECT count(*) FROM hunt_alerts WHERE acknowledged_at IS NULL)
	`).Scan(&listings, &resolved, &priced, &hunts, &matches, &alerts)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("Listings: %d\n", listings)
	fmt.Printf("  resolved identity: %d\n", resolved)
	fmt.Printf("  with price: %d\n", priced)
	fmt.Printf("Active hunts: %d\n", hunts)
	fmt.Printf("Live matches: %d\n", matches)
	fmt.Printf("Unacked alerts: %d\n", alerts)
}
