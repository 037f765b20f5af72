package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/ingest"
)

func main() {
	source := flag.String("source", "", "source ID to ingest (default: all active sources)")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	registry, err := ingest.LoadRegistry("internal/ingest/config/sources.yaml")
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}

	pipeline := ingest.NewPipeline(db.NewStore(pool), nil, registry)

	if *source != "" {
		stats, err := pipeline.IngestSource(ctx, *source)
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		fmt.Printf("%s: found=%d saved=%d errors=%d\n", *source, stats.TotalFound, stats.TotalSaved, stats.Errors)
		return
	}

	results, err := pipeline.IngestAll(ctx)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	for id, stats := range results {
		fmt.Printf("%s: found=%d saved=%d errors=%d\n", id, stats.TotalFound, stats.TotalSaved, stats.Errors)
	}
}
