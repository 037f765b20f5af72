package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/ingest"
)

func main() {
	huntFlag := flag.String("hunt", "", "hunt ID to scan (required)")
	refresh := flag.Bool("refresh", false, "re-pull the hunt's sources before scanning")
	flag.Parse()

	huntID, err := uuid.Parse(*huntFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: run_scan -hunt <uuid> [-refresh]")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	provider := &db.CandidateProvider{Store: store}
	if *refresh {
		registry, err := ingest.LoadRegistry("internal/ingest/config/sources.yaml")
		if err != nil {
			log.Fatalf("Failed to load source registry: %v", err)
		}
		provider.Refresher = ingest.NewPipeline(store, nil, registry)
	}

	scanner := engine.NewScanner(store, provider, nil)
	summary, err := scanner.Run(ctx, huntID)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
