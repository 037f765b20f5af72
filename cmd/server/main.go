package main

import (
	"context"
	"log"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/api"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/ingest"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/scheduler"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	registry, err := ingest.LoadRegistry("internal/ingest/config/sources.yaml")
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}

	store := db.NewStore(pool)
	pipeline := ingest.NewPipeline(store, nil, registry)

	// Redis is optional: without it scans lose the cross-process lock
	// and the alert pub/sub signal, but the dedup key keeps alert
	// emission correct either way.
	var locker engine.Locker
	var signal *db.AlertSignal
	if rdb, err := db.ConnectRedis(ctx, cfg.RedisURL); err != nil {
		log.Printf("Redis unavailable, running without scan locks: %v", err)
	} else {
		defer rdb.Close()
		locker = db.NewScanLocker(rdb)
		signal = db.NewAlertSignal(rdb)
	}

	provider := &db.CandidateProvider{Store: store, Refresher: pipeline}
	scanner := engine.NewScanner(store, provider, locker)

	sched := scheduler.New(store, scanner, pipeline, signal)
	sched.ScanTickSpec = cfg.ScanTickSpec
	sched.IngestLoopSpec = cfg.IngestLoopSpec
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := api.NewServer(pool, cfg, scanner, registry, signal)
	log.Printf("Server starting on port %s...", cfg.Port)
	if err := srv.Start(cfg.Port); err != nil {
		log.Fatal(err)
	}
}
