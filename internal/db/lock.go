package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
)

// ScanLocker serializes scans per hunt with a Redis SET NX lock. The
// TTL releases the lock if a scan crashes without cleaning up; the
// dedup key on hunt_alerts keeps even that worst case correct.
type ScanLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewScanLocker(rdb *redis.Client) *ScanLocker {
	return &ScanLocker{rdb: rdb, ttl: 5 * time.Minute}
}

func (l *ScanLocker) Acquire(ctx context.Context, huntID uuid.UUID) (func(), error) {
	key := "scanlock:" + huntID.String()

	ok, err := l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring scan lock: %w", err)
	}
	if !ok {
		return nil, engine.ErrScanInProgress
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := l.rdb.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			log.Printf("[scanlock] failed to release %s: %v", key, err)
		}
	}, nil
}

// AlertSignal publishes a hunt ID on the hunt_alerts channel after new
// alert rows were written. Push/UI collaborators subscribe to it; the
// engine itself never sends notifications.
type AlertSignal struct {
	rdb *redis.Client
}

func NewAlertSignal(rdb *redis.Client) *AlertSignal {
	return &AlertSignal{rdb: rdb}
}

func (a *AlertSignal) NewAlerts(ctx context.Context, huntID uuid.UUID, emitted int) {
	if emitted == 0 {
		return
	}
	if err := a.rdb.Publish(ctx, "hunt_alerts", huntID.String()).Err(); err != nil {
		log.Printf("[alerts] publish signal for hunt %s failed: %v", huntID, err)
	}
}
