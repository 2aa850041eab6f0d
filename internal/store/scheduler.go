package store

// scheduler.go runs snapshot retention in the background.
//
// Pruning runs once on start and then every interval. A failed run is logged
// and retried on the next tick; it never stops the service.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/bakery/internal/clock"
)

// PruneConfig holds retention settings for the prune scheduler.
type PruneConfig struct {
	Keep     int           // Snapshots to retain (default: 50)
	Interval time.Duration // How often to prune (default: 24h)
	Clock    clock.Clock   // Time source (default: real clock)
}

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Keep <= 0 {
		c.Keep = 50
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	return c
}

// StartPruneScheduler prunes old snapshots until ctx is cancelled.
func (s *Store) StartPruneScheduler(ctx context.Context, cfg PruneConfig) {
	cfg = cfg.withDefaults()
	slog.Info("snapshot prune scheduler started",
		"keep", cfg.Keep,
		"interval", cfg.Interval,
	)

	s.runPrune(ctx, cfg.Keep)

	ticker := cfg.Clock.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot prune scheduler stopped")
			return
		case <-ticker.C():
			s.runPrune(ctx, cfg.Keep)
		}
	}
}

// runPrune performs one prune cycle.
func (s *Store) runPrune(ctx context.Context, keep int) {
	start := time.Now()
	pruned, err := s.Prune(ctx, keep)
	if err != nil {
		slog.Error("snapshot prune failed", "error", err)
		return
	}
	slog.Info("pruned menu snapshots",
		"snapshots_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
