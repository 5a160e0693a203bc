package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
)

// startDatabaseOptimizer runs optimize once per hour. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startDatabaseOptimizer(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if err := db.Optimize(ctx); err != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Optimize gathers query planner statistics for tables that need them.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize database")
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}
