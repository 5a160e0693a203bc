package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/repositories"
	"github.com/Manty2503/demo-final/internal/sqlite"
)

// migratetest opens a copy of the production database, which applies pending schema changes, and reads it back.
func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	var (
		err       error
		start     = time.Now()
		sqliteURL string
		ok        bool
		count     int
		db        *sqlite.Database
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("PARLEY_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "PARLEY_SQLITE_URL not set")
		os.Exit(1)
	}

	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	if count, err = repositories.NewInterviewRepository(db, logger).Count(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching interview count", errors.SlogError(err))
		os.Exit(1)
	}
	if count == 0 {
		logger.LogAttrs(ctx, slog.LevelWarn, "no interviews found, expected a production copy")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "interview count", slog.Int("count", count))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
