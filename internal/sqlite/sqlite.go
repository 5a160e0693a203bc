package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/random"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

const (
	memoryNameLength = 20
	maxReaders       = 10
)

// Database holds the single-writer pool used for saving interviews and sessions and the read-only pool used by
// listings and result pages.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to database and synchronizes the schema.
//
// It establishes two database connections, one for read/write operations and one for read-only operations.
// This is a best practice mentioned in https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	// Initialize the database schema.
	if err = db.migrate(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(errors.Wrap(err, "synchronize schema"), db.Close())
	}

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

// pragmas are applied to every connection. See https://www.sqlite.org/pragma.html.
var pragmas = strings.Join([]string{
	// Write-ahead logging lets interview reads proceed while an interview is being saved.
	"_journal_mode=wal",
	"_busy_timeout=5000",
	"_synchronous=normal",
	"_foreign_keys=on",
}, "&")

// dataSourceNames returns the read-only and read-write DSNs for url. Every ":memory:" database gets a random name
// and a shared cache so that both pools see the same data while parallel tests stay isolated.
func dataSourceNames(url string) (string, string, error) {
	readMode, readWriteMode := "mode=ro", "mode=rwc"
	if strings.Contains(url, ":memory:") {
		name, err := random.Letters(memoryNameLength)
		if err != nil {
			return "", "", errors.Wrap(err, "generate in-memory database name")
		}
		url = name
		readMode, readWriteMode = "mode=memory&cache=shared", "mode=memory&cache=shared"
	}
	read := fmt.Sprintf("file:%s?%s&_txlock=deferred&_query_only=true&%s", url, readMode, pragmas)
	readWrite := fmt.Sprintf("file:%s?%s&_txlock=immediate&%s", url, readWriteMode, pragmas)
	return read, readWrite, nil
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)
	return db, nil
}

// connect opens a single-writer pool and a pool of readers. See
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
func connect(url string, logger *slog.Logger) (*Database, error) {
	readDSN, readWriteDSN, err := dataSourceNames(url)
	if err != nil {
		return nil, err
	}

	readWriteDB, err := openPool(readWriteDSN, 1)
	if err != nil {
		return nil, errors.Wrap(err, "read-write pool")
	}
	// The writer creates the file so that the read-only pool can open it.
	if err = readWriteDB.Ping(); err != nil {
		return nil, errors.Join(errors.Wrap(err, "ping read-write database"), readWriteDB.Close())
	}

	readDB, err := openPool(readDSN, maxReaders)
	if err != nil {
		return nil, errors.Join(errors.Wrap(err, "read pool"), readWriteDB.Close())
	}

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
