// Package db opens the SQLite store and owns its schema.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// FileName is the database file inside the data directory.
const FileName = "client.db"

// Options tune the SQLite connection.
type Options struct {
	WAL         bool
	BusyTimeout time.Duration
}

// Path returns the database path inside a data directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Open opens (creating if needed) the store in dir, brings the schema up to
// date and seeds the built-in services.
func Open(dir string, opts Options, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	database, err := sql.Open("sqlite3", dsn(Path(dir), opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := InitSchema(database, logger); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := SeedDefaultServices(database); err != nil {
		database.Close()
		return nil, err
	}

	logger.Debug("opened database", zap.String("path", Path(dir)), zap.Bool("wal", opts.WAL))
	return database, nil
}

func dsn(path string, opts Options) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	if opts.BusyTimeout > 0 {
		q.Set("_busy_timeout", fmt.Sprintf("%d", opts.BusyTimeout.Milliseconds()))
	}
	if opts.WAL {
		q.Set("_journal_mode", "WAL")
	}
	return "file:" + path + "?" + q.Encode()
}
