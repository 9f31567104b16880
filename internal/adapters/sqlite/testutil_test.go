// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database is created for tests.
// setupTestDB opens a real store through db.Open, so tests run against the
// authoritative schema and the seeded built-in services.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/mediadb/internal/adapters/sqlite"
	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/db"
	"github.com/example/mediadb/internal/ports/secondary"
)

// importTime is when seeded files are admitted.
var importTime = time.Unix(1_700_000_000, 0)

// setupTestDB creates a file-backed database in a temp dir with the
// authoritative schema and default services.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(t.TempDir(), db.Options{WAL: true, BusyTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// testHash derives a deterministic content hash from a label.
func testHash(label string) files.Hash {
	return files.Hash(sha256.Sum256([]byte(label)))
}

// pngRecord describes a 200x200 png like the one the store tests import.
func pngRecord(label string) *secondary.FileRecord {
	h := testHash(label)
	return &secondary.FileRecord{
		Hashes: files.HashSet{
			SHA256: h,
			MD5:    h[:16],
			SHA1:   h[:20],
			SHA512: append(append([]byte{}, h[:]...), h[:]...),
		},
		Info: files.Info{
			Size: 5270,
			Mime: "image/png",
			Metadata: files.Metadata{
				Width:  files.IntPtr(200),
				Height: files.IntPtr(200),
			},
		},
		Domain: services.LocalFilesKey,
		Inbox:  true,
	}
}

// seedFile admits a file and returns its content hash.
func seedFile(t *testing.T, testDB *sql.DB, record *secondary.FileRecord) files.Hash {
	t.Helper()
	repo := sqlite.NewFileRepository(testDB)
	if err := repo.Admit(context.Background(), []*secondary.FileRecord{record}, importTime); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	return record.Hashes.SHA256
}

// seedService registers an extra service and returns it.
func seedService(t *testing.T, testDB *sql.DB, serviceType services.Type, name string) services.Service {
	t.Helper()
	svc := services.GenerateService(services.GenerateKey(), serviceType, name)
	repo := sqlite.NewServiceRepository(testDB)
	if err := repo.ApplyPlan(context.Background(), services.RegistryPlan{Added: []services.Service{svc}}); err != nil {
		t.Fatalf("failed to seed service: %v", err)
	}
	return svc
}

// apply commits a batch and fails the test on error.
func apply(t *testing.T, testDB *sql.DB, batch content.Batch) *secondary.ApplySummary {
	t.Helper()
	summary, err := sqlite.NewContentRepository(testDB).Apply(context.Background(), batch, importTime)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return summary
}
