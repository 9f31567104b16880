package db

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_files_mappings_and_ratings",
		Up:      execFragments(servicesSQL, fileIdentitySQL, fileMembershipSQL, mappingsSQL, ratingsSQL),
	},
	{
		Version: 2,
		Name:    "add_perceptual_hashes",
		Up:      execFragments(perceptualHashesSQL),
	},
	{
		Version: 3,
		Name:    "add_tag_filters",
		Up:      execFragments(tagFiltersSQL),
	},
	{
		Version: 4,
		Name:    "add_registry_version",
		Up:      execFragments(registryVersionSQL),
	},
}

const schemaVersionSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

func execFragments(fragments ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, fragment := range fragments {
			if _, err := tx.Exec(fragment); err != nil {
				return err
			}
		}
		return nil
	}
}

// LatestVersion returns the highest known migration version.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations applies every migration newer than the recorded schema version.
// Each migration and its version record commit in one transaction.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := db.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
		logger.Info("applied migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	}

	return nil
}

func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
	}
	defer tx.Rollback()

	if err := migration.Up(tx); err != nil {
		return fmt.Errorf("migration %d failed: %w", migration.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}
