package db

import (
	"database/sql"

	"go.uber.org/zap"
)

// SchemaSQL is the complete schema for a fresh store.
// It reflects the state after every migration in migrations.go.
//
// This is the single source of truth for the database schema. Tests load it
// through GetSchemaSQL() so repository code that references a missing column
// fails at test time with "no such column".
//
// SchemaSQL is assembled from the same fragments the migrations execute, so a
// migrated store and a fresh one end up with identical tables. When adding
// tables or columns:
//  1. Add a fragment below
//  2. Add a migration in migrations.go that executes it
//  3. Append the fragment to SchemaSQL
const SchemaSQL = servicesSQL + registryVersionSQL + tagFiltersSQL + fileIdentitySQL +
	perceptualHashesSQL + fileMembershipSQL + mappingsSQL + ratingsSQL

const servicesSQL = `
-- Services (registry; rows are soft-disabled, never deleted)
CREATE TABLE IF NOT EXISTS services (
	service_id INTEGER PRIMARY KEY,
	service_key TEXT NOT NULL UNIQUE,
	service_type TEXT NOT NULL,
	name TEXT NOT NULL,
	options TEXT NOT NULL DEFAULT '{}',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const registryVersionSQL = `
CREATE TABLE IF NOT EXISTS registry_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO registry_version (id, version) VALUES (1, 0);
`

const tagFiltersSQL = `
-- Per-service tag censorship rules (JSON list of slice/rule pairs)
CREATE TABLE IF NOT EXISTS tag_filters (
	service_id INTEGER PRIMARY KEY,
	rules TEXT NOT NULL,
	FOREIGN KEY (service_id) REFERENCES services(service_id)
);
`

const fileIdentitySQL = `
-- File identity
CREATE TABLE IF NOT EXISTS hashes (
	hash_id INTEGER PRIMARY KEY,
	hash BLOB NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS local_hashes (
	hash_id INTEGER PRIMARY KEY,
	md5 BLOB NOT NULL,
	sha1 BLOB NOT NULL,
	sha512 BLOB NOT NULL,
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE INDEX IF NOT EXISTS idx_local_hashes_md5 ON local_hashes(md5);
CREATE INDEX IF NOT EXISTS idx_local_hashes_sha1 ON local_hashes(sha1);
CREATE INDEX IF NOT EXISTS idx_local_hashes_sha512 ON local_hashes(sha512);

CREATE TABLE IF NOT EXISTS files_info (
	hash_id INTEGER PRIMARY KEY,
	size INTEGER NOT NULL,
	mime TEXT NOT NULL,
	width INTEGER,
	height INTEGER,
	duration INTEGER,
	num_frames INTEGER,
	num_words INTEGER,
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE INDEX IF NOT EXISTS idx_files_info_mime ON files_info(mime);
CREATE INDEX IF NOT EXISTS idx_files_info_size ON files_info(size);
CREATE INDEX IF NOT EXISTS idx_files_info_width ON files_info(width);
CREATE INDEX IF NOT EXISTS idx_files_info_height ON files_info(height);
CREATE INDEX IF NOT EXISTS idx_files_info_duration ON files_info(duration);
`

const perceptualHashesSQL = `
CREATE TABLE IF NOT EXISTS perceptual_hashes (
	hash_id INTEGER PRIMARY KEY,
	phash INTEGER NOT NULL,
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);
`

const fileMembershipSQL = `
-- File service membership
CREATE TABLE IF NOT EXISTS current_files (
	service_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (service_id, hash_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE INDEX IF NOT EXISTS idx_current_files_hash ON current_files(hash_id);
CREATE INDEX IF NOT EXISTS idx_current_files_timestamp ON current_files(service_id, timestamp);

CREATE TABLE IF NOT EXISTS deleted_files (
	service_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (service_id, hash_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE TABLE IF NOT EXISTS pending_files (
	service_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	PRIMARY KEY (service_id, hash_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE TABLE IF NOT EXISTS petitioned_files (
	service_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (service_id, hash_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE TABLE IF NOT EXISTS file_inbox (
	hash_id INTEGER PRIMARY KEY,
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);
`

const mappingsSQL = `
-- Tags and mappings
CREATE TABLE IF NOT EXISTS tags (
	tag_id INTEGER PRIMARY KEY,
	tag TEXT NOT NULL UNIQUE,
	namespace TEXT NOT NULL,
	subtag TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tags_namespace ON tags(namespace);
CREATE INDEX IF NOT EXISTS idx_tags_subtag ON tags(subtag);

CREATE TABLE IF NOT EXISTS mappings (
	service_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('current', 'pending', 'deleted', 'petitioned')),
	reason TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (service_id, tag_id, hash_id, status),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (tag_id) REFERENCES tags(tag_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);

CREATE INDEX IF NOT EXISTS idx_mappings_hash ON mappings(hash_id, service_id, status);
CREATE INDEX IF NOT EXISTS idx_mappings_tag ON mappings(service_id, tag_id, status);

-- Autocomplete counts, maintained with every mapping change
CREATE TABLE IF NOT EXISTS ac_counts (
	service_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	current_count INTEGER NOT NULL DEFAULT 0,
	pending_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (service_id, tag_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (tag_id) REFERENCES tags(tag_id)
);
`

const ratingsSQL = `
-- Ratings
CREATE TABLE IF NOT EXISTS ratings (
	service_id INTEGER NOT NULL,
	hash_id INTEGER NOT NULL,
	rating REAL NOT NULL,
	PRIMARY KEY (service_id, hash_id),
	FOREIGN KEY (service_id) REFERENCES services(service_id),
	FOREIGN KEY (hash_id) REFERENCES hashes(hash_id)
);
`

// InitSchema brings a database to the current schema. Fresh databases get
// SchemaSQL directly with every migration recorded as applied; existing
// databases run their pending migrations.
func InitSchema(db *sql.DB, logger *zap.Logger) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		return RunMigrations(db, logger)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(SchemaSQL); err != nil {
		return err
	}
	if _, err := tx.Exec(schemaVersionSQL); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
