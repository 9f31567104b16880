package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/mediadb/internal/core/services"
)

// SeedDefaultServices inserts the built-in services a store cannot run without.
// Existing rows are left alone, so seeding is safe on every open.
func SeedDefaultServices(database *sql.DB) error {
	for _, s := range services.Defaults() {
		options, err := json.Marshal(s.Options)
		if err != nil {
			return fmt.Errorf("seed services: %w", err)
		}
		if _, err := database.Exec(
			"INSERT OR IGNORE INTO services (service_key, service_type, name, options) VALUES (?, ?, ?, ?)",
			string(s.Key), string(s.Type), s.Name, string(options),
		); err != nil {
			return fmt.Errorf("seed services: %w", err)
		}
	}
	return nil
}
