package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
	"github.com/example/mediadb/internal/ports/secondary"
)

// ServiceRepository implements secondary.ServiceRepository with SQLite.
type ServiceRepository struct {
	db *sql.DB
}

// NewServiceRepository creates a new SQLite service repository.
func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// List retrieves registered services in registration order.
func (r *ServiceRepository) List(ctx context.Context, includeInactive bool) ([]*secondary.ServiceRecord, error) {
	query := "SELECT service_id, service_key, service_type, name, options, active FROM services"
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY service_id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list services", err)
	}
	defer rows.Close()

	var list []*secondary.ServiceRecord
	for rows.Next() {
		var (
			record      secondary.ServiceRecord
			key         string
			serviceType string
			options     string
		)
		if err := rows.Scan(&record.ID, &key, &serviceType, &record.Service.Name, &options, &record.Active); err != nil {
			return nil, storageErr("scan service", err)
		}
		record.Service.Key = services.Key(key)
		record.Service.Type = services.Type(serviceType)
		if err := decodeOptions(options, &record.Service.Options); err != nil {
			return nil, err
		}
		list = append(list, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list services", err)
	}

	return list, nil
}

// GetByKey retrieves a service by its key.
func (r *ServiceRepository) GetByKey(ctx context.Context, key services.Key) (*secondary.ServiceRecord, error) {
	row, err := lookupService(ctx, r.db, key)
	if err != nil {
		return nil, err
	}
	return &secondary.ServiceRecord{ID: row.ID, Service: row.Service, Active: row.Active}, nil
}

// ApplyPlan writes a registry diff in one transaction.
func (r *ServiceRepository) ApplyPlan(ctx context.Context, plan services.RegistryPlan) (err error) {
	if plan.IsEmpty() {
		return nil
	}

	tx, err := begin(ctx, r.db)
	if err != nil {
		return err
	}
	defer tx.Finish(&err)

	for _, s := range plan.Added {
		options, err := encodeOptions(s.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO services (service_key, service_type, name, options) VALUES (?, ?, ?, ?)",
			string(s.Key), string(s.Type), s.Name, options,
		); err != nil {
			return storageErr("create service", err)
		}
	}

	for _, s := range append(plan.Reactivated, plan.Updated...) {
		options, err := encodeOptions(s.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE services SET name = ?, options = ?, active = 1, updated_at = CURRENT_TIMESTAMP WHERE service_key = ?",
			s.Name, options, string(s.Key),
		); err != nil {
			return storageErr("update service", err)
		}
	}

	for _, s := range plan.Removed {
		if _, err := tx.ExecContext(ctx,
			"UPDATE services SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE service_key = ?",
			string(s.Key),
		); err != nil {
			return storageErr("disable service", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE registry_version SET version = version + 1 WHERE id = 1"); err != nil {
		return storageErr("bump registry version", err)
	}

	return nil
}

// Version returns the registry version.
func (r *ServiceRepository) Version(ctx context.Context) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, "SELECT version FROM registry_version WHERE id = 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("get registry version", err)
	}
	return version, nil
}

// GetTagFilter retrieves the tag filter of a service.
func (r *ServiceRepository) GetTagFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error) {
	row, err := lookupActiveService(ctx, r.db, key)
	if err != nil {
		return nil, err
	}

	var rules string
	err = r.db.QueryRowContext(ctx, "SELECT rules FROM tag_filters WHERE service_id = ?", row.ID).Scan(&rules)
	if err == sql.ErrNoRows {
		return tagfilter.New(), nil
	}
	if err != nil {
		return nil, storageErr("get tag filter", err)
	}

	filter := tagfilter.New()
	if err := json.Unmarshal([]byte(rules), filter); err != nil {
		return nil, storageErr("decode tag filter", err)
	}
	return filter, nil
}

// SetTagFilter replaces the tag filter of a service. An empty filter clears it.
func (r *ServiceRepository) SetTagFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error {
	row, err := lookupActiveService(ctx, r.db, key)
	if err != nil {
		return err
	}

	if filter == nil || filter.IsEmpty() {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM tag_filters WHERE service_id = ?", row.ID); err != nil {
			return storageErr("clear tag filter", err)
		}
		return nil
	}

	rules, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("failed to encode tag filter: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO tag_filters (service_id, rules) VALUES (?, ?) ON CONFLICT(service_id) DO UPDATE SET rules = excluded.rules",
		row.ID, string(rules),
	); err != nil {
		return storageErr("set tag filter", err)
	}
	return nil
}

func encodeOptions(o services.Options) (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to encode service options: %w", err)
	}
	return string(b), nil
}

func decodeOptions(s string, o *services.Options) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), o); err != nil {
		return storageErr("decode service options", err)
	}
	return nil
}

// Ensure ServiceRepository implements the interface
var _ secondary.ServiceRepository = (*ServiceRepository)(nil)
