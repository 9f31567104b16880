// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Txn is a scoped write transaction. Finish commits when the surrounding
// function returns a nil error and rolls back otherwise, exactly once.
//
//	tx, err := begin(ctx, r.db)
//	if err != nil {
//		return err
//	}
//	defer tx.Finish(&err)
type Txn struct {
	*sql.Tx
	done bool
}

func begin(ctx context.Context, db *sql.DB) (*Txn, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	return &Txn{Tx: tx}, nil
}

// Finish commits or rolls back depending on *errp. A failed commit is
// reported through *errp.
func (t *Txn) Finish(errp *error) {
	if t.done {
		return
	}
	t.done = true

	if *errp != nil {
		_ = t.Rollback()
		return
	}
	if err := t.Commit(); err != nil {
		*errp = storageErr("commit transaction", err)
	}
}

// storageErr wraps a database failure. Errors that already carry a domain
// kind pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{errs.ErrNotFound, errs.ErrInvalidContent, errs.ErrConflict, errs.ErrStorageFailure, errs.ErrSuperseded} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", errs.ErrStorageFailure, op, err)
}

// serviceRow is a registry row resolved for a write or query.
type serviceRow struct {
	ID      int64
	Service services.Service
	Active  bool
}

func lookupService(ctx context.Context, q querier, key services.Key) (*serviceRow, error) {
	var (
		row         serviceRow
		serviceKey  string
		serviceType string
		options     string
	)
	err := q.QueryRowContext(ctx,
		"SELECT service_id, service_key, service_type, name, options, active FROM services WHERE service_key = ?",
		string(key),
	).Scan(&row.ID, &serviceKey, &serviceType, &row.Service.Name, &options, &row.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: service %s", errs.ErrNotFound, key)
	}
	if err != nil {
		return nil, storageErr("get service", err)
	}
	row.Service.Key = services.Key(serviceKey)
	row.Service.Type = services.Type(serviceType)
	if err := decodeOptions(options, &row.Service.Options); err != nil {
		return nil, err
	}
	return &row, nil
}

// lookupActiveService is lookupService for writes and reads scoped to a
// service: disabled services are reported as not found.
func lookupActiveService(ctx context.Context, q querier, key services.Key) (*serviceRow, error) {
	row, err := lookupService(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if !row.Active {
		return nil, fmt.Errorf("%w: service %s is disabled", errs.ErrNotFound, key)
	}
	return row, nil
}

// serviceIDsOfType returns the ids of active services with one of the given types.
func serviceIDsOfType(ctx context.Context, q querier, types ...services.Type) ([]int64, error) {
	if len(types) == 0 {
		return nil, nil
	}
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}
	rows, err := q.QueryContext(ctx,
		"SELECT service_id FROM services WHERE active = 1 AND service_type IN ("+placeholders(len(types))+") ORDER BY service_id",
		args...,
	)
	if err != nil {
		return nil, storageErr("list services by type", err)
	}
	return scanIDs(rows)
}

// builtinServiceID resolves the single active service of a built-in type.
func builtinServiceID(ctx context.Context, q querier, t services.Type) (int64, error) {
	ids, err := serviceIDsOfType(ctx, q, t)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no active %s service", errs.ErrNotFound, t)
	}
	return ids[0], nil
}

// hashID resolves a content hash to its row id.
func hashID(ctx context.Context, q querier, h files.Hash) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT hash_id FROM hashes WHERE hash = ?", h[:]).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("get hash", err)
	}
	return id, true, nil
}

// ensureHash resolves a content hash, creating its row when missing.
func ensureHash(ctx context.Context, q querier, h files.Hash) (int64, error) {
	id, ok, err := hashID(ctx, q, h)
	if err != nil || ok {
		return id, err
	}
	res, err := q.ExecContext(ctx, "INSERT INTO hashes (hash) VALUES (?)", h[:])
	if err != nil {
		return 0, storageErr("insert hash", err)
	}
	return res.LastInsertId()
}

// ensureTag resolves a cleaned tag, creating its row when missing.
func ensureTag(ctx context.Context, q querier, tag string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT tag_id FROM tags WHERE tag = ?", tag).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, storageErr("get tag", err)
	}

	namespace, subtag := tags.Split(tag)
	res, err := q.ExecContext(ctx,
		"INSERT INTO tags (tag, namespace, subtag) VALUES (?, ?, ?)",
		tag, namespace, subtag,
	)
	if err != nil {
		return 0, storageErr("insert tag", err)
	}
	return res.LastInsertId()
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate ids", err)
	}
	return ids, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
