package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/secondary"
)

// AutocompleteRepository implements secondary.AutocompleteRepository with SQLite.
// Counts come from ac_counts, never from counting mappings.
type AutocompleteRepository struct {
	db *sql.DB
}

// NewAutocompleteRepository creates a new SQLite autocomplete repository.
func NewAutocompleteRepository(db *sql.DB) *AutocompleteRepository {
	return &AutocompleteRepository{db: db}
}

// Suggest returns tags matching the pattern with counts summed over the
// tag services the key spans.
func (r *AutocompleteRepository) Suggest(ctx context.Context, key services.Key, pattern tags.Pattern, exact bool) ([]*secondary.TagCountRecord, error) {
	ids, err := tagServiceScope(ctx, r.db, key)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 || pattern.Raw == "" {
		return nil, nil
	}

	var (
		cond string
		args []any
	)
	if exact {
		cond, args = "t.tag = ?", []any{pattern.Raw}
	} else {
		// ac_counts has no tag columns, so the bare names resolve to t
		cond, args = wildcardCondition(pattern)
	}

	query := `
		SELECT t.tag, SUM(a.current_count), SUM(a.pending_count)
		FROM ac_counts a
		JOIN tags t ON t.tag_id = a.tag_id
		WHERE a.service_id IN (` + placeholders(len(ids)) + `) AND ` + cond + `
		GROUP BY t.tag
		HAVING SUM(a.current_count) > 0 OR SUM(a.pending_count) > 0
		ORDER BY t.tag`

	rows, err := r.db.QueryContext(ctx, query, append(int64Args(ids), args...)...)
	if err != nil {
		return nil, storageErr("suggest tags", err)
	}
	defer rows.Close()

	var list []*secondary.TagCountRecord
	for rows.Next() {
		record := &secondary.TagCountRecord{}
		if err := rows.Scan(&record.Tag, &record.CurrentCount, &record.PendingCount); err != nil {
			return nil, storageErr("scan tag suggestion", err)
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("suggest tags", err)
	}

	return list, nil
}

// Ensure AutocompleteRepository implements the interface
var _ secondary.AutocompleteRepository = (*AutocompleteRepository)(nil)
