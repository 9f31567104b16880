package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/secondary"
)

// Mapping statuses as stored in mappings.status.
const (
	statusCurrent    = "current"
	statusPending    = "pending"
	statusDeleted    = "deleted"
	statusPetitioned = "petitioned"
)

// ContentRepository implements secondary.ContentRepository with SQLite.
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new SQLite content repository.
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Apply commits a content batch atomically. Services are processed in key
// order and each service's updates in canonical order, so the outcome does
// not depend on how the batch was assembled.
func (r *ContentRepository) Apply(ctx context.Context, batch content.Batch, now time.Time) (summary *secondary.ApplySummary, err error) {
	summary = &secondary.ApplySummary{}
	if batch.Len() == 0 {
		return summary, nil
	}

	tx, err := begin(ctx, r.db)
	if err != nil {
		return nil, err
	}
	defer tx.Finish(&err)

	keys := make([]services.Key, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	w := &contentWriter{tx: tx, ts: now.Unix()}
	for _, key := range keys {
		svc, err := lookupActiveService(ctx, tx, key)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidContent, err)
		}
		if err != nil {
			return nil, err
		}

		for _, u := range content.Canonical(batch[key]) {
			check := content.CheckUpdate(svc.Service, u)
			switch check.Verdict {
			case content.Reject:
				return nil, fmt.Errorf("%w: %s", errs.ErrInvalidContent, check.Reason)
			case content.Skip:
				summary.Skipped = append(summary.Skipped, secondary.SkippedUpdate{
					Service: key,
					Type:    u.Type,
					Action:  u.Action,
					Reason:  check.Reason,
				})
				continue
			}

			if err := w.apply(ctx, svc, u); err != nil {
				return nil, err
			}
			summary.Applied++
		}
	}

	return summary, nil
}

// contentWriter applies single updates inside one batch transaction.
type contentWriter struct {
	tx *Txn
	ts int64
}

func (w *contentWriter) apply(ctx context.Context, svc *serviceRow, u content.Update) error {
	switch u.Type {
	case content.Mappings:
		return w.applyMappings(ctx, svc, u)
	case content.Files:
		return w.applyFiles(ctx, svc, u)
	case content.Ratings:
		return w.applyRatings(ctx, svc, u)
	}
	return fmt.Errorf("%w: unknown content type %q", errs.ErrInvalidContent, u.Type)
}

func (w *contentWriter) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := w.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr(op, err)
	}
	return n, nil
}

// ==================== mappings ====================

func (w *contentWriter) applyMappings(ctx context.Context, svc *serviceRow, u content.Update) error {
	tag := tags.Clean(u.Tag)
	if tag == "" {
		return fmt.Errorf("%w: tag %q is empty once cleaned", errs.ErrInvalidContent, u.Tag)
	}
	tagID, err := ensureTag(ctx, w.tx, tag)
	if err != nil {
		return err
	}

	var currentDelta, pendingDelta int64
	for _, h := range u.Hashes {
		hashID, err := ensureHash(ctx, w.tx, h)
		if err != nil {
			return err
		}
		dc, dp, err := w.applyMapping(ctx, svc.ID, tagID, hashID, u)
		if err != nil {
			return err
		}
		currentDelta += dc
		pendingDelta += dp
	}

	return w.adjustCounts(ctx, svc.ID, tagID, currentDelta, pendingDelta)
}

// applyMapping changes one (tag, file) pair and returns the count deltas.
func (w *contentWriter) applyMapping(ctx context.Context, serviceID, tagID, hashID int64, u content.Update) (int64, int64, error) {
	var currentDelta, pendingDelta int64

	remove := func(status string) (bool, error) {
		n, err := w.exec(ctx, "remove mapping",
			"DELETE FROM mappings WHERE service_id = ? AND tag_id = ? AND hash_id = ? AND status = ?",
			serviceID, tagID, hashID, status,
		)
		return n > 0, err
	}
	insert := func(status, reason string) (bool, error) {
		n, err := w.exec(ctx, "insert mapping",
			"INSERT OR IGNORE INTO mappings (service_id, tag_id, hash_id, status, reason) VALUES (?, ?, ?, ?, ?)",
			serviceID, tagID, hashID, status, reason,
		)
		return n > 0, err
	}
	has := func(status string) (bool, error) {
		var ok bool
		err := w.tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM mappings WHERE service_id = ? AND tag_id = ? AND hash_id = ? AND status = ?)",
			serviceID, tagID, hashID, status,
		).Scan(&ok)
		if err != nil {
			return false, storageErr("get mapping", err)
		}
		return ok, nil
	}

	switch u.Action {
	case content.Add:
		if removed, err := remove(statusPending); err != nil {
			return 0, 0, err
		} else if removed {
			pendingDelta--
		}
		if _, err := remove(statusPetitioned); err != nil {
			return 0, 0, err
		}
		if _, err := remove(statusDeleted); err != nil {
			return 0, 0, err
		}
		if added, err := insert(statusCurrent, ""); err != nil {
			return 0, 0, err
		} else if added {
			currentDelta++
		}

	case content.Delete:
		removed, err := remove(statusCurrent)
		if err != nil {
			return 0, 0, err
		}
		if !removed {
			break
		}
		currentDelta--
		if _, err := remove(statusPetitioned); err != nil {
			return 0, 0, err
		}
		if _, err := insert(statusDeleted, ""); err != nil {
			return 0, 0, err
		}

	case content.Pend:
		current, err := has(statusCurrent)
		if err != nil || current {
			return 0, 0, err
		}
		if added, err := insert(statusPending, ""); err != nil {
			return 0, 0, err
		} else if added {
			pendingDelta++
		}

	case content.RescindPend:
		if removed, err := remove(statusPending); err != nil {
			return 0, 0, err
		} else if removed {
			pendingDelta--
		}

	case content.Petition:
		current, err := has(statusCurrent)
		if err != nil || !current {
			return 0, 0, err
		}
		if _, err := insert(statusPetitioned, u.Reason); err != nil {
			return 0, 0, err
		}

	case content.RescindPetition:
		if _, err := remove(statusPetitioned); err != nil {
			return 0, 0, err
		}

	default:
		return 0, 0, fmt.Errorf("%w: action %s does not apply to mappings", errs.ErrInvalidContent, u.Action)
	}

	return currentDelta, pendingDelta, nil
}

// adjustCounts keeps ac_counts in step with mappings. Rows that drop to zero are removed.
func (w *contentWriter) adjustCounts(ctx context.Context, serviceID, tagID, currentDelta, pendingDelta int64) error {
	if currentDelta == 0 && pendingDelta == 0 {
		return nil
	}
	if _, err := w.exec(ctx, "update tag counts", `
		INSERT INTO ac_counts (service_id, tag_id, current_count, pending_count) VALUES (?, ?, ?, ?)
		ON CONFLICT(service_id, tag_id) DO UPDATE SET
			current_count = current_count + excluded.current_count,
			pending_count = pending_count + excluded.pending_count`,
		serviceID, tagID, currentDelta, pendingDelta,
	); err != nil {
		return err
	}
	_, err := w.exec(ctx, "prune tag counts",
		"DELETE FROM ac_counts WHERE service_id = ? AND tag_id = ? AND current_count <= 0 AND pending_count <= 0",
		serviceID, tagID,
	)
	return err
}

// ==================== files ====================

func (w *contentWriter) applyFiles(ctx context.Context, svc *serviceRow, u content.Update) error {
	for _, h := range u.Hashes {
		hashID, err := ensureHash(ctx, w.tx, h)
		if err != nil {
			return err
		}
		if err := w.applyFile(ctx, svc, hashID, h, u); err != nil {
			return err
		}
	}
	return nil
}

func (w *contentWriter) applyFile(ctx context.Context, svc *serviceRow, hashID int64, h files.Hash, u content.Update) error {
	switch u.Action {
	case content.Add:
		return w.addFile(ctx, svc, hashID, h)
	case content.Delete:
		return w.deleteFile(ctx, svc, hashID)
	case content.Pend:
		current, err := w.isCurrent(ctx, svc.ID, hashID)
		if err != nil || current {
			return err
		}
		_, err = w.exec(ctx, "pend file",
			"INSERT OR IGNORE INTO pending_files (service_id, hash_id) VALUES (?, ?)", svc.ID, hashID)
		return err
	case content.RescindPend:
		_, err := w.exec(ctx, "rescind pending file",
			"DELETE FROM pending_files WHERE service_id = ? AND hash_id = ?", svc.ID, hashID)
		return err
	case content.Petition:
		current, err := w.isCurrent(ctx, svc.ID, hashID)
		if err != nil || !current {
			return err
		}
		_, err = w.exec(ctx, "petition file",
			"INSERT OR REPLACE INTO petitioned_files (service_id, hash_id, reason) VALUES (?, ?, ?)", svc.ID, hashID, u.Reason)
		return err
	case content.RescindPetition:
		_, err := w.exec(ctx, "rescind file petition",
			"DELETE FROM petitioned_files WHERE service_id = ? AND hash_id = ?", svc.ID, hashID)
		return err
	case content.Archive:
		_, err := w.exec(ctx, "archive file", "DELETE FROM file_inbox WHERE hash_id = ?", hashID)
		return err
	case content.Inbox:
		_, err := w.exec(ctx, "inbox file",
			`INSERT OR IGNORE INTO file_inbox (hash_id)
			SELECT hash_id FROM current_files WHERE service_id = ? AND hash_id = ?`,
			svc.ID, hashID)
		return err
	}
	return fmt.Errorf("%w: action %s does not apply to files", errs.ErrInvalidContent, u.Action)
}

func (w *contentWriter) isCurrent(ctx context.Context, serviceID, hashID int64) (bool, error) {
	var ok bool
	err := w.tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM current_files WHERE service_id = ? AND hash_id = ?)",
		serviceID, hashID,
	).Scan(&ok)
	if err != nil {
		return false, storageErr("get file membership", err)
	}
	return ok, nil
}

func (w *contentWriter) setCurrent(ctx context.Context, serviceID, hashID int64) error {
	if _, err := w.exec(ctx, "add current file",
		"INSERT OR IGNORE INTO current_files (service_id, hash_id, timestamp) VALUES (?, ?, ?)",
		serviceID, hashID, w.ts,
	); err != nil {
		return err
	}
	if _, err := w.exec(ctx, "clear deleted file",
		"DELETE FROM deleted_files WHERE service_id = ? AND hash_id = ?", serviceID, hashID,
	); err != nil {
		return err
	}
	_, err := w.exec(ctx, "clear pending file",
		"DELETE FROM pending_files WHERE service_id = ? AND hash_id = ?", serviceID, hashID)
	return err
}

// removeCurrent drops a file from a service, recording the deletion. It
// reports whether the file was current there.
func (w *contentWriter) removeCurrent(ctx context.Context, serviceID, hashID int64) (bool, error) {
	n, err := w.exec(ctx, "remove current file",
		"DELETE FROM current_files WHERE service_id = ? AND hash_id = ?", serviceID, hashID)
	if err != nil || n == 0 {
		return false, err
	}
	if _, err := w.exec(ctx, "clear file petition",
		"DELETE FROM petitioned_files WHERE service_id = ? AND hash_id = ?", serviceID, hashID,
	); err != nil {
		return false, err
	}
	_, err = w.exec(ctx, "record deleted file",
		"INSERT OR REPLACE INTO deleted_files (service_id, hash_id, timestamp) VALUES (?, ?, ?)",
		serviceID, hashID, w.ts,
	)
	return true, err
}

func (w *contentWriter) addFile(ctx context.Context, svc *serviceRow, hashID int64, h files.Hash) error {
	if !svc.Service.Type.IsLocalFileService() {
		return w.setCurrent(ctx, svc.ID, hashID)
	}

	var known bool
	if err := w.tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM files_info WHERE hash_id = ?)", hashID,
	).Scan(&known); err != nil {
		return storageErr("get file info", err)
	}
	if !known {
		return fmt.Errorf("%w: file %s is not in the client files store", errs.ErrInvalidContent, h)
	}

	combinedID, err := builtinServiceID(ctx, w.tx, services.CombinedLocalFile)
	if err != nil {
		return err
	}
	trashID, err := builtinServiceID(ctx, w.tx, services.LocalFileTrash)
	if err != nil {
		return err
	}

	if err := w.setCurrent(ctx, svc.ID, hashID); err != nil {
		return err
	}
	if svc.ID != combinedID {
		if err := w.setCurrent(ctx, combinedID, hashID); err != nil {
			return err
		}
	}
	if svc.ID != trashID {
		if _, err := w.exec(ctx, "untrash file",
			"DELETE FROM current_files WHERE service_id = ? AND hash_id = ?", trashID, hashID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (w *contentWriter) deleteFile(ctx context.Context, svc *serviceRow, hashID int64) error {
	switch svc.Service.Type {
	case services.LocalFileDomain, services.LocalFileUpdates:
		removed, err := w.removeCurrent(ctx, svc.ID, hashID)
		if err != nil || !removed {
			return err
		}
		trashID, err := builtinServiceID(ctx, w.tx, services.LocalFileTrash)
		if err != nil {
			return err
		}
		_, err = w.exec(ctx, "trash file",
			"INSERT OR IGNORE INTO current_files (service_id, hash_id, timestamp) VALUES (?, ?, ?)",
			trashID, hashID, w.ts,
		)
		return err

	case services.LocalFileTrash, services.CombinedLocalFile:
		localIDs, err := serviceIDsOfType(ctx, w.tx,
			services.LocalFileDomain, services.LocalFileUpdates, services.LocalFileTrash, services.CombinedLocalFile)
		if err != nil {
			return err
		}
		for _, id := range localIDs {
			if _, err := w.removeCurrent(ctx, id, hashID); err != nil {
				return err
			}
		}
		_, err = w.exec(ctx, "archive deleted file", "DELETE FROM file_inbox WHERE hash_id = ?", hashID)
		return err
	}

	_, err := w.removeCurrent(ctx, svc.ID, hashID)
	return err
}

// ==================== ratings ====================

func (w *contentWriter) applyRatings(ctx context.Context, svc *serviceRow, u content.Update) error {
	for _, h := range u.Hashes {
		hashID, err := ensureHash(ctx, w.tx, h)
		if err != nil {
			return err
		}

		if u.Action == content.Delete || u.Rating == nil {
			if _, err := w.exec(ctx, "clear rating",
				"DELETE FROM ratings WHERE service_id = ? AND hash_id = ?", svc.ID, hashID,
			); err != nil {
				return err
			}
			continue
		}

		if _, err := w.exec(ctx, "set rating",
			"INSERT OR REPLACE INTO ratings (service_id, hash_id, rating) VALUES (?, ?, ?)",
			svc.ID, hashID, *u.Rating,
		); err != nil {
			return err
		}
	}
	return nil
}

// ==================== pending ====================

// Pending collects the outgoing content of a repository service.
func (r *ContentRepository) Pending(ctx context.Context, key services.Key) (*secondary.PendingRecord, error) {
	svc, err := lookupActiveService(ctx, r.db, key)
	if err != nil {
		return nil, err
	}
	if !svc.Service.Type.IsRepository() {
		return nil, fmt.Errorf("%w: %s is not a repository", errs.ErrInvalidContent, key)
	}

	record := &secondary.PendingRecord{
		Service:         key,
		PendingMappings: make(map[string][]files.Hash),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.tag, m.status, m.reason, h.hash
		FROM mappings m
		JOIN tags t ON t.tag_id = m.tag_id
		JOIN hashes h ON h.hash_id = m.hash_id
		WHERE m.service_id = ? AND m.status IN (?, ?)
		ORDER BY t.tag, m.reason, h.hash`,
		svc.ID, statusPending, statusPetitioned,
	)
	if err != nil {
		return nil, storageErr("list pending mappings", err)
	}
	defer rows.Close()

	petitions := make(map[[2]string]int)
	for rows.Next() {
		var (
			tag, status, reason string
			raw                 []byte
		)
		if err := rows.Scan(&tag, &status, &reason, &raw); err != nil {
			return nil, storageErr("scan pending mapping", err)
		}
		h, err := files.HashFromBytes(raw)
		if err != nil {
			return nil, storageErr("decode hash", err)
		}

		if status == statusPending {
			record.PendingMappings[tag] = append(record.PendingMappings[tag], h)
			continue
		}
		i, ok := petitions[[2]string{tag, reason}]
		if !ok {
			i = len(record.PetitionedMappings)
			petitions[[2]string{tag, reason}] = i
			record.PetitionedMappings = append(record.PetitionedMappings, secondary.MappingPetition{Tag: tag, Reason: reason})
		}
		record.PetitionedMappings[i].Hashes = append(record.PetitionedMappings[i].Hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list pending mappings", err)
	}

	if record.PendingFiles, err = r.hashes(ctx,
		"SELECT h.hash FROM pending_files p JOIN hashes h ON h.hash_id = p.hash_id WHERE p.service_id = ? ORDER BY h.hash",
		svc.ID,
	); err != nil {
		return nil, err
	}

	petitionRows, err := r.db.QueryContext(ctx,
		"SELECT h.hash, p.reason FROM petitioned_files p JOIN hashes h ON h.hash_id = p.hash_id WHERE p.service_id = ? ORDER BY h.hash",
		svc.ID,
	)
	if err != nil {
		return nil, storageErr("list petitioned files", err)
	}
	defer petitionRows.Close()
	for petitionRows.Next() {
		var (
			raw    []byte
			reason string
		)
		if err := petitionRows.Scan(&raw, &reason); err != nil {
			return nil, storageErr("scan petitioned file", err)
		}
		h, err := files.HashFromBytes(raw)
		if err != nil {
			return nil, storageErr("decode hash", err)
		}
		record.PetitionedFiles = append(record.PetitionedFiles, secondary.FilePetition{Hash: h, Reason: reason})
	}
	if err := petitionRows.Err(); err != nil {
		return nil, storageErr("list petitioned files", err)
	}

	return record, nil
}

// NumsPending counts outgoing content per active repository service.
func (r *ContentRepository) NumsPending(ctx context.Context) (map[services.Key]secondary.PendingCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.service_key,
			(SELECT COUNT(*) FROM mappings m WHERE m.service_id = s.service_id AND m.status = ?),
			(SELECT COUNT(*) FROM mappings m WHERE m.service_id = s.service_id AND m.status = ?),
			(SELECT COUNT(*) FROM pending_files p WHERE p.service_id = s.service_id),
			(SELECT COUNT(*) FROM petitioned_files p WHERE p.service_id = s.service_id)
		FROM services s
		WHERE s.active = 1 AND s.service_type IN (?, ?)`,
		statusPending, statusPetitioned, string(services.TagRepository), string(services.FileRepository),
	)
	if err != nil {
		return nil, storageErr("count pending content", err)
	}
	defer rows.Close()

	counts := make(map[services.Key]secondary.PendingCounts)
	for rows.Next() {
		var (
			key string
			c   secondary.PendingCounts
		)
		if err := rows.Scan(&key, &c.PendingMappings, &c.PetitionedMappings, &c.PendingFiles, &c.PetitionedFiles); err != nil {
			return nil, storageErr("scan pending counts", err)
		}
		counts[services.Key(key)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("count pending content", err)
	}
	return counts, nil
}

// Downloads lists files pended to combined-local that are not yet local.
func (r *ContentRepository) Downloads(ctx context.Context) ([]files.Hash, error) {
	combinedID, err := builtinServiceID(ctx, r.db, services.CombinedLocalFile)
	if err != nil {
		return nil, err
	}
	return r.hashes(ctx,
		"SELECT h.hash FROM pending_files p JOIN hashes h ON h.hash_id = p.hash_id WHERE p.service_id = ? ORDER BY h.hash",
		combinedID,
	)
}

func (r *ContentRepository) hashes(ctx context.Context, query string, args ...any) ([]files.Hash, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list hashes", err)
	}
	defer rows.Close()

	var list []files.Hash
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storageErr("scan hash", err)
		}
		h, err := files.HashFromBytes(raw)
		if err != nil {
			return nil, storageErr("decode hash", err)
		}
		list = append(list, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list hashes", err)
	}
	return list, nil
}

// Ensure ContentRepository implements the interface
var _ secondary.ContentRepository = (*ContentRepository)(nil)
