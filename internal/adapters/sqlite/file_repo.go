package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/ports/secondary"
)

// FileRepository implements secondary.FileRepository with SQLite.
type FileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

// auxHashColumns maps auxiliary hash types to their local_hashes column.
var auxHashColumns = map[files.HashType]string{
	files.HashMD5:    "md5",
	files.HashSHA1:   "sha1",
	files.HashSHA512: "sha512",
}

// Lookup resolves a digest to the store's view of the file.
func (r *FileRepository) Lookup(ctx context.Context, hashType files.HashType, digest []byte) (*secondary.HashStatusRecord, error) {
	if hashType.Size() == 0 || len(digest) != hashType.Size() {
		return nil, fmt.Errorf("%w: %d byte digest is not a valid %s hash", errs.ErrInvalidContent, len(digest), hashType)
	}

	var (
		id  int64
		raw []byte
		err error
	)
	if hashType == files.HashSHA256 {
		err = r.db.QueryRowContext(ctx, "SELECT hash_id, hash FROM hashes WHERE hash = ?", digest).Scan(&id, &raw)
	} else {
		err = r.db.QueryRowContext(ctx,
			"SELECT h.hash_id, h.hash FROM local_hashes l JOIN hashes h ON h.hash_id = l.hash_id WHERE l."+auxHashColumns[hashType]+" = ?",
			digest,
		).Scan(&id, &raw)
	}
	if err == sql.ErrNoRows {
		return &secondary.HashStatusRecord{}, nil
	}
	if err != nil {
		return nil, storageErr("look up hash", err)
	}

	record := &secondary.HashStatusRecord{HashID: id}
	if record.Hash, err = files.HashFromBytes(raw); err != nil {
		return nil, storageErr("decode hash", err)
	}

	var mime sql.NullString
	err = r.db.QueryRowContext(ctx, "SELECT mime FROM files_info WHERE hash_id = ?", id).Scan(&mime)
	if err != nil && err != sql.ErrNoRows {
		return nil, storageErr("get file info", err)
	}
	record.Known = mime.Valid
	record.Mime = mime.String

	err = r.db.QueryRowContext(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM current_files c JOIN services s ON s.service_id = c.service_id
				WHERE c.hash_id = ? AND s.active = 1 AND s.service_type IN (?, ?)),
			EXISTS(SELECT 1 FROM current_files c JOIN services s ON s.service_id = c.service_id
				WHERE c.hash_id = ? AND s.service_type = ?),
			EXISTS(SELECT 1 FROM deleted_files d JOIN services s ON s.service_id = d.service_id
				WHERE d.hash_id = ? AND s.service_type IN (?, ?))`,
		id, string(services.LocalFileDomain), string(services.LocalFileUpdates),
		id, string(services.LocalFileTrash),
		id, string(services.LocalFileDomain), string(services.LocalFileUpdates),
	).Scan(&record.Current, &record.Trashed, &record.Deleted)
	if err != nil {
		return nil, storageErr("get file status", err)
	}

	return record, nil
}

// Admit stores a batch of new files: identity, info, and current rows in
// their domain and in combined-local.
func (r *FileRepository) Admit(ctx context.Context, records []*secondary.FileRecord, now time.Time) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := begin(ctx, r.db)
	if err != nil {
		return err
	}
	defer tx.Finish(&err)

	combinedID, err := builtinServiceID(ctx, tx, services.CombinedLocalFile)
	if err != nil {
		return err
	}
	trashID, err := builtinServiceID(ctx, tx, services.LocalFileTrash)
	if err != nil {
		return err
	}

	domains := make(map[services.Key]int64)
	for _, rec := range records {
		domainID, ok := domains[rec.Domain]
		if !ok {
			domain, err := lookupActiveService(ctx, tx, rec.Domain)
			if err != nil {
				return err
			}
			if domain.Service.Type != services.LocalFileDomain && domain.Service.Type != services.LocalFileUpdates {
				return fmt.Errorf("%w: %s is not a local file domain", errs.ErrInvalidContent, rec.Domain)
			}
			domainID = domain.ID
			domains[rec.Domain] = domainID
		}

		if err := admitOne(ctx, tx, rec, domainID, combinedID, trashID, now.Unix()); err != nil {
			return err
		}
	}

	return nil
}

func admitOne(ctx context.Context, tx *Txn, rec *secondary.FileRecord, domainID, combinedID, trashID, ts int64) error {
	id, err := ensureHash(ctx, tx, rec.Hashes.SHA256)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO local_hashes (hash_id, md5, sha1, sha512) VALUES (?, ?, ?, ?)",
		id, rec.Hashes.MD5, rec.Hashes.SHA1, rec.Hashes.SHA512,
	); err != nil {
		return storageErr("store local hashes", err)
	}

	info := rec.Info
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO files_info (hash_id, size, mime, width, height, duration, num_frames, num_words)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Size, info.Mime, nullInt(info.Width), nullInt(info.Height),
		nullInt(info.Duration), nullInt(info.NumFrames), nullInt(info.NumWords),
	); err != nil {
		return storageErr("store file info", err)
	}

	if rec.Hashes.Perceptual != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO perceptual_hashes (hash_id, phash) VALUES (?, ?)",
			id, int64(*rec.Hashes.Perceptual),
		); err != nil {
			return storageErr("store perceptual hash", err)
		}
	}

	for _, serviceID := range []int64{domainID, combinedID} {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO current_files (service_id, hash_id, timestamp) VALUES (?, ?, ?)",
			serviceID, id, ts,
		); err != nil {
			return storageErr("add current file", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM deleted_files WHERE service_id = ? AND hash_id = ?",
			serviceID, id,
		); err != nil {
			return storageErr("clear deleted file", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM current_files WHERE service_id = ? AND hash_id = ?", trashID, id); err != nil {
		return storageErr("clear trashed file", err)
	}

	if rec.Inbox {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO file_inbox (hash_id) VALUES (?)", id); err != nil {
			return storageErr("inbox file", err)
		}
	}

	return nil
}

// HashIDs resolves content hashes to row ids. Unknown hashes are absent from the map.
func (r *FileRepository) HashIDs(ctx context.Context, hashes []files.Hash) (map[files.Hash]int64, error) {
	ids := make(map[files.Hash]int64, len(hashes))
	for _, h := range hashes {
		id, ok, err := hashID(ctx, r.db, h)
		if err != nil {
			return nil, err
		}
		if ok {
			ids[h] = id
		}
	}
	return ids, nil
}

// MediaResults loads full descriptions for the given file ids, in the order given.
func (r *FileRepository) MediaResults(ctx context.Context, hashIDs []int64) ([]*secondary.MediaResultRecord, error) {
	combinedID, err := builtinServiceID(ctx, r.db, services.CombinedLocalFile)
	if err != nil {
		return nil, err
	}

	results := make([]*secondary.MediaResultRecord, 0, len(hashIDs))
	for _, id := range hashIDs {
		record, err := r.mediaResult(ctx, id, combinedID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			results = append(results, record)
		}
	}
	return results, nil
}

func (r *FileRepository) mediaResult(ctx context.Context, id, combinedID int64) (*secondary.MediaResultRecord, error) {
	record := &secondary.MediaResultRecord{
		HashID:  id,
		Tags:    make(map[services.Key]*secondary.TagsByStatus),
		Ratings: make(map[services.Key]float64),
	}

	var raw []byte
	err := r.db.QueryRowContext(ctx, "SELECT hash FROM hashes WHERE hash_id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get hash", err)
	}
	if record.Hash, err = files.HashFromBytes(raw); err != nil {
		return nil, storageErr("decode hash", err)
	}

	var (
		info                                         files.Info
		width, height, duration, numFrames, numWords sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx,
		"SELECT size, mime, width, height, duration, num_frames, num_words FROM files_info WHERE hash_id = ?",
		id,
	).Scan(&info.Size, &info.Mime, &width, &height, &duration, &numFrames, &numWords)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, storageErr("get file info", err)
	default:
		info.Width = intPtr(width)
		info.Height = intPtr(height)
		info.Duration = intPtr(duration)
		info.NumFrames = intPtr(numFrames)
		info.NumWords = intPtr(numWords)
		record.Info = &info
	}

	err = r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM file_inbox WHERE hash_id = ?)", id).Scan(&record.Inbox)
	if err != nil {
		return nil, storageErr("get inbox", err)
	}

	var ts int64
	err = r.db.QueryRowContext(ctx, "SELECT timestamp FROM current_files WHERE service_id = ? AND hash_id = ?", combinedID, id).Scan(&ts)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, storageErr("get import time", err)
	default:
		t := time.Unix(ts, 0)
		record.Timestamp = &t
	}

	locations := []struct {
		table string
		dest  *[]services.Key
	}{
		{"current_files", &record.CurrentIn},
		{"deleted_files", &record.DeletedIn},
		{"pending_files", &record.PendingIn},
		{"petitioned_files", &record.PetitionedIn},
	}
	for _, loc := range locations {
		keys, err := r.serviceKeys(ctx,
			"SELECT s.service_key FROM "+loc.table+" f JOIN services s ON s.service_id = f.service_id WHERE f.hash_id = ? AND s.active = 1 ORDER BY s.service_id",
			id,
		)
		if err != nil {
			return nil, err
		}
		*loc.dest = keys
	}

	if err := r.loadTags(ctx, record); err != nil {
		return nil, err
	}
	if err := r.loadRatings(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *FileRepository) serviceKeys(ctx context.Context, query string, args ...any) ([]services.Key, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list file services", err)
	}
	defer rows.Close()

	var keys []services.Key
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storageErr("scan service key", err)
		}
		keys = append(keys, services.Key(key))
	}
	return keys, rows.Err()
}

func (r *FileRepository) loadTags(ctx context.Context, record *secondary.MediaResultRecord) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.service_key, t.tag, m.status
		FROM mappings m
		JOIN tags t ON t.tag_id = m.tag_id
		JOIN services s ON s.service_id = m.service_id
		WHERE m.hash_id = ? AND s.active = 1`,
		record.HashID,
	)
	if err != nil {
		return storageErr("list file tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, tag, status string
		if err := rows.Scan(&key, &tag, &status); err != nil {
			return storageErr("scan file tag", err)
		}
		byStatus := record.Tags[services.Key(key)]
		if byStatus == nil {
			byStatus = &secondary.TagsByStatus{}
			record.Tags[services.Key(key)] = byStatus
		}
		switch status {
		case statusCurrent:
			byStatus.Current = append(byStatus.Current, tag)
		case statusPending:
			byStatus.Pending = append(byStatus.Pending, tag)
		case statusDeleted:
			byStatus.Deleted = append(byStatus.Deleted, tag)
		case statusPetitioned:
			byStatus.Petitioned = append(byStatus.Petitioned, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr("list file tags", err)
	}

	for _, byStatus := range record.Tags {
		sort.Strings(byStatus.Current)
		sort.Strings(byStatus.Pending)
		sort.Strings(byStatus.Deleted)
		sort.Strings(byStatus.Petitioned)
	}
	return nil
}

func (r *FileRepository) loadRatings(ctx context.Context, record *secondary.MediaResultRecord) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.service_key, r.rating
		FROM ratings r
		JOIN services s ON s.service_id = r.service_id
		WHERE r.hash_id = ? AND s.active = 1`,
		record.HashID,
	)
	if err != nil {
		return storageErr("list file ratings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key    string
			rating float64
		)
		if err := rows.Scan(&key, &rating); err != nil {
			return storageErr("scan file rating", err)
		}
		record.Ratings[services.Key(key)] = rating
	}
	return rows.Err()
}

// Ensure FileRepository implements the interface
var _ secondary.FileRepository = (*FileRepository)(nil)
