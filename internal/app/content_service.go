package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// ContentServiceImpl implements the ContentService interface.
type ContentServiceImpl struct {
	contentRepo secondary.ContentRepository
	fileRepo    secondary.FileRepository
	store       secondary.ClientFileStore
	queue       *WriteQueue
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewContentService creates a new ContentService with injected dependencies.
func NewContentService(
	contentRepo secondary.ContentRepository,
	fileRepo secondary.FileRepository,
	store secondary.ClientFileStore,
	queue *WriteQueue,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ContentServiceImpl {
	return &ContentServiceImpl{
		contentRepo: contentRepo,
		fileRepo:    fileRepo,
		store:       store,
		queue:       queue,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

type skipKey struct {
	service services.Key
	typ     content.Type
	action  content.Action
}

// ApplyContentUpdates commits the batch through the write queue. Files that
// left local storage entirely lose their bytes inside the same write, so an
// import of the same file is ordered against the removal.
func (s *ContentServiceImpl) ApplyContentUpdates(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error) {
	var summary *secondary.ApplySummary
	err := s.queue.Write(ctx, "content", func(ctx context.Context) error {
		var err error
		summary, err = s.contentRepo.Apply(ctx, batch, s.now())
		if err != nil {
			return err
		}
		s.removePhysically(ctx, removedHashes(batch, s.skippedSet(summary)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply content updates: %w", err)
	}

	skipped := s.skippedSet(summary)
	for _, sk := range summary.Skipped {
		s.logger.Debug("content update skipped",
			zap.String("service", string(sk.Service)),
			zap.String("type", string(sk.Type)),
			zap.String("action", string(sk.Action)),
			zap.String("reason", sk.Reason))
	}
	for key, updates := range batch {
		for _, u := range updates {
			if skipped[skipKey{key, u.Type, u.Action}] {
				continue
			}
			s.metrics.ContentUpdates.WithLabelValues(string(u.Type), string(u.Action)).Inc()
		}
	}

	return &primary.ApplyResult{Applied: summary.Applied, Skipped: len(summary.Skipped)}, nil
}

func (s *ContentServiceImpl) skippedSet(summary *secondary.ApplySummary) map[skipKey]bool {
	skipped := make(map[skipKey]bool, len(summary.Skipped))
	for _, sk := range summary.Skipped {
		skipped[skipKey{sk.Service, sk.Type, sk.Action}] = true
	}
	return skipped
}

// removedHashes lists the files a batch deleted from trash or from the
// combined local domain.
func removedHashes(batch content.Batch, skipped map[skipKey]bool) []files.Hash {
	var removed []files.Hash
	for key, updates := range batch {
		if key != services.TrashKey && key != services.CombinedLocalKey {
			continue
		}
		for _, u := range updates {
			if u.Type == content.Files && u.Action == content.Delete && !skipped[skipKey{key, u.Type, u.Action}] {
				removed = append(removed, u.Hashes...)
			}
		}
	}
	return removed
}

// removePhysically drops the bytes of files no longer held by any local
// service. It runs inside a write job. Failures are logged; the records are
// already committed.
func (s *ContentServiceImpl) removePhysically(ctx context.Context, hashes []files.Hash) {
	for _, h := range hashes {
		status, err := s.fileRepo.Lookup(ctx, files.HashSHA256, h[:])
		if err != nil {
			s.logger.Warn("failed to check deleted file", zap.String("hash", h.Hex()), zap.Error(err))
			continue
		}
		if !status.Known || status.Current || status.Trashed {
			continue
		}
		if err := s.store.Remove(ctx, h, status.Mime); err != nil {
			s.logger.Warn("failed to remove client file", zap.String("hash", h.Hex()), zap.Error(err))
			continue
		}
		s.logger.Debug("removed client file", zap.String("hash", h.Hex()))
	}
}

// Pending returns the outgoing content of a repository service.
func (s *ContentServiceImpl) Pending(ctx context.Context, key services.Key) (*primary.PendingContent, error) {
	record, err := s.contentRepo.Pending(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending content: %w", err)
	}

	pending := &primary.PendingContent{
		Service:      record.Service,
		PendingFiles: record.PendingFiles,
	}

	tagList := make([]string, 0, len(record.PendingMappings))
	for tag := range record.PendingMappings {
		tagList = append(tagList, tag)
	}
	sort.Strings(tagList)
	for _, tag := range tagList {
		pending.PendingMappings = append(pending.PendingMappings, &primary.MappingGroup{
			Tag:    tag,
			Hashes: record.PendingMappings[tag],
		})
	}

	for _, p := range record.PetitionedMappings {
		pending.PetitionedMappings = append(pending.PetitionedMappings, &primary.MappingGroup{
			Tag:    p.Tag,
			Reason: p.Reason,
			Hashes: p.Hashes,
		})
	}
	for _, p := range record.PetitionedFiles {
		pending.PetitionedFiles = append(pending.PetitionedFiles, p.Hash)
	}

	return pending, nil
}

// NumsPending counts outgoing content per repository service.
func (s *ContentServiceImpl) NumsPending(ctx context.Context) (map[services.Key]primary.PendingCounts, error) {
	records, err := s.contentRepo.NumsPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending content: %w", err)
	}

	counts := make(map[services.Key]primary.PendingCounts, len(records))
	for key, c := range records {
		counts[key] = primary.PendingCounts{
			PendingMappings:    c.PendingMappings,
			PetitionedMappings: c.PetitionedMappings,
			PendingFiles:       c.PendingFiles,
			PetitionedFiles:    c.PetitionedFiles,
		}
	}
	return counts, nil
}

// Downloads lists files queued for download.
func (s *ContentServiceImpl) Downloads(ctx context.Context) ([]files.Hash, error) {
	return s.contentRepo.Downloads(ctx)
}

// Ensure ContentServiceImpl implements the interface.
var _ primary.ContentService = (*ContentServiceImpl)(nil)
