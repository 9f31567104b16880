package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// offeredSystemPredicates follow everything/inbox/archive in the list a
// file service offers.
var offeredSystemPredicates = []predicate.Type{
	predicate.TypeUntagged,
	predicate.TypeNumTags,
	predicate.TypeLimit,
	predicate.TypeSize,
	predicate.TypeAge,
	predicate.TypeHash,
	predicate.TypeWidth,
	predicate.TypeHeight,
	predicate.TypeRatio,
	predicate.TypeNumPixels,
	predicate.TypeDuration,
	predicate.TypeNumFrames,
	predicate.TypeNumWords,
	predicate.TypeMime,
	predicate.TypeRating,
	predicate.TypeSimilarTo,
	predicate.TypeFileService,
}

// SearchServiceImpl implements the SearchService interface.
type SearchServiceImpl struct {
	queryRepo   secondary.QueryRepository
	fileRepo    secondary.FileRepository
	serviceRepo secondary.ServiceRepository
	cache       *MediaCache
	latest      *LatestWins
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewSearchService creates a new SearchService with injected dependencies.
func NewSearchService(
	queryRepo secondary.QueryRepository,
	fileRepo secondary.FileRepository,
	serviceRepo secondary.ServiceRepository,
	cache *MediaCache,
	latest *LatestWins,
	m *metrics.Metrics,
) *SearchServiceImpl {
	return &SearchServiceImpl{
		queryRepo:   queryRepo,
		fileRepo:    fileRepo,
		serviceRepo: serviceRepo,
		cache:       cache,
		latest:      latest,
		metrics:     m,
		now:         time.Now,
	}
}

// ResolveFileIDs evaluates a search context and returns matching file ids.
func (s *SearchServiceImpl) ResolveFileIDs(ctx context.Context, sc predicate.SearchContext) ([]int64, error) {
	start := time.Now()
	defer func() {
		s.metrics.QueryDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	}()
	return s.queryRepo.Resolve(ctx, sc, s.now())
}

// ResolveFileIDsLatest runs the search as the latest query on field.
func (s *SearchServiceImpl) ResolveFileIDsLatest(ctx context.Context, field string, sc predicate.SearchContext) ([]int64, error) {
	return RunLatest(ctx, s.latest, "search:"+field, func(ctx context.Context) ([]int64, error) {
		return s.ResolveFileIDs(ctx, sc)
	})
}

// MediaResults describes files by content hash. Unknown hashes are skipped.
func (s *SearchServiceImpl) MediaResults(ctx context.Context, hashes []files.Hash) ([]*primary.MediaResult, error) {
	ids, err := s.fileRepo.HashIDs(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hashes: %w", err)
	}

	ordered := make([]int64, 0, len(ids))
	for _, h := range hashes {
		if id, ok := ids[h]; ok {
			ordered = append(ordered, id)
		}
	}
	return s.MediaResultsFromIDs(ctx, ordered)
}

// MediaResultsFromIDs describes files by id, in the order given, reading
// through the media cache.
func (s *SearchServiceImpl) MediaResultsFromIDs(ctx context.Context, ids []int64) ([]*primary.MediaResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.QueryDuration.WithLabelValues("media_results").Observe(time.Since(start).Seconds())
	}()

	found := make(map[int64]*primary.MediaResult, len(ids))
	var missing []int64
	for _, id := range ids {
		if result, ok := s.cache.Get(id); ok {
			found[id] = result
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		records, err := s.fileRepo.MediaResults(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load media results: %w", err)
		}
		for _, r := range records {
			result := s.recordToMediaResult(r)
			s.cache.Add(result)
			found[result.ID] = result
		}
	}

	results := make([]*primary.MediaResult, 0, len(ids))
	for _, id := range ids {
		if result, ok := found[id]; ok {
			results = append(results, result)
		}
	}
	return results, nil
}

// FileSystemPredicates lists the system predicates offered for a file
// service. Everything, inbox and archive carry their counts.
func (s *SearchServiceImpl) FileSystemPredicates(ctx context.Context, key services.Key) ([]predicate.Predicate, error) {
	svc, err := s.activeService(ctx, key)
	if err != nil {
		return nil, err
	}
	if !svc.Type.IsFileService() {
		return nil, fmt.Errorf("%w: %s is not a file service", errs.ErrInvalidContent, key)
	}

	counts, err := s.queryRepo.UniverseCounts(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	preds := []predicate.Predicate{
		predicate.System(predicate.TypeEverything).WithCounts(counts.Everything, 0),
		predicate.System(predicate.TypeInbox).WithCounts(counts.Inbox, 0),
		predicate.System(predicate.TypeArchive).WithCounts(counts.Archive, 0),
	}
	if svc.Type == services.CombinedFile || svc.Type == services.FileRepository {
		preds = append(preds,
			predicate.System(predicate.TypeLocal),
			predicate.System(predicate.TypeNotLocal))
	}
	for _, t := range offeredSystemPredicates {
		preds = append(preds, predicate.System(t))
	}
	return preds, nil
}

// ServiceInfo returns the named counters describing a service.
func (s *SearchServiceImpl) ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error) {
	if _, err := s.activeService(ctx, key); err != nil {
		return nil, err
	}
	return s.queryRepo.ServiceInfo(ctx, key)
}

func (s *SearchServiceImpl) activeService(ctx context.Context, key services.Key) (*services.Service, error) {
	record, err := s.serviceRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("%w: service %s is disabled", errs.ErrNotFound, key)
	}
	return &record.Service, nil
}

// Helper methods

func (s *SearchServiceImpl) recordToMediaResult(r *secondary.MediaResultRecord) *primary.MediaResult {
	result := &primary.MediaResult{
		ID:           r.HashID,
		Hash:         r.Hash,
		Info:         r.Info,
		Inbox:        r.Inbox,
		Timestamp:    r.Timestamp,
		CurrentIn:    r.CurrentIn,
		DeletedIn:    r.DeletedIn,
		PendingIn:    r.PendingIn,
		PetitionedIn: r.PetitionedIn,
		Tags:         make(map[services.Key]*primary.TagStatuses, len(r.Tags)),
		Ratings:      r.Ratings,
	}
	for key, t := range r.Tags {
		result.Tags[key] = &primary.TagStatuses{
			Current:    t.Current,
			Pending:    t.Pending,
			Deleted:    t.Deleted,
			Petitioned: t.Petitioned,
		}
	}
	return result
}

// Ensure SearchServiceImpl implements the interface.
var _ primary.SearchService = (*SearchServiceImpl)(nil)
