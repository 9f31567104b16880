package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// AutocompleteServiceImpl implements the AutocompleteService interface.
type AutocompleteServiceImpl struct {
	acRepo      secondary.AutocompleteRepository
	serviceRepo secondary.ServiceRepository
	latest      *LatestWins
	metrics     *metrics.Metrics
}

// NewAutocompleteService creates a new AutocompleteService with injected dependencies.
func NewAutocompleteService(
	acRepo secondary.AutocompleteRepository,
	serviceRepo secondary.ServiceRepository,
	latest *LatestWins,
	m *metrics.Metrics,
) *AutocompleteServiceImpl {
	return &AutocompleteServiceImpl{
		acRepo:      acRepo,
		serviceRepo: serviceRepo,
		latest:      latest,
		metrics:     m,
	}
}

// SuggestTags returns tag predicates annotated with current and pending
// counts, most used first. Tags censored by the service's tag filter are
// left out.
func (s *AutocompleteServiceImpl) SuggestTags(ctx context.Context, req primary.SuggestRequest) ([]predicate.Predicate, error) {
	start := time.Now()
	defer func() {
		s.metrics.QueryDuration.WithLabelValues("autocomplete").Observe(time.Since(start).Seconds())
	}()

	record, err := s.serviceRepo.GetByKey(ctx, req.TagService)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("%w: service %s is disabled", errs.ErrNotFound, req.TagService)
	}
	if !record.Service.Type.IsTagService() {
		return nil, fmt.Errorf("%w: %s is not a tag service", errs.ErrInvalidContent, req.TagService)
	}

	pattern := tags.ParsePattern(req.Text)
	if pattern.Raw == "" {
		return nil, nil
	}
	if !req.Exact {
		pattern = pattern.AsPrefix()
	}

	records, err := s.acRepo.Suggest(ctx, req.TagService, pattern, req.Exact)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}

	filter, err := s.serviceRepo.GetTagFilter(ctx, req.TagService)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag filter: %w", err)
	}

	counts := make(map[string]*secondary.TagCountRecord, len(records))
	for _, r := range records {
		if !filter.Allowed(r.Tag) {
			continue
		}
		counts[r.Tag] = &secondary.TagCountRecord{Tag: r.Tag, CurrentCount: r.CurrentCount, PendingCount: r.PendingCount}
	}

	if req.AddNamespaceless && !pattern.HasNamespace && !strings.Contains(req.Text, "*") {
		addNamespaceless(counts, records, tags.Clean(req.Text), filter.Allowed)
	}

	list := make([]*secondary.TagCountRecord, 0, len(counts))
	for _, c := range counts {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.CurrentCount != b.CurrentCount {
			return a.CurrentCount > b.CurrentCount
		}
		if a.PendingCount != b.PendingCount {
			return a.PendingCount > b.PendingCount
		}
		return a.Tag < b.Tag
	})

	preds := make([]predicate.Predicate, len(list))
	for i, c := range list {
		preds[i] = predicate.Tag(c.Tag).WithCounts(c.CurrentCount, c.PendingCount)
	}
	return preds, nil
}

// addNamespaceless offers the bare subtag for namespaced matches whose
// subtag is exactly the search text. An unnamespaced tag search matches
// that subtag in every namespace, so the counts are summed.
func addNamespaceless(counts map[string]*secondary.TagCountRecord, records []*secondary.TagCountRecord, text string, allowed func(string) bool) {
	if !allowed(text) {
		return
	}
	for _, r := range records {
		namespace, subtag := tags.Split(r.Tag)
		if namespace == "" || subtag != text || !allowed(r.Tag) {
			continue
		}
		bare, ok := counts[text]
		if !ok {
			bare = &secondary.TagCountRecord{Tag: text}
			counts[text] = bare
		}
		bare.CurrentCount += r.CurrentCount
		bare.PendingCount += r.PendingCount
	}
}

// SuggestTagsLatest runs the suggestion as the latest query on field.
func (s *AutocompleteServiceImpl) SuggestTagsLatest(ctx context.Context, field string, req primary.SuggestRequest) ([]predicate.Predicate, error) {
	return RunLatest(ctx, s.latest, "autocomplete:"+field, func(ctx context.Context) ([]predicate.Predicate, error) {
		return s.SuggestTags(ctx, req)
	})
}

// Ensure AutocompleteServiceImpl implements the interface.
var _ primary.AutocompleteService = (*AutocompleteServiceImpl)(nil)
