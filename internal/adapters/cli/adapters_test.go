package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/primary"
)

func init() {
	color.NoColor = true
}

func testHash(label string) files.Hash {
	return files.Hash(sha256.Sum256([]byte(label)))
}

// ============================================================================
// Mock services
// ============================================================================

type mockImportService struct {
	importFilesFn func(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error)
	hashStatusFn  func(ctx context.Context, hashType files.HashType, digest []byte) (*primary.HashStatus, error)
}

func (m *mockImportService) ImportFile(ctx context.Context, req primary.ImportRequest) (*primary.ImportResult, error) {
	results, err := m.ImportFiles(ctx, []string{req.Path}, req.ImportOptions)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (m *mockImportService) ImportFiles(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error) {
	if m.importFilesFn != nil {
		return m.importFilesFn(ctx, paths, opts)
	}
	return nil, nil
}

func (m *mockImportService) HashStatus(ctx context.Context, hashType files.HashType, digest []byte) (*primary.HashStatus, error) {
	if m.hashStatusFn != nil {
		return m.hashStatusFn(ctx, hashType, digest)
	}
	return &primary.HashStatus{Status: files.StatusUnknown}, nil
}

type mockContentService struct {
	applyFn   func(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error)
	pendingFn func(ctx context.Context, key services.Key) (*primary.PendingContent, error)
	downloads []files.Hash

	lastBatch content.Batch
}

func (m *mockContentService) ApplyContentUpdates(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error) {
	m.lastBatch = batch
	if m.applyFn != nil {
		return m.applyFn(ctx, batch)
	}
	return &primary.ApplyResult{Applied: batch.Len()}, nil
}

func (m *mockContentService) Pending(ctx context.Context, key services.Key) (*primary.PendingContent, error) {
	if m.pendingFn != nil {
		return m.pendingFn(ctx, key)
	}
	return &primary.PendingContent{Service: key}, nil
}

func (m *mockContentService) NumsPending(ctx context.Context) (map[services.Key]primary.PendingCounts, error) {
	return map[services.Key]primary.PendingCounts{}, nil
}

func (m *mockContentService) Downloads(ctx context.Context) ([]files.Hash, error) {
	return m.downloads, nil
}

type mockRegistryService struct {
	list    []services.Service
	version int64
	filters map[services.Key]*tagfilter.TagFilter

	written [][]services.Service
	writeFn func(list []services.Service) error
}

func newMockRegistry() *mockRegistryService {
	return &mockRegistryService{
		list:    services.Defaults(),
		version: 1,
		filters: make(map[services.Key]*tagfilter.TagFilter),
	}
}

func (m *mockRegistryService) Services(ctx context.Context) ([]services.Service, error) {
	return append([]services.Service{}, m.list...), nil
}

func (m *mockRegistryService) Service(ctx context.Context, key services.Key) (*services.Service, error) {
	for _, s := range m.list {
		if s.Key == key {
			return &s, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *mockRegistryService) WriteServices(ctx context.Context, list []services.Service) error {
	if m.writeFn != nil {
		if err := m.writeFn(list); err != nil {
			return err
		}
	}
	m.written = append(m.written, list)
	m.list = list
	m.version++
	return nil
}

func (m *mockRegistryService) Version(ctx context.Context) (int64, error) {
	return m.version, nil
}

func (m *mockRegistryService) GenerateService(serviceType services.Type, name string) services.Service {
	return services.GenerateService("generated", serviceType, name)
}

func (m *mockRegistryService) TagFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error) {
	if f, ok := m.filters[key]; ok {
		return f, nil
	}
	return tagfilter.New(), nil
}

func (m *mockRegistryService) SetTagFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error {
	m.filters[key] = filter
	return nil
}

type mockSearchService struct {
	ids     []int64
	results []*primary.MediaResult
	preds   []predicate.Predicate
	info    map[string]int64

	lastContext predicate.SearchContext
}

func (m *mockSearchService) ResolveFileIDs(ctx context.Context, sc predicate.SearchContext) ([]int64, error) {
	m.lastContext = sc
	return m.ids, nil
}

func (m *mockSearchService) ResolveFileIDsLatest(ctx context.Context, field string, sc predicate.SearchContext) ([]int64, error) {
	return m.ResolveFileIDs(ctx, sc)
}

func (m *mockSearchService) MediaResults(ctx context.Context, hashes []files.Hash) ([]*primary.MediaResult, error) {
	var out []*primary.MediaResult
	for _, h := range hashes {
		for _, r := range m.results {
			if r.Hash == h {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *mockSearchService) MediaResultsFromIDs(ctx context.Context, ids []int64) ([]*primary.MediaResult, error) {
	return m.results, nil
}

func (m *mockSearchService) FileSystemPredicates(ctx context.Context, key services.Key) ([]predicate.Predicate, error) {
	return m.preds, nil
}

func (m *mockSearchService) ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error) {
	return m.info, nil
}

type mockAutocompleteService struct {
	preds   []predicate.Predicate
	lastReq primary.SuggestRequest
}

func (m *mockAutocompleteService) SuggestTags(ctx context.Context, req primary.SuggestRequest) ([]predicate.Predicate, error) {
	m.lastReq = req
	return m.preds, nil
}

func (m *mockAutocompleteService) SuggestTagsLatest(ctx context.Context, field string, req primary.SuggestRequest) ([]predicate.Predicate, error) {
	return m.SuggestTags(ctx, req)
}

// ============================================================================
// ImportAdapter
// ============================================================================

func TestImportAdapter_Import(t *testing.T) {
	service := &mockImportService{
		importFilesFn: func(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error) {
			return []*primary.ImportResult{
				{Path: "a.png", Status: files.StatusSuccessfulAndNew, Hash: testHash("a")},
				{Path: "b.png", Status: files.StatusRedundant, Hash: testHash("b"), Note: files.NoteRedundant},
				{Path: "c.png", Status: files.StatusDeleted, Hash: testHash("c"), Note: files.NoteDeleted},
				{Path: "d.png", Status: files.StatusError, Note: "failed to open file"},
			}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewImportAdapter(service, &out)

	results, err := adapter.Import(context.Background(), []string{"a.png", "b.png", "c.png", "d.png"}, primary.ImportOptions{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("got %d results, want 4", len(results))
	}

	output := out.String()
	for _, want := range []string{
		"successful and new",
		shortHash(testHash("a")),
		files.NoteRedundant,
		"failed to open file",
		"4 file(s): 1 new, 1 redundant, 1 deleted, 1 failed",
		"--allow-deleted",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestImportAdapter_ImportInterrupted(t *testing.T) {
	service := &mockImportService{
		importFilesFn: func(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error) {
			return nil, context.Canceled
		},
	}
	var out bytes.Buffer
	adapter := NewImportAdapter(service, &out)

	_, err := adapter.Import(context.Background(), []string{"a.png"}, primary.ImportOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestImportAdapter_HashStatus(t *testing.T) {
	hash := testHash("known")
	service := &mockImportService{
		hashStatusFn: func(ctx context.Context, hashType files.HashType, digest []byte) (*primary.HashStatus, error) {
			return &primary.HashStatus{Status: files.StatusRedundant, Hash: &hash, Note: files.NoteRedundant}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewImportAdapter(service, &out)

	if _, err := adapter.HashStatus(context.Background(), files.HashSHA256, hash[:]); err != nil {
		t.Fatalf("HashStatus failed: %v", err)
	}
	if !strings.Contains(out.String(), hash.Hex()) {
		t.Errorf("output missing full hash:\n%s", out.String())
	}
}

// ============================================================================
// ContentAdapter
// ============================================================================

func TestContentAdapter_Apply(t *testing.T) {
	tests := []struct {
		name        string
		result      *primary.ApplyResult
		wantSkipped bool
	}{
		{"all applied", &primary.ApplyResult{Applied: 2}, false},
		{"some skipped", &primary.ApplyResult{Applied: 1, Skipped: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockContentService{
				applyFn: func(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error) {
					return tt.result, nil
				},
			}
			var out bytes.Buffer
			adapter := NewContentAdapter(service, &out)

			batch := content.Batch{services.LocalTagsKey: {content.NewMappingUpdate(content.Add, "car", testHash("a"))}}
			if _, err := adapter.Apply(context.Background(), batch); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if service.lastBatch.Len() != 1 {
				t.Errorf("service got %d updates, want 1", service.lastBatch.Len())
			}
			if got := strings.Contains(out.String(), "skipped"); got != tt.wantSkipped {
				t.Errorf("skipped notice shown = %v, want %v:\n%s", got, tt.wantSkipped, out.String())
			}
		})
	}
}

func TestContentAdapter_ApplyError(t *testing.T) {
	service := &mockContentService{
		applyFn: func(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error) {
			return nil, errs.ErrInvalidContent
		},
	}
	var out bytes.Buffer
	adapter := NewContentAdapter(service, &out)

	_, err := adapter.Apply(context.Background(), content.Batch{})
	if !errors.Is(err, errs.ErrInvalidContent) {
		t.Errorf("error = %v, want ErrInvalidContent", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output on error: %s", out.String())
	}
}

func TestContentAdapter_Pending(t *testing.T) {
	service := &mockContentService{
		pendingFn: func(ctx context.Context, key services.Key) (*primary.PendingContent, error) {
			return &primary.PendingContent{
				Service:            key,
				PendingMappings:    []*primary.MappingGroup{{Tag: "car", Hashes: []files.Hash{testHash("a"), testHash("b")}}},
				PetitionedMappings: []*primary.MappingGroup{{Tag: "bus", Reason: "wrong", Hashes: []files.Hash{testHash("a")}}},
			}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewContentAdapter(service, &out)

	if _, err := adapter.Pending(context.Background(), "repo"); err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	output := out.String()
	for _, want := range []string{"+ car (2 file(s))", "- bus (1 file(s)): wrong"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestContentAdapter_PendingEmpty(t *testing.T) {
	var out bytes.Buffer
	adapter := NewContentAdapter(&mockContentService{}, &out)

	if _, err := adapter.Pending(context.Background(), "repo"); err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing pending") {
		t.Errorf("output = %q, want empty notice", out.String())
	}
}

// ============================================================================
// RegistryAdapter
// ============================================================================

func TestRegistryAdapter_AddAndRemove(t *testing.T) {
	ctx := context.Background()
	service := newMockRegistry()
	var out bytes.Buffer
	adapter := NewRegistryAdapter(service, &out)

	svc, err := adapter.Add(ctx, services.TagRepository, "public tags")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if svc.Key != "generated" {
		t.Errorf("added key = %s, want generated", svc.Key)
	}
	if len(service.list) != len(services.Defaults())+1 {
		t.Errorf("registry has %d services, want %d", len(service.list), len(services.Defaults())+1)
	}

	if err := adapter.Remove(ctx, svc.Key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(service.list) != len(services.Defaults()) {
		t.Errorf("registry has %d services after remove, want %d", len(service.list), len(services.Defaults()))
	}

	if err := adapter.Remove(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("remove missing error = %v, want ErrNotFound", err)
	}
	if len(service.written) != 2 {
		t.Errorf("registry written %d times, want 2", len(service.written))
	}
}

func TestRegistryAdapter_RemoveConflict(t *testing.T) {
	service := newMockRegistry()
	service.writeFn = func(list []services.Service) error { return errs.ErrConflict }
	var out bytes.Buffer
	adapter := NewRegistryAdapter(service, &out)

	err := adapter.Remove(context.Background(), services.LocalFilesKey)
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestRegistryAdapter_List(t *testing.T) {
	var out bytes.Buffer
	adapter := NewRegistryAdapter(newMockRegistry(), &out)

	list, err := adapter.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	output := out.String()
	for _, s := range list {
		if !strings.Contains(output, string(s.Key)) {
			t.Errorf("output missing %s", s.Key)
		}
	}
	if !strings.Contains(output, "registry version 1") {
		t.Errorf("output missing version:\n%s", output)
	}
}

func TestRegistryAdapter_Filter(t *testing.T) {
	ctx := context.Background()
	service := newMockRegistry()
	var out bytes.Buffer
	adapter := NewRegistryAdapter(service, &out)

	filter := tagfilter.New()
	filter.SetRule("", tagfilter.Blacklist)
	filter.SetRule(":", tagfilter.Blacklist)
	if err := adapter.SetFilter(ctx, services.LocalTagsKey, filter); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	if !strings.Contains(out.String(), "no tags") {
		t.Errorf("output = %q, want permitted summary", out.String())
	}

	out.Reset()
	if _, err := adapter.ShowFilter(ctx, services.LocalTagsKey); err != nil {
		t.Fatalf("ShowFilter failed: %v", err)
	}
	if !strings.Contains(out.String(), "blacklist") {
		t.Errorf("output missing rules:\n%s", out.String())
	}
}

// ============================================================================
// SearchAdapter
// ============================================================================

func TestSearchAdapter_Search(t *testing.T) {
	hash := testHash("a")
	search := &mockSearchService{
		ids: []int64{1},
		results: []*primary.MediaResult{{
			ID:    1,
			Hash:  hash,
			Info:  &files.Info{Size: 5270, Mime: files.MimePNG, Metadata: files.Metadata{Width: files.IntPtr(200), Height: files.IntPtr(200)}},
			Inbox: true,
		}},
	}
	var out bytes.Buffer
	adapter := NewSearchAdapter(search, &mockAutocompleteService{}, &out)

	sc := predicate.NewSearchContext(services.LocalFilesKey, services.CombinedTagsKey, predicate.Tag("car"))
	results, err := adapter.Search(context.Background(), sc)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if search.lastContext.FileService != services.LocalFilesKey {
		t.Errorf("file service = %s, want %s", search.lastContext.FileService, services.LocalFilesKey)
	}

	output := out.String()
	for _, want := range []string{shortHash(hash), "image/png", "200x200", "1 file(s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSearchAdapter_SearchEmpty(t *testing.T) {
	var out bytes.Buffer
	adapter := NewSearchAdapter(&mockSearchService{}, &mockAutocompleteService{}, &out)

	if _, err := adapter.Search(context.Background(), predicate.SearchContext{}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !strings.Contains(out.String(), "No files found.") {
		t.Errorf("output = %q, want empty notice", out.String())
	}
}

func TestSearchAdapter_Info(t *testing.T) {
	hash := testHash("a")
	search := &mockSearchService{
		results: []*primary.MediaResult{{
			ID:        1,
			Hash:      hash,
			Info:      &files.Info{Size: 10, Mime: files.MimePNG},
			CurrentIn: []services.Key{services.LocalFilesKey},
			Tags: map[services.Key]*primary.TagStatuses{
				services.LocalTagsKey: {Current: []string{"car"}, Pending: []string{"bus"}},
			},
			Ratings: map[services.Key]float64{"likes": 1},
		}},
	}
	var out bytes.Buffer
	adapter := NewSearchAdapter(search, &mockAutocompleteService{}, &out)

	if _, err := adapter.Info(context.Background(), hash, InfoOptions{}); err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	output := out.String()
	for _, want := range []string{hash.Hex(), "Current in: local_files", "car", "bus (pending)", "likes: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	if _, err := adapter.Info(context.Background(), testHash("missing"), InfoOptions{}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown hash error = %v, want ErrNotFound", err)
	}
}

func TestSearchAdapter_InfoTagLayout(t *testing.T) {
	hash := testHash("a")
	search := &mockSearchService{
		results: []*primary.MediaResult{{
			ID:   1,
			Hash: hash,
			Tags: map[services.Key]*primary.TagStatuses{
				services.LocalTagsKey: {
					Current:    []string{"truck", "series:cars", "maker:ford"},
					Pending:    []string{"car"},
					Petitioned: []string{"series:bikes"},
				},
			},
		}},
	}

	tests := []struct {
		name string
		opts InfoOptions
		want string
	}{
		{
			name: "lexicographic",
			opts: InfoOptions{Sort: tags.SortLexicographicAsc},
			want: "  car (pending)\n  maker:ford\n  series:bikes (petitioned)\n  series:cars\n  truck\n",
		},
		{
			name: "namespace descending",
			opts: InfoOptions{Sort: tags.SortNamespaceDesc},
			want: "  truck\n  car (pending)\n  series:cars\n  series:bikes (petitioned)\n  maker:ford\n",
		},
		{
			name: "hidden namespaces",
			opts: InfoOptions{Sort: tags.SortLexicographicAsc, HideNamespaces: true},
			want: "  maker:\n    ford\n  series:\n    bikes (petitioned)\n    cars\n  unnamespaced:\n    car (pending)\n    truck\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			adapter := NewSearchAdapter(search, &mockAutocompleteService{}, &out)
			if _, err := adapter.Info(context.Background(), hash, tt.opts); err != nil {
				t.Fatalf("Info failed: %v", err)
			}
			if !strings.Contains(out.String(), "Tags (local_tags):\n"+tt.want+"\n") {
				t.Errorf("tag listing = \n%s\nwant\n%s", out.String(), tt.want)
			}
		})
	}
}

func TestSearchAdapter_Autocomplete(t *testing.T) {
	ac := &mockAutocompleteService{
		preds: []predicate.Predicate{
			predicate.Tag("series:cars").WithCounts(2, 0),
			predicate.Tag("car").WithCounts(1, 3),
		},
	}
	var out bytes.Buffer
	adapter := NewSearchAdapter(&mockSearchService{}, ac, &out)

	req := primary.SuggestRequest{TagService: services.LocalTagsKey, Text: "c", AddNamespaceless: true}
	if _, err := adapter.Autocomplete(context.Background(), req); err != nil {
		t.Fatalf("Autocomplete failed: %v", err)
	}
	if ac.lastReq != req {
		t.Errorf("request = %+v, want %+v", ac.lastReq, req)
	}
	output := out.String()
	for _, want := range []string{"series:cars (2)", "car (1) (+3)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSearchAdapter_ServiceInfo(t *testing.T) {
	search := &mockSearchService{info: map[string]int64{"num_files": 2, "num_inbox": 1}}
	var out bytes.Buffer
	adapter := NewSearchAdapter(search, &mockAutocompleteService{}, &out)

	if _, err := adapter.ServiceInfo(context.Background(), services.LocalFilesKey); err != nil {
		t.Fatalf("ServiceInfo failed: %v", err)
	}
	if !strings.Contains(out.String(), "num files") {
		t.Errorf("output missing counter names:\n%s", out.String())
	}
}
