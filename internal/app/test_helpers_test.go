package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediadb/internal/adapters/filesystem"
	"github.com/example/mediadb/internal/adapters/media"
	"github.com/example/mediadb/internal/adapters/sqlite"
	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/db"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
)

// testNow is the clock every service under test reads.
var testNow = time.Unix(1_700_000_000, 0)

// testEngine wires every service over real adapters in a temp dir.
type testEngine struct {
	dataDir      string
	queue        *WriteQueue
	cache        *MediaCache
	store        *filesystem.ClientFileStore
	imports      *ImportServiceImpl
	content      *ContentServiceImpl
	search       *SearchServiceImpl
	autocomplete *AutocompleteServiceImpl
	registry     *RegistryServiceImpl
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	dataDir := t.TempDir()
	database, err := db.Open(dataDir, db.Options{WAL: true, BusyTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := filesystem.NewClientFileStore(dataDir)
	if err != nil {
		t.Fatalf("failed to create client file store: %v", err)
	}

	logger := zap.NewNop()
	m := metrics.NewNop()
	queue := NewWriteQueue(logger, m, 16)
	t.Cleanup(queue.Close)

	cache := NewMediaCache(64, time.Minute, m)
	queue.AfterWrite(cache.Purge)
	latest := NewLatestWins()

	fileRepo := sqlite.NewFileRepository(database)
	contentRepo := sqlite.NewContentRepository(database)
	serviceRepo := sqlite.NewServiceRepository(database)

	e := &testEngine{
		dataDir: dataDir,
		queue:   queue,
		cache:   cache,
		store:   store,
		imports: NewImportService(fileRepo, contentRepo, media.NewHasher(), media.NewProber(), store, queue,
			ImportSettings{BatchSize: 2, Workers: 2}, logger, m),
		content:      NewContentService(contentRepo, fileRepo, store, queue, logger, m),
		search:       NewSearchService(sqlite.NewQueryRepository(database), fileRepo, serviceRepo, cache, latest, m),
		autocomplete: NewAutocompleteService(sqlite.NewAutocompleteRepository(database), serviceRepo, latest, m),
		registry:     NewRegistryService(serviceRepo, queue, logger),
	}
	e.imports.now = func() time.Time { return testNow }
	e.content.now = func() time.Time { return testNow }
	e.search.now = func() time.Time { return testNow }
	return e
}

// writeTestPNG writes a size x size png whose pixels depend on seed, so
// different seeds give different bytes.
func writeTestPNG(t *testing.T, size int, seed uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x) + seed, G: uint8(y), B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write png: %v", err)
	}
	return path
}

// importPNG admits a fresh 200x200 png and returns its hash.
func (e *testEngine) importPNG(t *testing.T, seed uint8) files.Hash {
	t.Helper()
	result, err := e.imports.ImportFile(context.Background(), primary.ImportRequest{Path: writeTestPNG(t, 200, seed)})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if result.Status != files.StatusSuccessfulAndNew {
		t.Fatalf("import status = %v (%s), want successful and new", result.Status, result.Note)
	}
	return result.Hash
}

// everything searches a file service for every file it holds.
func everything(key services.Key) predicate.SearchContext {
	return predicate.NewSearchContext(key, services.CombinedTagsKey, predicate.System(predicate.TypeEverything))
}

// apply commits a batch through the content service and fails the test on error.
func (e *testEngine) apply(t *testing.T, batch content.Batch) *primary.ApplyResult {
	t.Helper()
	result, err := e.content.ApplyContentUpdates(context.Background(), batch)
	if err != nil {
		t.Fatalf("ApplyContentUpdates failed: %v", err)
	}
	return result
}

// addService appends a new service to the registry and returns it.
func (e *testEngine) addService(t *testing.T, serviceType services.Type, name string) services.Service {
	t.Helper()
	ctx := context.Background()
	list, err := e.registry.Services(ctx)
	if err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	svc := e.registry.GenerateService(serviceType, name)
	if err := e.registry.WriteServices(ctx, append(list, svc)); err != nil {
		t.Fatalf("WriteServices failed: %v", err)
	}
	return svc
}

// orderedStore wraps the client file store and records, for every Put and
// Remove, how many write jobs had finished when it ran.
type orderedStore struct {
	*filesystem.ClientFileStore
	finished *atomic.Int64

	mu      sync.Mutex
	puts    []int64
	removes []int64
}

// trackByteWrites swaps an orderedStore into the import and content services.
func (e *testEngine) trackByteWrites() *orderedStore {
	s := &orderedStore{ClientFileStore: e.store, finished: new(atomic.Int64)}
	e.queue.AfterWrite(func() { s.finished.Add(1) })
	e.imports.store = s
	e.content.store = s
	return s
}

func (s *orderedStore) Put(ctx context.Context, src string, hash files.Hash, mime string) error {
	s.mu.Lock()
	s.puts = append(s.puts, s.finished.Load())
	s.mu.Unlock()
	return s.ClientFileStore.Put(ctx, src, hash, mime)
}

func (s *orderedStore) Remove(ctx context.Context, hash files.Hash, mime string) error {
	s.mu.Lock()
	s.removes = append(s.removes, s.finished.Load())
	s.mu.Unlock()
	return s.ClientFileStore.Remove(ctx, hash, mime)
}

func (s *orderedStore) recorded() (puts, removes []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.puts...), append([]int64(nil), s.removes...)
}
