// Package wire builds the mediadb engine from configuration. Every
// dependency is constructed explicitly and owned by the returned Container;
// there are no package-level singletons.
package wire

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cliadapter "github.com/example/mediadb/internal/adapters/cli"
	"github.com/example/mediadb/internal/adapters/filesystem"
	"github.com/example/mediadb/internal/adapters/media"
	"github.com/example/mediadb/internal/adapters/sqlite"
	"github.com/example/mediadb/internal/app"
	"github.com/example/mediadb/internal/config"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/db"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
)

// writeBacklog bounds how many write jobs may wait behind the running one.
const writeBacklog = 64

// Container holds one open engine: the store handle, the write queue and
// every application service built on them.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Imports      primary.ImportService
	Content      primary.ContentService
	Search       primary.SearchService
	Autocomplete primary.AutocompleteService
	Registry     primary.RegistryService

	database *sql.DB
	queue    *app.WriteQueue
}

// New opens the store described by cfg and wires the services over it.
// Collectors are registered on reg.
func New(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Container, error) {
	database, err := db.Open(cfg.DB.Dir, db.Options{WAL: cfg.DB.WAL, BusyTimeout: cfg.DB.BusyTimeout()}, logger)
	if err != nil {
		return nil, err
	}

	store, err := filesystem.NewClientFileStore(cfg.DB.Dir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open client files: %w", err)
	}

	m := metrics.New(reg)
	queue := app.NewWriteQueue(logger, m, writeBacklog)

	// Writes invalidate every cached media result
	cache := app.NewMediaCache(cfg.Cache.MediaResults, cfg.Cache.TTL, m)
	queue.AfterWrite(cache.Purge)
	latest := app.NewLatestWins()

	fileRepo := sqlite.NewFileRepository(database)
	contentRepo := sqlite.NewContentRepository(database)
	serviceRepo := sqlite.NewServiceRepository(database)

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,

		Imports: app.NewImportService(
			fileRepo, contentRepo,
			media.NewHasher(), media.NewProber(), store, queue,
			app.ImportSettings{BatchSize: cfg.Import.BatchSize, Workers: cfg.Import.Workers},
			logger, m,
		),
		Content:      app.NewContentService(contentRepo, fileRepo, store, queue, logger, m),
		Search:       app.NewSearchService(sqlite.NewQueryRepository(database), fileRepo, serviceRepo, cache, latest, m),
		Autocomplete: app.NewAutocompleteService(sqlite.NewAutocompleteRepository(database), serviceRepo, latest, m),
		Registry:     app.NewRegistryService(serviceRepo, queue, logger),

		database: database,
		queue:    queue,
	}

	logger.Debug("engine ready",
		zap.String("dir", cfg.DB.Dir),
		zap.Int("cache_size", cfg.Cache.MediaResults),
		zap.Int("import_workers", cfg.Import.Workers))
	return c, nil
}

// Close drains the write queue and closes the store.
func (c *Container) Close() error {
	c.queue.Close()
	return c.database.Close()
}

// PredicateParser reads predicate text with the configured defaults.
func (c *Container) PredicateParser() predicate.Parser {
	return predicate.Parser{SimilarDistance: c.Config.Search.SimilarDefaultDistance}
}

// ImportAdapter returns an ImportAdapter writing to out.
func (c *Container) ImportAdapter(out io.Writer) *cliadapter.ImportAdapter {
	return cliadapter.NewImportAdapter(c.Imports, out)
}

// ContentAdapter returns a ContentAdapter writing to out.
func (c *Container) ContentAdapter(out io.Writer) *cliadapter.ContentAdapter {
	return cliadapter.NewContentAdapter(c.Content, out)
}

// SearchAdapter returns a SearchAdapter writing to out.
func (c *Container) SearchAdapter(out io.Writer) *cliadapter.SearchAdapter {
	return cliadapter.NewSearchAdapter(c.Search, c.Autocomplete, out)
}

// RegistryAdapter returns a RegistryAdapter writing to out.
func (c *Container) RegistryAdapter(out io.Writer) *cliadapter.RegistryAdapter {
	return cliadapter.NewRegistryAdapter(c.Registry, out)
}
