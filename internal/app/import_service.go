package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// ImportSettings tune bulk admission.
type ImportSettings struct {
	BatchSize int
	Workers   int
}

// ImportServiceImpl implements the ImportService interface.
type ImportServiceImpl struct {
	fileRepo    secondary.FileRepository
	contentRepo secondary.ContentRepository
	hasher      secondary.FileHasher
	prober      secondary.MediaProber
	store       secondary.ClientFileStore
	queue       *WriteQueue
	settings    ImportSettings
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewImportService creates a new ImportService with injected dependencies.
func NewImportService(
	fileRepo secondary.FileRepository,
	contentRepo secondary.ContentRepository,
	hasher secondary.FileHasher,
	prober secondary.MediaProber,
	store secondary.ClientFileStore,
	queue *WriteQueue,
	settings ImportSettings,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ImportServiceImpl {
	if settings.BatchSize < 1 {
		settings.BatchSize = 1
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	return &ImportServiceImpl{
		fileRepo:    fileRepo,
		contentRepo: contentRepo,
		hasher:      hasher,
		prober:      prober,
		store:       store,
		queue:       queue,
		settings:    settings,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// candidate is one hashed and checked file waiting to be committed.
type candidate struct {
	result   *primary.ImportResult
	failed   bool
	decision files.Decision
	hashes   files.HashSet
	info     files.Info
}

// ImportFile hashes, probes and stores one file.
func (s *ImportServiceImpl) ImportFile(ctx context.Context, req primary.ImportRequest) (*primary.ImportResult, error) {
	results, err := s.ImportFiles(ctx, []string{req.Path}, req.ImportOptions)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ImportFiles hashes and probes the files concurrently, then commits new
// files through the write queue in batches. The only error returned is
// cancellation; everything else lands in the per-file results.
func (s *ImportServiceImpl) ImportFiles(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error) {
	candidates := make([]*candidate, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = s.prepare(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.commit(ctx, candidates, opts)

	results := make([]*primary.ImportResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
		s.metrics.Imports.WithLabelValues(c.result.Status.String()).Inc()
		s.logger.Info("import",
			zap.String("path", c.result.Path),
			zap.String("hash", c.result.Hash.Hex()),
			zap.Stringer("status", c.result.Status),
			zap.String("note", c.result.Note))
	}
	return results, ctx.Err()
}

// prepare hashes a file, checks the store and, for new files, probes them.
func (s *ImportServiceImpl) prepare(ctx context.Context, path string, opts primary.ImportOptions) *candidate {
	c := &candidate{result: &primary.ImportResult{Path: path}}

	hashes, size, err := s.hasher.HashFile(ctx, path)
	if err != nil {
		return c.fail(err)
	}
	c.hashes = hashes
	c.result.Hash = hashes.SHA256

	status, err := s.fileRepo.Lookup(ctx, files.HashSHA256, hashes.SHA256[:])
	if err != nil {
		return c.fail(err)
	}

	present := false
	if status.Known {
		if present, err = s.store.Has(ctx, hashes.SHA256, status.Mime); err != nil {
			return c.fail(err)
		}
		c.info.Mime = status.Mime
	}

	c.decision = files.DecideImport(files.ImportContext{
		Known:        status.Known,
		Current:      status.Current,
		Deleted:      status.Deleted,
		BytesPresent: present,
		AllowDeleted: opts.AllowDeleted,
	})
	if c.decision != files.DecisionAdmit {
		return c
	}

	c.info.Size = size
	if c.info.Mime, err = s.prober.DetectMime(ctx, path); err != nil {
		return c.fail(err)
	}

	// Metadata failures keep the file with whatever was gathered
	meta, err := s.prober.Probe(ctx, path, c.info.Mime)
	if err != nil {
		s.logger.Warn("metadata probe failed",
			zap.String("path", path),
			zap.String("mime", c.info.Mime),
			zap.Error(err))
	}
	c.info.Metadata = meta

	if files.IsImage(c.info.Mime) {
		phash, err := s.hasher.PerceptualHash(ctx, path)
		if err != nil {
			s.logger.Warn("perceptual hash failed", zap.String("path", path), zap.Error(err))
		} else {
			c.hashes.Perceptual = &phash
		}
	}

	if err := files.CanAdmit(c.hashes, c.info).Error(); err != nil {
		return c.fail(err)
	}
	return c
}

func (c *candidate) fail(err error) *candidate {
	c.result.Status = files.StatusError
	c.result.Note = err.Error()
	c.failed = true
	return c
}

// commit settles every prepared candidate. Bytes are written inside the
// same write job that records them, so they are ordered against removals.
func (s *ImportServiceImpl) commit(ctx context.Context, candidates []*candidate, opts primary.ImportOptions) {
	var (
		restore   []*candidate
		admit     []*candidate
		undelete  []*candidate
		scheduled = make(map[files.Hash]bool)
	)

	for _, c := range candidates {
		if c.failed {
			continue
		}
		switch c.decision {
		case files.DecisionRedundant:
			c.result.Status = files.StatusRedundant
			c.result.Note = files.NoteRedundant
		case files.DecisionRestore:
			c.result.Status = files.StatusRedundant
			c.result.Note = files.NoteRedundant
			restore = append(restore, c)
		case files.DecisionDeleted:
			c.result.Status = files.StatusDeleted
			c.result.Note = files.NoteDeleted
		case files.DecisionAdmit, files.DecisionUndelete:
			// The same bytes twice in one call admit once
			if scheduled[c.hashes.SHA256] {
				c.result.Status = files.StatusRedundant
				c.result.Note = files.NoteRedundant
				continue
			}
			scheduled[c.hashes.SHA256] = true
			if c.decision == files.DecisionAdmit {
				admit = append(admit, c)
			} else {
				undelete = append(undelete, c)
			}
		}
	}

	if len(restore) > 0 {
		s.restore(ctx, restore)
	}
	for start := 0; start < len(admit); start += s.settings.BatchSize {
		end := min(start+s.settings.BatchSize, len(admit))
		s.admitBatch(ctx, admit[start:end], opts)
	}
	if len(undelete) > 0 {
		s.undelete(ctx, undelete, opts)
	}
}

// storeBytes writes each candidate's bytes and returns the ones that landed.
// It runs inside a write job.
func (s *ImportServiceImpl) storeBytes(ctx context.Context, list []*candidate) []*candidate {
	stored := make([]*candidate, 0, len(list))
	for _, c := range list {
		if err := s.store.Put(ctx, c.result.Path, c.hashes.SHA256, c.info.Mime); err != nil {
			c.fail(err)
			continue
		}
		stored = append(stored, c)
	}
	return stored
}

// restore puts back the bytes of files the store knows but lost.
func (s *ImportServiceImpl) restore(ctx context.Context, list []*candidate) {
	var stored []*candidate
	err := s.queue.Write(ctx, "restore", func(ctx context.Context) error {
		stored = s.storeBytes(ctx, list)
		return nil
	})
	if err != nil {
		for _, c := range list {
			c.fail(fmt.Errorf("failed to restore file: %w", err))
		}
		return
	}
	for _, c := range stored {
		c.result.Note = files.NoteRedundant + "; " + files.NoteRestored
	}
}

func (s *ImportServiceImpl) admitBatch(ctx context.Context, batch []*candidate, opts primary.ImportOptions) {
	var stored []*candidate
	err := s.queue.Write(ctx, "import", func(ctx context.Context) error {
		stored = s.storeBytes(ctx, batch)
		if len(stored) == 0 {
			return nil
		}
		records := make([]*secondary.FileRecord, len(stored))
		for i, c := range stored {
			records[i] = &secondary.FileRecord{
				Hashes: c.hashes,
				Info:   c.info,
				Domain: services.LocalFilesKey,
				Inbox:  !opts.Archive,
			}
		}
		return s.fileRepo.Admit(ctx, records, s.now())
	})
	s.settle(batch, stored, err, "failed to commit file")
}

// undelete returns previously deleted files to the local file domain.
func (s *ImportServiceImpl) undelete(ctx context.Context, list []*candidate, opts primary.ImportOptions) {
	var stored []*candidate
	err := s.queue.Write(ctx, "undelete", func(ctx context.Context) error {
		stored = s.storeBytes(ctx, list)
		if len(stored) == 0 {
			return nil
		}
		hashes := make([]files.Hash, len(stored))
		for i, c := range stored {
			hashes[i] = c.hashes.SHA256
		}

		updates := []content.Update{content.NewFileUpdate(content.Add, hashes...)}
		if !opts.Archive {
			updates = append(updates, content.NewFileUpdate(content.Inbox, hashes...))
		}
		_, err := s.contentRepo.Apply(ctx, content.Batch{services.LocalFilesKey: updates}, s.now())
		return err
	})
	s.settle(list, stored, err, "failed to undelete file")
}

// settle marks the stored candidates new, or failed when the write failed.
// Candidates that never reached the write job are failed with err.
func (s *ImportServiceImpl) settle(all, stored []*candidate, err error, msg string) {
	if err != nil {
		for _, c := range all {
			if !c.failed {
				c.fail(fmt.Errorf("%s: %w", msg, err))
			}
		}
		return
	}
	for _, c := range stored {
		c.result.Status = files.StatusSuccessfulAndNew
	}
}

// HashStatus reports what the store knows about a digest.
func (s *ImportServiceImpl) HashStatus(ctx context.Context, hashType files.HashType, digest []byte) (*primary.HashStatus, error) {
	record, err := s.fileRepo.Lookup(ctx, hashType, digest)
	if err != nil {
		return nil, err
	}

	status := &primary.HashStatus{Status: files.StatusUnknown}
	if record.HashID != 0 {
		hash := record.Hash
		status.Hash = &hash
	}

	switch {
	case record.Known && record.Current:
		status.Status = files.StatusRedundant
		status.Note = files.NoteRedundant
	case record.Deleted:
		status.Status = files.StatusDeleted
		status.Note = files.NoteDeleted
	}
	return status, nil
}

// Ensure ImportServiceImpl implements the interface.
var _ primary.ImportService = (*ImportServiceImpl)(nil)
