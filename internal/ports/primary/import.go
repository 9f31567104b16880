package primary

import (
	"context"

	"github.com/example/mediadb/internal/core/files"
)

// ImportService defines the primary port for admitting files.
type ImportService interface {
	// ImportFile hashes, probes and stores one file.
	ImportFile(ctx context.Context, req ImportRequest) (*ImportResult, error)

	// ImportFiles admits many files, committing them in batches. Per-file
	// failures are reported in the results, not as an error.
	ImportFiles(ctx context.Context, paths []string, opts ImportOptions) ([]*ImportResult, error)

	// HashStatus reports what the store knows about a digest.
	HashStatus(ctx context.Context, hashType files.HashType, digest []byte) (*HashStatus, error)
}

// ImportOptions control admission.
type ImportOptions struct {
	// AllowDeleted undeletes files that were previously deleted.
	AllowDeleted bool
	// Archive skips the inbox for new files.
	Archive bool
}

// ImportRequest contains parameters for importing one file.
type ImportRequest struct {
	Path string
	ImportOptions
}

// ImportResult is the outcome of admitting one file.
type ImportResult struct {
	Path   string
	Status files.ImportStatus
	Hash   files.Hash
	Note   string
}

// HashStatus is the store's answer for one digest.
type HashStatus struct {
	Status files.ImportStatus
	Hash   *files.Hash // set when the digest maps to a known file
	Note   string
}
