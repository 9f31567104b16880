package primary

import (
	"context"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
)

// ContentService defines the primary port for content updates.
type ContentService interface {
	// ApplyContentUpdates commits a batch atomically.
	ApplyContentUpdates(ctx context.Context, batch content.Batch) (*ApplyResult, error)

	// Pending returns the outgoing content of a repository service.
	Pending(ctx context.Context, key services.Key) (*PendingContent, error)

	// NumsPending counts outgoing content per repository service.
	NumsPending(ctx context.Context) (map[services.Key]PendingCounts, error)

	// Downloads lists files queued for download.
	Downloads(ctx context.Context) ([]files.Hash, error)
}

// ApplyResult reports what a batch did.
type ApplyResult struct {
	Applied int
	Skipped int
}

// PendingContent is the outgoing content of one repository service.
type PendingContent struct {
	Service            services.Key
	PendingMappings    []*MappingGroup
	PetitionedMappings []*MappingGroup
	PendingFiles       []files.Hash
	PetitionedFiles    []files.Hash
}

// MappingGroup is a set of files sharing one tag (and petition reason).
type MappingGroup struct {
	Tag    string
	Reason string
	Hashes []files.Hash
}

// PendingCounts counts the outgoing content of one repository service.
type PendingCounts struct {
	PendingMappings    int
	PetitionedMappings int
	PendingFiles       int
	PetitionedFiles    int
}

// Total sums every count.
func (c PendingCounts) Total() int {
	return c.PendingMappings + c.PetitionedMappings + c.PendingFiles + c.PetitionedFiles
}
