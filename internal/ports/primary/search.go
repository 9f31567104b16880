package primary

import (
	"context"
	"time"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
)

// SearchService defines the primary port for predicate search and file lookups.
type SearchService interface {
	// ResolveFileIDs evaluates a search context and returns matching file ids.
	ResolveFileIDs(ctx context.Context, sc predicate.SearchContext) ([]int64, error)

	// ResolveFileIDsLatest is ResolveFileIDs for interactive callers: a newer
	// request on the same field cancels this one with errs.ErrSuperseded.
	ResolveFileIDsLatest(ctx context.Context, field string, sc predicate.SearchContext) ([]int64, error)

	// MediaResults describes files by content hash.
	MediaResults(ctx context.Context, hashes []files.Hash) ([]*MediaResult, error)

	// MediaResultsFromIDs describes files by id, in the order given.
	MediaResultsFromIDs(ctx context.Context, ids []int64) ([]*MediaResult, error)

	// FileSystemPredicates lists the system predicates offered for a file
	// service, with counts where they are cheap.
	FileSystemPredicates(ctx context.Context, key services.Key) ([]predicate.Predicate, error)

	// ServiceInfo returns the named counters describing a service.
	ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error)
}

// MediaResult describes one file at the port boundary.
type MediaResult struct {
	ID        int64
	Hash      files.Hash
	Info      *files.Info
	Inbox     bool
	Timestamp *time.Time

	CurrentIn    []services.Key
	DeletedIn    []services.Key
	PendingIn    []services.Key
	PetitionedIn []services.Key

	Tags    map[services.Key]*TagStatuses
	Ratings map[services.Key]float64
}

// TagStatuses groups one service's tags for a file.
type TagStatuses struct {
	Current    []string
	Pending    []string
	Deleted    []string
	Petitioned []string
}
