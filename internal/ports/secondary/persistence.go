// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"time"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
	"github.com/example/mediadb/internal/core/tags"
)

// ServiceRepository defines the secondary port for the service registry.
type ServiceRepository interface {
	// List retrieves registered services. Soft-disabled services are only
	// returned when includeInactive is set.
	List(ctx context.Context, includeInactive bool) ([]*ServiceRecord, error)

	// GetByKey retrieves a service by its key, active or not.
	GetByKey(ctx context.Context, key services.Key) (*ServiceRecord, error)

	// ApplyPlan writes a registry diff in one transaction and bumps the registry version.
	ApplyPlan(ctx context.Context, plan services.RegistryPlan) error

	// Version returns the registry version, incremented on every applied write.
	Version(ctx context.Context) (int64, error)

	// GetTagFilter retrieves the tag filter stored for a service (empty when unset).
	GetTagFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error)

	// SetTagFilter replaces the tag filter for a service.
	SetTagFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error
}

// ServiceRecord represents a service as stored in persistence.
type ServiceRecord struct {
	ID      int64
	Service services.Service
	Active  bool
}

// FileRepository defines the secondary port for file identity and admission.
type FileRepository interface {
	// Lookup resolves a digest of any supported hash type. Unknown digests
	// return a record with Known unset rather than an error.
	Lookup(ctx context.Context, hashType files.HashType, digest []byte) (*HashStatusRecord, error)

	// Admit stores a batch of new files in one transaction.
	Admit(ctx context.Context, records []*FileRecord, now time.Time) error

	// HashIDs resolves content hashes to their row ids, skipping unknown hashes.
	HashIDs(ctx context.Context, hashes []files.Hash) (map[files.Hash]int64, error)

	// MediaResults loads the full description of the given files. Unknown ids are skipped.
	MediaResults(ctx context.Context, hashIDs []int64) ([]*MediaResultRecord, error)
}

// HashStatusRecord is the store's view of one digest.
type HashStatusRecord struct {
	HashID  int64
	Hash    files.Hash
	Known   bool // a file info row exists
	Current bool // current in a local file domain
	Trashed bool // current in the trash
	Deleted bool // deleted from a local file domain
	Mime    string
}

// FileRecord is one file ready to be admitted.
type FileRecord struct {
	Hashes files.HashSet
	Info   files.Info
	Domain services.Key // local file domain receiving the file
	Inbox  bool
}

// MediaResultRecord describes one file with all its service-scoped state.
type MediaResultRecord struct {
	HashID    int64
	Hash      files.Hash
	Info      *files.Info // nil when the file was never admitted locally
	Inbox     bool
	Timestamp *time.Time // import time into combined-local

	CurrentIn    []services.Key
	DeletedIn    []services.Key
	PendingIn    []services.Key
	PetitionedIn []services.Key

	Tags    map[services.Key]*TagsByStatus
	Ratings map[services.Key]float64
}

// TagsByStatus groups a file's tags on one tag service.
type TagsByStatus struct {
	Current    []string
	Pending    []string
	Deleted    []string
	Petitioned []string
}

// ContentRepository defines the secondary port for content updates.
type ContentRepository interface {
	// Apply commits every update in the batch in one transaction.
	Apply(ctx context.Context, batch content.Batch, now time.Time) (*ApplySummary, error)

	// Pending collects the pending and petitioned content of a repository service.
	Pending(ctx context.Context, key services.Key) (*PendingRecord, error)

	// NumsPending counts pending and petitioned content per repository service.
	NumsPending(ctx context.Context) (map[services.Key]PendingCounts, error)

	// Downloads lists files queued for download into combined-local.
	Downloads(ctx context.Context) ([]files.Hash, error)
}

// ApplySummary reports what a batch did.
type ApplySummary struct {
	Applied int
	Skipped []SkippedUpdate
}

// SkippedUpdate is an update that was a silent no-op for its service.
type SkippedUpdate struct {
	Service services.Key
	Type    content.Type
	Action  content.Action
	Reason  string
}

// PendingRecord is the outgoing content of one repository service.
type PendingRecord struct {
	Service            services.Key
	PendingMappings    map[string][]files.Hash
	PetitionedMappings []MappingPetition
	PendingFiles       []files.Hash
	PetitionedFiles    []FilePetition
}

// MappingPetition is a group of petitioned mappings sharing tag and reason.
type MappingPetition struct {
	Tag    string
	Reason string
	Hashes []files.Hash
}

// FilePetition is a petitioned file with its reason.
type FilePetition struct {
	Hash   files.Hash
	Reason string
}

// PendingCounts counts the outgoing content of one repository service.
type PendingCounts struct {
	PendingMappings    int
	PetitionedMappings int
	PendingFiles       int
	PetitionedFiles    int
}

// QueryRepository defines the secondary port for predicate search.
type QueryRepository interface {
	// Resolve evaluates a search and returns matching file ids in ascending order.
	Resolve(ctx context.Context, sc predicate.SearchContext, now time.Time) ([]int64, error)

	// UniverseCounts counts files in a file service's universe, and how many are inboxed.
	UniverseCounts(ctx context.Context, key services.Key) (*UniverseCounts, error)

	// ServiceInfo returns the named counters describing a service.
	ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error)
}

// UniverseCounts are the counts shown on the inbox/archive/everything predicates.
type UniverseCounts struct {
	Everything int
	Inbox      int
	Archive    int
}

// AutocompleteRepository defines the secondary port for tag suggestions.
type AutocompleteRepository interface {
	// Suggest returns tags with mapping counts on the service. Exact patterns
	// match the whole tag; others are matched as wildcards.
	Suggest(ctx context.Context, key services.Key, pattern tags.Pattern, exact bool) ([]*TagCountRecord, error)
}

// TagCountRecord is a tag with its current and pending mapping counts.
type TagCountRecord struct {
	Tag          string
	CurrentCount int
	PendingCount int
}
