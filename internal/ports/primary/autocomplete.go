package primary

import (
	"context"

	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
)

// AutocompleteService defines the primary port for tag suggestions.
type AutocompleteService interface {
	// SuggestTags returns tag predicates carrying mapping counts.
	SuggestTags(ctx context.Context, req SuggestRequest) ([]predicate.Predicate, error)

	// SuggestTagsLatest is SuggestTags for type-ahead callers: a newer request
	// on the same field cancels this one with errs.ErrSuperseded.
	SuggestTagsLatest(ctx context.Context, field string, req SuggestRequest) ([]predicate.Predicate, error)
}

// SuggestRequest contains parameters for tag suggestions.
type SuggestRequest struct {
	TagService services.Key
	Text       string
	// Exact matches the whole tag instead of a prefix or wildcard.
	Exact bool
	// AddNamespaceless also offers a bare subtag for namespaced matches.
	AddNamespaceless bool
}
