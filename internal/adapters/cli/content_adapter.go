package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/ports/primary"
)

// ContentAdapter is a thin adapter that translates CLI operations to ContentService calls.
type ContentAdapter struct {
	service primary.ContentService
	out     io.Writer
}

// NewContentAdapter creates a new ContentAdapter with the given service.
func NewContentAdapter(service primary.ContentService, out io.Writer) *ContentAdapter {
	return &ContentAdapter{
		service: service,
		out:     out,
	}
}

// Apply commits a batch and reports how many updates took effect.
func (a *ContentAdapter) Apply(ctx context.Context, batch content.Batch) (*primary.ApplyResult, error) {
	result, err := a.service.ApplyContentUpdates(ctx, batch)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ Applied %d update(s)\n", result.Applied)
	if result.Skipped > 0 {
		fmt.Fprintf(a.out, "  %s\n", warnColor.Sprintf("%d update(s) skipped: the service has no pending or petitioned content", result.Skipped))
	}
	return result, nil
}

// Pending prints the outgoing content of a repository service.
func (a *ContentAdapter) Pending(ctx context.Context, key services.Key) (*primary.PendingContent, error) {
	pending, err := a.service.Pending(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending content: %w", err)
	}

	total := len(pending.PendingMappings) + len(pending.PetitionedMappings) +
		len(pending.PendingFiles) + len(pending.PetitionedFiles)
	if total == 0 {
		fmt.Fprintf(a.out, "Nothing pending for %s.\n", key)
		return pending, nil
	}

	fmt.Fprintf(a.out, "Pending for %s\n", key)
	fmt.Fprintln(a.out, rule)
	for _, g := range pending.PendingMappings {
		fmt.Fprintf(a.out, "  + %s (%d file(s))\n", tagColor.Sprint(g.Tag), len(g.Hashes))
	}
	for _, g := range pending.PetitionedMappings {
		fmt.Fprintf(a.out, "  - %s (%d file(s)): %s\n", tagColor.Sprint(g.Tag), len(g.Hashes), g.Reason)
	}
	if len(pending.PendingFiles) > 0 {
		fmt.Fprintf(a.out, "  + %d file(s) to upload\n", len(pending.PendingFiles))
	}
	if len(pending.PetitionedFiles) > 0 {
		fmt.Fprintf(a.out, "  - %d file(s) petitioned for removal\n", len(pending.PetitionedFiles))
	}
	return pending, nil
}

// NumsPending prints the outgoing totals of every repository service.
func (a *ContentAdapter) NumsPending(ctx context.Context) (map[services.Key]primary.PendingCounts, error) {
	counts, err := a.service.NumsPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending content: %w", err)
	}
	if len(counts) == 0 {
		fmt.Fprintln(a.out, "No repository services.")
		return counts, nil
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	for _, key := range keys {
		c := counts[services.Key(key)]
		fmt.Fprintf(a.out, "%s: %d pending, %d petitioned mapping(s), %d pending, %d petitioned file(s)\n",
			key, c.PendingMappings, c.PetitionedMappings, c.PendingFiles, c.PetitionedFiles)
	}
	return counts, nil
}

// Downloads prints the files queued for download.
func (a *ContentAdapter) Downloads(ctx context.Context) error {
	hashes, err := a.service.Downloads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}
	if len(hashes) == 0 {
		fmt.Fprintln(a.out, "No downloads queued.")
		return nil
	}
	for _, h := range hashes {
		fmt.Fprintln(a.out, h.Hex())
	}
	return nil
}
