package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/ports/primary"
)

// ImportAdapter is a thin adapter that translates CLI operations to ImportService calls.
type ImportAdapter struct {
	service primary.ImportService
	out     io.Writer
}

// NewImportAdapter creates a new ImportAdapter with the given service.
func NewImportAdapter(service primary.ImportService, out io.Writer) *ImportAdapter {
	return &ImportAdapter{
		service: service,
		out:     out,
	}
}

// Import admits paths and prints one line per file plus a summary.
func (a *ImportAdapter) Import(ctx context.Context, paths []string, opts primary.ImportOptions) ([]*primary.ImportResult, error) {
	results, err := a.service.ImportFiles(ctx, paths, opts)

	counts := make(map[files.ImportStatus]int)
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, r := range results {
		counts[r.Status]++
		hash := "-"
		if !r.Hash.IsZero() {
			hash = shortHash(r.Hash)
		}
		fmt.Fprintf(w, "%s\t%s\t%s", statusWord(r.Status), hash, r.Path)
		if r.Note != "" && r.Status != files.StatusSuccessfulAndNew {
			fmt.Fprintf(w, "\t%s", dimColor.Sprint(r.Note))
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if err != nil {
		return results, fmt.Errorf("import interrupted: %w", err)
	}

	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "✓ %d file(s): %d new, %d redundant, %d deleted, %d failed\n",
		len(results),
		counts[files.StatusSuccessfulAndNew],
		counts[files.StatusRedundant],
		counts[files.StatusDeleted],
		counts[files.StatusError],
	)
	if counts[files.StatusDeleted] > 0 && !opts.AllowDeleted {
		fmt.Fprintln(a.out, "  Re-run with --allow-deleted to undelete previously deleted files.")
	}
	return results, nil
}

// HashStatus prints what the store knows about a digest.
func (a *ImportAdapter) HashStatus(ctx context.Context, hashType files.HashType, digest []byte) (*primary.HashStatus, error) {
	status, err := a.service.HashStatus(ctx, hashType, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to get hash status: %w", err)
	}

	fmt.Fprintf(a.out, "Status: %s\n", statusWord(status.Status))
	if status.Hash != nil {
		fmt.Fprintf(a.out, "Hash:   %s\n", status.Hash.Hex())
	}
	if status.Note != "" {
		fmt.Fprintf(a.out, "Note:   %s\n", status.Note)
	}
	return status, nil
}
