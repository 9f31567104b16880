package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/primary"
)

// SearchAdapter translates search, autocomplete and file info commands to
// the read-side services.
type SearchAdapter struct {
	search       primary.SearchService
	autocomplete primary.AutocompleteService
	out          io.Writer
}

// NewSearchAdapter creates a new SearchAdapter with the given services.
func NewSearchAdapter(search primary.SearchService, autocomplete primary.AutocompleteService, out io.Writer) *SearchAdapter {
	return &SearchAdapter{
		search:       search,
		autocomplete: autocomplete,
		out:          out,
	}
}

// Search resolves the context and prints a table of matching files.
func (a *SearchAdapter) Search(ctx context.Context, sc predicate.SearchContext) ([]*primary.MediaResult, error) {
	ids, err := a.search.ResolveFileIDs(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results, err := a.search.MediaResultsFromIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		fmt.Fprintln(a.out, "No files found.")
		return results, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tHASH\tMIME\tSIZE\tDIMENSIONS\tINBOX")
	fmt.Fprintln(w, "--\t----\t----\t----\t----------\t-----")
	for _, r := range results {
		mime, size, dims := "-", "-", "-"
		if r.Info != nil {
			mime = r.Info.Mime
			size = predicate.FormatBytes(r.Info.Size)
			dims = dimensions(r.Info.Metadata)
		}
		inbox := ""
		if r.Inbox {
			inbox = "✓"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, shortHash(r.Hash), mime, size, dims, inbox)
	}
	w.Flush()

	fmt.Fprintf(a.out, "\n%d file(s)\n", len(results))
	return results, nil
}

// InfoOptions controls how Info lists tags.
type InfoOptions struct {
	Sort tags.SortOrder
	// HideNamespaces lists subtags under a heading per namespace.
	HideNamespaces bool
}

// Info prints everything the store holds about one file.
func (a *SearchAdapter) Info(ctx context.Context, hash files.Hash, opts InfoOptions) (*primary.MediaResult, error) {
	results, err := a.search.MediaResults(ctx, []files.Hash{hash})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: file %s", errs.ErrNotFound, hash.Hex())
	}
	r := results[0]

	fmt.Fprintf(a.out, "\nFile: %s\n", r.Hash.Hex())
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "ID:        %d\n", r.ID)
	if r.Info != nil {
		fmt.Fprintf(a.out, "Mime:      %s\n", r.Info.Mime)
		fmt.Fprintf(a.out, "Size:      %s\n", predicate.FormatBytes(r.Info.Size))
		fmt.Fprintf(a.out, "Size (px): %s\n", dimensions(r.Info.Metadata))
		if r.Info.Duration != nil {
			fmt.Fprintf(a.out, "Duration:  %s\n", time.Duration(*r.Info.Duration)*time.Millisecond)
		}
		if r.Info.NumFrames != nil {
			fmt.Fprintf(a.out, "Frames:    %s\n", optionalInt(r.Info.NumFrames))
		}
		if r.Info.NumWords != nil {
			fmt.Fprintf(a.out, "Words:     %s\n", optionalInt(r.Info.NumWords))
		}
	}
	if r.Timestamp != nil {
		fmt.Fprintf(a.out, "Imported:  %s\n", r.Timestamp.Format(time.RFC3339))
	}
	fmt.Fprintf(a.out, "Inbox:     %t\n", r.Inbox)

	printKeys(a.out, "Current in", r.CurrentIn)
	printKeys(a.out, "Deleted from", r.DeletedIn)
	printKeys(a.out, "Pending to", r.PendingIn)
	printKeys(a.out, "Petitioned from", r.PetitionedIn)

	keys := make([]string, 0, len(r.Tags))
	for key := range r.Tags {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	for _, key := range keys {
		t := r.Tags[services.Key(key)]
		fmt.Fprintf(a.out, "\nTags (%s):\n", key)
		a.printTags(t, opts)
	}

	if len(r.Ratings) > 0 {
		fmt.Fprintln(a.out, "\nRatings:")
		ratingKeys := make([]string, 0, len(r.Ratings))
		for key := range r.Ratings {
			ratingKeys = append(ratingKeys, string(key))
		}
		sort.Strings(ratingKeys)
		for _, key := range ratingKeys {
			fmt.Fprintf(a.out, "  %s: %g\n", key, r.Ratings[services.Key(key)])
		}
	}
	fmt.Fprintln(a.out)

	return r, nil
}

// printTags lists one service's tags in the requested order, marking
// pending and petitioned ones.
func (a *SearchAdapter) printTags(t *primary.TagStatuses, opts InfoOptions) {
	marks := make(map[string]string)
	var list []string
	add := func(tagList []string, mark string) {
		for _, tag := range tagList {
			if _, ok := marks[tag]; ok {
				continue
			}
			marks[tag] = mark
			list = append(list, tag)
		}
	}
	add(t.Current, "")
	add(t.Pending, warnColor.Sprint("(pending)"))
	add(t.Petitioned, errColor.Sprint("(petitioned)"))

	order := opts.Sort
	if opts.HideNamespaces {
		order = order.Grouped()
	}
	tags.Sort(list, order)

	indent := "  "
	heading := "\x00"
	for _, tag := range list {
		if opts.HideNamespaces {
			namespace, _ := tags.Split(tag)
			if namespace != heading {
				heading = namespace
				fmt.Fprintf(a.out, "  %s:\n", tags.RenderNamespace(namespace))
			}
			indent = "    "
		}
		shown := tags.Render(tag, !opts.HideNamespaces)
		if marks[tag] == "" {
			fmt.Fprintf(a.out, "%s%s\n", indent, tagColor.Sprint(shown))
			continue
		}
		fmt.Fprintf(a.out, "%s%s %s\n", indent, shown, marks[tag])
	}
}

// Predicates lists the system predicates a file service offers.
func (a *SearchAdapter) Predicates(ctx context.Context, key services.Key) ([]predicate.Predicate, error) {
	preds, err := a.search.FileSystemPredicates(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list predicates: %w", err)
	}
	fmt.Fprintf(a.out, "System predicates for %s:\n", key)
	fmt.Fprint(a.out, predicateList(preds))
	return preds, nil
}

// ServiceInfo prints the counters describing a service.
func (a *SearchAdapter) ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error) {
	info, err := a.search.ServiceInfo(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get service info: %w", err)
	}

	names := make([]string, 0, len(info))
	for name := range info {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(a.out, "Service: %s\n", key)
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%d\n", strings.ReplaceAll(name, "_", " "), info[name])
	}
	w.Flush()
	return info, nil
}

// Autocomplete prints tag suggestions with their counts.
func (a *SearchAdapter) Autocomplete(ctx context.Context, req primary.SuggestRequest) ([]predicate.Predicate, error) {
	preds, err := a.autocomplete.SuggestTags(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}
	if len(preds) == 0 {
		fmt.Fprintln(a.out, "No matching tags.")
		return preds, nil
	}
	fmt.Fprint(a.out, predicateList(preds))
	return preds, nil
}

func printKeys(out io.Writer, label string, keys []services.Key) {
	if len(keys) == 0 {
		return
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	fmt.Fprintf(out, "%s: %s\n", label, strings.Join(names, ", "))
}
