// Package cli contains output adapters that translate CLI operations into
// primary port calls and render the results to an io.Writer.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/tagfilter"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
	tagColor  = color.New(color.FgCyan)
)

// rule is the separator printed under section headers.
const rule = "────────────────────────────────────────"

// statusWord renders an import status in its colour.
func statusWord(s files.ImportStatus) string {
	switch s {
	case files.StatusSuccessfulAndNew:
		return okColor.Sprint(s.String())
	case files.StatusRedundant:
		return dimColor.Sprint(s.String())
	case files.StatusDeleted:
		return warnColor.Sprint(s.String())
	case files.StatusError:
		return errColor.Sprint(s.String())
	}
	return s.String()
}

// shortHash is the first 12 hex characters of a hash.
func shortHash(h files.Hash) string {
	return h.Hex()[:12]
}

// dimensions renders WxH, or "-" when either side is unknown.
func dimensions(m files.Metadata) string {
	if m.Width == nil || m.Height == nil {
		return "-"
	}
	return fmt.Sprintf("%dx%d", *m.Width, *m.Height)
}

// optionalInt renders a nullable count.
func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

// predicateList renders predicates one per line with their counts.
func predicateList(preds []predicate.Predicate) string {
	var b strings.Builder
	for _, p := range preds {
		b.WriteString("  ")
		b.WriteString(p.String())
		b.WriteString("\n")
	}
	return b.String()
}

func sortedSlices(rules map[string]tagfilter.Rule) []string {
	slices := make([]string, 0, len(rules))
	for slice := range rules {
		slices = append(slices, slice)
	}
	sort.Strings(slices)
	return slices
}
