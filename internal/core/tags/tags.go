// Package tags normalises, splits and orders tag strings.
//
// A tag is "namespace:subtag" or a bare subtag. Tags are stored in their
// cleaned form; every comparison in the store works on cleaned tags.
package tags

import (
	"fmt"
	"sort"
	"strings"
)

// Clean normalises a raw tag: lowercase, trimmed, internal whitespace collapsed,
// and a leading colon on an unnamespaced tag dropped.
func Clean(raw string) string {
	tag := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if strings.HasPrefix(tag, ":") {
		tag = strings.TrimLeft(tag, ":")
	}
	namespace, subtag := Split(tag)
	if namespace == "" {
		return subtag
	}
	return Combine(strings.TrimSpace(namespace), strings.TrimSpace(subtag))
}

// Split separates a tag into namespace and subtag. Unnamespaced tags have an
// empty namespace.
func Split(tag string) (namespace, subtag string) {
	if i := strings.Index(tag, ":"); i >= 0 {
		return tag[:i], tag[i+1:]
	}
	return "", tag
}

// Combine joins a namespace and subtag back into a tag.
func Combine(namespace, subtag string) string {
	if namespace == "" {
		return subtag
	}
	return namespace + ":" + subtag
}

// IsNamespaced reports whether the tag carries a namespace.
func IsNamespaced(tag string) bool {
	namespace, _ := Split(tag)
	return namespace != ""
}

// Render returns the tag as shown to users. When showNamespaces is false only
// the subtag is shown.
func Render(tag string, showNamespaces bool) string {
	namespace, subtag := Split(tag)
	if namespace == "" || !showNamespaces {
		return subtag
	}
	return namespace + ":" + subtag
}

// RenderNamespace names a namespace for display.
func RenderNamespace(namespace string) string {
	if namespace == "" {
		return "unnamespaced"
	}
	return namespace
}

// SortOrder selects how tag lists are ordered.
type SortOrder int

const (
	SortLexicographicAsc SortOrder = iota
	SortLexicographicDesc
	SortNamespaceAsc
	SortNamespaceDesc
)

var sortOrderNames = map[string]SortOrder{
	"lex-asc":  SortLexicographicAsc,
	"lex-desc": SortLexicographicDesc,
	"ns-asc":   SortNamespaceAsc,
	"ns-desc":  SortNamespaceDesc,
}

// ParseSortOrder reads a sort order name: lex-asc, lex-desc, ns-asc or ns-desc.
func ParseSortOrder(name string) (SortOrder, error) {
	order, ok := sortOrderNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown tag sort order %q", name)
	}
	return order, nil
}

// Grouped returns the namespace-grouping variant of a lexicographic order.
func (o SortOrder) Grouped() SortOrder {
	switch o {
	case SortLexicographicAsc:
		return SortNamespaceAsc
	case SortLexicographicDesc:
		return SortNamespaceDesc
	}
	return o
}

// Sort orders tags in place. Namespace orders group by namespace and put
// unnamespaced tags after every namespace.
func Sort(list []string, order SortOrder) {
	key := func(tag string) (string, string) {
		return tag, ""
	}
	if order == SortNamespaceAsc || order == SortNamespaceDesc {
		key = func(tag string) (string, string) {
			namespace, subtag := Split(tag)
			if namespace == "" {
				// '{' sorts after 'z'
				return "{", subtag
			}
			return namespace, subtag
		}
	}
	reverse := order == SortLexicographicDesc || order == SortNamespaceDesc

	sort.SliceStable(list, func(i, j int) bool {
		ai, bi := key(list[i])
		aj, bj := key(list[j])
		less := ai < aj || (ai == aj && bi < bj)
		if reverse {
			return !less && (ai != aj || bi != bj)
		}
		return less
	})
}
