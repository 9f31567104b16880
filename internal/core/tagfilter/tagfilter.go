// Package tagfilter implements whitelist/blacklist rules over tag slices.
//
// A tag slice selects a class of tags:
//
//	""        every unnamespaced tag
//	":"       every namespaced tag
//	"ns:"     every tag in namespace ns
//	"ns:foo"  exactly that tag
package tagfilter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/example/mediadb/internal/core/tags"
)

// Rule is the verdict attached to a tag slice.
type Rule string

const (
	Whitelist Rule = "whitelist"
	Blacklist Rule = "blacklist"
)

// TagFilter maps tag slices to rules. The zero value allows every tag.
type TagFilter struct {
	rules map[string]Rule
}

// New returns an empty filter.
func New() *TagFilter {
	return &TagFilter{rules: make(map[string]Rule)}
}

// SetRule attaches a rule to a tag slice, replacing any previous rule.
func (f *TagFilter) SetRule(slice string, rule Rule) {
	if f.rules == nil {
		f.rules = make(map[string]Rule)
	}
	f.rules[slice] = rule
}

// Rules returns a copy of the slice-to-rule map.
func (f *TagFilter) Rules() map[string]Rule {
	out := make(map[string]Rule, len(f.rules))
	for slice, rule := range f.rules {
		out[slice] = rule
	}
	return out
}

// IsEmpty reports whether no rules are set.
func (f *TagFilter) IsEmpty() bool {
	return len(f.rules) == 0
}

// Slices returns the slices a tag belongs to, most specific first.
func Slices(tag string) []string {
	namespace, _ := tags.Split(tag)
	if namespace != "" {
		return []string{tag, namespace + ":", ":"}
	}
	return []string{tag, ""}
}

// Allowed evaluates the rules for one tag. Any whitelisted slice allows the
// tag outright; otherwise any blacklisted slice blocks it; no rule allows it.
func (f *TagFilter) Allowed(tag string) bool {
	blacklisted := false
	for _, slice := range Slices(tag) {
		switch f.rules[slice] {
		case Whitelist:
			return true
		case Blacklist:
			blacklisted = true
		}
	}
	return !blacklisted
}

// Filter returns the allowed tags, preserving input order.
func (f *TagFilter) Filter(list []string) []string {
	out := make([]string, 0, len(list))
	for _, tag := range list {
		if f.Allowed(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// SliceString describes a tag slice for users.
func SliceString(slice string) string {
	switch {
	case slice == "":
		return "unnamespaced tags"
	case slice == ":":
		return "namespaced tags"
	case strings.Count(slice, ":") == 1 && strings.HasSuffix(slice, ":"):
		return "'" + strings.TrimSuffix(slice, ":") + "' tags"
	}
	return slice
}

func (f *TagFilter) lists() (blacklist, whitelist []string) {
	for slice, rule := range f.rules {
		switch rule {
		case Blacklist:
			blacklist = append(blacklist, slice)
		case Whitelist:
			whitelist = append(whitelist, slice)
		}
	}
	sort.Strings(blacklist)
	sort.Strings(whitelist)
	return blacklist, whitelist
}

func joinSlices(slices []string) string {
	parts := make([]string, len(slices))
	for i, s := range slices {
		parts[i] = SliceString(s)
	}
	return strings.Join(parts, ", ")
}

func isExactly(list []string, want ...string) bool {
	if len(list) != len(want) {
		return false
	}
	sorted := append([]string(nil), want...)
	sort.Strings(sorted)
	for i := range list {
		if list[i] != sorted[i] {
			return false
		}
	}
	return true
}

// ToBlacklistString summarises the filter as a blacklist.
func (f *TagFilter) ToBlacklistString() string {
	blacklist, whitelist := f.lists()
	if len(blacklist) == 0 {
		return "no blacklist set"
	}

	text := "blacklisting on " + joinSlices(blacklist)
	if isExactly(blacklist, "", ":") {
		text = "blacklisting on any tags"
	}
	if len(whitelist) > 0 {
		text += " except " + joinSlices(whitelist)
	}
	return text
}

// ToCensoredString summarises what the filter lets through as a censor.
func (f *TagFilter) ToCensoredString() string {
	blacklist, whitelist := f.lists()
	if len(blacklist) == 0 {
		return "all tags allowed"
	}

	text := "all but " + joinSlices(blacklist) + " allowed"
	if isExactly(blacklist, "", ":") {
		text = "no tags allowed"
	}
	if len(whitelist) > 0 {
		text += " except " + joinSlices(whitelist)
	}
	return text
}

// ToPermittedString summarises which tags the filter permits.
func (f *TagFilter) ToPermittedString() string {
	blacklist, whitelist := f.lists()
	if len(blacklist) == 0 {
		return "all tags"
	}

	switch {
	case isExactly(blacklist, "", ":"):
		if len(whitelist) == 0 {
			return "no tags"
		}
		return "only " + joinSlices(whitelist)
	case isExactly(blacklist, ""):
		text := "all namespaced tags"
		if len(whitelist) > 0 {
			text += " and " + joinSlices(whitelist)
		}
		return text
	case isExactly(blacklist, ":"):
		text := "all unnamespaced tags"
		if len(whitelist) > 0 {
			text += " and " + joinSlices(whitelist)
		}
		return text
	}

	text := "all tags except " + joinSlices(blacklist)
	if len(whitelist) > 0 {
		text += " (except " + joinSlices(whitelist) + ")"
	}
	return text
}

type ruleJSON struct {
	Slice string `json:"slice"`
	Rule  Rule   `json:"rule"`
}

// MarshalJSON persists the rules as a sorted list of slice/rule pairs.
func (f *TagFilter) MarshalJSON() ([]byte, error) {
	out := make([]ruleJSON, 0, len(f.rules))
	for slice, rule := range f.rules {
		out = append(out, ruleJSON{Slice: slice, Rule: rule})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slice < out[j].Slice })
	return json.Marshal(out)
}

// UnmarshalJSON restores rules written by MarshalJSON.
func (f *TagFilter) UnmarshalJSON(data []byte) error {
	var in []ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.rules = make(map[string]Rule, len(in))
	for _, r := range in {
		if r.Rule != Whitelist && r.Rule != Blacklist {
			return fmt.Errorf("unknown tag filter rule %q for slice %q", r.Rule, r.Slice)
		}
		f.rules[r.Slice] = r.Rule
	}
	return nil
}
