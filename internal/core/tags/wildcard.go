package tags

import "strings"

// Pattern is a parsed tag search text.
type Pattern struct {
	// Namespace is set when the text carried an explicit "ns:" qualifier.
	Namespace    string
	HasNamespace bool
	// Subtag is the text after any namespace, possibly containing '*'.
	Subtag string
	// Raw is the full cleaned search text.
	Raw string
}

// ParsePattern cleans search text and splits off an explicit namespace.
func ParsePattern(text string) Pattern {
	raw := Clean(text)
	namespace, subtag := Split(raw)
	return Pattern{
		Namespace:    namespace,
		HasNamespace: strings.Contains(raw, ":"),
		Subtag:       subtag,
		Raw:          raw,
	}
}

// IsWildcard reports whether the pattern contains a '*'.
func (p Pattern) IsWildcard() bool {
	return strings.Contains(p.Raw, "*")
}

// AsPrefix turns a plain pattern into a prefix pattern ("c" -> "c*").
func (p Pattern) AsPrefix() Pattern {
	if p.IsWildcard() {
		return p
	}
	p.Subtag += "*"
	p.Raw += "*"
	return p
}

// LikePattern converts a '*' wildcard into a SQL LIKE pattern, escaping
// LIKE metacharacters with '\'.
func LikePattern(wildcard string) string {
	var b strings.Builder
	for _, r := range wildcard {
		switch r {
		case '%', '_', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '*':
			b.WriteRune('%')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
