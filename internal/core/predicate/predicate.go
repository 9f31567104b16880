// Package predicate defines the search predicate variant, the numeric
// comparison rules and the planner that orders predicates for evaluation.
package predicate

import (
	"fmt"
	"strings"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
)

// Type is the kind of a predicate.
type Type string

const (
	TypeTag       Type = "tag"
	TypeNamespace Type = "namespace"
	TypeWildcard  Type = "wildcard"
	TypeOr        Type = "or"

	TypeEverything  Type = "system:everything"
	TypeInbox       Type = "system:inbox"
	TypeArchive     Type = "system:archive"
	TypeLocal       Type = "system:local"
	TypeNotLocal    Type = "system:not local"
	TypeUntagged    Type = "system:untagged"
	TypeNumTags     Type = "system:num tags"
	TypeLimit       Type = "system:limit"
	TypeSize        Type = "system:size"
	TypeAge         Type = "system:age"
	TypeHash        Type = "system:hash"
	TypeWidth       Type = "system:width"
	TypeHeight      Type = "system:height"
	TypeRatio       Type = "system:ratio"
	TypeNumPixels   Type = "system:num pixels"
	TypeDuration    Type = "system:duration"
	TypeNumFrames   Type = "system:num frames"
	TypeNumWords    Type = "system:num words"
	TypeMime        Type = "system:mime"
	TypeRating      Type = "system:rating"
	TypeSimilarTo   Type = "system:similar to"
	TypeFileService Type = "system:file service"
)

// SystemTypes lists every system predicate kind.
var SystemTypes = []Type{
	TypeEverything, TypeInbox, TypeArchive, TypeLocal, TypeNotLocal, TypeUntagged,
	TypeNumTags, TypeLimit, TypeSize, TypeAge, TypeHash, TypeWidth, TypeHeight,
	TypeRatio, TypeNumPixels, TypeDuration, TypeNumFrames, TypeNumWords, TypeMime,
	TypeRating, TypeSimilarTo, TypeFileService,
}

// IsSystem reports whether the type is a system predicate.
func (t Type) IsSystem() bool {
	return strings.HasPrefix(string(t), "system:")
}

// Operator compares a file value with an operand.
type Operator string

const (
	LessThan    Operator = "<"
	Equal       Operator = "="
	GreaterThan Operator = ">"
	Approx      Operator = "≈"
)

// ParseOperator accepts the operator symbols, with "~" as an ASCII spelling of "≈".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "<":
		return LessThan, nil
	case "=", "==":
		return Equal, nil
	case ">":
		return GreaterThan, nil
	case "≈", "~", "~=":
		return Approx, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// FileStatus is a file's membership state in one file service.
type FileStatus string

const (
	StatusCurrent    FileStatus = "current"
	StatusPending    FileStatus = "pending"
	StatusDeleted    FileStatus = "deleted"
	StatusPetitioned FileStatus = "petitioned"
)

// RatingState selects files by the presence of a rating.
type RatingState string

const (
	RatingValue    RatingState = ""
	RatingRated    RatingState = "rated"
	RatingNotRated RatingState = "not rated"
)

// Predicate is one search condition. Which payload fields are meaningful
// depends on Type:
//
//	tag, namespace, wildcard   Text
//	size, width, height, num*, duration, limit   Operator, Value
//	ratio                      Operator, RatioWidth, RatioHeight
//	age                        Operator, Age
//	mime                       Mimes
//	hash                       HashType, Hash
//	similar to                 Hash, Distance
//	rating                     Service, RatingState, Operator, Value
//	file service               Service, Status
//	or                         Or
//
// MinCurrentCount and MinPendingCount are shown to users and never filter.
type Predicate struct {
	Type      Type     `json:"type"`
	Inclusive bool     `json:"inclusive"`
	Operator  Operator `json:"operator,omitempty"`
	Text      string   `json:"text,omitempty"`
	Value     float64  `json:"value,omitempty"`

	RatioWidth  int       `json:"ratio_width,omitempty"`
	RatioHeight int       `json:"ratio_height,omitempty"`
	Age         *AgeDelta `json:"age,omitempty"`

	Mimes    []string       `json:"mimes,omitempty"`
	HashType files.HashType `json:"hash_type,omitempty"`
	Hash     string         `json:"hash,omitempty"`
	Distance int            `json:"distance,omitempty"`

	Service     services.Key `json:"service,omitempty"`
	Status      FileStatus   `json:"status,omitempty"`
	RatingState RatingState  `json:"rating_state,omitempty"`

	Or []Predicate `json:"or,omitempty"`

	MinCurrentCount *int `json:"min_current_count,omitempty"`
	MinPendingCount *int `json:"min_pending_count,omitempty"`
}

// Not returns the predicate with its inclusive flag flipped.
func (p Predicate) Not() Predicate {
	p.Inclusive = !p.Inclusive
	return p
}

// WithCounts annotates the predicate with display counts.
func (p Predicate) WithCounts(current, pending int) Predicate {
	p.MinCurrentCount = &current
	p.MinPendingCount = &pending
	return p
}

// Tag matches files carrying the tag. Unnamespaced tags match the subtag in any namespace.
func Tag(tag string) Predicate {
	return Predicate{Type: TypeTag, Inclusive: true, Text: tag}
}

// Namespace matches files with any tag in the namespace ("" for unnamespaced tags).
func Namespace(namespace string) Predicate {
	return Predicate{Type: TypeNamespace, Inclusive: true, Text: namespace}
}

// Wildcard matches files with any tag matching a '*' pattern.
func Wildcard(pattern string) Predicate {
	return Predicate{Type: TypeWildcard, Inclusive: true, Text: pattern}
}

// Or matches files matching any of the given predicates.
func Or(preds ...Predicate) Predicate {
	return Predicate{Type: TypeOr, Inclusive: true, Or: preds}
}

// System builds an operand-free system predicate such as inbox or everything.
func System(t Type) Predicate {
	return Predicate{Type: t, Inclusive: true}
}

// Numeric builds a system predicate comparing one numeric file property.
func Numeric(t Type, op Operator, value float64) Predicate {
	return Predicate{Type: t, Inclusive: true, Operator: op, Value: value}
}

// Limit truncates the result set.
func Limit(n int) Predicate {
	return Predicate{Type: TypeLimit, Inclusive: true, Operator: Equal, Value: float64(n)}
}

// Ratio compares width:height against w:h.
func Ratio(op Operator, w, h int) Predicate {
	return Predicate{Type: TypeRatio, Inclusive: true, Operator: op, RatioWidth: w, RatioHeight: h}
}

// Age compares how long ago files were imported against a delta.
func Age(op Operator, delta AgeDelta) Predicate {
	return Predicate{Type: TypeAge, Inclusive: true, Operator: op, Age: &delta}
}

// Mime matches any of the mimes; entries may be group wildcards like "image/*".
func Mime(mimes ...string) Predicate {
	return Predicate{Type: TypeMime, Inclusive: true, Mimes: mimes}
}

// Hash matches the file with the given digest.
func Hash(hashType files.HashType, hexDigest string) Predicate {
	return Predicate{Type: TypeHash, Inclusive: true, HashType: hashType, Hash: strings.ToLower(hexDigest)}
}

// SimilarTo matches images whose perceptual hash is within distance of the given file's.
func SimilarTo(hexDigest string, distance int) Predicate {
	return Predicate{Type: TypeSimilarTo, Inclusive: true, HashType: files.HashSHA256, Hash: strings.ToLower(hexDigest), Distance: distance}
}

// Rating compares the rating a service gave each file.
func Rating(service services.Key, op Operator, value float64) Predicate {
	return Predicate{Type: TypeRating, Inclusive: true, Service: service, Operator: op, Value: value}
}

// Rated matches files that have (or, with rated false, lack) a rating on the service.
func Rated(service services.Key, rated bool) Predicate {
	state := RatingRated
	if !rated {
		state = RatingNotRated
	}
	return Predicate{Type: TypeRating, Inclusive: true, Service: service, RatingState: state}
}

// FileService matches files with the given membership status in a file service.
func FileService(service services.Key, status FileStatus) Predicate {
	return Predicate{Type: TypeFileService, Inclusive: true, Service: service, Status: status}
}

// String renders the predicate in the text form Parse accepts.
func (p Predicate) String() string {
	var s string
	switch p.Type {
	case TypeTag, TypeWildcard:
		s = p.Text
	case TypeNamespace:
		s = p.Text + ":*"
	case TypeOr:
		parts := make([]string, len(p.Or))
		for i, sub := range p.Or {
			parts[i] = sub.String()
		}
		s = strings.Join(parts, " OR ")
	case TypeEverything, TypeInbox, TypeArchive, TypeLocal, TypeNotLocal, TypeUntagged:
		s = string(p.Type)
	case TypeLimit:
		s = fmt.Sprintf("%s = %d", p.Type, int(p.Value))
	case TypeSize:
		s = fmt.Sprintf("%s %s %s", p.Type, p.Operator, FormatBytes(int64(p.Value)))
	case TypeRatio:
		s = fmt.Sprintf("%s %s %d:%d", p.Type, p.Operator, p.RatioWidth, p.RatioHeight)
	case TypeAge:
		s = fmt.Sprintf("%s %s %s", p.Type, p.Operator, p.Age)
	case TypeMime:
		s = fmt.Sprintf("%s = %s", p.Type, strings.Join(p.Mimes, ", "))
	case TypeHash:
		s = fmt.Sprintf("%s = %s %s", p.Type, p.Hash, p.HashType)
	case TypeSimilarTo:
		s = fmt.Sprintf("%s %s %d", p.Type, p.Hash, p.Distance)
	case TypeRating:
		if p.RatingState != RatingValue {
			s = fmt.Sprintf("%s = %s for %s", p.Type, p.RatingState, p.Service)
		} else {
			s = fmt.Sprintf("%s %s %g for %s", p.Type, p.Operator, p.Value, p.Service)
		}
	case TypeFileService:
		s = fmt.Sprintf("%s %s %s", p.Type, p.Status, p.Service)
	default:
		s = fmt.Sprintf("%s %s %g", p.Type, p.Operator, p.Value)
	}

	if !p.Inclusive {
		s = "-" + s
	}
	if p.MinCurrentCount != nil && *p.MinCurrentCount > 0 {
		s += fmt.Sprintf(" (%d)", *p.MinCurrentCount)
	}
	if p.MinPendingCount != nil && *p.MinPendingCount > 0 {
		s += fmt.Sprintf(" (+%d)", *p.MinPendingCount)
	}
	return s
}

// SearchContext scopes a search: the file service bounds the universe, the
// tag service selects which mappings tag predicates read.
type SearchContext struct {
	FileService        services.Key
	TagService         services.Key
	Predicates         []Predicate
	IncludeCurrentTags bool
	IncludePendingTags bool
}

// NewSearchContext builds a context that reads both current and pending tags.
func NewSearchContext(fileService, tagService services.Key, preds ...Predicate) SearchContext {
	return SearchContext{
		FileService:        fileService,
		TagService:         tagService,
		Predicates:         preds,
		IncludeCurrentTags: true,
		IncludePendingTags: true,
	}
}
