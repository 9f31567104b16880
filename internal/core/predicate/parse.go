package predicate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
)

// DefaultSimilarDistance is the Hamming distance used when a similar-to
// predicate names none.
const DefaultSimilarDistance = 4

var systemNames = func() []Type {
	names := append([]Type(nil), SystemTypes...)
	// longest first so "num tags" is tried before shorter names
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}()

// Parser reads predicate text. SimilarDistance is used when a similar-to
// predicate names no distance.
type Parser struct {
	SimilarDistance int
}

// Parse reads predicate text with the default similar-to distance.
func Parse(text string) (Predicate, error) {
	return Parser{SimilarDistance: DefaultSimilarDistance}.Parse(text)
}

// Parse reads the text form of a predicate:
//
//	car, series:cars, -car          tags (leading '-' excludes)
//	c*, series:c*                   wildcards
//	series:*                        namespace
//	car OR bus                      union
//	system:inbox, system:limit = 10
//	system:width < 201, system:size ≈ 5KB, system:duration > 5s
//	system:ratio = 16:9, system:age < 1y2m3d4h
//	system:mime = image/*, video/mp4
//	system:hash = <hex> [md5|sha1|sha512]
//	system:similar to <hex> [distance]
//	system:rating > 0.4 for <service>, system:rating = rated for <service>
//	system:file service pending <service>
func (ps Parser) Parse(text string) (Predicate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Predicate{}, fmt.Errorf("empty predicate")
	}

	if parts := strings.Split(text, " OR "); len(parts) > 1 {
		alternatives := make([]Predicate, 0, len(parts))
		for _, part := range parts {
			p, err := ps.Parse(part)
			if err != nil {
				return Predicate{}, err
			}
			alternatives = append(alternatives, p)
		}
		p := Or(alternatives...)
		return p, Validate(p)
	}

	inclusive := true
	if strings.HasPrefix(text, "-") {
		inclusive = false
		text = strings.TrimSpace(text[1:])
		if text == "" {
			return Predicate{}, fmt.Errorf("empty excluded predicate")
		}
	}

	var (
		p   Predicate
		err error
	)
	if rest, ok := strings.CutPrefix(strings.ToLower(text), "system:"); ok {
		p, err = ps.parseSystem(strings.TrimSpace(rest))
	} else {
		p, err = parseTag(text)
	}
	if err != nil {
		return Predicate{}, err
	}
	p.Inclusive = inclusive
	return p, Validate(p)
}

func parseTag(text string) (Predicate, error) {
	tag := tags.Clean(text)
	if tag == "" {
		return Predicate{}, fmt.Errorf("empty tag")
	}
	if namespace, ok := strings.CutSuffix(tag, ":*"); ok && !strings.Contains(namespace, "*") {
		return Namespace(namespace), nil
	}
	if strings.Contains(tag, "*") {
		return Wildcard(tag), nil
	}
	return Tag(tag), nil
}

func (ps Parser) parseSystem(rest string) (Predicate, error) {
	var name Type
	for _, t := range systemNames {
		candidate := strings.TrimPrefix(string(t), "system:")
		if rest == candidate || strings.HasPrefix(rest, candidate+" ") || strings.HasPrefix(rest, candidate+"<") ||
			strings.HasPrefix(rest, candidate+"=") || strings.HasPrefix(rest, candidate+">") || strings.HasPrefix(rest, candidate+"≈") ||
			strings.HasPrefix(rest, candidate+"~") {
			name = t
			rest = strings.TrimSpace(strings.TrimPrefix(rest, candidate))
			break
		}
	}
	if name == "" {
		return Predicate{}, fmt.Errorf("unknown system predicate %q", rest)
	}

	switch name {
	case TypeEverything, TypeInbox, TypeArchive, TypeLocal, TypeNotLocal, TypeUntagged:
		if rest != "" {
			return Predicate{}, fmt.Errorf("%s takes no argument", name)
		}
		return System(name), nil

	case TypeLimit:
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Predicate{}, fmt.Errorf("invalid limit %q: %w", rest, err)
		}
		return Limit(n), nil

	case TypeSize, TypeDuration, TypeWidth, TypeHeight, TypeNumTags, TypeNumPixels, TypeNumFrames, TypeNumWords:
		op, operand, err := splitOperator(rest)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: %w", name, err)
		}
		var value float64
		switch name {
		case TypeSize:
			var n int64
			n, err = ParseBytes(operand)
			value = float64(n)
		case TypeDuration:
			value, err = ParseDurationMillis(operand)
		default:
			value, err = strconv.ParseFloat(operand, 64)
		}
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: %w", name, err)
		}
		return Numeric(name, op, value), nil

	case TypeRatio:
		op, operand, err := splitOperator(rest)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: %w", name, err)
		}
		w, h, ok := strings.Cut(operand, ":")
		if !ok {
			return Predicate{}, fmt.Errorf("ratio %q must look like w:h", operand)
		}
		wi, errW := strconv.Atoi(strings.TrimSpace(w))
		hi, errH := strconv.Atoi(strings.TrimSpace(h))
		if errW != nil || errH != nil {
			return Predicate{}, fmt.Errorf("ratio %q must be two integers", operand)
		}
		return Ratio(op, wi, hi), nil

	case TypeAge:
		op, operand, err := splitOperator(rest)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: %w", name, err)
		}
		delta, err := ParseAgeDelta(operand)
		if err != nil {
			return Predicate{}, err
		}
		return Age(op, delta), nil

	case TypeMime:
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
		var mimes []string
		for _, m := range strings.Split(rest, ",") {
			if m = strings.TrimSpace(m); m != "" {
				mimes = append(mimes, m)
			}
		}
		return Mime(mimes...), nil

	case TypeHash:
		fields := strings.Fields(strings.TrimPrefix(rest, "="))
		if len(fields) == 0 || len(fields) > 2 {
			return Predicate{}, fmt.Errorf("hash predicate needs a digest and optional type")
		}
		hashType := files.HashSHA256
		if len(fields) == 2 {
			t, err := files.ParseHashType(fields[1])
			if err != nil {
				return Predicate{}, err
			}
			hashType = t
		}
		return Hash(hashType, fields[0]), nil

	case TypeSimilarTo:
		fields := strings.Fields(rest)
		if len(fields) == 0 || len(fields) > 2 {
			return Predicate{}, fmt.Errorf("similar to needs a hash and optional distance")
		}
		distance := ps.SimilarDistance
		if len(fields) == 2 {
			d, err := strconv.Atoi(fields[1])
			if err != nil {
				return Predicate{}, fmt.Errorf("invalid distance %q: %w", fields[1], err)
			}
			distance = d
		}
		return SimilarTo(fields[0], distance), nil

	case TypeRating:
		condition, service, ok := strings.Cut(rest, " for ")
		if !ok || strings.TrimSpace(service) == "" {
			return Predicate{}, fmt.Errorf("rating predicate must name a service with 'for <service>'")
		}
		key := services.Key(strings.TrimSpace(service))
		condition = strings.TrimSpace(condition)
		switch strings.TrimSpace(strings.TrimPrefix(condition, "=")) {
		case string(RatingRated):
			return Rated(key, true), nil
		case string(RatingNotRated):
			return Rated(key, false), nil
		}
		op, operand, err := splitOperator(condition)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: %w", name, err)
		}
		value, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return Predicate{}, fmt.Errorf("invalid rating %q: %w", operand, err)
		}
		return Rating(key, op, value), nil

	case TypeFileService:
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return Predicate{}, fmt.Errorf("file service predicate needs a status and a service")
		}
		return FileService(services.Key(fields[1]), FileStatus(fields[0])), nil
	}

	return Predicate{}, fmt.Errorf("unsupported system predicate %q", name)
}

// splitOperator separates a leading comparison operator from its operand.
func splitOperator(s string) (Operator, string, error) {
	s = strings.TrimSpace(s)
	for _, symbol := range []string{"~=", "==", "≈", "~", "<", "=", ">"} {
		if rest, ok := strings.CutPrefix(s, symbol); ok {
			op, err := ParseOperator(symbol)
			if err != nil {
				return "", "", err
			}
			operand := strings.TrimSpace(rest)
			if operand == "" {
				return "", "", fmt.Errorf("missing operand after %s", symbol)
			}
			return op, operand, nil
		}
	}
	return "", "", fmt.Errorf("expected an operator in %q", s)
}
