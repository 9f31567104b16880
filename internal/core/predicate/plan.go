package predicate

import (
	"fmt"
	"sort"
)

// Stage is where a predicate is evaluated.
type Stage int

const (
	// StageIndex narrows the candidate set with a direct index query.
	StageIndex Stage = iota
	// StagePostFilter evaluates each remaining candidate individually.
	StagePostFilter
)

// cost orders index predicates: cheap and selective first.
var cost = map[Type]int{
	TypeHash:        0,
	TypeMime:        10,
	TypeFileService: 20,
	TypeInbox:       20,
	TypeArchive:     20,
	TypeLocal:       20,
	TypeNotLocal:    20,
	TypeWidth:       30,
	TypeHeight:      30,
	TypeSize:        30,
	TypeDuration:    30,
	TypeNumFrames:   30,
	TypeNumWords:    30,
	TypeNumPixels:   30,
	TypeRatio:       30,
	TypeAge:         35,
	TypeTag:         40,
	TypeNamespace:   50,
	TypeWildcard:    60,
	TypeOr:          70,
	TypeNumTags:     80,
	TypeUntagged:    80,
	TypeEverything:  90,
	TypeRating:      100,
	TypeSimilarTo:   110,
}

// StageOf returns where a predicate type is evaluated.
func StageOf(t Type) Stage {
	switch t {
	case TypeRating, TypeSimilarTo:
		return StagePostFilter
	}
	return StageIndex
}

// Cost returns the relative evaluation cost of a predicate type.
func Cost(t Type) int {
	if c, ok := cost[t]; ok {
		return c
	}
	return 1000
}

// Plan is an ordered evaluation of a search.
type Plan struct {
	// Include narrows the universe, cheapest first.
	Include []Predicate
	// Exclude subtracts matches from the narrowed set, cheapest first.
	Exclude []Predicate
	// PostFilter runs per candidate after Include and Exclude.
	PostFilter []Predicate
	// Limit truncates the result when set.
	Limit *int
	// Empty is set when the predicates cannot match anything.
	Empty bool
}

// BuildPlan validates predicates and orders them by cost. The result is the
// same for any permutation of the input.
func BuildPlan(preds []Predicate) (Plan, error) {
	var plan Plan

	for _, p := range preds {
		if err := Validate(p); err != nil {
			return Plan{}, err
		}

		switch {
		case p.Type == TypeLimit:
			n := int(p.Value)
			if plan.Limit == nil || n < *plan.Limit {
				plan.Limit = &n
			}
		case p.Type == TypeEverything:
			if !p.Inclusive {
				plan.Empty = true
			}
		case StageOf(p.Type) == StagePostFilter:
			plan.PostFilter = append(plan.PostFilter, p)
		case p.Inclusive:
			plan.Include = append(plan.Include, p)
		default:
			plan.Exclude = append(plan.Exclude, p)
		}
	}

	if plan.Limit != nil && *plan.Limit <= 0 {
		plan.Empty = true
	}

	byCost(plan.Include)
	byCost(plan.Exclude)
	byCost(plan.PostFilter)
	return plan, nil
}

func byCost(preds []Predicate) {
	sort.SliceStable(preds, func(i, j int) bool {
		ci, cj := Cost(preds[i].Type), Cost(preds[j].Type)
		if ci != cj {
			return ci < cj
		}
		return preds[i].String() < preds[j].String()
	})
}

// Validate checks that a predicate carries the payload its type needs.
func Validate(p Predicate) error {
	switch p.Type {
	case TypeTag, TypeWildcard:
		if p.Text == "" {
			return fmt.Errorf("%s predicate has no text", p.Type)
		}
	case TypeNamespace:
	case TypeOr:
		if len(p.Or) == 0 {
			return fmt.Errorf("or predicate has no alternatives")
		}
		for _, sub := range p.Or {
			if sub.Type == TypeLimit || StageOf(sub.Type) == StagePostFilter {
				return fmt.Errorf("%s cannot appear inside an or predicate", sub.Type)
			}
			if err := Validate(sub); err != nil {
				return err
			}
		}
	case TypeEverything, TypeInbox, TypeArchive, TypeLocal, TypeNotLocal, TypeUntagged:
	case TypeLimit:
		if p.Value < 0 {
			return fmt.Errorf("limit must not be negative")
		}
	case TypeNumTags, TypeSize, TypeWidth, TypeHeight, TypeNumPixels, TypeDuration, TypeNumFrames, TypeNumWords:
		if _, err := ParseOperator(string(p.Operator)); err != nil {
			return fmt.Errorf("%s: %w", p.Type, err)
		}
	case TypeRatio:
		if _, err := ParseOperator(string(p.Operator)); err != nil {
			return fmt.Errorf("%s: %w", p.Type, err)
		}
		if p.RatioWidth <= 0 || p.RatioHeight <= 0 {
			return fmt.Errorf("ratio %d:%d must be positive", p.RatioWidth, p.RatioHeight)
		}
	case TypeAge:
		if p.Age == nil {
			return fmt.Errorf("age predicate has no delta")
		}
		if _, err := ParseOperator(string(p.Operator)); err != nil {
			return fmt.Errorf("%s: %w", p.Type, err)
		}
	case TypeMime:
		if len(p.Mimes) == 0 {
			return fmt.Errorf("mime predicate has no mimes")
		}
	case TypeHash, TypeSimilarTo:
		if p.Hash == "" {
			return fmt.Errorf("%s predicate has no hash", p.Type)
		}
		if p.HashType != "" && p.HashType.Size() == 0 {
			return fmt.Errorf("unknown hash type %q", p.HashType)
		}
	case TypeRating:
		if p.Service == "" {
			return fmt.Errorf("rating predicate has no service")
		}
		if p.RatingState == RatingValue {
			if _, err := ParseOperator(string(p.Operator)); err != nil {
				return fmt.Errorf("%s: %w", p.Type, err)
			}
		}
	case TypeFileService:
		if p.Service == "" {
			return fmt.Errorf("file service predicate has no service")
		}
		switch p.Status {
		case StatusCurrent, StatusPending, StatusDeleted, StatusPetitioned:
		default:
			return fmt.Errorf("unknown file status %q", p.Status)
		}
	default:
		return fmt.Errorf("unknown predicate type %q", p.Type)
	}
	return nil
}
