package predicate

import "math"

// ApproxTolerance is the relative half-width of the "≈" band.
const ApproxTolerance = 0.10

// Range is an interval of acceptable values. Bounds may be infinite.
type Range struct {
	Min, Max         float64
	MinOpen, MaxOpen bool
}

// Bounds converts an operator and operand into the range of matching values.
//
//	<  v   (-inf, v)
//	=  v   [v, v]
//	>  v   (v, +inf)
//	≈  v   [v - 10%, v + 10%]
func Bounds(op Operator, value float64) Range {
	switch op {
	case LessThan:
		return Range{Min: math.Inf(-1), Max: value, MaxOpen: true}
	case GreaterThan:
		return Range{Min: value, Max: math.Inf(1), MinOpen: true}
	case Approx:
		lo, hi := value*(1-ApproxTolerance), value*(1+ApproxTolerance)
		if lo > hi {
			lo, hi = hi, lo
		}
		return Range{Min: lo, Max: hi}
	}
	return Range{Min: value, Max: value}
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	if r.MinOpen {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	if r.MaxOpen {
		return v < r.Max
	}
	return v <= r.Max
}

// SQL returns a condition over column and its arguments. Infinite bounds are omitted.
func (r Range) SQL(column string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !math.IsInf(r.Min, -1) {
		op := " >= ?"
		if r.MinOpen {
			op = " > ?"
		}
		conds = append(conds, column+op)
		args = append(args, r.Min)
	}
	if !math.IsInf(r.Max, 1) {
		op := " <= ?"
		if r.MaxOpen {
			op = " < ?"
		}
		conds = append(conds, column+op)
		args = append(args, r.Max)
	}
	if len(conds) == 0 {
		return "1", nil
	}
	if len(conds) == 1 {
		return conds[0], args
	}
	return conds[0] + " AND " + conds[1], args
}

// Compare evaluates op against a file value.
func Compare(op Operator, operand, value float64) bool {
	return Bounds(op, operand).Contains(value)
}
