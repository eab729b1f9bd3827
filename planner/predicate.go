package planner

import (
	"fmt"
	"strings"
)

// PredicateKind enumerates the fixed predicate grammar the planner
// understands. The set is closed: every switch over it carries a default arm
// that surfaces UnsupportedPredicateError instead of silently ignoring a new
// form.
type PredicateKind int

const (
	PredicateAnd PredicateKind = iota
	PredicateOr
	PredicateEqual
	PredicateEqualNullSafe
	PredicateGreaterThan
	PredicateGreaterOrEqual
	PredicateLessThan
	PredicateLessOrEqual
	PredicateIn
)

func (k PredicateKind) String() string {
	switch k {
	case PredicateAnd:
		return "AND"
	case PredicateOr:
		return "OR"
	case PredicateEqual:
		return "="
	case PredicateEqualNullSafe:
		return "<=>"
	case PredicateGreaterThan:
		return ">"
	case PredicateGreaterOrEqual:
		return ">="
	case PredicateLessThan:
		return "<"
	case PredicateLessOrEqual:
		return "<="
	case PredicateIn:
		return "IN"
	}
	return fmt.Sprintf("PredicateKind(%d)", int(k))
}

// Predicate is one node of a pushed-down filter: a conjunction/disjunction
// over two children, or a leaf comparison over a single column and a
// literal. Literals are normalized scalars (see common.Type).
type Predicate struct {
	Kind   PredicateKind
	Left   *Predicate
	Right  *Predicate
	Column string
	Value  interface{}
	Values []interface{}
}

func And(left, right *Predicate) *Predicate {
	return &Predicate{Kind: PredicateAnd, Left: left, Right: right}
}

func Or(left, right *Predicate) *Predicate {
	return &Predicate{Kind: PredicateOr, Left: left, Right: right}
}

func Equal(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateEqual, Column: column, Value: value}
}

func EqualNullSafe(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateEqualNullSafe, Column: column, Value: value}
}

func GreaterThan(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateGreaterThan, Column: column, Value: value}
}

func GreaterOrEqual(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateGreaterOrEqual, Column: column, Value: value}
}

func LessThan(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateLessThan, Column: column, Value: value}
}

func LessOrEqual(column string, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateLessOrEqual, Column: column, Value: value}
}

func In(column string, values ...interface{}) *Predicate {
	return &Predicate{Kind: PredicateIn, Column: column, Values: values}
}

func (p *Predicate) String() string {
	switch p.Kind {
	case PredicateAnd, PredicateOr:
		return fmt.Sprintf("(%s %s %s)", p.Left, p.Kind, p.Right)
	case PredicateIn:
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = fmt.Sprintf("%v", v)
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(vals, ", "))
	default:
		return fmt.Sprintf("%s %s %v", p.Column, p.Kind, p.Value)
	}
}
