package planner

import (
	"fmt"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
)

// Range is an immutable closed interval over one column's domain. An absent
// bound (nil) extends to the domain extreme on that side. Merging never
// mutates; it constructs a new Range.
type Range struct {
	low     interface{}
	high    interface{}
	colType common.ColumnType
}

// NewRange constructs a range with the given bounds, either of which may be
// nil. Bounds must be normalized scalars for the column type.
func NewRange(colType common.ColumnType, low, high interface{}) Range {
	return Range{low: low, high: high, colType: colType}
}

// NewUnboundedRange covers the whole domain. Unconstrained attributes get
// one of these and are evaluated as residual conditions downstream.
func NewUnboundedRange(colType common.ColumnType) Range {
	return Range{colType: colType}
}

// NewPointRange covers a single value.
func NewPointRange(colType common.ColumnType, value interface{}) Range {
	return Range{low: value, high: value, colType: colType}
}

func (r Range) Low() interface{}  { return r.low }
func (r Range) High() interface{} { return r.high }
func (r Range) HasLow() bool      { return r.low != nil }
func (r Range) HasHigh() bool     { return r.high != nil }

func (r Range) ColumnType() common.ColumnType { return r.colType }

// IsUnbounded reports whether both bounds are absent.
func (r Range) IsUnbounded() bool { return r.low == nil && r.high == nil }

// IsEmpty reports whether the range covers no values. Empty ranges arise
// from contradictory conjunctions (a > 10 AND a < 5) and are dropped during
// planning.
func (r Range) IsEmpty() bool {
	if r.low == nil || r.high == nil {
		return false
	}
	return compareScalars(r.low, r.high) > 0
}

// effectiveLow resolves an absent lower bound to the domain minimum.
func (r Range) effectiveLow() interface{} {
	if r.low != nil {
		return r.low
	}
	return r.colType.MinValue()
}

func (r Range) effectiveHigh() interface{} {
	if r.high != nil {
		return r.high
	}
	return r.colType.MaxValue()
}

// Less is the total order by (low, high) with absent bounds sorting as
// -inf/+inf, used to sort range lists before merge passes.
func (r Range) Less(other Range) bool {
	c := compareScalars(r.effectiveLow(), other.effectiveLow())
	if c != 0 {
		return c < 0
	}
	return compareScalars(r.effectiveHigh(), other.effectiveHigh()) < 0
}

// CanMerge reports whether the two ranges overlap or touch. For discrete
// domains "touch" includes contiguity: high of one plus one unit equals the
// low of the other.
func (r Range) CanMerge(other Range) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	lo := maxScalar(r.effectiveLow(), other.effectiveLow())
	hi := minScalar(r.effectiveHigh(), other.effectiveHigh())
	if compareScalars(lo, hi) <= 0 {
		return true
	}
	if r.colType.IsInteger() {
		// contiguous: [a,b] and [b+1,c]
		if loInt, ok := lo.(int64); ok {
			if hiInt, ok := hi.(int64); ok {
				return hiInt+1 == loInt
			}
		}
	}
	return false
}

// Merge returns the union interval of two overlapping or contiguous ranges.
// An absent bound on the winning side stays absent.
func (r Range) Merge(other Range) (Range, error) {
	if !r.CanMerge(other) {
		return Range{}, errors.NewInvalidRangeError(
			fmt.Sprintf("cannot merge disjoint ranges %s and %s", r, other))
	}
	merged := Range{colType: r.colType}
	if r.low != nil && other.low != nil {
		merged.low = minScalar(r.low, other.low)
	}
	if r.high != nil && other.high != nil {
		merged.high = maxScalar(r.high, other.high)
	}
	return merged, nil
}

// Intersect returns the overlap of two ranges; the result may be empty.
func (r Range) Intersect(other Range) Range {
	out := Range{colType: r.colType}
	switch {
	case r.low == nil:
		out.low = other.low
	case other.low == nil:
		out.low = r.low
	default:
		out.low = maxScalar(r.low, other.low)
	}
	switch {
	case r.high == nil:
		out.high = other.high
	case other.high == nil:
		out.high = r.high
	default:
		out.high = minScalar(r.high, other.high)
	}
	return out
}

// IntersectDomain fills absent bounds with the domain extremes and clamps
// present bounds into the domain. Used when a column received no predicate
// or a half-open contribution.
func (r Range) IntersectDomain(domainMin, domainMax interface{}) Range {
	out := Range{colType: r.colType}
	if r.low == nil {
		out.low = domainMin
	} else {
		out.low = maxScalar(r.low, domainMin)
	}
	if r.high == nil {
		out.high = domainMax
	} else {
		out.high = minScalar(r.high, domainMax)
	}
	return out
}

// Extent is the per-dimension contribution to a SubArray's volume: the
// number of discrete values for integer domains, the interval width for
// float domains. Half-open and string ranges report zero extent and are
// never split.
func (r Range) Extent() interface{} {
	if r.low == nil || r.high == nil {
		if r.colType.IsFloat() {
			return float64(0)
		}
		return int64(0)
	}
	switch lo := r.low.(type) {
	case int64:
		hi := r.high.(int64)
		if hi < lo {
			return int64(0)
		}
		return hi - lo + 1
	case float64:
		hi := r.high.(float64)
		if hi < lo {
			return float64(0)
		}
		return hi - lo
	}
	return int64(0)
}

func (r Range) String() string {
	lo, hi := "*", "*"
	if r.low != nil {
		lo = fmt.Sprintf("%v", r.low)
	}
	if r.high != nil {
		hi = fmt.Sprintf("%v", r.high)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
