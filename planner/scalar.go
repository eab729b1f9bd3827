package planner

import (
	"fmt"
	"math"

	"github.com/gridscan/gridscan/common"
)

// Normalized scalars are int64 for integer domains, float64 for float
// domains and string for string domains (see common.Type). These helpers
// centralize comparison and unit arithmetic over that representation.

func compareScalars(a, b interface{}) int {
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("cannot compare scalar of type %T", a))
}

func minScalar(a, b interface{}) interface{} {
	if compareScalars(a, b) <= 0 {
		return a
	}
	return b
}

func maxScalar(a, b interface{}) interface{} {
	if compareScalars(a, b) >= 0 {
		return a
	}
	return b
}

// addUnit narrows an exclusive lower bound to the next representable value.
// Integers step by one unit, floats by one ULP (math.Nextafter). Values
// already at the domain extreme are left untouched.
func addUnit(v interface{}, ct common.ColumnType) interface{} {
	switch val := v.(type) {
	case int64:
		if val == math.MaxInt64 {
			return val
		}
		return val + 1
	case float64:
		return math.Nextafter(val, math.Inf(1))
	}
	panic(fmt.Sprintf("cannot step scalar of type %T for column type %s", v, ct.Type))
}

// subUnit narrows an exclusive upper bound to the previous representable
// value, mirroring addUnit.
func subUnit(v interface{}, ct common.ColumnType) interface{} {
	switch val := v.(type) {
	case int64:
		if val == math.MinInt64 {
			return val
		}
		return val - 1
	case float64:
		return math.Nextafter(val, math.Inf(-1))
	}
	panic(fmt.Sprintf("cannot step scalar of type %T for column type %s", v, ct.Type))
}

// normalizeScalar coerces a literal into the normalized representation for
// the given column type. JSON decoding and host engines hand us a mix of Go
// numeric types; everything integer-domain becomes int64, everything
// float-domain becomes float64.
func normalizeScalar(v interface{}, ct common.ColumnType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if ct.Type == common.TypeString {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string literal for column type %s, got %T", ct.Type, v)
		}
		return s, nil
	}
	var f float64
	var i int64
	isFloat := false
	switch val := v.(type) {
	case int:
		i = int64(val)
	case int8:
		i = int64(val)
	case int16:
		i = int64(val)
	case int32:
		i = int64(val)
	case int64:
		i = val
	case uint8:
		i = int64(val)
	case uint16:
		i = int64(val)
	case uint32:
		i = int64(val)
	case float32:
		f = float64(val)
		isFloat = true
	case float64:
		f = val
		isFloat = true
	default:
		return nil, fmt.Errorf("unsupported literal type %T for column type %s", v, ct.Type)
	}
	if ct.IsFloat() {
		if !isFloat {
			return float64(i), nil
		}
		return f, nil
	}
	if isFloat {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("non-integral literal %v for integer column type %s", f, ct.Type)
		}
		return int64(f), nil
	}
	return i, nil
}
