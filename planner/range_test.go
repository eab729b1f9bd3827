package planner

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
)

func TestMergeOverlappingRanges(t *testing.T) {
	a := NewRange(common.Int64ColumnType, int64(1), int64(10))
	b := NewRange(common.Int64ColumnType, int64(5), int64(20))
	require.True(t, a.CanMerge(b))
	m, err := a.Merge(b)
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Low())
	require.Equal(t, int64(20), m.High())
}

func TestMergeContiguousIntRanges(t *testing.T) {
	a := NewRange(common.Int32ColumnType, int64(1), int64(5))
	b := NewRange(common.Int32ColumnType, int64(6), int64(10))
	require.True(t, a.CanMerge(b))
	require.True(t, b.CanMerge(a))
	m, err := a.Merge(b)
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Low())
	require.Equal(t, int64(10), m.High())
}

func TestCannotMergeDisjointRanges(t *testing.T) {
	a := NewRange(common.Int64ColumnType, int64(1), int64(5))
	b := NewRange(common.Int64ColumnType, int64(7), int64(10))
	require.False(t, a.CanMerge(b))
	_, err := a.Merge(b)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.InvalidRange))
}

func TestFloatRangesDoNotMergeWhenApart(t *testing.T) {
	a := NewRange(common.Float64ColumnType, 1.0, 2.0)
	b := NewRange(common.Float64ColumnType, 2.5, 3.0)
	require.False(t, a.CanMerge(b))

	c := NewRange(common.Float64ColumnType, 2.0, 3.0)
	require.True(t, a.CanMerge(c))
}

func TestMergeKeepsAbsentBounds(t *testing.T) {
	a := NewRange(common.Int64ColumnType, nil, int64(10))
	b := NewRange(common.Int64ColumnType, int64(5), nil)
	require.True(t, a.CanMerge(b))
	m, err := a.Merge(b)
	require.NoError(t, err)
	require.False(t, m.HasLow())
	require.False(t, m.HasHigh())
	require.True(t, m.IsUnbounded())
}

func TestIntersect(t *testing.T) {
	a := NewRange(common.Int64ColumnType, int64(1), int64(10))
	b := NewRange(common.Int64ColumnType, int64(5), int64(20))
	x := a.Intersect(b)
	require.Equal(t, int64(5), x.Low())
	require.Equal(t, int64(10), x.High())

	c := NewRange(common.Int64ColumnType, int64(15), int64(20))
	require.True(t, a.Intersect(c).IsEmpty())
}

func TestIntersectWithAbsentBounds(t *testing.T) {
	half := NewRange(common.Int64ColumnType, int64(5), nil)
	full := NewRange(common.Int64ColumnType, int64(1), int64(10))
	x := half.Intersect(full)
	require.Equal(t, int64(5), x.Low())
	require.Equal(t, int64(10), x.High())
}

func TestIntersectDomain(t *testing.T) {
	half := NewRange(common.Int32ColumnType, nil, int64(10))
	x := half.IntersectDomain(int64(1), int64(100))
	require.Equal(t, int64(1), x.Low())
	require.Equal(t, int64(10), x.High())

	wide := NewRange(common.Int32ColumnType, int64(-50), int64(200))
	x = wide.IntersectDomain(int64(1), int64(100))
	require.Equal(t, int64(1), x.Low())
	require.Equal(t, int64(100), x.High())
}

func TestEmptyRange(t *testing.T) {
	require.True(t, NewRange(common.Int64ColumnType, int64(5), int64(1)).IsEmpty())
	require.False(t, NewPointRange(common.Int64ColumnType, int64(5)).IsEmpty())
	require.False(t, NewUnboundedRange(common.Int64ColumnType).IsEmpty())
}

func TestExtent(t *testing.T) {
	require.Equal(t, int64(6), NewRange(common.Int64ColumnType, int64(5), int64(10)).Extent())
	require.Equal(t, int64(1), NewPointRange(common.Int64ColumnType, int64(5)).Extent())
	require.Equal(t, 2.5, NewRange(common.Float64ColumnType, 1.0, 3.5).Extent())
	require.Equal(t, int64(0), NewRange(common.Int64ColumnType, int64(5), nil).Extent())
}

func TestLessOrdersByLowThenHigh(t *testing.T) {
	ranges := []Range{
		NewRange(common.Int64ColumnType, int64(8), int64(12)),
		NewRange(common.Int64ColumnType, int64(1), int64(9)),
		NewRange(common.Int64ColumnType, nil, int64(3)),
		NewRange(common.Int64ColumnType, int64(1), int64(5)),
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Less(ranges[j]) })
	require.False(t, ranges[0].HasLow())
	require.Equal(t, int64(5), ranges[1].High())
	require.Equal(t, int64(9), ranges[2].High())
	require.Equal(t, int64(8), ranges[3].Low())
}

func TestAddSubUnit(t *testing.T) {
	require.Equal(t, int64(6), addUnit(int64(5), common.Int64ColumnType))
	require.Equal(t, int64(4), subUnit(int64(5), common.Int64ColumnType))
	// extremes do not wrap
	require.Equal(t, int64(math.MaxInt64), addUnit(int64(math.MaxInt64), common.Int64ColumnType))
	require.Equal(t, int64(math.MinInt64), subUnit(int64(math.MinInt64), common.Int64ColumnType))
	// floats step one representable value
	require.Greater(t, addUnit(1.0, common.Float64ColumnType).(float64), 1.0)
	require.Less(t, subUnit(1.0, common.Float64ColumnType).(float64), 1.0)
	require.Equal(t, 1.0, addUnit(subUnit(1.0, common.Float64ColumnType), common.Float64ColumnType))
}

func TestNormalizeScalar(t *testing.T) {
	v, err := normalizeScalar(int32(42), common.Int64ColumnType)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	v, err = normalizeScalar(float64(42), common.Int64ColumnType)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	_, err = normalizeScalar(42.5, common.Int64ColumnType)
	require.Error(t, err)

	v, err = normalizeScalar(42, common.Float64ColumnType)
	require.NoError(t, err)
	require.Equal(t, 42.0, v)

	_, err = normalizeScalar(42, common.StringColumnType)
	require.Error(t, err)
}
