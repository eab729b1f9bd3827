package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridscan/gridscan/common"
)

func testSchema() *common.ArrayInfo {
	return &common.ArrayInfo{
		Name:   "grid",
		Sparse: true,
		Columns: []common.ColumnInfo{
			{Name: "d1", ColumnType: common.Int32ColumnType, IsDimension: true},
			{Name: "d2", ColumnType: common.Int32ColumnType, IsDimension: true},
			{Name: "temp", ColumnType: common.Float64ColumnType, Nullable: true},
			{Name: "note", ColumnType: common.StringColumnType, VarLen: true},
		},
	}
}

func testDomain() map[string]common.Bounds {
	return map[string]common.Bounds{
		"d1": {Min: int64(1), Max: int64(100)},
		"d2": {Min: int64(1), Max: int64(50)},
	}
}

func newTestPlanner() *Planner {
	return NewPlanner(testSchema(), testDomain(), nil)
}

func TestPlanConjunctionBecomesOneRange(t *testing.T) {
	p := newTestPlanner()
	pred := And(GreaterOrEqual("d1", 5), LessOrEqual("d1", 10))
	partitions, residual, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Empty(t, residual)
	require.Len(t, partitions, 1)

	ranges := partitions[0].DimensionRanges.Ranges()
	require.Len(t, ranges, 2)
	require.Equal(t, int64(5), ranges[0].Low())
	require.Equal(t, int64(10), ranges[0].High())
	// unconstrained dimension falls back to the non-empty domain
	require.Equal(t, int64(1), ranges[1].Low())
	require.Equal(t, int64(50), ranges[1].High())
}

func TestPlanStrictInequalityNarrowsByOneUnit(t *testing.T) {
	p := newTestPlanner()
	pred := And(GreaterThan("d1", 5), LessThan("d1", 10))
	partitions, _, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	r := partitions[0].DimensionRanges.Ranges()[0]
	require.Equal(t, int64(6), r.Low())
	require.Equal(t, int64(9), r.High())
}

func TestPlanDisjunctionMergesAdjacentRanges(t *testing.T) {
	p := newTestPlanner()
	pred := Or(
		And(GreaterOrEqual("d1", 5), LessOrEqual("d1", 10)),
		And(GreaterThan("d1", 10), LessOrEqual("d1", 100)),
	)
	partitions, _, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	r := partitions[0].DimensionRanges.Ranges()[0]
	require.Equal(t, int64(5), r.Low())
	require.Equal(t, int64(100), r.High())
}

func TestPlanDisjointDisjunctionYieldsOnePartitionPerRegion(t *testing.T) {
	p := newTestPlanner()
	pred := Or(Equal("d1", 5), Equal("d1", 42))
	partitions, _, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Len(t, partitions, 2)
}

func TestPlanInListMergesContiguousPoints(t *testing.T) {
	p := newTestPlanner()
	pred := In("d1", 1, 2, 3)
	partitions, _, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	r := partitions[0].DimensionRanges.Ranges()[0]
	require.Equal(t, int64(1), r.Low())
	require.Equal(t, int64(3), r.High())
}

func TestPlanUnknownColumnBecomesResidual(t *testing.T) {
	p := newTestPlanner()
	partitions, residual, err := p.Plan([]*Predicate{Equal("missing", 1)}, 1)
	require.NoError(t, err)
	require.Len(t, residual, 1)
	require.Len(t, partitions, 1)
	// the scan still covers the whole domain
	r := partitions[0].DimensionRanges.Ranges()[0]
	require.Equal(t, int64(1), r.Low())
	require.Equal(t, int64(100), r.High())
}

func TestPlanStringInequalityBecomesResidual(t *testing.T) {
	p := newTestPlanner()
	partitions, residual, err := p.Plan([]*Predicate{GreaterThan("note", "abc")}, 1)
	require.NoError(t, err)
	require.Len(t, residual, 1)
	require.Len(t, partitions, 1)
}

func TestPlanContradictionYieldsNoPartitions(t *testing.T) {
	p := newTestPlanner()
	pred := And(GreaterOrEqual("d1", 50), LessOrEqual("d1", 10))
	partitions, residual, err := p.Plan([]*Predicate{pred}, 1)
	require.NoError(t, err)
	require.Empty(t, residual)
	require.Empty(t, partitions)
}

func TestPlanAttributePredicateBecomesAttributeRange(t *testing.T) {
	p := newTestPlanner()
	partitions, residual, err := p.Plan([]*Predicate{LessOrEqual("temp", 3.5)}, 1)
	require.NoError(t, err)
	require.Empty(t, residual)
	require.Len(t, partitions, 1)

	attrRanges := partitions[0].AttributeRanges
	require.Len(t, attrRanges, 2)
	require.Len(t, attrRanges[0], 1)
	r := attrRanges[0][0]
	require.Equal(t, -math.MaxFloat64, r.Low())
	require.Equal(t, 3.5, r.High())
	// unconstrained attribute stays unbounded
	require.True(t, attrRanges[1][0].IsUnbounded())
}

func TestPlanEqualNullSafeOnAttribute(t *testing.T) {
	p := newTestPlanner()
	partitions, residual, err := p.Plan([]*Predicate{EqualNullSafe("temp", 1.5)}, 1)
	require.NoError(t, err)
	require.Empty(t, residual)
	require.Len(t, partitions, 1)
	r := partitions[0].AttributeRanges[0][0]
	require.Equal(t, 1.5, r.Low())
	require.Equal(t, 1.5, r.High())
}

func TestPlanSingleRegionSplitsToTargetCount(t *testing.T) {
	p := newTestPlanner()
	partitions, _, err := p.Plan(nil, 4)
	require.NoError(t, err)
	require.Len(t, partitions, 4)

	// pieces tile the domain of the largest dimension without gaps
	var total int64
	for _, part := range partitions {
		total += part.DimensionRanges.Ranges()[0].Extent().(int64)
		require.Equal(t, int64(50), part.DimensionRanges.Ranges()[1].Extent())
	}
	require.Equal(t, int64(100), total)
}

func TestPlanPartitionIDsAreUnique(t *testing.T) {
	p := newTestPlanner()
	partitions, _, err := p.Plan(nil, 8)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, part := range partitions {
		require.False(t, seen[part.ID.String()])
		seen[part.ID.String()] = true
	}
}

func TestPartitionSubArraysWeightsByMedianVolume(t *testing.T) {
	p := newTestPlanner()
	var subs []*SubArray
	for _, extent := range []int64{10, 15, 50, 200, 400} {
		subs = append(subs, NewSubArray([]Range{NewRange(common.Int64ColumnType, int64(1), extent)}))
	}
	out := p.partitionSubArrays(subs, 3)
	// the two regions above the median (400 and 200) need 8 and 4 median-sized
	// pieces; weighting by the target of 3 splits the largest in two and
	// leaves the rest whole
	require.Len(t, out, 6)

	var total int64
	for _, sub := range out {
		total += sub.Volume().(int64)
	}
	require.Equal(t, int64(10+15+50+200+400), total)
}

func TestPartitionSubArraysSkipsUnsplittableRegions(t *testing.T) {
	p := newTestPlanner()
	var subs []*SubArray
	for i := 0; i < 4; i++ {
		subs = append(subs, NewSubArray([]Range{NewPointRange(common.Int64ColumnType, int64(i))}))
	}
	out := p.partitionSubArrays(subs, 4)
	require.Len(t, out, 4)
}

func TestMergeRangesIsStable(t *testing.T) {
	p := newTestPlanner()
	in := []Range{
		NewRange(common.Int64ColumnType, int64(8), int64(12)),
		NewRange(common.Int64ColumnType, int64(1), int64(5)),
		NewRange(common.Int64ColumnType, int64(4), int64(9)),
	}
	merged, err := p.MergeRanges(in)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, int64(1), merged[0].Low())
	require.Equal(t, int64(12), merged[0].High())

	// merging again changes nothing
	again, err := p.MergeRanges(merged)
	require.NoError(t, err)
	require.Equal(t, merged, again)
}

func TestMergeRangesDropsEmptyRanges(t *testing.T) {
	p := newTestPlanner()
	in := []Range{
		NewRange(common.Int64ColumnType, int64(10), int64(5)),
		NewRange(common.Int64ColumnType, int64(1), int64(3)),
	}
	merged, err := p.MergeRanges(in)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, int64(1), merged[0].Low())
}

func TestPushPredicates(t *testing.T) {
	p := newTestPlanner()
	preds := []*Predicate{
		Equal("d1", 5),
		GreaterThan("note", "x"),
		Equal("missing", 1),
		And(Equal("d1", 1), Equal("missing", 2)),
	}
	pushed, residual := p.PushPredicates(preds)
	require.Len(t, pushed, 1)
	require.Len(t, residual, 3)
}
