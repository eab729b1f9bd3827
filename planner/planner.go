// Package planner translates pushed-down predicates into multi-dimensional
// coordinate ranges and splits the resulting regions into volume-balanced
// partitions for parallel execution.
package planner

import (
	"math"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/metrics"
)

// Partition is the unit of work handed to one executor: a hyper-rectangular
// coordinate region plus per-attribute ranges that become residual engine
// conditions. Partitions are immutable once planned; each is owned
// exclusively by its executor.
type Partition struct {
	ID              uuid.UUID
	DimensionRanges *SubArray
	// AttributeRanges is indexed by the schema's attribute order. Unbounded
	// entries contribute no condition.
	AttributeRanges [][]Range
}

type Planner struct {
	schema   *common.ArrayInfo
	domain   map[string]common.Bounds
	observer metrics.ScanObserver
}

// NewPlanner builds a planner over the array's schema and its non-empty
// domain (observed bounds per dimension). A nil observer disables metrics.
func NewPlanner(schema *common.ArrayInfo, domain map[string]common.Bounds, observer metrics.ScanObserver) *Planner {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if domain == nil {
		domain = map[string]common.Bounds{}
	}
	return &Planner{schema: schema, domain: domain, observer: observer}
}

// Plan converts predicates into at most targetCount-balanced partitions. It
// returns the partitions together with the residual predicates the host must
// evaluate itself: predicates that could not be pushed down, plus any whose
// range construction failed with a recoverable error. Planning-time failures
// degrade to residual filtering; they never abort the scan.
func (p *Planner) Plan(predicates []*Predicate, targetCount int) ([]*Partition, []*Predicate, error) {
	p.observer.StartTimer(metrics.TimerPlan)
	defer p.observer.FinishTimer(metrics.TimerPlan)

	pushed, residual := p.PushPredicates(predicates)

	ranges := make([][]Range, len(p.schema.Columns))
	for _, pred := range pushed {
		contrib, _, err := p.BuildRanges(pred)
		if err != nil {
			if errors.HasCode(err, errors.UnsupportedPredicate) || errors.HasCode(err, errors.UnknownColumn) {
				log.Warnf("predicate %s not pushed down: %v", pred, err)
				residual = append(residual, pred)
				continue
			}
			return nil, nil, err
		}
		for i := range contrib {
			ranges[i] = append(ranges[i], contrib[i]...)
		}
	}

	// Fill domain defaults for unconstrained columns, merge the rest.
	for i, col := range p.schema.Columns {
		if len(ranges[i]) == 0 {
			if col.IsDimension {
				bounds, ok := p.domain[col.Name]
				if ok {
					ranges[i] = []Range{NewRange(col.ColumnType, bounds.Min, bounds.Max)}
				} else {
					ranges[i] = []Range{NewUnboundedRange(col.ColumnType)}
				}
			} else {
				ranges[i] = []Range{NewUnboundedRange(col.ColumnType)}
			}
			continue
		}
		merged, err := p.MergeRanges(ranges[i])
		if err != nil {
			return nil, nil, err
		}
		ranges[i] = merged
	}

	var perDim [][]Range
	var attrRanges [][]Range
	for i, col := range p.schema.Columns {
		if col.IsDimension {
			perDim = append(perDim, ranges[i])
		} else {
			attrRanges = append(attrRanges, ranges[i])
		}
	}

	subarrays := generateSubArrays(perDim)
	if len(subarrays) == 0 {
		// contradictory predicates: nothing to scan
		return nil, residual, nil
	}
	subarrays = p.partitionSubArrays(subarrays, targetCount)

	partitions := make([]*Partition, len(subarrays))
	for i, sub := range subarrays {
		partitions[i] = &Partition{
			ID:              uuid.New(),
			DimensionRanges: sub,
			AttributeRanges: attrRanges,
		}
	}
	return partitions, residual, nil
}

// PushPredicates splits the predicate list into the subset the planner can
// translate into ranges and the residual subset the host keeps.
func (p *Planner) PushPredicates(predicates []*Predicate) (pushed []*Predicate, residual []*Predicate) {
	for _, pred := range predicates {
		if p.canPush(pred) {
			pushed = append(pushed, pred)
		} else {
			residual = append(residual, pred)
		}
	}
	return pushed, residual
}

func (p *Planner) canPush(pred *Predicate) bool {
	switch pred.Kind {
	case PredicateAnd, PredicateOr:
		return p.canPush(pred.Left) && p.canPush(pred.Right)
	case PredicateEqual, PredicateEqualNullSafe, PredicateIn:
		return p.schema.ColumnIndex(pred.Column) != -1
	case PredicateGreaterThan, PredicateGreaterOrEqual, PredicateLessThan, PredicateLessOrEqual:
		col, ok := p.schema.Column(pred.Column)
		if !ok {
			return false
		}
		// inequality over a var-length string domain has no closed-range
		// translation
		return col.ColumnType.Type != common.TypeString
	default:
		return false
	}
}

// BuildRanges walks one predicate into per-column range lists (indexed by
// the schema's column order), also reporting the consumed predicate kind.
// Conjunctions intersect same-column contributions, disjunctions union them
// column-wise; comparisons use the non-empty domain (or the type extremes)
// for their open side and narrow exclusive bounds by one representable unit.
func (p *Planner) BuildRanges(pred *Predicate) ([][]Range, PredicateKind, error) {
	p.observer.StartTimer(metrics.TimerBuildRanges)
	defer p.observer.FinishTimer(metrics.TimerBuildRanges)
	return p.buildRanges(pred)
}

func (p *Planner) buildRanges(pred *Predicate) ([][]Range, PredicateKind, error) {
	ranges := make([][]Range, len(p.schema.Columns))

	switch pred.Kind {
	case PredicateAnd:
		left, _, err := p.buildRanges(pred.Left)
		if err != nil {
			return nil, 0, err
		}
		right, _, err := p.buildRanges(pred.Right)
		if err != nil {
			return nil, 0, err
		}
		for i := range ranges {
			switch {
			case len(left[i]) == 0:
				ranges[i] = right[i]
			case len(right[i]) == 0:
				ranges[i] = left[i]
			default:
				for _, lr := range left[i] {
					for _, rr := range right[i] {
						x := lr.Intersect(rr)
						if !x.IsEmpty() {
							ranges[i] = append(ranges[i], x)
						}
					}
				}
			}
		}
		return ranges, PredicateAnd, nil

	case PredicateOr:
		left, _, err := p.buildRanges(pred.Left)
		if err != nil {
			return nil, 0, err
		}
		right, _, err := p.buildRanges(pred.Right)
		if err != nil {
			return nil, 0, err
		}
		for i := range ranges {
			ranges[i] = append(left[i], right[i]...)
		}
		return ranges, PredicateOr, nil

	case PredicateEqual, PredicateEqualNullSafe:
		idx, col, err := p.resolveColumn(pred.Column)
		if err != nil {
			return nil, 0, err
		}
		v, err := normalizeScalar(pred.Value, col.ColumnType)
		if err != nil {
			return nil, 0, errors.NewUnsupportedPredicateError(err.Error())
		}
		ranges[idx] = append(ranges[idx], NewPointRange(col.ColumnType, v))
		return ranges, pred.Kind, nil

	case PredicateIn:
		idx, col, err := p.resolveColumn(pred.Column)
		if err != nil {
			return nil, 0, err
		}
		for _, value := range pred.Values {
			v, err := normalizeScalar(value, col.ColumnType)
			if err != nil {
				return nil, 0, errors.NewUnsupportedPredicateError(err.Error())
			}
			ranges[idx] = append(ranges[idx], NewPointRange(col.ColumnType, v))
		}
		return ranges, PredicateIn, nil

	case PredicateGreaterThan, PredicateGreaterOrEqual, PredicateLessThan, PredicateLessOrEqual:
		idx, col, err := p.resolveColumn(pred.Column)
		if err != nil {
			return nil, 0, err
		}
		if col.ColumnType.Type == common.TypeString {
			return nil, 0, errors.NewUnsupportedPredicateError(
				"inequality comparison on string column " + pred.Column)
		}
		v, err := normalizeScalar(pred.Value, col.ColumnType)
		if err != nil {
			return nil, 0, errors.NewUnsupportedPredicateError(err.Error())
		}
		var low, high interface{}
		bounds, hasDomain := p.domain[pred.Column]
		switch pred.Kind {
		case PredicateGreaterThan:
			low = addUnit(v, col.ColumnType)
		case PredicateGreaterOrEqual:
			low = v
		case PredicateLessThan:
			high = subUnit(v, col.ColumnType)
		case PredicateLessOrEqual:
			high = v
		}
		if low == nil {
			if hasDomain {
				low = bounds.Min
			} else {
				low = col.ColumnType.MinValue()
			}
		}
		if high == nil {
			if hasDomain {
				high = bounds.Max
			} else {
				high = col.ColumnType.MaxValue()
			}
		}
		ranges[idx] = append(ranges[idx], NewRange(col.ColumnType, low, high))
		return ranges, pred.Kind, nil

	default:
		return nil, 0, errors.NewUnsupportedPredicateError(pred.Kind.String())
	}
}

func (p *Planner) resolveColumn(name string) (int, common.ColumnInfo, error) {
	idx := p.schema.ColumnIndex(name)
	if idx == -1 {
		return -1, common.ColumnInfo{}, errors.NewUnknownColumnError(name)
	}
	return idx, p.schema.Columns[idx], nil
}

// MergeRanges sorts the ranges then repeatedly merges adjacent pairs until a
// full pass performs no merge. Empty ranges are dropped up front. Worst case
// O(k^2) passes on k ranges; k is bounded by the predicate count per column.
func (p *Planner) MergeRanges(in []Range) ([]Range, error) {
	p.observer.StartTimer(metrics.TimerMergeRanges)
	defer p.observer.FinishTimer(metrics.TimerMergeRanges)

	sorted := make([]Range, 0, len(in))
	for _, r := range in {
		if !r.IsEmpty() {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for {
		merged := make([]Range, 0, len(sorted))
		for i := 0; i < len(sorted); i++ {
			if i == len(sorted)-1 {
				merged = append(merged, sorted[i])
				break
			}
			left := sorted[i]
			right := sorted[i+1]
			if left.CanMerge(right) {
				m, err := left.Merge(right)
				if err != nil {
					return nil, err
				}
				merged = append(merged, m)
				i++
			} else {
				merged = append(merged, left)
			}
		}
		done := len(merged) == len(sorted)
		sorted = merged
		if done {
			return sorted, nil
		}
	}
}

// generateSubArrays expands the per-dimension range lists into their
// cartesian product: one SubArray per combination. Empty ranges are skipped;
// a dimension with no usable ranges yields no subarrays at all.
func generateSubArrays(perDim [][]Range) []*SubArray {
	if len(perDim) == 0 {
		return nil
	}
	var out []*SubArray
	current := make([]Range, len(perDim))
	var expand func(dim int)
	expand = func(dim int) {
		if dim == len(perDim) {
			ranges := make([]Range, len(current))
			copy(ranges, current)
			out = append(out, NewSubArray(ranges))
			return
		}
		for _, r := range perDim[dim] {
			if r.IsEmpty() {
				continue
			}
			current[dim] = r
			expand(dim + 1)
		}
	}
	expand(0)
	return out
}

// partitionSubArrays balances the regions into roughly targetCount work
// units. A single splittable region is split directly. Otherwise the regions
// above the median volume are split in proportion to how many median-sized
// pieces each would need, so one oversized region cannot dominate wall-clock
// time while already-small regions stay whole.
func (p *Planner) partitionSubArrays(subarrays []*SubArray, targetCount int) []*SubArray {
	if targetCount <= 1 || len(subarrays) == 0 {
		return subarrays
	}
	if len(subarrays) == 1 {
		if subarrays[0].Splittable() {
			return subarrays[0].Split(targetCount)
		}
		return subarrays
	}

	sorted := make([]*SubArray, len(subarrays))
	copy(sorted, subarrays)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VolumeFloat() > sorted[j].VolumeFloat()
	})

	median := sorted[len(sorted)/2]
	aboveMedian := sorted[:len(sorted)/2]
	needed := p.computeNeededSplits(aboveMedian, median.Volume())

	var sum int64
	for _, n := range needed {
		sum += n
	}
	if sum == 0 {
		return sorted
	}

	out := make([]*SubArray, 0, len(sorted))
	for i, sub := range sorted {
		if i < len(aboveMedian) && sub.Splittable() && needed[i] > 0 {
			weighted := int(math.Ceil(float64(needed[i]) / float64(sum) * float64(targetCount)))
			if weighted < 1 {
				weighted = 1
			}
			out = append(out, sub.Split(weighted)...)
		} else {
			out = append(out, sub)
		}
	}
	return out
}

// computeNeededSplits returns, per subarray, how many median-volume pieces
// it would take to cover it, in the same numeric domain as the volume type.
func (p *Planner) computeNeededSplits(subarrays []*SubArray, medianVolume interface{}) []int64 {
	p.observer.StartTimer(metrics.TimerComputeSplits)
	defer p.observer.FinishTimer(metrics.TimerComputeSplits)

	needed := make([]int64, len(subarrays))
	for i, sub := range subarrays {
		switch mv := medianVolume.(type) {
		case int64:
			if mv == 0 {
				continue
			}
			needed[i] = sub.Volume().(int64) / mv
		case float64:
			if mv == 0 {
				continue
			}
			needed[i] = int64(sub.Volume().(float64) / mv)
		}
	}
	return needed
}
