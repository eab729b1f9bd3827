package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/gridscan/gridscan/common"
)

// SubArray is a hyper-rectangular scan region: one Range per dimension, in
// dimension order. SubArrays are immutable; splitting produces new ones.
type SubArray struct {
	ranges  []Range
	colType common.ColumnType
}

// NewSubArray builds a region from per-dimension ranges. The first
// dimension's type tags the volume arithmetic, matching the convention that
// all dimensions of one array share a numeric class.
func NewSubArray(ranges []Range) *SubArray {
	if len(ranges) == 0 {
		panic("subarray requires at least one dimension range")
	}
	return &SubArray{ranges: ranges, colType: ranges[0].ColumnType()}
}

// Ranges returns the per-dimension ranges. Callers must not mutate the
// returned slice.
func (s *SubArray) Ranges() []Range { return s.ranges }

func (s *SubArray) NumDimensions() int { return len(s.ranges) }

func (s *SubArray) DataType() common.ColumnType { return s.colType }

// Volume is the product of per-dimension extents, computed in the domain's
// numeric type (int64 for integer domains, saturating at MaxInt64; float64
// for float domains) to avoid overflow surprises.
func (s *SubArray) Volume() interface{} {
	if s.colType.IsFloat() {
		vol := float64(1)
		for _, r := range s.ranges {
			ext, ok := r.Extent().(float64)
			if !ok || ext == 0 {
				continue
			}
			vol *= ext
		}
		return vol
	}
	vol := int64(1)
	for _, r := range s.ranges {
		ext, ok := r.Extent().(int64)
		if !ok || ext == 0 {
			continue
		}
		if vol > math.MaxInt64/ext {
			return int64(math.MaxInt64)
		}
		vol *= ext
	}
	return vol
}

// VolumeFloat is the volume widened to float64, used only for ordering.
func (s *SubArray) VolumeFloat() float64 {
	switch v := s.Volume().(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Splittable reports whether at least one dimension has both bounds present
// and an extent wide enough to divide.
func (s *SubArray) Splittable() bool {
	return s.largestDim() >= 0
}

// largestDim picks the dimension with the largest extent among those that
// can be divided, or -1 when none can.
func (s *SubArray) largestDim() int {
	best := -1
	bestExt := float64(0)
	for i, r := range s.ranges {
		if !r.HasLow() || !r.HasHigh() {
			continue
		}
		var ext float64
		switch e := r.Extent().(type) {
		case int64:
			if e <= 1 {
				continue
			}
			ext = float64(e)
		case float64:
			if e <= 0 {
				continue
			}
			ext = e
		}
		if best == -1 || ext > bestExt {
			best = i
			bestExt = ext
		}
	}
	return best
}

// Split divides the region into n pieces along its largest-extent dimension,
// as evenly as the domain type allows. Asking for more pieces than an
// integer dimension has values yields one piece per value. The union of the
// pieces covers exactly the original region with no overlap.
func (s *SubArray) Split(n int) []*SubArray {
	dim := s.largestDim()
	if dim < 0 || n <= 1 {
		return []*SubArray{s}
	}
	r := s.ranges[dim]
	var pieces []Range
	switch lo := r.Low().(type) {
	case int64:
		hi := r.High().(int64)
		extent := hi - lo + 1
		if int64(n) > extent {
			n = int(extent)
		}
		base := extent / int64(n)
		rem := extent % int64(n)
		start := lo
		for i := 0; i < n; i++ {
			size := base
			if int64(i) < rem {
				size++
			}
			end := start + size - 1
			pieces = append(pieces, NewRange(r.ColumnType(), start, end))
			start = end + 1
		}
	case float64:
		hi := r.High().(float64)
		width := (hi - lo) / float64(n)
		start := lo
		for i := 0; i < n; i++ {
			end := hi
			if i < n-1 {
				end = lo + width*float64(i+1)
			}
			top := end
			if i < n-1 {
				// keep pieces disjoint: stop one ULP below the next start
				top = math.Nextafter(end, math.Inf(-1))
			}
			pieces = append(pieces, NewRange(r.ColumnType(), start, top))
			start = end
		}
	default:
		return []*SubArray{s}
	}

	out := make([]*SubArray, 0, len(pieces))
	for _, piece := range pieces {
		ranges := make([]Range, len(s.ranges))
		copy(ranges, s.ranges)
		ranges[dim] = piece
		out = append(out, NewSubArray(ranges))
	}
	return out
}

func (s *SubArray) String() string {
	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = r.String()
	}
	return fmt.Sprintf("subarray{%s}", strings.Join(parts, " x "))
}
