package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
)

// FakeEngine is an in-memory Engine used in tests and the demo CLI. It
// implements the whole query protocol faithfully, including incomplete
// submissions when result buffers are too small for the remaining records.
type FakeEngine struct {
	mu     sync.Mutex
	arrays map[string]*FakeArray
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{arrays: make(map[string]*FakeArray)}
}

// CreateArray registers an empty array under its schema name.
func (e *FakeEngine) CreateArray(schema *common.ArrayInfo) *FakeArray {
	e.mu.Lock()
	defer e.mu.Unlock()
	arr := &FakeArray{schema: schema}
	e.arrays[schema.Name] = arr
	return arr
}

func (e *FakeEngine) OpenArray(name string) (Array, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arr, ok := e.arrays[name]
	if !ok {
		return nil, errors.NewStorageError(fmt.Sprintf("array %s does not exist", name))
	}
	return arr, nil
}

// FakeArray stores rows as maps of normalized scalars (int64, float64,
// string; nil for null). Rows are returned in insertion order, which stands
// in for the unordered layout.
type FakeArray struct {
	mu     sync.Mutex
	schema *common.ArrayInfo
	domain map[string]common.Bounds
	rows   []map[string]interface{}

	// CloseCount counts Close calls, for tests asserting teardown order.
	CloseCount int
}

// Insert appends rows. Every dimension must be present and non-nil; missing
// attributes are treated as null.
func (a *FakeArray) Insert(rows ...map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, rows...)
}

// SetNonEmptyDomain overrides the computed domain, for tests that need a
// domain wider or narrower than the stored rows.
func (a *FakeArray) SetNonEmptyDomain(domain map[string]common.Bounds) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.domain = domain
}

func (a *FakeArray) Schema() (*common.ArrayInfo, error) {
	return a.schema, nil
}

// NonEmptyDomain returns the override when set, otherwise the per-dimension
// min and max over the stored rows.
func (a *FakeArray) NonEmptyDomain() (map[string]common.Bounds, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.domain != nil {
		return a.domain, nil
	}
	domain := make(map[string]common.Bounds)
	for _, dim := range a.schema.Dimensions() {
		var bounds common.Bounds
		for _, row := range a.rows {
			v, ok := row[dim.Name]
			if !ok || v == nil {
				continue
			}
			if bounds.Min == nil || compareValues(v, bounds.Min) < 0 {
				bounds.Min = v
			}
			if bounds.Max == nil || compareValues(v, bounds.Max) > 0 {
				bounds.Max = v
			}
		}
		if bounds.Min != nil {
			domain[dim.Name] = bounds
		}
	}
	return domain, nil
}

func (a *FakeArray) NewQuery() (Query, error) {
	return &fakeQuery{arr: a, ranges: make(map[int][]boundsPair), bindings: make(map[string]*fakeBinding)}, nil
}

func (a *FakeArray) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CloseCount++
	return nil
}

type boundsPair struct {
	low  interface{}
	high interface{}
}

type fakeBinding struct {
	data     []byte
	offsets  []uint64
	validity []uint8
}

type fakeQuery struct {
	arr      *FakeArray
	ranges   map[int][]boundsPair
	cond     *Condition
	layout   common.Layout
	bindings map[string]*fakeBinding
	matched  []map[string]interface{}
	started  bool
	cursor   int
	elements map[string]BufferElements
	closed   bool
}

func (q *fakeQuery) AddRange(dimIdx int, low, high interface{}) error {
	if dimIdx < 0 || dimIdx >= q.arr.schema.NumDimensions() {
		return errors.NewStorageError(fmt.Sprintf("dimension index %d out of range", dimIdx))
	}
	q.ranges[dimIdx] = append(q.ranges[dimIdx], boundsPair{low: low, high: high})
	return nil
}

func (q *fakeQuery) SetCondition(cond *Condition) error {
	q.cond = cond
	return nil
}

func (q *fakeQuery) SetLayout(layout common.Layout) error {
	q.layout = layout
	return nil
}

func (q *fakeQuery) SetBuffer(name string, data []byte) error {
	return q.bind(name, &fakeBinding{data: data})
}

func (q *fakeQuery) SetBufferVar(name string, offsets []uint64, data []byte) error {
	return q.bind(name, &fakeBinding{offsets: offsets, data: data})
}

func (q *fakeQuery) SetBufferNullable(name string, data []byte, validity []uint8) error {
	return q.bind(name, &fakeBinding{data: data, validity: validity})
}

func (q *fakeQuery) SetBufferVarNullable(name string, offsets []uint64, data []byte, validity []uint8) error {
	return q.bind(name, &fakeBinding{offsets: offsets, data: data, validity: validity})
}

func (q *fakeQuery) bind(name string, b *fakeBinding) error {
	if q.arr.schema.ColumnIndex(name) == -1 {
		return errors.NewStorageError(fmt.Sprintf("cannot bind buffer for unknown column %s", name))
	}
	q.bindings[name] = b
	return nil
}

// Submit fills the bound buffers with as many matching whole records as fit,
// resuming from where the previous submission stopped. It reports Incomplete
// when matching records remain, including the zero-records case where the
// next record does not fit the current buffers.
func (q *fakeQuery) Submit() (Status, error) {
	if q.closed {
		return StatusUninitialized, errors.NewStorageError("query used after close")
	}
	if len(q.bindings) == 0 {
		return StatusUninitialized, errors.NewStorageError("no result buffers bound")
	}
	if !q.started {
		q.matched = q.matchRows()
		q.started = true
	}

	bound := q.boundColumns()
	dataUsed := make(map[string]uint64, len(bound))
	n := 0
	for q.cursor+n < len(q.matched) {
		row := q.matched[q.cursor+n]
		if !q.rowFits(bound, dataUsed, row, n) {
			break
		}
		q.writeRow(bound, dataUsed, row, n)
		n++
	}
	q.cursor += n

	q.elements = make(map[string]BufferElements, len(bound))
	for _, col := range bound {
		b := q.bindings[col.Name]
		var el BufferElements
		if col.VarLen {
			b.offsets[n] = dataUsed[col.Name]
			el.Offsets = int64(n) + 1
			el.Values = int64(dataUsed[col.Name])
			el.Bytes = int64(dataUsed[col.Name]) + (int64(n)+1)*8
		} else {
			el.Values = int64(n)
			el.Bytes = int64(n) * int64(col.ColumnType.Size())
		}
		if col.Nullable {
			el.Bytes += int64(n)
		}
		q.elements[col.Name] = el
	}

	if q.cursor < len(q.matched) {
		return StatusIncomplete, nil
	}
	return StatusCompleted, nil
}

func (q *fakeQuery) ResultBufferElements() map[string]BufferElements {
	return q.elements
}

func (q *fakeQuery) Close() error {
	q.closed = true
	return nil
}

// boundColumns returns the schema entries of the bound columns, in schema
// order so offsets and record counts line up across columns.
func (q *fakeQuery) boundColumns() []common.ColumnInfo {
	var cols []common.ColumnInfo
	for _, col := range q.arr.schema.Columns {
		if _, ok := q.bindings[col.Name]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

func (q *fakeQuery) matchRows() []map[string]interface{} {
	q.arr.mu.Lock()
	rows := append([]map[string]interface{}(nil), q.arr.rows...)
	q.arr.mu.Unlock()

	var matched []map[string]interface{}
	dims := q.arr.schema.Dimensions()
	for _, row := range rows {
		ok := true
		for dimIdx, dim := range dims {
			pairs := q.ranges[dimIdx]
			if len(pairs) == 0 {
				continue
			}
			v := row[dim.Name]
			inAny := false
			for _, pair := range pairs {
				if v != nil && compareValues(v, pair.low) >= 0 && compareValues(v, pair.high) <= 0 {
					inAny = true
					break
				}
			}
			if !inAny {
				ok = false
				break
			}
		}
		if ok && evalCondition(q.cond, row) {
			matched = append(matched, row)
		}
	}
	return matched
}

// rowFits checks that record slot n has room in every bound column's
// buffers. Var-length columns need an offset slot beyond the sentinel and
// enough data bytes for the cell.
func (q *fakeQuery) rowFits(bound []common.ColumnInfo, dataUsed map[string]uint64, row map[string]interface{}, n int) bool {
	for _, col := range bound {
		b := q.bindings[col.Name]
		if col.Nullable && n+1 > len(b.validity) {
			return false
		}
		if col.VarLen {
			if n+2 > len(b.offsets) {
				return false
			}
			cell, _ := row[col.Name].(string)
			if dataUsed[col.Name]+uint64(len(cell)) > uint64(len(b.data)) {
				return false
			}
			continue
		}
		if (n+1)*col.ColumnType.Size() > len(b.data) {
			return false
		}
	}
	return true
}

func (q *fakeQuery) writeRow(bound []common.ColumnInfo, dataUsed map[string]uint64, row map[string]interface{}, n int) {
	for _, col := range bound {
		b := q.bindings[col.Name]
		v, present := row[col.Name]
		null := !present || v == nil
		if col.Nullable {
			if null {
				b.validity[n] = 0
			} else {
				b.validity[n] = 1
			}
		}
		if col.VarLen {
			b.offsets[n] = dataUsed[col.Name]
			if !null {
				cell := v.(string)
				copy(b.data[dataUsed[col.Name]:], cell)
				dataUsed[col.Name] += uint64(len(cell))
			}
			continue
		}
		size := col.ColumnType.Size()
		cell := b.data[n*size : (n+1)*size]
		if null {
			for i := range cell {
				cell[i] = 0
			}
			continue
		}
		encodeScalar(cell, col.ColumnType, v)
	}
}

// encodeScalar packs a normalized scalar at the column's native width,
// little-endian.
func encodeScalar(dst []byte, ct common.ColumnType, v interface{}) {
	switch ct.Type {
	case common.TypeFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v.(float64))))
	case common.TypeFloat64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v.(float64)))
	default:
		iv := v.(int64)
		switch ct.Size() {
		case 1:
			dst[0] = byte(iv)
		case 2:
			binary.LittleEndian.PutUint16(dst, uint16(iv))
		case 4:
			binary.LittleEndian.PutUint32(dst, uint32(iv))
		case 8:
			binary.LittleEndian.PutUint64(dst, uint64(iv))
		}
	}
}

func evalCondition(cond *Condition, row map[string]interface{}) bool {
	if cond == nil {
		return true
	}
	switch cond.Op {
	case CondAnd:
		return evalCondition(cond.Left, row) && evalCondition(cond.Right, row)
	case CondGE:
		v, ok := row[cond.Column]
		return ok && v != nil && compareValues(v, cond.Value) >= 0
	case CondLE:
		v, ok := row[cond.Column]
		return ok && v != nil && compareValues(v, cond.Value) <= 0
	}
	return false
}

// compareValues orders two normalized scalars of the same column. Mixed
// int64/float64 pairs are widened to float64.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv)
		case float64:
			return compareOrdered(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return compareOrdered(av, bv)
		case int64:
			return compareOrdered(av, float64(bv))
		}
	case string:
		if bv, ok := b.(string); ok {
			return compareOrdered(av, bv)
		}
	}
	panic(fmt.Sprintf("cannot compare %T with %T", a, b))
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
