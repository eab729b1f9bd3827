package common

import (
	"fmt"

	"github.com/gridscan/gridscan/errors"
)

// Layout is the result ordering of a read query.
type Layout int

const (
	LayoutUnset Layout = iota
	LayoutRowMajor
	LayoutColMajor
	LayoutGlobalOrder
	LayoutUnordered
)

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "":
		return LayoutUnset, nil
	case "row-major":
		return LayoutRowMajor, nil
	case "col-major":
		return LayoutColMajor, nil
	case "global-order":
		return LayoutGlobalOrder, nil
	case "unordered":
		return LayoutUnordered, nil
	}
	return LayoutUnset, errors.NewInvalidConfigurationError(fmt.Sprintf("unknown layout %q", s))
}

type ColumnInfo struct {
	Name        string
	ColumnType  ColumnType
	IsDimension bool
	Nullable    bool
	VarLen      bool
}

// Bounds is the observed (non-empty) domain of one dimension, normalized
// scalars as described on Type.
type Bounds struct {
	Min interface{}
	Max interface{}
}

// ArrayInfo describes the schema of one array: dimensions first, then
// attributes, in the engine's column order.
type ArrayInfo struct {
	Name      string
	Columns   []ColumnInfo
	Sparse    bool
	CellOrder Layout
}

func (a *ArrayInfo) NumDimensions() int {
	n := 0
	for _, col := range a.Columns {
		if col.IsDimension {
			n++
		}
	}
	return n
}

func (a *ArrayInfo) Dimensions() []ColumnInfo {
	var dims []ColumnInfo
	for _, col := range a.Columns {
		if col.IsDimension {
			dims = append(dims, col)
		}
	}
	return dims
}

func (a *ArrayInfo) Attributes() []ColumnInfo {
	var atts []ColumnInfo
	for _, col := range a.Columns {
		if !col.IsDimension {
			atts = append(atts, col)
		}
	}
	return atts
}

// ColumnIndex resolves a column name to its position in the array's column
// order, or -1 if there is no such column.
func (a *ArrayInfo) ColumnIndex(name string) int {
	for i, col := range a.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

func (a *ArrayInfo) Column(name string) (ColumnInfo, bool) {
	idx := a.ColumnIndex(name)
	if idx == -1 {
		return ColumnInfo{}, false
	}
	return a.Columns[idx], true
}

func (a *ArrayInfo) ColumnNames() []string {
	names := make([]string, len(a.Columns))
	for i, col := range a.Columns {
		names[i] = col.Name
	}
	return names
}

// MinDimensionSize returns the byte footprint of the narrowest dimension
// type. Buffer capacities are derived from it so that every column's buffer
// can hold at least the same number of logical records.
func (a *ArrayInfo) MinDimensionSize() int {
	minSize := 0
	for _, col := range a.Columns {
		if !col.IsDimension {
			continue
		}
		size := col.ColumnType.Size()
		if minSize == 0 || size < minSize {
			minSize = size
		}
	}
	if minSize == 0 {
		minSize = 1
	}
	return minSize
}

// Project returns a schema containing only the named columns, preserving the
// array's column order. Dimensions that are not projected are dropped from
// the result set but still constrain the scan.
func (a *ArrayInfo) Project(names []string) (*ArrayInfo, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		if a.ColumnIndex(name) == -1 {
			return nil, errors.NewUnknownColumnError(name)
		}
		wanted[name] = struct{}{}
	}
	projected := &ArrayInfo{Name: a.Name, Sparse: a.Sparse, CellOrder: a.CellOrder}
	for _, col := range a.Columns {
		if _, ok := wanted[col.Name]; ok {
			projected.Columns = append(projected.Columns, col)
		}
	}
	return projected, nil
}

func (a *ArrayInfo) String() string {
	return fmt.Sprintf("array[name=%s,dims=%d,attrs=%d,sparse=%v]",
		a.Name, a.NumDimensions(), len(a.Columns)-a.NumDimensions(), a.Sparse)
}
