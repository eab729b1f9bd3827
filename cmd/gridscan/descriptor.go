package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"muzzammil.xyz/jsonc"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/planner"
)

// descriptor is the JSONC description of an array, its stored rows and the
// predicates to plan against. Rows are optional for plan-only runs.
type descriptor struct {
	Array      arraySection             `json:"array"`
	Domain     map[string]boundsSection `json:"domain"`
	Rows       []map[string]interface{} `json:"rows"`
	Predicates []*predicateSection      `json:"predicates"`
}

type arraySection struct {
	Name      string          `json:"name"`
	Sparse    bool            `json:"sparse"`
	CellOrder string          `json:"cell_order"`
	Columns   []columnSection `json:"columns"`
}

type columnSection struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Dimension bool   `json:"dimension"`
	Nullable  bool   `json:"nullable"`
	VarLen    bool   `json:"var_len"`
}

type boundsSection struct {
	Min interface{} `json:"min"`
	Max interface{} `json:"max"`
}

type predicateSection struct {
	Op     string            `json:"op"`
	Left   *predicateSection `json:"left"`
	Right  *predicateSection `json:"right"`
	Column string            `json:"column"`
	Value  interface{}       `json:"value"`
	Values []interface{}     `json:"values"`
}

func loadDescriptor(path string) (*descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// jsonc so descriptions can carry comments, same as config files
	b = jsonc.ToJSON(b)
	d := &descriptor{}
	if err := json.Unmarshal(b, d); err != nil {
		return nil, errors.WithStack(err)
	}
	return d, nil
}

func (d *descriptor) schema() (*common.ArrayInfo, error) {
	if d.Array.Name == "" {
		return nil, errors.NewInvalidConfigurationError("array name must be specified")
	}
	cellOrder, err := common.ParseLayout(d.Array.CellOrder)
	if err != nil {
		return nil, err
	}
	info := &common.ArrayInfo{Name: d.Array.Name, Sparse: d.Array.Sparse, CellOrder: cellOrder}
	for _, col := range d.Array.Columns {
		ct, err := common.ParseColumnType(col.Type)
		if err != nil {
			return nil, err
		}
		info.Columns = append(info.Columns, common.ColumnInfo{
			Name:        col.Name,
			ColumnType:  ct,
			IsDimension: col.Dimension,
			Nullable:    col.Nullable,
			VarLen:      col.VarLen,
		})
	}
	if info.NumDimensions() == 0 {
		return nil, errors.NewInvalidConfigurationError("array must have at least one dimension")
	}
	return info, nil
}

// domainBounds normalizes the JSON domain numbers into the scalar domain of
// each dimension's type.
func (d *descriptor) domainBounds(schema *common.ArrayInfo) (map[string]common.Bounds, error) {
	if d.Domain == nil {
		return nil, nil
	}
	bounds := make(map[string]common.Bounds, len(d.Domain))
	for name, b := range d.Domain {
		col, ok := schema.Column(name)
		if !ok {
			return nil, errors.NewUnknownColumnError(name)
		}
		min, err := normalizeLiteral(b.Min, col.ColumnType)
		if err != nil {
			return nil, err
		}
		max, err := normalizeLiteral(b.Max, col.ColumnType)
		if err != nil {
			return nil, err
		}
		bounds[name] = common.Bounds{Min: min, Max: max}
	}
	return bounds, nil
}

// rows normalizes the JSON row values. Absent or null values stay nil.
func (d *descriptor) rows(schema *common.ArrayInfo) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(d.Rows))
	for _, raw := range d.Rows {
		row := make(map[string]interface{}, len(raw))
		for name, v := range raw {
			col, ok := schema.Column(name)
			if !ok {
				return nil, errors.NewUnknownColumnError(name)
			}
			if v == nil {
				row[name] = nil
				continue
			}
			nv, err := normalizeLiteral(v, col.ColumnType)
			if err != nil {
				return nil, err
			}
			row[name] = nv
		}
		out = append(out, row)
	}
	return out, nil
}

// predicates converts the JSON predicate trees. Literals stay as decoded;
// the planner normalizes them against the column types.
func (d *descriptor) predicates() ([]*planner.Predicate, error) {
	var preds []*planner.Predicate
	for _, pj := range d.Predicates {
		p, err := toPredicate(pj)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func toPredicate(pj *predicateSection) (*planner.Predicate, error) {
	if pj == nil {
		return nil, errors.NewInvalidConfigurationError("predicate operand is missing")
	}
	switch pj.Op {
	case "and", "or":
		left, err := toPredicate(pj.Left)
		if err != nil {
			return nil, err
		}
		right, err := toPredicate(pj.Right)
		if err != nil {
			return nil, err
		}
		if pj.Op == "and" {
			return planner.And(left, right), nil
		}
		return planner.Or(left, right), nil
	case "=":
		return planner.Equal(pj.Column, pj.Value), nil
	case "<=>":
		return planner.EqualNullSafe(pj.Column, pj.Value), nil
	case ">":
		return planner.GreaterThan(pj.Column, pj.Value), nil
	case ">=":
		return planner.GreaterOrEqual(pj.Column, pj.Value), nil
	case "<":
		return planner.LessThan(pj.Column, pj.Value), nil
	case "<=":
		return planner.LessOrEqual(pj.Column, pj.Value), nil
	case "in":
		return planner.In(pj.Column, pj.Values...), nil
	}
	return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("unknown predicate op %q", pj.Op))
}

// normalizeLiteral coerces a decoded JSON value into the normalized scalar
// domain of a column: int64 for integer and datetime columns, float64 for
// float columns, string for string columns.
func normalizeLiteral(v interface{}, ct common.ColumnType) (interface{}, error) {
	switch {
	case ct.IsInteger():
		f, ok := v.(float64)
		if !ok {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("expected a number for %s column, got %T", ct.Type, v))
		}
		if f != math.Trunc(f) {
			return nil, errors.NewValueOutOfRangeError(fmt.Sprintf("%v is not an integral value", f))
		}
		return int64(f), nil
	case ct.IsFloat():
		f, ok := v.(float64)
		if !ok {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("expected a number for %s column, got %T", ct.Type, v))
		}
		return f, nil
	case ct.Type == common.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("expected a string, got %T", v))
		}
		return s, nil
	}
	return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("unsupported column type %s", ct.Type))
}
