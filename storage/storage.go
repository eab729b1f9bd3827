// Package storage defines the query protocol contract between the scan core
// and the underlying multi-dimensional array engine. The core is a caller of
// this protocol, never its implementor; FakeEngine provides an in-memory
// implementation for tests.
package storage

import (
	"github.com/gridscan/gridscan/common"
)

// Status is the engine-reported outcome of one query submission. Incomplete
// means the engine produced a prefix of the answer limited by buffer
// capacity; it is not an error.
type Status int

const (
	StatusUninitialized Status = iota
	StatusIncomplete
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusIncomplete:
		return "INCOMPLETE"
	case StatusCompleted:
		return "COMPLETED"
	}
	return "UNKNOWN"
}

// BufferElements reports how many elements the engine materialized into a
// column's buffers on the last submission. For var-length columns Offsets
// includes the sentinel end-offset, so the number of whole records is one
// less than Offsets.
type BufferElements struct {
	Offsets int64
	Values  int64
	Bytes   int64
}

type Engine interface {
	// OpenArray opens an array for read.
	OpenArray(name string) (Array, error)
}

type Array interface {
	Schema() (*common.ArrayInfo, error)
	// NonEmptyDomain returns, per dimension, the smallest bounds known to
	// contain all currently stored records.
	NonEmptyDomain() (map[string]common.Bounds, error)
	NewQuery() (Query, error)
	Close() error
}

type Query interface {
	// AddRange constrains a dimension to a closed interval. Multiple ranges
	// on the same dimension are unioned.
	AddRange(dimIdx int, low, high interface{}) error
	// SetCondition attaches a residual boolean condition evaluated by the
	// engine during the scan.
	SetCondition(cond *Condition) error
	SetLayout(layout common.Layout) error

	SetBuffer(name string, data []byte) error
	SetBufferVar(name string, offsets []uint64, data []byte) error
	SetBufferNullable(name string, data []byte, validity []uint8) error
	SetBufferVarNullable(name string, offsets []uint64, data []byte, validity []uint8) error

	Submit() (Status, error)
	ResultBufferElements() map[string]BufferElements
	Close() error
}

type ConditionOp int

const (
	CondGE ConditionOp = iota
	CondLE
	CondAnd
)

// Condition is a residual filter tree: GE/LE leaves over one column and a
// literal, combined with AND.
type Condition struct {
	Op     ConditionOp
	Column string
	Value  interface{}
	Left   *Condition
	Right  *Condition
}

func GE(column string, value interface{}) *Condition {
	return &Condition{Op: CondGE, Column: column, Value: value}
}

func LE(column string, value interface{}) *Condition {
	return &Condition{Op: CondLE, Column: column, Value: value}
}

// And combines two conditions, tolerating nil operands so callers can fold a
// list without special-casing the first element.
func And(left, right *Condition) *Condition {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &Condition{Op: CondAnd, Left: left, Right: right}
}
