package common

import (
	"fmt"
	"math"
)

// Type is the storage datatype of a dimension or attribute.
//
// Scalar values crossing the public API (predicate literals, range bounds,
// non-empty domain bounds) are normalized: all integer types are carried as
// int64, floating point types as float64 and string types as string. The
// ColumnType tags which domain the value belongs to; buffers are still packed
// at the native width.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeDatetime
)

func (t Type) String() string {
	switch t {
	case TypeInt8:
		return "INT8"
	case TypeUint8:
		return "UINT8"
	case TypeInt16:
		return "INT16"
	case TypeUint16:
		return "UINT16"
	case TypeInt32:
		return "INT32"
	case TypeUint32:
		return "UINT32"
	case TypeInt64:
		return "INT64"
	case TypeUint64:
		return "UINT64"
	case TypeFloat32:
		return "FLOAT32"
	case TypeFloat64:
		return "FLOAT64"
	case TypeString:
		return "STRING"
	case TypeDatetime:
		return "DATETIME"
	}
	return "UNKNOWN"
}

// DatetimeResolution is the tick unit of a TypeDatetime column as stored by
// the engine. Scan results are always rescaled to microseconds.
type DatetimeResolution int

const (
	ResolutionUnset DatetimeResolution = iota
	ResolutionNanosecond
	ResolutionMicrosecond
	ResolutionMillisecond
	ResolutionSecond
	ResolutionMinute
	ResolutionHour
	ResolutionDay
	ResolutionWeek
	ResolutionMonth
	ResolutionYear
)

var (
	Int8ColumnType     = ColumnType{Type: TypeInt8}
	Uint8ColumnType    = ColumnType{Type: TypeUint8}
	Int16ColumnType    = ColumnType{Type: TypeInt16}
	Uint16ColumnType   = ColumnType{Type: TypeUint16}
	Int32ColumnType    = ColumnType{Type: TypeInt32}
	Uint32ColumnType   = ColumnType{Type: TypeUint32}
	Int64ColumnType    = ColumnType{Type: TypeInt64}
	Uint64ColumnType   = ColumnType{Type: TypeUint64}
	Float32ColumnType  = ColumnType{Type: TypeFloat32}
	Float64ColumnType  = ColumnType{Type: TypeFloat64}
	StringColumnType   = ColumnType{Type: TypeString}
	DatetimeColumnType = ColumnType{Type: TypeDatetime, Resolution: ResolutionMicrosecond}
)

func NewDatetimeColumnType(resolution DatetimeResolution) ColumnType {
	return ColumnType{Type: TypeDatetime, Resolution: resolution}
}

type ColumnType struct {
	Type       Type
	Resolution DatetimeResolution
}

// Size returns the native byte footprint of a single cell. For var-length
// string columns this is the footprint of one byte of cell data.
func (ct ColumnType) Size() int {
	switch ct.Type {
	case TypeInt8, TypeUint8, TypeString:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeDatetime:
		return 8
	}
	panic(fmt.Sprintf("no native size for type %s", ct.Type))
}

func (ct ColumnType) IsInteger() bool {
	switch ct.Type {
	case TypeInt8, TypeUint8, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeDatetime:
		return true
	}
	return false
}

func (ct ColumnType) IsFloat() bool {
	return ct.Type == TypeFloat32 || ct.Type == TypeFloat64
}

// MinValue returns the normalized lower extreme of the type's domain, used
// when an inequality predicate has no non-empty domain to bound against.
func (ct ColumnType) MinValue() interface{} {
	switch ct.Type {
	case TypeInt8:
		return int64(math.MinInt8)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return int64(0)
	case TypeInt16:
		return int64(math.MinInt16)
	case TypeInt32:
		return int64(math.MinInt32)
	case TypeInt64, TypeDatetime:
		return int64(math.MinInt64)
	case TypeFloat32:
		return float64(-math.MaxFloat32)
	case TypeFloat64:
		return -math.MaxFloat64
	}
	return nil
}

// MaxValue returns the normalized upper extreme of the type's domain.
func (ct ColumnType) MaxValue() interface{} {
	switch ct.Type {
	case TypeInt8:
		return int64(math.MaxInt8)
	case TypeUint8:
		return int64(math.MaxUint8)
	case TypeInt16:
		return int64(math.MaxInt16)
	case TypeUint16:
		return int64(math.MaxUint16)
	case TypeInt32:
		return int64(math.MaxInt32)
	case TypeUint32:
		return int64(math.MaxUint32)
	case TypeInt64, TypeDatetime:
		return int64(math.MaxInt64)
	case TypeUint64:
		// normalized scalars are int64, so the addressable max is capped
		return int64(math.MaxInt64)
	case TypeFloat32:
		return float64(math.MaxFloat32)
	case TypeFloat64:
		return math.MaxFloat64
	}
	return nil
}

// DatetimeScale returns the signed multiplier that converts stored datetime
// ticks to microseconds, plus a flag marking calendar-relative units. A
// positive multiplier means multiply, a negative one means divide by its
// absolute value. Calendar-relative units (day and coarser) cannot be scaled
// by a constant factor and are computed with calendar arithmetic from the
// Unix epoch instead: a positive multiplier there is a day count factor, a
// negative one a month count factor.
func (ct ColumnType) DatetimeScale() (multiplier int64, calendar bool) {
	switch ct.Resolution {
	case ResolutionNanosecond:
		return -1000, false
	case ResolutionMicrosecond, ResolutionUnset:
		return 1, false
	case ResolutionMillisecond:
		return 1000, false
	case ResolutionSecond:
		return 1000000, false
	case ResolutionMinute:
		return 60 * 1000000, false
	case ResolutionHour:
		return 60 * 60 * 1000000, false
	case ResolutionDay:
		return 1, true
	case ResolutionWeek:
		return 7, true
	case ResolutionMonth:
		return -1, true
	case ResolutionYear:
		return -12, true
	}
	panic(fmt.Sprintf("unknown datetime resolution %d", ct.Resolution))
}
