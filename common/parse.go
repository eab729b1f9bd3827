package common

import (
	"fmt"
	"strings"

	"github.com/gridscan/gridscan/errors"
)

// ParseColumnType parses a type name as it appears in array descriptions,
// e.g. "INT32", "STRING" or "DATETIME_MS". A bare "DATETIME" means
// microsecond resolution.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(s) {
	case "INT8":
		return Int8ColumnType, nil
	case "UINT8":
		return Uint8ColumnType, nil
	case "INT16":
		return Int16ColumnType, nil
	case "UINT16":
		return Uint16ColumnType, nil
	case "INT32":
		return Int32ColumnType, nil
	case "UINT32":
		return Uint32ColumnType, nil
	case "INT64":
		return Int64ColumnType, nil
	case "UINT64":
		return Uint64ColumnType, nil
	case "FLOAT32":
		return Float32ColumnType, nil
	case "FLOAT64":
		return Float64ColumnType, nil
	case "STRING":
		return StringColumnType, nil
	case "DATETIME", "DATETIME_US":
		return NewDatetimeColumnType(ResolutionMicrosecond), nil
	case "DATETIME_NS":
		return NewDatetimeColumnType(ResolutionNanosecond), nil
	case "DATETIME_MS":
		return NewDatetimeColumnType(ResolutionMillisecond), nil
	case "DATETIME_SEC":
		return NewDatetimeColumnType(ResolutionSecond), nil
	case "DATETIME_MIN":
		return NewDatetimeColumnType(ResolutionMinute), nil
	case "DATETIME_HR":
		return NewDatetimeColumnType(ResolutionHour), nil
	case "DATETIME_DAY":
		return NewDatetimeColumnType(ResolutionDay), nil
	case "DATETIME_WEEK":
		return NewDatetimeColumnType(ResolutionWeek), nil
	case "DATETIME_MONTH":
		return NewDatetimeColumnType(ResolutionMonth), nil
	case "DATETIME_YEAR":
		return NewDatetimeColumnType(ResolutionYear), nil
	}
	return ColumnType{}, errors.NewInvalidConfigurationError(fmt.Sprintf("unknown column type %q", s))
}
