package scan

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/storage"
)

// Batch is one columnar result batch: the projected columns over some number
// of whole records. Values are normalized (int64/float64/string) with a null
// bitmap per column; datetime columns are already rescaled to microseconds.
type Batch struct {
	schema  *common.ArrayInfo
	numRows int
	bytes   int64
	columns []*ColumnVector
}

type ColumnVector struct {
	info    common.ColumnInfo
	nulls   []bool
	ints    []int64
	floats  []float64
	strings []string
}

func (b *Batch) RowCount() int             { return b.numRows }
func (b *Batch) ColumnCount() int          { return len(b.columns) }
func (b *Batch) Schema() *common.ArrayInfo { return b.schema }

// ResultBytes is the engine-reported byte volume behind this batch, used for
// metrics accounting.
func (b *Batch) ResultBytes() int64 { return b.bytes }

func (b *Batch) IsNull(rowIndex int, colIndex int) bool {
	return b.columns[colIndex].nulls[rowIndex]
}

func (b *Batch) GetInt64(rowIndex int, colIndex int) int64 {
	return b.columns[colIndex].ints[rowIndex]
}

func (b *Batch) GetFloat64(rowIndex int, colIndex int) float64 {
	return b.columns[colIndex].floats[rowIndex]
}

func (b *Batch) GetString(rowIndex int, colIndex int) string {
	return b.columns[colIndex].strings[rowIndex]
}

// materializeBatch decodes the first n whole records of every column buffer
// into typed vectors. The engine's validity buffer (0 = null) is AND-ed into
// the output null bitmap, and datetime columns are rescaled in place.
func materializeBatch(schema *common.ArrayInfo, pool *bufferPool, n int64,
	elements map[string]storage.BufferElements) (*Batch, error) {

	batch := &Batch{schema: schema, numRows: int(n)}
	for i, col := range schema.Columns {
		buf := pool.buffer(i)
		vec := &ColumnVector{info: col, nulls: make([]bool, n)}

		switch {
		case col.VarLen && col.ColumnType.Type == common.TypeString:
			vec.strings = make([]string, n)
			for r := int64(0); r < n; r++ {
				start := buf.offsets[r]
				end := buf.offsets[r+1]
				vec.strings[r] = string(buf.data[start:end])
			}
		case col.VarLen:
			return nil, errors.NewInternalError(fmt.Sprintf(
				"var-length column %s of type %s is not materializable", col.Name, col.ColumnType.Type))
		case col.ColumnType.Type == common.TypeString:
			return nil, errors.NewInternalError(fmt.Sprintf(
				"fixed-length string column %s is not materializable", col.Name))
		case col.ColumnType.IsFloat():
			vec.floats = make([]float64, n)
			if err := decodeFloats(vec.floats, buf.data, col.ColumnType); err != nil {
				return nil, err
			}
		default:
			vec.ints = make([]int64, n)
			if err := decodeInts(vec.ints, buf.data, col.ColumnType); err != nil {
				return nil, err
			}
			if col.ColumnType.Type == common.TypeDatetime {
				multiplier, calendar := col.ColumnType.DatetimeScale()
				if multiplier != 1 || calendar {
					rescaleDatetime(vec.ints, multiplier, calendar)
				}
			}
		}

		if col.Nullable {
			for r := int64(0); r < n; r++ {
				if buf.validity[r] == 0 {
					vec.nulls[r] = true
				}
			}
		}
		batch.columns = append(batch.columns, vec)

		if el, ok := elements[col.Name]; ok {
			batch.bytes += el.Bytes
		}
	}
	return batch, nil
}

func decodeInts(out []int64, data []byte, ct common.ColumnType) error {
	switch ct.Type {
	case common.TypeInt8:
		for r := range out {
			out[r] = int64(int8(data[r]))
		}
	case common.TypeUint8:
		for r := range out {
			out[r] = int64(data[r])
		}
	case common.TypeInt16:
		for r := range out {
			out[r] = int64(int16(binary.LittleEndian.Uint16(data[r*2:])))
		}
	case common.TypeUint16:
		for r := range out {
			out[r] = int64(binary.LittleEndian.Uint16(data[r*2:]))
		}
	case common.TypeInt32:
		for r := range out {
			out[r] = int64(int32(binary.LittleEndian.Uint32(data[r*4:])))
		}
	case common.TypeUint32:
		for r := range out {
			out[r] = int64(binary.LittleEndian.Uint32(data[r*4:]))
		}
	case common.TypeInt64, common.TypeUint64, common.TypeDatetime:
		for r := range out {
			out[r] = int64(binary.LittleEndian.Uint64(data[r*8:]))
		}
	default:
		return errors.NewInternalError(fmt.Sprintf("cannot decode type %s as integer", ct.Type))
	}
	return nil
}

func decodeFloats(out []float64, data []byte, ct common.ColumnType) error {
	switch ct.Type {
	case common.TypeFloat32:
		for r := range out {
			out[r] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[r*4:])))
		}
	case common.TypeFloat64:
		for r := range out {
			out[r] = math.Float64frombits(binary.LittleEndian.Uint64(data[r*8:]))
		}
	default:
		return errors.NewInternalError(fmt.Sprintf("cannot decode type %s as float", ct.Type))
	}
	return nil
}
