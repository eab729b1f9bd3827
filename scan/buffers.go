package scan

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/storage"
)

// varCellEstimate is the assumed average cell width, in bytes, used to size
// the data buffer of var-length columns. Undershooting only costs an earlier
// incomplete status, never correctness.
const varCellEstimate = 8

// columnBuffer is the buffer set for one selected column: a data buffer,
// an offsets buffer with one sentinel slot for var-length columns, and a
// validity buffer for nullable columns. The engine writes into these
// directly.
type columnBuffer struct {
	info     common.ColumnInfo
	data     []byte
	offsets  []uint64
	validity []uint8
}

// bufferPool owns the buffer sets of one partition scan. Capacity is derived
// from a single byte budget divided by the footprint of the narrowest
// dimension type, so every column's buffers hold at least the same number of
// logical records. Growing doubles the budget and replaces all buffers; it
// never resizes in place.
type bufferPool struct {
	schema *common.ArrayInfo
	// minDimSize is the footprint of the array's narrowest dimension, taken
	// from the full schema even when the projection drops dimensions.
	minDimSize int
	budget     int64
	memory     MemoryProber
	buffers    []*columnBuffer
}

func newBufferPool(schema *common.ArrayInfo, minDimSize int, budget int64, memory MemoryProber) *bufferPool {
	if memory == nil {
		memory = SystemMemory
	}
	if minDimSize < 1 {
		minDimSize = 1
	}
	return &bufferPool{schema: schema, minDimSize: minDimSize, budget: budget, memory: memory}
}

func (p *bufferPool) Budget() int64 { return p.budget }

// RecordCapacity is the number of whole records every column can hold at the
// current budget, never below one.
func (p *bufferPool) RecordCapacity() int64 {
	records := p.budget / int64(p.minDimSize)
	if records < 1 {
		records = 1
	}
	return records
}

func (p *bufferPool) Allocate() {
	records := p.RecordCapacity()
	p.buffers = make([]*columnBuffer, 0, len(p.schema.Columns))
	for _, col := range p.schema.Columns {
		buf := &columnBuffer{info: col}
		if col.VarLen {
			buf.offsets = make([]uint64, records+1)
			buf.data = make([]byte, records*varCellEstimate)
		} else {
			buf.data = make([]byte, records*int64(col.ColumnType.Size()))
		}
		if col.Nullable {
			buf.validity = make([]uint8, records)
		}
		p.buffers = append(p.buffers, buf)
	}
}

// TotalFootprint is the byte size of all currently allocated buffers.
func (p *bufferPool) TotalFootprint() int64 {
	var total int64
	for _, buf := range p.buffers {
		total += int64(len(buf.data)) + int64(len(buf.offsets)*8) + int64(len(buf.validity))
	}
	return total
}

// Grow doubles the byte budget and reallocates every buffer. The admission
// gate requires available memory of at least 4x the current footprint: room
// for the doubled native buffers plus a transient decode copy. The gate is
// best-effort; a concurrent worker can still win the race to the memory.
func (p *bufferPool) Grow() error {
	footprint := p.TotalFootprint()
	available, err := p.memory.AvailableBytes()
	if err != nil {
		return err
	}
	log.Debugf("checking realloc of read buffers from %d to %d bytes with %d free", footprint, 2*footprint, available)
	if available < 4*footprint {
		return errors.NewBufferExhaustionError(fmt.Sprintf(
			"doubling buffers needs %d bytes of headroom but only %d are available", 4*footprint, available))
	}
	p.Release()
	p.budget *= 2
	p.Allocate()
	return nil
}

func (p *bufferPool) Release() {
	p.buffers = nil
}

// Bind registers every buffer set with the query. Must be called after each
// (re)allocation since the engine holds the previous slices otherwise.
func (p *bufferPool) Bind(query storage.Query) error {
	for _, buf := range p.buffers {
		var err error
		name := buf.info.Name
		switch {
		case buf.info.VarLen && buf.info.Nullable:
			err = query.SetBufferVarNullable(name, buf.offsets, buf.data, buf.validity)
		case buf.info.VarLen:
			err = query.SetBufferVar(name, buf.offsets, buf.data)
		case buf.info.Nullable:
			err = query.SetBufferNullable(name, buf.data, buf.validity)
		default:
			err = query.SetBuffer(name, buf.data)
		}
		if err != nil {
			return errors.MaybeAddStack(err)
		}
	}
	return nil
}

func (p *bufferPool) buffer(i int) *columnBuffer {
	return p.buffers[i]
}
