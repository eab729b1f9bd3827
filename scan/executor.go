// Package scan drives the incomplete/complete query protocol for one
// partition at a time, growing result buffers under a memory budget and
// materializing typed, nullable, variable-length columnar batches.
package scan

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/conf"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/interruptor"
	"github.com/gridscan/gridscan/metrics"
	"github.com/gridscan/gridscan/planner"
	"github.com/gridscan/gridscan/storage"
)

// Executor scans a single partition. It is strictly sequential: a call to
// Next blocks until the engine produces a batch, grows buffers, completes,
// or fails. An Executor must not be shared between goroutines.
type Executor struct {
	engine     storage.Engine
	arrayName  string
	projection []string
	partition  *planner.Partition
	cfg        *conf.Config
	observer   metrics.ScanObserver
	memory     MemoryProber
	intr       *interruptor.Interruptor

	array        storage.Array
	query        storage.Query
	schema       *common.ArrayInfo
	resultSchema *common.ArrayInfo
	pool         *bufferPool
	state        CursorState
	batch        *Batch
	closed       bool
}

// NewExecutor creates the executor for one partition. projection selects the
// result columns (nil means all). observer, memory and intr may be nil for
// the no-op observer, the real system memory probe and no cancellation
// source respectively.
func NewExecutor(engine storage.Engine, arrayName string, projection []string,
	partition *planner.Partition, cfg *conf.Config, observer metrics.ScanObserver,
	memory MemoryProber, intr *interruptor.Interruptor) *Executor {
	if cfg == nil {
		cfg = conf.NewDefaultConfig()
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if memory == nil {
		memory = SystemMemory
	}
	return &Executor{
		engine:     engine,
		arrayName:  arrayName,
		projection: projection,
		partition:  partition,
		cfg:        cfg,
		observer:   observer,
		memory:     memory,
		intr:       intr,
		state:      StateUninitialized,
	}
}

// init opens the storage resources lazily on first use: range constraints
// from the partition, residual conditions from the attribute ranges, result
// layout, and the initial buffers at the configured byte budget.
func (e *Executor) init() error {
	array, err := e.engine.OpenArray(e.arrayName)
	if err != nil {
		return errors.MaybeAddStack(err)
	}
	e.array = array

	schema, err := array.Schema()
	if err != nil {
		return errors.MaybeAddStack(err)
	}
	e.schema = schema
	e.resultSchema = schema
	if e.projection != nil {
		projected, err := schema.Project(e.projection)
		if err != nil {
			return err
		}
		e.resultSchema = projected
	}
	if len(e.resultSchema.Columns) == 0 {
		return errors.NewInternalError("partition scan has no columns to materialize")
	}
	if e.partition.DimensionRanges.NumDimensions() != schema.NumDimensions() {
		return errors.NewInternalError(fmt.Sprintf(
			"partition has %d dimension ranges but array has %d dimensions",
			e.partition.DimensionRanges.NumDimensions(), schema.NumDimensions()))
	}

	query, err := array.NewQuery()
	if err != nil {
		return errors.MaybeAddStack(err)
	}
	e.query = query

	for dimIdx, r := range e.partition.DimensionRanges.Ranges() {
		// half-open ranges cannot be expressed as engine coordinate ranges
		if !r.HasLow() || !r.HasHigh() {
			continue
		}
		if err := query.AddRange(dimIdx, r.Low(), r.High()); err != nil {
			return errors.MaybeAddStack(err)
		}
	}

	if cond := buildConditions(e.schema, e.partition.AttributeRanges); cond != nil {
		if err := query.SetCondition(cond); err != nil {
			return errors.MaybeAddStack(err)
		}
	}

	if err := query.SetLayout(e.chooseLayout()); err != nil {
		return errors.MaybeAddStack(err)
	}

	e.observer.StartTimer(metrics.TimerAllocBuffers)
	e.pool = newBufferPool(e.resultSchema, e.schema.MinDimensionSize(), e.cfg.ReadBufferSize, e.memory)
	e.pool.Allocate()
	err = e.pool.Bind(query)
	e.observer.FinishTimer(metrics.TimerAllocBuffers)
	if err != nil {
		return err
	}
	e.state = StateRunning
	return nil
}

// buildConditions translates the partition's attribute ranges into residual
// boolean conditions: a GE/LE pair per bounded range, all AND-combined.
// Unbounded ranges contribute nothing; half-bounded ones contribute their
// present side only.
func buildConditions(schema *common.ArrayInfo, attributeRanges [][]planner.Range) *storage.Condition {
	attrs := schema.Attributes()
	var cond *storage.Condition
	for attrIdx, ranges := range attributeRanges {
		if attrIdx >= len(attrs) {
			break
		}
		name := attrs[attrIdx].Name
		for _, r := range ranges {
			if r.IsUnbounded() {
				continue
			}
			var pair *storage.Condition
			if r.HasLow() {
				pair = storage.GE(name, r.Low())
			}
			if r.HasHigh() {
				pair = storage.And(pair, storage.LE(name, r.High()))
			}
			cond = storage.And(cond, pair)
		}
	}
	return cond
}

// chooseLayout picks the result ordering: the configured override when set,
// otherwise unordered for sparse arrays (fastest) and the array's native
// cell order for dense ones.
func (e *Executor) chooseLayout() common.Layout {
	layout, err := common.ParseLayout(e.cfg.ResultLayout)
	if err != nil {
		// Validate() rejects unknown layouts before a scan starts
		layout = common.LayoutUnset
	}
	if layout != common.LayoutUnset {
		return layout
	}
	if e.schema.Sparse {
		return common.LayoutUnordered
	}
	if e.schema.CellOrder != common.LayoutUnset {
		return e.schema.CellOrder
	}
	return common.LayoutRowMajor
}

// Next advances the scan: it returns true when a batch is available through
// Batch, and false at end of partition. A false return with a nil error
// means the partition is exhausted; errors are fatal for the partition.
func (e *Executor) Next() (bool, error) {
	if e.closed {
		return false, errors.NewInternalError("scan executor used after close")
	}
	if e.query == nil {
		if err := e.init(); err != nil {
			return false, err
		}
	}
	if e.state == StateCompleted {
		return false, nil
	}

	for {
		if e.intr.IsInterrupted() {
			return false, errors.NewScanInterruptedError(e.partition.ID.String())
		}

		e.observer.StartTimer(metrics.TimerSubmit)
		status, err := e.query.Submit()
		e.observer.FinishTimer(metrics.TimerSubmit)
		if err != nil {
			return false, errors.MaybeAddStack(err)
		}

		elements := e.query.ResultBufferElements()
		whole := wholeRecords(e.resultSchema.Columns[0], elements)

		memoryOK := true
		if status == storage.StatusIncomplete && whole == 0 && e.cfg.AllowReadBufferReallocation {
			available, err := e.memory.AvailableBytes()
			if err != nil {
				return false, err
			}
			memoryOK = available >= 4*e.pool.TotalFootprint()
		}

		state, action, terr := nextCursorState(status, whole, e.cfg.AllowReadBufferReallocation, memoryOK)
		e.state = state
		switch action {
		case actionGrow:
			log.Debugf("partition %s: incomplete query with no whole records, doubling buffers from %d bytes",
				e.partition.ID, e.pool.Budget())
			e.observer.StartTimer(metrics.TimerAllocBuffers)
			err := e.pool.Grow()
			if err == nil {
				err = e.pool.Bind(e.query)
			}
			e.observer.FinishTimer(metrics.TimerAllocBuffers)
			if err != nil {
				return false, err
			}

		case actionFail:
			return false, terr

		case actionEmit:
			if state == StateCompleted && whole == 0 {
				return false, nil
			}
			e.observer.StartTimer(metrics.TimerMaterialize)
			batch, err := materializeBatch(e.resultSchema, e.pool, whole, elements)
			e.observer.FinishTimer(metrics.TimerMaterialize)
			if err != nil {
				return false, err
			}
			e.observer.AddRecords(whole)
			e.observer.AddBytes(batch.ResultBytes())
			e.batch = batch
			return true, nil
		}
	}
}

// wholeRecords derives the whole-record count of a submission from the first
// selected column. Var-length columns report one fewer logical record than
// offset slots because the last slot is the sentinel end-offset.
func wholeRecords(first common.ColumnInfo, elements map[string]storage.BufferElements) int64 {
	el := elements[first.Name]
	if first.VarLen {
		if el.Offsets <= 0 {
			return 0
		}
		return el.Offsets - 1
	}
	return el.Values
}

// Batch returns the batch produced by the last successful Next.
func (e *Executor) Batch() *Batch {
	return e.batch
}

// State exposes the cursor state, mainly for observability.
func (e *Executor) State() CursorState {
	return e.state
}

// Close releases the partition's resources: buffers first, then the query,
// then the array handles. It is idempotent and safe after a partial
// initialization failure.
func (e *Executor) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.pool != nil {
		e.pool.Release()
	}
	var firstErr error
	if e.query != nil {
		if err := e.query.Close(); err != nil && firstErr == nil {
			firstErr = errors.MaybeAddStack(err)
		}
		e.query = nil
	}
	if e.array != nil {
		if err := e.array.Close(); err != nil && firstErr == nil {
			firstErr = errors.MaybeAddStack(err)
		}
		e.array = nil
	}
	return firstErr
}
