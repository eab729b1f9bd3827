package metrics

import (
	"sync"
	"time"
)

type Counter interface {
	Inc()
}

type Factory interface {
	CreateCounter(name string, description string) (Counter, error)

	Start() error

	Stop() error
}

// Phase timer names reported through the ScanObserver.
const (
	TimerPlan          = "plan"
	TimerBuildRanges   = "build_ranges"
	TimerMergeRanges   = "merge_ranges"
	TimerComputeSplits = "compute_splits"
	TimerAllocBuffers  = "alloc_buffers"
	TimerSubmit        = "submit"
	TimerMaterialize   = "materialize"
)

// ScanObserver receives per-phase timing and result volume hooks from the
// planner and the partition executors. It is injected rather than global so
// the core carries no ambient mutable state; Noop is the default.
type ScanObserver interface {
	StartTimer(name string)
	FinishTimer(name string)
	AddRecords(n int64)
	AddBytes(n int64)
}

type NoopObserver struct{}

var _ ScanObserver = NoopObserver{}

func (NoopObserver) StartTimer(string)  {}
func (NoopObserver) FinishTimer(string) {}
func (NoopObserver) AddRecords(int64)   {}
func (NoopObserver) AddBytes(int64)     {}

// TimingObserver accumulates wall-clock durations per phase in memory. It is
// what the planning CLI and the tests use; hosts wanting exported metrics
// use the prometheus implementation instead. Safe to share between partition
// workers, though note each phase timer is a single slot.
type TimingObserver struct {
	lock    sync.Mutex
	starts  map[string]time.Time
	totals  map[string]time.Duration
	records int64
	bytes   int64
}

var _ ScanObserver = &TimingObserver{}

func NewTimingObserver() *TimingObserver {
	return &TimingObserver{
		starts: make(map[string]time.Time),
		totals: make(map[string]time.Duration),
	}
}

func (t *TimingObserver) StartTimer(name string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.starts[name] = time.Now()
}

func (t *TimingObserver) FinishTimer(name string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if start, ok := t.starts[name]; ok {
		t.totals[name] += time.Since(start)
		delete(t.starts, name)
	}
}

func (t *TimingObserver) AddRecords(n int64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.records += n
}

func (t *TimingObserver) AddBytes(n int64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.bytes += n
}

// Total returns the accumulated duration of one phase timer.
func (t *TimingObserver) Total(name string) time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.totals[name]
}

func (t *TimingObserver) TotalRecords() int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.records
}

func (t *TimingObserver) TotalBytes() int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.bytes
}
