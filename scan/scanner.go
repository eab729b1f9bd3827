package scan

import (
	log "github.com/sirupsen/logrus"

	"github.com/gridscan/gridscan/conf"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/interruptor"
	"github.com/gridscan/gridscan/metrics"
	"github.com/gridscan/gridscan/planner"
	"github.com/gridscan/gridscan/storage"
)

// Sink receives the batches of a partition scan in order. HandleBatch must
// consume or copy the batch before returning; the executor reuses its
// buffers on the next submission.
type Sink interface {
	HandleBatch(batch *Batch) error
}

// Scanner ties planning and execution together for one storage engine. It is
// safe for concurrent use provided the injected observer is; each partition
// scan gets its own Executor.
type Scanner struct {
	engine            storage.Engine
	cfg               *conf.Config
	observer          metrics.ScanObserver
	memory            MemoryProber
	partitionsCounter metrics.Counter
}

func NewScanner(engine storage.Engine, cfg *conf.Config, observer metrics.ScanObserver, memory MemoryProber) *Scanner {
	if cfg == nil {
		cfg = conf.NewDefaultConfig()
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if memory == nil {
		memory = SystemMemory
	}
	return &Scanner{engine: engine, cfg: cfg, observer: observer, memory: memory}
}

// SetPartitionsCounter registers a counter incremented once per partition
// scanned to completion. Typically created through a metrics.Factory by
// hosts that export counters.
func (s *Scanner) SetPartitionsCounter(counter metrics.Counter) {
	s.partitionsCounter = counter
}

// Plan opens the array to read its schema and non-empty domain, then plans
// the scan regions for the given predicates. Predicates that cannot be
// pushed down are returned as residuals for the host engine to evaluate.
func (s *Scanner) Plan(arrayName string, predicates []*planner.Predicate) ([]*planner.Partition, []*planner.Predicate, error) {
	array, err := s.engine.OpenArray(arrayName)
	if err != nil {
		return nil, nil, errors.MaybeAddStack(err)
	}
	defer func() {
		if err := array.Close(); err != nil {
			log.Errorf("failed to close array %s after planning: %v", arrayName, err)
		}
	}()

	schema, err := array.Schema()
	if err != nil {
		return nil, nil, errors.MaybeAddStack(err)
	}
	domain, err := array.NonEmptyDomain()
	if err != nil {
		return nil, nil, errors.MaybeAddStack(err)
	}
	pl := planner.NewPlanner(schema, domain, s.observer)
	return pl.Plan(predicates, s.cfg.PartitionCount)
}

// ScanPartition runs one partition to completion, delivering every batch to
// the sink. intr may be nil when the caller has no cancellation source.
func (s *Scanner) ScanPartition(arrayName string, projection []string, partition *planner.Partition,
	sink Sink, intr *interruptor.Interruptor) error {
	exec := NewExecutor(s.engine, arrayName, projection, partition, s.cfg, s.observer, s.memory, intr)
	defer func() {
		if err := exec.Close(); err != nil {
			log.Errorf("failed to close executor for partition %s: %v", partition.ID, err)
		}
	}()
	for {
		ok, err := exec.Next()
		if err != nil {
			return err
		}
		if !ok {
			if s.partitionsCounter != nil {
				s.partitionsCounter.Inc()
			}
			return nil
		}
		if err := sink.HandleBatch(exec.Batch()); err != nil {
			return errors.MaybeAddStack(err)
		}
	}
}
