// Package interruptor provides cooperative cancellation for partition scan
// workers. A worker checks its Interruptor between query submissions and,
// when interrupted, runs the normal teardown path instead of abandoning
// native resources.
package interruptor

import (
	"github.com/gridscan/gridscan/common"
)

type Interruptor struct {
	Interrupted common.AtomicBool
}

func (i *Interruptor) Interrupt() {
	i.Interrupted.Set(true)
}

// IsInterrupted tolerates a nil receiver so callers without a cancellation
// source can pass nil.
func (i *Interruptor) IsInterrupted() bool {
	if i == nil {
		return false
	}
	return i.Interrupted.Get()
}
