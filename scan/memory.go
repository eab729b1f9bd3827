package scan

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/gridscan/gridscan/errors"
)

// MemoryProber reports the host's available working memory. The buffer pool
// consults it before doubling; it is an interface so tests can force the
// admission gate either way.
type MemoryProber interface {
	AvailableBytes() (int64, error)
}

type systemMemoryProber struct{}

func (systemMemoryProber) AvailableBytes() (int64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(vm.Available), nil
}

// SystemMemory probes the real host via gopsutil.
var SystemMemory MemoryProber = systemMemoryProber{}

// FixedMemory reports a constant availability, for tests.
type FixedMemory int64

func (f FixedMemory) AvailableBytes() (int64, error) {
	return int64(f), nil
}
