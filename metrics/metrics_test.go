package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimingObserverAccumulates(t *testing.T) {
	obs := NewTimingObserver()
	obs.StartTimer(TimerSubmit)
	time.Sleep(time.Millisecond)
	obs.FinishTimer(TimerSubmit)
	require.Greater(t, obs.Total(TimerSubmit), time.Duration(0))

	// finishing a timer that was never started is a no-op
	obs.FinishTimer(TimerMaterialize)
	require.Equal(t, time.Duration(0), obs.Total(TimerMaterialize))

	obs.AddRecords(5)
	obs.AddRecords(7)
	obs.AddBytes(100)
	require.Equal(t, int64(12), obs.TotalRecords())
	require.Equal(t, int64(100), obs.TotalBytes())
}

func TestTimingObserverSharedBetweenWorkers(t *testing.T) {
	obs := NewTimingObserver()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				obs.StartTimer(TimerSubmit)
				obs.FinishTimer(TimerSubmit)
				obs.AddRecords(1)
				obs.AddBytes(2)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), obs.TotalRecords())
	require.Equal(t, int64(1600), obs.TotalBytes())
}
