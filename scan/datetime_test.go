package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const microsPerDay = int64(24 * time.Hour / time.Microsecond)

func TestRescaleFixedResolutions(t *testing.T) {
	vals := []int64{1, 1500, -2}
	rescaleDatetime(vals, 1000, false) // milliseconds
	require.Equal(t, []int64{1000, 1500000, -2000}, vals)

	vals = []int64{5000, -1000}
	rescaleDatetime(vals, -1000, false) // nanoseconds
	require.Equal(t, []int64{5, -1}, vals)

	vals = []int64{2}
	rescaleDatetime(vals, 60*1000000, false) // minutes
	require.Equal(t, []int64{120000000}, vals)
}

func TestRescaleCalendarDays(t *testing.T) {
	vals := []int64{0, 1, 365}
	rescaleDatetime(vals, 1, true)
	require.Equal(t, int64(0), vals[0])
	require.Equal(t, microsPerDay, vals[1])
	require.Equal(t, 365*microsPerDay, vals[2])
}

func TestRescaleCalendarWeeks(t *testing.T) {
	vals := []int64{2}
	rescaleDatetime(vals, 7, true)
	require.Equal(t, 14*microsPerDay, vals[0])
}

func TestRescaleCalendarMonths(t *testing.T) {
	vals := []int64{1, 12}
	rescaleDatetime(vals, -1, true)
	// Feb 1 1970 is 31 days after the epoch
	require.Equal(t, 31*microsPerDay, vals[0])
	require.Equal(t, 365*microsPerDay, vals[1])
}

func TestRescaleCalendarYears(t *testing.T) {
	vals := []int64{1, 2}
	rescaleDatetime(vals, -12, true)
	require.Equal(t, 365*microsPerDay, vals[0])
	// 1972 is a leap year but only days up to Jan 1 1972 are counted
	require.Equal(t, (365+365)*microsPerDay, vals[1])
}
