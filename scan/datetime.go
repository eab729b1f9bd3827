package scan

import "time"

var epoch = time.Unix(0, 0).UTC()

// rescaleDatetime converts stored datetime ticks to microseconds in place.
// A positive multiplier multiplies, a negative one divides by its absolute
// value. Calendar-relative resolutions cannot use a constant factor because
// month and year lengths are not fixed durations: a positive multiplier is
// then a day count per tick and a negative one a month count per tick, both
// resolved with calendar arithmetic from the Unix epoch.
func rescaleDatetime(vals []int64, multiplier int64, calendar bool) {
	for i, v := range vals {
		if calendar {
			var t time.Time
			if multiplier > 0 {
				t = epoch.AddDate(0, 0, int(v*multiplier))
			} else {
				t = epoch.AddDate(0, int(v*-multiplier), 0)
			}
			vals[i] = t.UnixMicro()
			continue
		}
		if multiplier > 0 {
			vals[i] = v * multiplier
		} else {
			vals[i] = v / -multiplier
		}
	}
}
