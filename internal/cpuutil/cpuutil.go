// Package cpuutil samples system-wide CPU utilization. The benchmark runner
// samples before and after each run so the parser can later flag runs that
// competed with other load.
package cpuutil

import "time"

// Percent returns the fraction of CPU time (0..1) spent busy over the given
// interval. ok is false on platforms without a readable /proc/stat, in
// which case callers record the sample as unavailable rather than zero
// load.
func Percent(interval time.Duration) (pct float64, ok bool) {
	before, err := readBusyTotal()
	if err != nil {
		return 0, false
	}
	time.Sleep(interval)
	after, err := readBusyTotal()
	if err != nil {
		return 0, false
	}
	dTotal := after.total - before.total
	if dTotal <= 0 {
		return 0, false
	}
	return float64(after.busy-before.busy) / float64(dTotal), true
}

type cpuSample struct {
	busy  uint64
	total uint64
}
