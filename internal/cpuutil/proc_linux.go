//go:build linux

package cpuutil

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readBusyTotal parses the aggregate "cpu" line of /proc/stat. Fields are
// user, nice, system, idle, iowait, irq, softirq, steal [, guest, ...];
// idle and iowait count as not busy.
func readBusyTotal() (cpuSample, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuSample{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 || fields[0] != "cpu" {
			continue
		}
		var s cpuSample
		for i, fld := range fields[1:] {
			v, err := strconv.ParseUint(fld, 10, 64)
			if err != nil {
				return cpuSample{}, fmt.Errorf("parsing /proc/stat field %q: %w", fld, err)
			}
			s.total += v
			if i != 3 && i != 4 { // idle, iowait
				s.busy += v
			}
		}
		return s, nil
	}
	if err := scanner.Err(); err != nil {
		return cpuSample{}, err
	}
	return cpuSample{}, fmt.Errorf("no aggregate cpu line in /proc/stat")
}
