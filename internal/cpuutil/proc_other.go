//go:build !linux

package cpuutil

import "errors"

func readBusyTotal() (cpuSample, error) {
	return cpuSample{}, errors.New("cpu utilization sampling requires /proc/stat")
}
