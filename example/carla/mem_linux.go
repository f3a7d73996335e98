package main

import "syscall"

// usedRAM returns the used main memory in MiB as reported by sysinfo(2).
func usedRAM() (float64, bool) {
	si := &syscall.Sysinfo_t{}
	if err := syscall.Sysinfo(si); err != nil {
		return 0, false
	}
	unit := float64(si.Unit)
	if unit == 0 {
		unit = 1
	}

	return float64(si.Totalram-si.Freeram) * unit / (1 << 20), true
}
