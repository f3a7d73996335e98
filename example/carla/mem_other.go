//go:build !linux

package main

func usedRAM() (float64, bool) { return 0, false }
