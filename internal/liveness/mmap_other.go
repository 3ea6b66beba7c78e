//go:build !linux

package liveness

import "fmt"

const mmapSupported = false

func prepareMmap(workerID int) (*Prepared, error) {
	return nil, fmt.Errorf("liveness: mmap mode is Linux-only; use ModeFile")
}

func openMmapSink() (Sink, error) {
	return nil, fmt.Errorf("liveness: mmap mode is Linux-only; use ModeFile")
}
