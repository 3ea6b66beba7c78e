//go:build linux

package liveness

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const mmapSupported = true

const counterSize = 4 // one int32, page-aligned mapping underneath

type mmapSource struct {
	file *os.File
	data []byte
}

func prepareMmap(workerID int) (*Prepared, error) {
	fd, err := unix.MemfdCreate(fmt.Sprintf("gunicorn-liveness-%d", workerID), 0)
	if err != nil {
		return nil, fmt.Errorf("liveness: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(os.Getpagesize())); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("liveness: ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("liveness: mmap: %w", err)
	}

	file := os.NewFile(uintptr(fd), fmt.Sprintf("liveness-%d", workerID))
	src := &mmapSource{file: file, data: data}

	return &Prepared{
		Source:    src,
		ExtraFile: file,
		Env: []string{
			EnvMode + "=" + ModeMmap.String(),
		},
	}, nil
}

func (m *mmapSource) Read() (int64, error) {
	p := (*int32)(unsafe.Pointer(&m.data[0]))
	return int64(atomic.LoadInt32(p)), nil
}

func (m *mmapSource) Close() error {
	_ = unix.Munmap(m.data)
	return m.file.Close()
}

type mmapSink struct {
	file *os.File
	data []byte
}

// openMmapSink resolves the fd number from the ExtraFiles position the
// arbiter's spawn logic recorded in EnvMmapFD (see internal/arbiter/spawn.go)
// and maps the same physical page the arbiter is reading.
func openMmapSink() (Sink, error) {
	fdStr := os.Getenv(EnvMmapFD)
	fd, err := strconv.Atoi(fdStr)
	if err != nil {
		return nil, fmt.Errorf("liveness: %s=%q: %w", EnvMmapFD, fdStr, err)
	}
	file := os.NewFile(uintptr(fd), "liveness")
	data, err := unix.Mmap(int(file.Fd()), 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("liveness: worker mmap: %w", err)
	}
	return &mmapSink{file: file, data: data}, nil
}

func (m *mmapSink) Notify() error {
	p := (*int32)(unsafe.Pointer(&m.data[0]))
	atomic.AddInt32(p, 1)
	return nil
}

func (m *mmapSink) Close() error {
	_ = unix.Munmap(m.data)
	return m.file.Close()
}
