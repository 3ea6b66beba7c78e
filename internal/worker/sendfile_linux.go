//go:build linux

package worker

import (
	"os"

	"golang.org/x/sys/unix"
)

func sendfilePlatform(dstFile, src *os.File, offset, count int64) (int64, error) {
	off := offset
	var total int64
	remaining := count
	for remaining > 0 {
		n, err := unix.Sendfile(int(dstFile.Fd()), int(src.Fd()), &off, int(remaining))
		if n > 0 {
			total += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
