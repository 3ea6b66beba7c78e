//go:build !linux

package worker

import (
	"errors"
	"os"
)

func sendfilePlatform(dstFile, src *os.File, offset, count int64) (int64, error) {
	return 0, errors.New("sendfile: not implemented on this platform")
}
