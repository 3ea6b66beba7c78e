package worker

import (
	"io"
	"net"
	"os"
)

// Sendfile streams count bytes of src (starting at offset) directly to dst
// using the platform's sendfile(2) where available, falling back to a
// plain io.CopyN otherwise. This is the in-scope contract spec.md §1 calls
// out for the otherwise-external sendfile wrapper: workers that stream a
// file-backed response body go through here rather than through the
// application callable's normal chunk-by-chunk write path (grounded on
// _examples/original_source/gunicorn/http/sendfile.py's per-platform
// dispatch table).
func Sendfile(dst net.Conn, src *os.File, offset int64, count int64) (int64, error) {
	if tc, ok := dst.(interface {
		File() (*os.File, error)
	}); ok {
		if dstFile, err := tc.File(); err == nil {
			defer dstFile.Close()
			n, serr := sendfilePlatform(dstFile, src, offset, count)
			if serr == nil {
				return n, nil
			}
			// fall through to the portable path on any platform error
			// (e.g. ENOSYS, EINVAL for non-regular files)
		}
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return io.CopyN(dst, src, count)
}
