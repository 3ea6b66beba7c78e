package liveness

import (
	"fmt"
	"os"
	"time"
)

// fileSource stats the worker-tmp heartbeat file's mtime by path. The file
// is not unlinked when created: it stays in tmpDir so the worker can find it
// by name (EnvFilePath), and Close removes it once the worker is gone.
type fileSource struct {
	path string
}

func prepareFile(tmpDir string, workerID int) (*Prepared, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	f, err := os.CreateTemp(tmpDir, fmt.Sprintf("gunicorn-worker-%d-*.heartbeat", workerID))
	if err != nil {
		return nil, fmt.Errorf("liveness: create heartbeat file: %w", err)
	}
	path := f.Name()
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		f.Close()
		return nil, fmt.Errorf("liveness: init heartbeat mtime: %w", err)
	}

	return &Prepared{
		Source: &fileSource{path: path},
		// No ExtraFile: the worker reaches the same path by name, since
		// unlike mmap mode there is no fd to share across exec. The file
		// is removed when the arbiter reaps the worker record, not here.
		Env: []string{
			EnvMode + "=" + ModeFile.String(),
			EnvFilePath + "=" + path,
		},
	}, nil
}

func (f *fileSource) Read() (int64, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return fi.ModTime().UnixNano(), nil
}

func (f *fileSource) Close() error {
	return os.Remove(f.path)
}

type fileSink struct {
	path string
}

func openFileSink() (Sink, error) {
	path := os.Getenv(EnvFilePath)
	if path == "" {
		return nil, fmt.Errorf("liveness: %s not set", EnvFilePath)
	}
	return &fileSink{path: path}, nil
}

func (f *fileSink) Notify() error {
	now := time.Now()
	return os.Chtimes(f.path, now, now)
}

func (f *fileSink) Close() error {
	return nil // the arbiter owns removal of the shared path
}
