package driver

import (
	"context"
	"os"
	"sync"
)

// FileDriver reads a local file. Concurrent workers in thread-mode share
// one *os.File under a mutex, matching filedriver.py's single descriptor
// protected by a threading.Lock.
type FileDriver struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFile opens path for read-only range access.
func OpenFile(path string) (*FileDriver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open file driver", err)
	}
	return &FileDriver{path: path, f: f}, nil
}

func (d *FileDriver) ReadRange(_ context.Context, offset, size int64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, size)
	if _, err := d.f.ReadAt(buf, offset); err != nil {
		return nil, ioError("file range read", err)
	}
	return buf, nil
}

// Copy opens an independent descriptor against the same path so a
// process-mode worker never contends with the original handle's mutex.
func (d *FileDriver) Copy() (Driver, error) {
	return OpenFile(d.path)
}

func (d *FileDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
