// Package platform wraps the file handling the archive engine needs:
// scoped opens, durable writes and advisory locks.
package platform

import (
	"os"

	"github.com/gofrs/flock"
)

// LockSuffix is appended to an archive path to form its lock file.
const LockSuffix = ".lock"

// OpenArchive opens an existing archive for reading, or for reading and
// writing when writable is set. It never creates the file.
func OpenArchive(path string, writable bool) (*os.File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	return os.OpenFile(path, flag, 0) //nolint:gosec // path is intentionally caller-provided
}

// Lock takes an advisory lock on path+LockSuffix, shared unless exclusive
// is set. The returned func releases it.
func Lock(path string, exclusive bool) (func() error, error) {
	fl := flock.New(path + LockSuffix)
	var err error
	if exclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return nil, err
	}
	return fl.Unlock, nil
}
