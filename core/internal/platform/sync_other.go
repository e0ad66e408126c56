//go:build !linux

package platform

import "os"

// Datasync flushes file data to stable storage.
func Datasync(f *os.File) error {
	return f.Sync()
}
