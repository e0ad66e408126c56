//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Datasync flushes file data, and the metadata needed to read it back,
// to stable storage.
func Datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd())) //nolint:gosec // fd fits in int
}
