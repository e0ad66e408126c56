package img

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyOption configures CopyFile.
type CopyOption func(*copyConfig)

type copyConfig struct {
	preserveMode bool
	sync         bool
}

// CopyWithPreserveMode gives the destination the permission bits of the
// source. By default, the destination uses umask defaults.
func CopyWithPreserveMode(preserve bool) CopyOption {
	return func(c *copyConfig) {
		c.preserveMode = preserve
	}
}

// CopyWithSync flushes the destination to stable storage before it is
// renamed into place.
func CopyWithSync(enabled bool) CopyOption {
	return func(c *copyConfig) {
		c.sync = enabled
	}
}

// CopyFile copies the regular file src to dst, replacing dst if it exists.
//
// The copy is streamed to a temp file in dst's directory and renamed over
// dst, so dst is never left partially written. Parent directories are
// created as needed. A symlink at src is rejected with ErrSymlink.
func CopyFile(src, dst string, opts ...CopyOption) error {
	cfg := copyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	in, err := openNoFollow(src)
	if err != nil {
		return &fs.PathError{Op: "copy", Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &fs.PathError{Op: "copy", Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &fs.PathError{Op: "copy", Path: src, Err: fs.ErrInvalid}
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := streamFileAtomic(dst, in, info.Mode().Perm(), &cfg); err != nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: err}
	}
	return nil
}

// streamFileAtomic streams from r to a temp file then renames to target,
// ensuring atomic replacement of the target file.
func streamFileAtomic(target string, r io.Reader, mode fs.FileMode, cfg *copyConfig) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".img-copy-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return err
	}
	if cfg.preserveMode {
		if err := tmp.Chmod(mode); err != nil {
			return err
		}
	}
	if cfg.sync {
		if err := tmp.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return err
	}
	success = true
	return nil
}
