package img

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/platform"
)

// ExtractStats reports what ExtractAll did.
type ExtractStats struct {
	FileCount  int    // entries written
	TotalBytes uint64 // bytes written, padding included
	Skipped    int    // entries skipped because the destination existed
}

// ReadEntry returns the payload of the named entry.
//
// The payload is StreamingSize whole sectors read from the entry's offset,
// so it includes the padding after the asset's real content.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	return a.read("read", name)
}

// Digest returns the canonical digest of the named entry's payload.
func (a *Archive) Digest(name string) (digest.Digest, error) {
	data, err := a.read("digest", name)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}

// Extract writes the payload of the named entry to dest, replacing any
// existing file there.
//
// dest is only written after the whole payload has been read, and it is
// written through a temp file and rename, so a failed Extract never leaves
// a partial file at dest.
func (a *Archive) Extract(name, dest string) error {
	data, err := a.read("extract", name)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(dest, data); err != nil {
		return &fs.PathError{Op: "extract", Path: name, Err: imgtype.IOError(err)}
	}
	a.log().Debug("extracted entry", "name", name, "dest", dest, "bytes", len(data))
	return nil
}

func (a *Archive) read(op, name string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, _, ok := a.dir.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: ErrNotFound}
	}

	release, err := a.acquire(false)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: imgtype.IOError(err)}
	}
	defer release()

	f, err := platform.OpenArchive(a.path, false)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: imgtype.IOError(err)}
	}
	defer f.Close()

	data, err := readPayload(f, &e)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return data, nil
}

// readPayload reads exactly e.ByteLength() bytes at e.ByteOffset().
func readPayload(r io.ReaderAt, e *Entry) ([]byte, error) {
	data := make([]byte, e.ByteLength())
	n, err := r.ReadAt(data, e.ByteOffset())
	if n == len(data) {
		return data, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, imgtype.IOError(fmt.Errorf("read %d of %d bytes at offset %d: %w",
		n, len(data), e.ByteOffset(), err))
}

// ExtractAll writes every entry to destDir, one file per entry named after
// it. When several entries share a name (ignoring case) only the first is
// written, matching Lookup.
//
// Entries are read concurrently from a single read-only handle. Existing
// files are skipped unless ExtractWithOverwrite is set. Names that are not
// plain file names are rejected before anything is written.
func (a *Archive) ExtractAll(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{workers: defaultExtractWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var entries []Entry //nolint:prealloc // duplicates are filtered
	for i, e := range a.dir.All() {
		if !a.dir.IsFirst(i) {
			continue
		}
		if !ValidName(e.Name) {
			return ExtractStats{}, &fs.PathError{Op: "extract", Path: e.Name, Err: fs.ErrInvalid}
		}
		entries = append(entries, e)
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return ExtractStats{}, fmt.Errorf("create destination %s: %w", destDir, err)
	}

	release, err := a.acquire(false)
	if err != nil {
		return ExtractStats{}, imgtype.IOError(err)
	}
	defer release()

	f, err := platform.OpenArchive(a.path, false)
	if err != nil {
		return ExtractStats{}, &fs.PathError{Op: "extract", Path: a.path, Err: imgtype.IOError(err)}
	}
	defer f.Close()

	a.log().Info("extracting archive", "path", a.path, "dest", destDir, "entries", len(entries), "workers", cfg.workers)

	var files, skipped atomic.Int64
	var written atomic.Uint64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := range entries {
		e := entries[i]
		dest := filepath.Join(destDir, e.Name)
		if !cfg.overwrite {
			if _, err := os.Lstat(dest); err == nil {
				skipped.Add(1)
				continue
			}
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readPayload(f, &e)
			if err != nil {
				return &fs.PathError{Op: "extract", Path: e.Name, Err: err}
			}
			if err := writeFileAtomic(dest, data); err != nil {
				return &fs.PathError{Op: "extract", Path: e.Name, Err: imgtype.IOError(err)}
			}
			done := files.Add(1)
			total := written.Add(uint64(len(data)))
			if cfg.progress != nil {
				cfg.progress(ProgressEvent{
					Stage:      StageExtracting,
					Name:       e.Name,
					BytesDone:  total,
					FilesDone:  int(done),
					FilesTotal: len(entries),
				})
			}
			return nil
		})
	}
	err = g.Wait()

	stats := ExtractStats{
		FileCount:  int(files.Load()),
		TotalBytes: written.Load(),
		Skipped:    int(skipped.Load()),
	}
	a.log().Debug("extract finished", "files", stats.FileCount, "bytes", stats.TotalBytes, "skipped", stats.Skipped)
	return stats, err
}
