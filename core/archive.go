package img

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"sync"

	"github.com/meigma/img/core/internal/directory"
	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/platform"
)

// Archive provides lookup, extraction and in-place replacement of the
// entries of one VER2 archive file.
//
// The directory is parsed when the Archive is opened and kept in memory.
// Each operation opens the backing file for its own duration only.
// An Archive is safe for concurrent use within one process; it does not
// coordinate with other processes unless WithAdvisoryLock is set.
type Archive struct {
	path      string
	mu        sync.RWMutex
	dir       *directory.Directory
	logger    *slog.Logger
	lock      bool
	sync      bool
	backupDir string
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open parses the archive at path.
//
// It fails with ErrFormat (ErrBadMarker or ErrTruncated) when the file is
// not a complete VER2 archive, and with ErrIO when it cannot be read.
func Open(path string, opts ...Option) (*Archive, error) {
	a := &Archive{path: path}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload discards the in-memory directory and parses the file again.
// On failure the previous directory is kept.
func (a *Archive) Reload() error {
	dir, err := a.parse()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.dir = dir
	a.mu.Unlock()
	return nil
}

func (a *Archive) parse() (*directory.Directory, error) {
	release, err := a.acquire(false)
	if err != nil {
		return nil, &fs.PathError{Op: "parse", Path: a.path, Err: imgtype.IOError(err)}
	}
	defer release()

	f, err := platform.OpenArchive(a.path, false)
	if err != nil {
		return nil, &fs.PathError{Op: "parse", Path: a.path, Err: imgtype.IOError(err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &fs.PathError{Op: "parse", Path: a.path, Err: imgtype.IOError(err)}
	}
	dir, err := directory.Load(f, info.Size())
	if err != nil {
		return nil, &fs.PathError{Op: "parse", Path: a.path, Err: err}
	}
	a.log().Debug("parsed archive", "path", a.path, "records", dir.RecordCount(), "entries", dir.Len())
	return dir, nil
}

// acquire takes the advisory lock when enabled. The returned func is
// always safe to call.
func (a *Archive) acquire(exclusive bool) (func(), error) {
	if !a.lock {
		return func() {}, nil
	}
	unlock, err := platform.Lock(a.path, exclusive)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", a.path, err)
	}
	return func() {
		if err := unlock(); err != nil {
			a.log().Warn("advisory unlock failed", "path", a.path, "error", err)
		}
	}, nil
}

// Path returns the path of the backing file.
func (a *Archive) Path() string {
	return a.path
}

// Len returns the number of live entries.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dir.Len()
}

// Lookup returns the first entry whose name matches name, ignoring case.
func (a *Archive) Lookup(name string) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, _, ok := a.dir.Lookup(name)
	return e, ok
}

// Exists reports whether an entry matches name, ignoring case.
func (a *Archive) Exists(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dir.Exists(name)
}

// List returns entry names in directory order.
func (a *Archive) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dir.Names()
}

// Entries returns an iterator over a snapshot of the directory, in
// directory order. Each call takes a fresh snapshot.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range a.snapshot() {
			if !yield(e) {
				return
			}
		}
	}
}

func (a *Archive) snapshot() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entries := make([]Entry, 0, a.dir.Len())
	for _, e := range a.dir.All() {
		entries = append(entries, e)
	}
	return entries
}

// Capacity returns how many sectors the named entry may occupy before it
// reaches the payload of the entry that follows it in the file. bounded is
// false when no entry follows, in which case Replace may extend the file.
func (a *Archive) Capacity(name string) (sectors uint32, bounded bool, err error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, pos, ok := a.dir.Lookup(name)
	if !ok {
		return 0, false, &fs.PathError{Op: "capacity", Path: name, Err: ErrNotFound}
	}
	sectors, bounded = a.dir.Capacity(pos)
	return sectors, bounded, nil
}

// Check reports layout problems in the archive: payloads that overlap the
// directory table or each other, or run past the end of the file. It
// returns nil for a sound layout, otherwise the joined problems.
func (a *Archive) Check() error {
	info, err := os.Stat(a.path)
	if err != nil {
		return &fs.PathError{Op: "check", Path: a.path, Err: imgtype.IOError(err)}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dir.Check(info.Size())
}
