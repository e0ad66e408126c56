package img

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/meigma/img/core/internal/backup"
	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/platform"
	"github.com/meigma/img/core/internal/record"
	"github.com/meigma/img/core/internal/sizing"
)

// Replace overwrites the payload of the named entry in place.
//
// The payload is zero-padded to whole sectors and written at the entry's
// offset, then both size fields of its directory record are set to the new
// sector count. Replace fails with ErrNotFound or ErrOverflow before writing
// anything. The payload may use at most the sectors up to the next entry's
// offset (see Capacity); the last entry in the file may grow the file.
//
// The payload and the record are written separately. If Replace fails with
// ErrIO the file may hold the new payload with the old record; call Reload
// and verify before using the archive again.
func (a *Archive) Replace(name string, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, pos, ok := a.dir.Lookup(name)
	if !ok {
		return &fs.PathError{Op: "replace", Path: name, Err: ErrNotFound}
	}
	sectors, err := a.fit(pos, sizing.SectorsFor(int64(len(payload))))
	if err != nil {
		return &fs.PathError{Op: "replace", Path: name, Err: err}
	}

	release, err := a.acquire(true)
	if err != nil {
		return &fs.PathError{Op: "replace", Path: name, Err: imgtype.IOError(err)}
	}
	defer release()

	f, err := platform.OpenArchive(a.path, true)
	if err != nil {
		return &fs.PathError{Op: "replace", Path: name, Err: imgtype.IOError(err)}
	}

	if a.backupDir != "" {
		path, err := backupEntry(f, &e, a.backupDir)
		if err != nil {
			f.Close()
			return &fs.PathError{Op: "replace", Path: name, Err: err}
		}
		a.log().Info("backed up entry", "name", e.Name, "backup", path)
	}

	padded := make([]byte, sizing.ByteLength(uint32(sectors)))
	copy(padded, payload)
	if err := a.write(f, &e, padded, record.EncodeSizes(sectors)); err != nil {
		return &fs.PathError{Op: "replace", Path: name, Err: err}
	}

	a.dir.SetSizes(pos, sectors, sectors)
	a.log().Info("replaced entry",
		"name", e.Name,
		"offset", e.Offset,
		"old_sectors", e.StreamingSize,
		"new_sectors", sectors,
		"bytes", len(payload))
	return nil
}

// ReplaceFromFile replaces the named entry with the content of src.
func (a *Archive) ReplaceFromFile(name, src string) error {
	f, err := os.Open(src) //nolint:gosec // path is intentionally caller-provided
	if err != nil {
		return &fs.PathError{Op: "replace", Path: name, Err: imgtype.IOError(err)}
	}
	defer f.Close()

	// Anything larger than the record limit would overflow anyway.
	limit := uint64(sizing.ByteLength(sizing.MaxSectors)) //nolint:gosec // positive constant
	data, err := sizing.ReadAllWithLimit(f, limit, ErrOverflow)
	if err != nil {
		if err == ErrOverflow { //nolint:errorlint // sentinel returned unwrapped
			return &fs.PathError{Op: "replace", Path: name,
				Err: fmt.Errorf("%w: %s is larger than %d bytes", ErrOverflow, src, limit)}
		}
		return &fs.PathError{Op: "replace", Path: name, Err: imgtype.IOError(err)}
	}
	return a.Replace(name, data)
}

// fit checks that sectors can be stored at position pos and returns the
// count in record width.
func (a *Archive) fit(pos int, sectors uint64) (uint16, error) {
	n, err := sizing.ToUint16(sectors, ErrOverflow)
	if err != nil {
		return 0, fmt.Errorf("%w: %d sectors exceed the record limit of %d",
			ErrOverflow, sectors, sizing.MaxSectors)
	}
	if capacity, bounded := a.dir.Capacity(pos); bounded && sectors > uint64(capacity) {
		next, _ := a.dir.NextOffset(pos)
		return 0, fmt.Errorf("%w: needs %d sectors, %d available before the entry at sector %d",
			ErrOverflow, sectors, capacity, next)
	}
	return n, nil
}

// write stores payload at e's offset and sizes in e's record, then closes f.
func (a *Archive) write(f *os.File, e *Entry, payload, sizes []byte) error {
	if _, err := f.WriteAt(payload, e.ByteOffset()); err != nil {
		f.Close()
		return imgtype.IOError(fmt.Errorf("write payload: %w", err))
	}
	if _, err := f.WriteAt(sizes, e.RecordOffset()+record.SizesOffset); err != nil {
		f.Close()
		return imgtype.IOError(fmt.Errorf("write record: %w", err))
	}
	if a.sync {
		if err := platform.Datasync(f); err != nil {
			f.Close()
			return imgtype.IOError(fmt.Errorf("sync: %w", err))
		}
	}
	if err := f.Close(); err != nil {
		return imgtype.IOError(err)
	}
	return nil
}

// Backup snapshots the named entry's directory record and payload into dir
// and returns the snapshot path.
func (a *Archive) Backup(name, dir string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, _, ok := a.dir.Lookup(name)
	if !ok {
		return "", &fs.PathError{Op: "backup", Path: name, Err: ErrNotFound}
	}

	release, err := a.acquire(false)
	if err != nil {
		return "", &fs.PathError{Op: "backup", Path: name, Err: imgtype.IOError(err)}
	}
	defer release()

	f, err := platform.OpenArchive(a.path, false)
	if err != nil {
		return "", &fs.PathError{Op: "backup", Path: name, Err: imgtype.IOError(err)}
	}
	defer f.Close()

	path, err := backupEntry(f, &e, dir)
	if err != nil {
		return "", &fs.PathError{Op: "backup", Path: name, Err: err}
	}
	return path, nil
}

func backupEntry(f *os.File, e *Entry, dir string) (string, error) {
	rec := make([]byte, imgtype.RecordSize)
	if _, err := f.ReadAt(rec, e.RecordOffset()); err != nil {
		return "", imgtype.IOError(fmt.Errorf("read record: %w", err))
	}
	payload, err := readPayload(f, e)
	if err != nil {
		return "", err
	}
	path, err := backup.Write(dir, e, rec, payload)
	if err != nil {
		return "", imgtype.IOError(err)
	}
	return path, nil
}

// Restore writes a snapshot taken by Backup or Replace back into the
// archive: the original payload and the original size fields of the
// record. The snapshot must belong to the same record slot, name and offset.
//
// Restore applies the same overflow rule as Replace and has the same
// non-atomic write behavior.
func (a *Archive) Restore(backupPath string) error {
	s, err := backup.Read(backupPath)
	if err != nil {
		return &fs.PathError{Op: "restore", Path: backupPath, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pos := -1
	for i, e := range a.dir.All() {
		if e.Slot == s.Entry.Slot {
			pos = i
			break
		}
	}
	if pos < 0 {
		return &fs.PathError{Op: "restore", Path: s.Entry.Name,
			Err: fmt.Errorf("%w: no entry in record slot %d", ErrBackupMismatch, s.Entry.Slot)}
	}
	e := a.dir.At(pos)
	if !strings.EqualFold(e.Name, s.Entry.Name) || e.Offset != s.Entry.Offset {
		return &fs.PathError{Op: "restore", Path: s.Entry.Name,
			Err: fmt.Errorf("%w: slot %d holds %s at sector %d, backup has %s at sector %d",
				ErrBackupMismatch, s.Entry.Slot, e.Name, e.Offset, s.Entry.Name, s.Entry.Offset)}
	}
	if _, err := a.fit(pos, uint64(s.Entry.StreamingSize)); err != nil {
		return &fs.PathError{Op: "restore", Path: e.Name, Err: err}
	}

	release, err := a.acquire(true)
	if err != nil {
		return &fs.PathError{Op: "restore", Path: e.Name, Err: imgtype.IOError(err)}
	}
	defer release()

	f, err := platform.OpenArchive(a.path, true)
	if err != nil {
		return &fs.PathError{Op: "restore", Path: e.Name, Err: imgtype.IOError(err)}
	}
	sizes := s.Record[record.SizesOffset : record.SizesOffset+record.SizesLen]
	if err := a.write(f, &e, s.Payload, sizes); err != nil {
		return &fs.PathError{Op: "restore", Path: e.Name, Err: err}
	}

	a.dir.SetSizes(pos, s.Entry.StreamingSize, s.Entry.ArchiveSize)
	a.log().Info("restored entry", "name", e.Name, "backup", backupPath, "sectors", s.Entry.StreamingSize)
	return nil
}
