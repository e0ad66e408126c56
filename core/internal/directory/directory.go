// Package directory parses and indexes the directory table of a VER2 archive.
//
// A Directory keeps entries in on-disk order and maintains a case-insensitive
// name index so lookups do not scan the table. Names are not required to be
// unique; the index always resolves to the first entry carrying a name.
package directory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/btree"

	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/record"
)

// nameKey maps a folded name to the position of its first entry.
type nameKey struct {
	folded string
	pos    int
}

// Directory is the parsed directory table of one archive.
type Directory struct {
	entries []imgtype.Entry
	byName  *btree.BTreeG[nameKey]
	offsets []uint32 // sorted, unique payload offsets of live entries
	count   uint32   // record count from the header, placeholders included
}

// Load reads the header and all directory records from r.
//
// size is the total size of the archive and bounds the declared record
// count; pass a negative size when it is unknown. Records whose name is
// empty are dropped. Load returns either a complete Directory or an error.
func Load(r io.Reader, size int64) (*Directory, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	header := make([]byte, imgtype.HeaderSize)
	if err := readFull(br, header); err != nil {
		return nil, err
	}
	count, err := record.DecodeHeader(header)
	if err != nil {
		return nil, err
	}
	if size >= 0 && imgtype.RecordOffset(int(count)) > size {
		return nil, fmt.Errorf("%w: %d records declared, file is %d bytes",
			imgtype.ErrTruncated, count, size)
	}

	entries := make([]imgtype.Entry, 0, min(count, 1<<16))
	buf := make([]byte, imgtype.RecordSize)
	for slot := range int(count) {
		if err := readFull(br, buf); err != nil {
			return nil, err
		}
		e, err := record.Decode(buf, slot)
		if err != nil {
			return nil, err
		}
		if e.Name == "" {
			continue
		}
		entries = append(entries, e)
	}
	return New(entries, count), nil
}

// New builds a Directory over entries, which must be in on-disk order.
// count is the number of records in the table, placeholders included.
func New(entries []imgtype.Entry, count uint32) *Directory {
	d := &Directory{
		entries: entries,
		byName: btree.NewBTreeG(func(a, b nameKey) bool {
			return a.folded < b.folded
		}),
		count: count,
	}
	for i := range d.entries {
		key := nameKey{folded: fold(d.entries[i].Name), pos: i}
		if _, ok := d.byName.Get(key); !ok {
			d.byName.Set(key)
		}
		d.offsets = append(d.offsets, d.entries[i].Offset)
	}
	slices.Sort(d.offsets)
	d.offsets = slices.Compact(d.offsets)
	return d
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return imgtype.ErrTruncated
		}
		return imgtype.IOError(err)
	}
	return nil
}

func fold(name string) string {
	return strings.ToLower(name)
}

// Len returns the number of live entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// RecordCount returns the number of records declared by the header.
func (d *Directory) RecordCount() uint32 {
	return d.count
}

// TableEnd returns the byte offset just past the last directory record.
func (d *Directory) TableEnd() int64 {
	return imgtype.RecordOffset(int(d.count))
}

// At returns the entry at position i.
func (d *Directory) At(i int) imgtype.Entry {
	return d.entries[i]
}

// Lookup returns the first entry whose name matches case-insensitively,
// along with its position.
func (d *Directory) Lookup(name string) (imgtype.Entry, int, bool) {
	key, ok := d.byName.Get(nameKey{folded: fold(name)})
	if !ok {
		return imgtype.Entry{}, -1, false
	}
	return d.entries[key.pos], key.pos, true
}

// Exists reports whether Lookup would succeed for name.
func (d *Directory) Exists(name string) bool {
	_, ok := d.byName.Get(nameKey{folded: fold(name)})
	return ok
}

// Names returns entry names in directory order.
func (d *Directory) Names() []string {
	names := make([]string, len(d.entries))
	for i := range d.entries {
		names[i] = d.entries[i].Name
	}
	return names
}

// All returns an iterator over positions and entries in directory order.
func (d *Directory) All() iter.Seq2[int, imgtype.Entry] {
	return func(yield func(int, imgtype.Entry) bool) {
		for i := range d.entries {
			if !yield(i, d.entries[i]) {
				return
			}
		}
	}
}

// IsFirst reports whether position i holds the first entry with its name.
func (d *Directory) IsFirst(i int) bool {
	_, pos, ok := d.Lookup(d.entries[i].Name)
	return ok && pos == i
}

// NextOffset returns the smallest payload offset greater than the offset of
// the entry at position i. ok is false when no entry follows it.
func (d *Directory) NextOffset(i int) (uint32, bool) {
	off := d.entries[i].Offset
	j := sort.Search(len(d.offsets), func(k int) bool { return d.offsets[k] > off })
	if j == len(d.offsets) {
		return 0, false
	}
	return d.offsets[j], true
}

// Capacity returns the number of sectors the entry at position i may occupy
// without reaching the next entry's payload. bounded is false when the entry
// is the last payload in the file.
func (d *Directory) Capacity(i int) (sectors uint32, bounded bool) {
	next, ok := d.NextOffset(i)
	if !ok {
		return 0, false
	}
	return next - d.entries[i].Offset, true
}

// SetSizes updates both size fields of the entry at position i.
func (d *Directory) SetSizes(i int, streaming, archive uint16) {
	d.entries[i].StreamingSize = streaming
	d.entries[i].ArchiveSize = archive
}

// Check reports layout problems: payloads that overlap the directory table,
// overlap another payload, or extend past fileSize. A negative fileSize
// skips the end-of-file check. The result is nil when the layout is sound.
func (d *Directory) Check(fileSize int64) error {
	var errs []error

	order := make([]int, len(d.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.entries[order[a]].Offset < d.entries[order[b]].Offset
	})

	tableEnd := d.TableEnd()
	var prevEnd int64
	prev := -1
	for _, i := range order {
		e := &d.entries[i]
		start, end := e.ByteOffset(), e.ByteOffset()+e.ByteLength()
		if e.StreamingSize > 0 && start < tableEnd {
			errs = append(errs, fmt.Errorf("%s: payload at byte %d overlaps directory table ending at %d",
				e.Name, start, tableEnd))
		}
		if prev >= 0 && e.StreamingSize > 0 && start < prevEnd {
			errs = append(errs, fmt.Errorf("%s: payload overlaps %s", e.Name, d.entries[prev].Name))
		}
		if fileSize >= 0 && end > fileSize {
			errs = append(errs, fmt.Errorf("%s: payload ends at byte %d past end of file (%d)",
				e.Name, end, fileSize))
		}
		if end > prevEnd {
			prevEnd, prev = end, i
		}
	}
	return errors.Join(errs...)
}
