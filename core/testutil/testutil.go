// Package testutil builds VER2 archives for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/record"
)

const (
	sectorSize = 2048
	recordSize = 32
	headerSize = 8
)

// TestEntry describes one directory record and the payload stored at it.
//
// An entry with an empty Name is written as a zeroed placeholder record and
// has no payload.
type TestEntry struct {
	Name          string
	Offset        uint32 // sectors
	StreamingSize uint16 // sectors
	ArchiveSize   uint16 // sectors
	Payload       []byte // written at Offset, zero-padded to StreamingSize sectors
}

// Sectors returns a TestEntry with both sizes set to sectors and a
// deterministic payload filling them.
func Sectors(name string, offset uint32, sectors uint16, seed byte) TestEntry {
	return TestEntry{
		Name:          name,
		Offset:        offset,
		StreamingSize: sectors,
		ArchiveSize:   sectors,
		Payload:       Payload(seed, int(sectors)*sectorSize),
	}
}

// Payload returns n deterministic bytes derived from seed.
func Payload(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

// BuildArchive encodes entries as a complete archive image.
func BuildArchive(tb testing.TB, entries []TestEntry) []byte {
	tb.Helper()

	end := int64(headerSize + recordSize*len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		end = max(end, int64(e.Offset)*sectorSize+int64(e.StreamingSize)*sectorSize)
		end = max(end, int64(e.Offset)*sectorSize+int64(len(e.Payload)))
	}

	image := make([]byte, end)
	copy(image, record.EncodeHeader(uint32(len(entries)))) //nolint:gosec // test sizes are small

	for i, e := range entries {
		if e.Name == "" {
			continue
		}
		rec, err := record.Encode(&imgtype.Entry{
			Name:          e.Name,
			Offset:        e.Offset,
			StreamingSize: e.StreamingSize,
			ArchiveSize:   e.ArchiveSize,
		})
		require.NoError(tb, err, "encode %q", e.Name)
		copy(image[imgtype.RecordOffset(i):], rec)
	}
	// Payloads go in after the directory so an entry at sector 0 overwrites
	// header bytes exactly as it would on disk.
	for _, e := range entries {
		if e.Name == "" || len(e.Payload) == 0 {
			continue
		}
		copy(image[int64(e.Offset)*sectorSize:], e.Payload)
	}
	return image
}

// WriteArchive writes BuildArchive(entries) to a new file and returns its path.
func WriteArchive(tb testing.TB, entries []TestEntry) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "gta3.img")
	require.NoError(tb, os.WriteFile(path, BuildArchive(tb, entries), 0o600))
	return path
}

// ReadFile returns the content of path.
func ReadFile(tb testing.TB, path string) []byte {
	tb.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test helper
	require.NoError(tb, err)
	return data
}

// Region returns the bytes of sectors [offset, offset+n) of image, zero
// filled past its end.
func Region(image []byte, offset uint32, n uint16) []byte {
	out := make([]byte, int(n)*sectorSize)
	start := int64(offset) * sectorSize
	if start < int64(len(image)) {
		copy(out, image[start:])
	}
	return out
}

// RecordBytes returns the raw directory record at slot.
func RecordBytes(image []byte, slot int) []byte {
	start := headerSize + slot*recordSize
	return bytes.Clone(image[start : start+recordSize])
}
