package img

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/img/core/testutil"
)

func recordSizes(t *testing.T, image []byte, slot int) (uint16, uint16) {
	t.Helper()
	rec := testutil.RecordBytes(image, slot)
	return binary.LittleEndian.Uint16(rec[4:6]), binary.LittleEndian.Uint16(rec[6:8])
}

func TestReplace_RoundTrip(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 2, 1),
		testutil.Sectors("b.txd", 3, 1, 2),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "a.dff")
	require.NoError(t, a.Extract("a.dff", out))
	require.NoError(t, a.ReplaceFromFile("a.dff", out))

	assert.Equal(t, before, testutil.ReadFile(t, path))
}

func TestReplace_Idempotent(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 3, 1),
		testutil.Sectors("b.txd", 4, 1, 2),
	})
	a, err := Open(path)
	require.NoError(t, err)

	payload := testutil.Payload(42, SectorSize+100)
	require.NoError(t, a.Replace("a.dff", payload))
	once := testutil.ReadFile(t, path)
	require.NoError(t, a.Replace("A.DFF", payload))
	assert.Equal(t, once, testutil.ReadFile(t, path))
}

func TestReplace_SectorBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		sectors uint16
	}{
		{"empty", 0, 0},
		{"one byte", 1, 1},
		{"exact sector", SectorSize, 1},
		{"one byte over", SectorSize + 1, 2},
		{"exact multiple", 3 * SectorSize, 3},
		{"one byte over multiple", 3*SectorSize + 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := testutil.WriteArchive(t, []testutil.TestEntry{
				testutil.Sectors("a.dff", 1, 1, 1),
				testutil.Sectors("b.txd", 5, 1, 2),
			})
			a, err := Open(path)
			require.NoError(t, err)

			payload := testutil.Payload(7, tt.size)
			require.NoError(t, a.Replace("a.dff", payload))

			e, ok := a.Lookup("a.dff")
			require.True(t, ok)
			assert.Equal(t, tt.sectors, e.StreamingSize)
			assert.Equal(t, tt.sectors, e.ArchiveSize)

			image := testutil.ReadFile(t, path)
			streaming, archive := recordSizes(t, image, 0)
			assert.Equal(t, tt.sectors, streaming)
			assert.Equal(t, tt.sectors, archive)

			region := testutil.Region(image, 1, tt.sectors)
			assert.Equal(t, payload, region[:tt.size])
			assert.Equal(t, make([]byte, len(region)-tt.size), region[tt.size:])

			// The neighbour is untouched.
			assert.Equal(t, testutil.Payload(2, SectorSize), testutil.Region(image, 5, 1))
		})
	}
}

func TestReplace_Overflow(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		{Name: "a.dff", Offset: 0, StreamingSize: 1, ArchiveSize: 1},
		testutil.Sectors("b.txd", 1, 1, 2),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	err = a.Replace("a.dff", testutil.Payload(9, 2*SectorSize))
	require.ErrorIs(t, err, ErrOverflow)
	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "replace", pathErr.Op)

	assert.Equal(t, before, testutil.ReadFile(t, path))
	e, ok := a.Lookup("a.dff")
	require.True(t, ok)
	assert.Equal(t, uint16(1), e.StreamingSize)
}

func TestReplace_OverflowIgnoresDirectoryOrder(t *testing.T) {
	t.Parallel()

	// b is listed first but its payload follows a's.
	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("b.txd", 3, 1, 2),
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	require.ErrorIs(t, a.Replace("a.dff", testutil.Payload(1, 3*SectorSize)), ErrOverflow)
	assert.Equal(t, before, testutil.ReadFile(t, path))

	require.NoError(t, a.Replace("a.dff", testutil.Payload(1, 2*SectorSize)))
}

func TestReplace_RecordLimit(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	err = a.Replace("a.dff", make([]byte, (1<<16)*SectorSize))
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, testutil.ReadFile(t, path))
}

func TestReplace_LastEntryGrowsFile(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
		testutil.Sectors("last.txd", 2, 1, 2),
	})
	a, err := Open(path)
	require.NoError(t, err)

	payload := testutil.Payload(5, 3*SectorSize)
	require.NoError(t, a.Replace("last.txd", payload))

	image := testutil.ReadFile(t, path)
	assert.Len(t, image, 5*SectorSize)
	assert.Equal(t, payload, testutil.Region(image, 2, 3))
	require.NoError(t, a.Check())
}

func TestReplace_NotFound(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	err = a.Replace("missing.dff", []byte("data"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, testutil.ReadFile(t, path))
}

func TestReplace_PlaceholderSlots(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		{},
		testutil.Sectors("a.dff", 1, 1, 1),
		{},
		testutil.Sectors("b.txd", 2, 2, 2),
	})
	a, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, a.Replace("b.txd", []byte("x")))

	image := testutil.ReadFile(t, path)
	streaming, archive := recordSizes(t, image, 3)
	assert.Equal(t, uint16(1), streaming)
	assert.Equal(t, uint16(1), archive)

	// The placeholder records and the other entry's record are unchanged.
	assert.Equal(t, make([]byte, RecordSize), testutil.RecordBytes(image, 0))
	assert.Equal(t, make([]byte, RecordSize), testutil.RecordBytes(image, 2))
	streaming, _ = recordSizes(t, image, 1)
	assert.Equal(t, uint16(1), streaming)

	// A fresh parse agrees with memory.
	b, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, slicesOf(a), slicesOf(b))
}

func slicesOf(a *Archive) []Entry {
	var out []Entry
	for e := range a.Entries() {
		out = append(out, e)
	}
	return out
}

func TestReplace_WithSync(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	a, err := Open(path, WithSync(true))
	require.NoError(t, err)

	require.NoError(t, a.Replace("a.dff", []byte("synced")))
	data, err := a.ReadEntry("a.dff")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("synced")))
}

func TestReplaceFromFile_MissingSource(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	a, err := Open(path)
	require.NoError(t, err)

	err = a.ReplaceFromFile("a.dff", filepath.Join(t.TempDir(), "nope.dff"))
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestBackupAndRestore(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		{
			Name:          "a.dff",
			Offset:        1,
			StreamingSize: 2,
			ArchiveSize:   3,
			Payload:       testutil.Payload(1, 2*SectorSize),
		},
		testutil.Sectors("b.txd", 4, 1, 2),
	})
	before := testutil.ReadFile(t, path)

	backups := t.TempDir()
	a, err := Open(path, WithBackupDir(backups))
	require.NoError(t, err)

	require.NoError(t, a.Replace("a.dff", []byte("replacement")))
	assert.NotEqual(t, before, testutil.ReadFile(t, path))

	matches, err := filepath.Glob(filepath.Join(backups, "a.dff.*.bak.zst"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.NoError(t, a.Restore(matches[0]))
	assert.Equal(t, before, testutil.ReadFile(t, path))

	e, ok := a.Lookup("a.dff")
	require.True(t, ok)
	assert.Equal(t, uint16(2), e.StreamingSize)
	assert.Equal(t, uint16(3), e.ArchiveSize)
}

func TestBackup_Explicit(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	before := testutil.ReadFile(t, path)

	a, err := Open(path)
	require.NoError(t, err)

	snap, err := a.Backup("A.DFF", filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	require.FileExists(t, snap)

	require.NoError(t, a.Replace("a.dff", []byte("changed")))
	require.NoError(t, a.Restore(snap))
	assert.Equal(t, before, testutil.ReadFile(t, path))

	_, err = a.Backup("missing.dff", t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_Mismatch(t *testing.T) {
	t.Parallel()

	first := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	second := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("other.dff", 1, 1, 2),
	})

	a, err := Open(first)
	require.NoError(t, err)
	snap, err := a.Backup("a.dff", t.TempDir())
	require.NoError(t, err)

	b, err := Open(second)
	require.NoError(t, err)
	before := testutil.ReadFile(t, second)

	require.ErrorIs(t, b.Restore(snap), ErrBackupMismatch)
	assert.Equal(t, before, testutil.ReadFile(t, second))
}

func TestRestore_Corrupt(t *testing.T) {
	t.Parallel()

	path := testutil.WriteArchive(t, []testutil.TestEntry{
		testutil.Sectors("a.dff", 1, 1, 1),
	})
	a, err := Open(path)
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "a.dff.bak.zst")
	require.NoError(t, os.WriteFile(bad, []byte("not a backup"), 0o600))
	require.ErrorIs(t, a.Restore(bad), ErrCorruptBackup)
}
