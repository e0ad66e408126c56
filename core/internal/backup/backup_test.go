package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/img/core/internal/imgtype"
	"github.com/meigma/img/core/internal/record"
)

func snapshotFixture(t *testing.T) (*imgtype.Entry, []byte, []byte) {
	t.Helper()
	e := &imgtype.Entry{Name: "Andre.dff", Offset: 12, StreamingSize: 2, ArchiveSize: 0, Slot: 3}
	rec, err := record.Encode(e)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0xAB}, 2*imgtype.SectorSize)
	return e, rec, payload
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "backups")
	e, rec, payload := snapshotFixture(t)

	path, err := Write(dir, e, rec, payload)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "andre.dff."))
	assert.True(t, strings.HasSuffix(path, Ext))

	s, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, *e, s.Entry)
	assert.Equal(t, rec, s.Record)
	assert.Equal(t, payload, s.Payload)
	assert.Equal(t, digest.FromBytes(payload), s.Digest)

	// No temp files are left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	d := digest.FromString("x")
	name := FileName(`a/b\c.TXD`, d)
	assert.Equal(t, "a_b_c.txd."+d.Encoded()[:16]+Ext, name)
}

func TestRead_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, rec, payload := snapshotFixture(t)

	writeRaw := func(t *testing.T, name string, raw []byte) string {
		t.Helper()
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = enc.Write(raw)
		require.NoError(t, err)
		require.NoError(t, enc.Close())
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
		return path
	}

	var good bytes.Buffer
	require.NoError(t, encode(&good, e.Slot, rec, digest.FromBytes(payload), payload))
	raw := good.Bytes()

	tampered := bytes.Clone(raw)
	tampered[len(tampered)-1] ^= 0xFF

	badMagic := bytes.Clone(raw)
	copy(badMagic, "NOPE")

	tests := []struct {
		name string
		path string
	}{
		{"tampered payload", writeRaw(t, "tampered", tampered)},
		{"bad magic", writeRaw(t, "magic", badMagic)},
		{"short payload", writeRaw(t, "short", raw[:len(raw)-10])},
		{"truncated header", writeRaw(t, "header", raw[:10])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(tt.path)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}

	notZstd := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notZstd, raw, 0o600))
	_, err := Read(notZstd)
	require.Error(t, err)
}
