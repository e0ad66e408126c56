package img

import (
	"bytes"
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/img/core/testutil"
)

func rwChunk(typ uint32, n int) []byte {
	b := bytes.Repeat([]byte{0xab}, n)
	binary.LittleEndian.PutUint32(b[0:4], typ)
	binary.LittleEndian.PutUint32(b[4:8], uint32(n-12)) //nolint:gosec // test sizes are small
	binary.LittleEndian.PutUint32(b[8:12], 0x1803ffff)
	return b
}

type skinFixture struct {
	gameDir string
	model   string
	texture string
	archive string
}

func newSkinFixture(t *testing.T, model, texture []byte) skinFixture {
	t.Helper()

	gameDir := filepath.Join(t.TempDir(), GamePackage)
	require.NoError(t, os.MkdirAll(filepath.Join(gameDir, TexdbDir), 0o750))
	image := testutil.BuildArchive(t, []testutil.TestEntry{
		testutil.Sectors("bmypol.dff", 1, 2, 1),
		testutil.Sectors("bmypol2.dff", 3, 1, 2),
	})
	archive := ArchivePath(gameDir)
	require.NoError(t, os.WriteFile(archive, image, 0o600))

	mods := t.TempDir()
	f := skinFixture{
		gameDir: gameDir,
		model:   filepath.Join(mods, "bmypol.dff"),
		texture: filepath.Join(mods, "bmypol.txd"),
		archive: archive,
	}
	require.NoError(t, os.WriteFile(f.model, model, 0o600))
	require.NoError(t, os.WriteFile(f.texture, texture, 0o600))
	return f
}

func (f skinFixture) request() SkinRequest {
	return SkinRequest{GameDir: f.gameDir, Name: "bmypol", Model: f.model, Texture: f.texture}
}

func TestInstallSkin(t *testing.T) {
	t.Parallel()

	model := rwChunk(0x10, 3000)
	texture := rwChunk(0x16, 500)
	f := newSkinFixture(t, model, texture)

	var stages []ProgressStage
	res, err := InstallSkin(context.Background(), f.request(),
		SkinWithProgress(func(ev ProgressEvent) { stages = append(stages, ev.Stage) }))
	require.NoError(t, err)

	assert.Equal(t, f.archive, res.Archive)
	assert.Equal(t, "bmypol.dff", res.Entry.Name)
	assert.Equal(t, uint16(2), res.Entry.StreamingSize)
	assert.Equal(t, filepath.Join(f.gameDir, TexdbDir, "bmypol.txd"), res.TexturePath)
	assert.Equal(t, []ProgressStage{StageVerifying, StageVerifying, StageReplacing, StageInstalling}, stages)

	a, err := Open(f.archive)
	require.NoError(t, err)
	data, err := a.ReadEntry("bmypol.dff")
	require.NoError(t, err)
	assert.Equal(t, model, data[:len(model)])

	got, err := os.ReadFile(res.TexturePath)
	require.NoError(t, err)
	assert.Equal(t, texture, got)

	// The neighbouring entry is untouched.
	other, err := a.ReadEntry("bmypol2.dff")
	require.NoError(t, err)
	assert.Equal(t, testutil.Payload(2, SectorSize), other)
}

func TestInstallSkin_RejectsWrongKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   []byte
		texture []byte
	}{
		{"texture as model", rwChunk(0x16, 100), rwChunk(0x16, 100)},
		{"model as texture", rwChunk(0x10, 100), rwChunk(0x10, 100)},
		{"short model", rwChunk(0x10, 100)[:11], rwChunk(0x16, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newSkinFixture(t, tt.model, tt.texture)
			before, err := os.ReadFile(f.archive)
			require.NoError(t, err)

			_, err = InstallSkin(context.Background(), f.request())
			require.ErrorIs(t, err, ErrInvalidAsset)

			after, err := os.ReadFile(f.archive)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.NoFileExists(t, filepath.Join(f.gameDir, TexdbDir, "bmypol.txd"))
		})
	}
}

func TestInstallSkin_WithoutChecks(t *testing.T) {
	t.Parallel()

	f := newSkinFixture(t, []byte("raw model"), []byte("raw texture"))
	_, err := InstallSkin(context.Background(), f.request(), SkinWithChecks(false))
	require.NoError(t, err)
}

func TestInstallSkin_Overflow(t *testing.T) {
	t.Parallel()

	f := newSkinFixture(t, rwChunk(0x10, 2*SectorSize+1), rwChunk(0x16, 100))
	before, err := os.ReadFile(f.archive)
	require.NoError(t, err)

	_, err = InstallSkin(context.Background(), f.request())
	require.ErrorIs(t, err, ErrOverflow)

	after, err := os.ReadFile(f.archive)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, filepath.Join(f.gameDir, TexdbDir, "bmypol.txd"))
}

func TestInstallSkin_Errors(t *testing.T) {
	t.Parallel()

	f := newSkinFixture(t, rwChunk(0x10, 100), rwChunk(0x16, 100))

	for _, name := range []string{"", "..", "a/b", `a\b`, "averyveryverylongskinname"} {
		req := f.request()
		req.Name = name
		_, err := InstallSkin(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}

	req := f.request()
	req.Model = filepath.Join(t.TempDir(), "missing.dff")
	_, err := InstallSkin(context.Background(), req)
	require.ErrorIs(t, err, fs.ErrNotExist)

	req = f.request()
	req.Name = "unknown"
	_, err = InstallSkin(context.Background(), req)
	require.ErrorIs(t, err, ErrNotFound)

	req = f.request()
	req.GameDir = t.TempDir()
	_, err = InstallSkin(context.Background(), req)
	require.ErrorIs(t, err, ErrIO)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = InstallSkin(ctx, f.request())
	require.ErrorIs(t, err, context.Canceled)
}

func TestInstallSkin_Backup(t *testing.T) {
	t.Parallel()

	f := newSkinFixture(t, rwChunk(0x10, 100), rwChunk(0x16, 100))
	before, err := os.ReadFile(f.archive)
	require.NoError(t, err)

	backups := t.TempDir()
	_, err = InstallSkin(context.Background(), f.request(),
		SkinWithArchiveOptions(WithBackupDir(backups)))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(backups, "bmypol.dff.*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	a, err := Open(f.archive)
	require.NoError(t, err)
	require.NoError(t, a.Restore(matches[0]))

	after, err := os.ReadFile(f.archive)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
