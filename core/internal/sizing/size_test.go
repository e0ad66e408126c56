package sizing

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("overflow")

func TestSectorsFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{SectorSize - 1, 1},
		{SectorSize, 1},
		{SectorSize + 1, 2},
		{3 * SectorSize, 3},
		{3*SectorSize + 1, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SectorsFor(tt.n), "n=%d", tt.n)
	}
}

func TestByteConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), ByteOffset(0))
	assert.Equal(t, int64(4096), ByteOffset(2))
	assert.Equal(t, int64(2048)*0xFFFFFFFF, ByteOffset(0xFFFFFFFF))
	assert.Equal(t, int64(2048)*MaxSectors, ByteLength(MaxSectors))
}

func TestToUint16(t *testing.T) {
	t.Parallel()

	v, err := ToUint16(MaxSectors, errTest)
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxSectors), v)

	_, err = ToUint16(MaxSectors+1, errTest)
	require.ErrorIs(t, err, errTest)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("abcd")), 4, errTest)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("abcde")), 4, errTest)
	require.ErrorIs(t, err, errTest)
}
