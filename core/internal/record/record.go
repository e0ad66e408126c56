// Package record encodes and decodes the fixed-width structures of a VER2
// archive: the 8-byte header and the 32-byte directory records.
//
// Record layout (little-endian):
//
//	0   4  offset in sectors
//	4   2  streaming size in sectors
//	6   2  archive size in sectors
//	8  24  ASCII name, NUL-padded
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meigma/img/core/internal/imgtype"
)

// SizesOffset is the position of the two size fields within a record.
const SizesOffset = 4

// SizesLen is the combined width of the streaming and archive size fields.
const SizesLen = 4

const nameOffset = 8

// DecodeHeader validates the archive header and returns the entry count.
func DecodeHeader(b []byte) (uint32, error) {
	if len(b) < imgtype.HeaderSize {
		return 0, imgtype.ErrTruncated
	}
	if marker := string(b[:4]); marker != imgtype.Marker {
		return 0, fmt.Errorf("%w: %q", imgtype.ErrBadMarker, marker)
	}
	return binary.LittleEndian.Uint32(b[4:8]), nil
}

// EncodeHeader returns the header for an archive with count records.
func EncodeHeader(count uint32) []byte {
	b := make([]byte, imgtype.HeaderSize)
	copy(b, imgtype.Marker)
	binary.LittleEndian.PutUint32(b[4:], count)
	return b
}

// Decode parses the record in b. Slot is stored on the returned entry as-is.
func Decode(b []byte, slot int) (imgtype.Entry, error) {
	if len(b) < imgtype.RecordSize {
		return imgtype.Entry{}, imgtype.ErrTruncated
	}
	return imgtype.Entry{
		Offset:        binary.LittleEndian.Uint32(b[0:4]),
		StreamingSize: binary.LittleEndian.Uint16(b[4:6]),
		ArchiveSize:   binary.LittleEndian.Uint16(b[6:8]),
		Name:          DecodeName(b[nameOffset:imgtype.RecordSize]),
		Slot:          slot,
	}, nil
}

// Encode returns the on-disk form of e. The name is re-padded with NUL bytes.
func Encode(e *imgtype.Entry) ([]byte, error) {
	name, err := EncodeName(e.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, imgtype.RecordSize)
	binary.LittleEndian.PutUint32(b[0:4], e.Offset)
	binary.LittleEndian.PutUint16(b[4:6], e.StreamingSize)
	binary.LittleEndian.PutUint16(b[6:8], e.ArchiveSize)
	copy(b[nameOffset:], name)
	return b, nil
}

// EncodeSizes returns the two size fields, both set to sectors.
func EncodeSizes(sectors uint16) []byte {
	b := make([]byte, SizesLen)
	binary.LittleEndian.PutUint16(b[0:2], sectors)
	binary.LittleEndian.PutUint16(b[2:4], sectors)
	return b
}

// DecodeName returns the name stored in a NUL-padded field. The name ends
// at the first NUL byte.
func DecodeName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// EncodeName pads name to exactly NameSize bytes.
func EncodeName(name string) ([]byte, error) {
	if len(name) > imgtype.NameSize {
		return nil, fmt.Errorf("%w: %q is %d bytes", imgtype.ErrNameTooLong, name, len(name))
	}
	if name == "" || bytes.IndexByte([]byte(name), 0) >= 0 {
		return nil, fmt.Errorf("img: invalid name %q", name)
	}
	b := make([]byte, imgtype.NameSize)
	copy(b, name)
	return b, nil
}
