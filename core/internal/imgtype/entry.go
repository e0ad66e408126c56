// Package imgtype holds the types shared by the archive engine and its
// internal packages.
package imgtype

import "github.com/meigma/img/core/internal/sizing"

// Format constants for VER2 archives.
const (
	// Marker is the 4-byte ASCII tag at the start of every archive.
	Marker = "VER2"

	// HeaderSize is the size of the marker plus the entry count.
	HeaderSize = 8

	// RecordSize is the size of one directory record.
	RecordSize = 32

	// NameSize is the width of the NUL-padded name field.
	NameSize = 24

	// SectorSize is the allocation unit for offsets and sizes.
	SectorSize = sizing.SectorSize
)

// Entry describes one asset in the archive directory.
//
// Offset and both sizes are expressed in sectors.
type Entry struct {
	// Name is the asset name with trailing NUL bytes removed.
	Name string

	// Offset is the first sector of the payload, from the start of the file.
	Offset uint32

	// StreamingSize is the payload length in sectors. It is the amount
	// read on extract.
	StreamingSize uint16

	// ArchiveSize mirrors StreamingSize; the engine keeps both equal on
	// every write.
	ArchiveSize uint16

	// Slot is the index of the entry's record in the on-disk directory.
	Slot int
}

// ByteOffset returns the absolute byte offset of the payload.
func (e *Entry) ByteOffset() int64 {
	return sizing.ByteOffset(e.Offset)
}

// ByteLength returns the payload length in bytes, padding included.
func (e *Entry) ByteLength() int64 {
	return sizing.ByteLength(uint32(e.StreamingSize))
}

// RecordOffset returns the absolute byte offset of the entry's directory record.
func (e *Entry) RecordOffset() int64 {
	return RecordOffset(e.Slot)
}

// RecordOffset returns the byte offset of the directory record at slot.
func RecordOffset(slot int) int64 {
	return HeaderSize + int64(slot)*RecordSize
}
