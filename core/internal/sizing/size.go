// Package sizing provides sector arithmetic and overflow-checked conversions.
package sizing

import (
	"io"
	"math"
)

// SectorSize is the allocation unit of the archive, in bytes.
const SectorSize = 2048

// MaxSectors is the largest sector count a directory record can express.
const MaxSectors = math.MaxUint16

// ByteOffset converts a sector offset to an absolute byte offset.
func ByteOffset(sector uint32) int64 {
	return int64(sector) * SectorSize
}

// ByteLength converts a sector count to a length in bytes.
func ByteLength(sectors uint32) int64 {
	return int64(sectors) * SectorSize
}

// SectorsFor returns the number of whole sectors needed to hold n bytes.
// An exact multiple of SectorSize needs no extra sector.
func SectorsFor(n int64) uint64 {
	if n <= 0 {
		return 0
	}
	return uint64((n + SectorSize - 1) / SectorSize) //nolint:gosec // n > 0
}

// ToUint16 converts a sector count to the record width, returning
// overflowErr if it doesn't fit.
func ToUint16(sectors uint64, overflowErr error) (uint16, error) {
	if sectors > MaxSectors {
		return 0, overflowErr
	}
	return uint16(sectors), nil
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, overflowErr
	}
	return data, nil
}
