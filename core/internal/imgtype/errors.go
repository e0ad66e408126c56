package imgtype

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive operations.
var (
	// ErrFormat is returned when a file is not a VER2 archive.
	ErrFormat = errors.New("img: invalid archive format")

	// ErrBadMarker is returned when the header tag is not "VER2".
	ErrBadMarker = fmt.Errorf("%w: bad version marker", ErrFormat)

	// ErrTruncated is returned when the header or directory ends early.
	ErrTruncated = fmt.Errorf("%w: truncated directory", ErrFormat)

	// ErrNotFound is returned when no directory entry matches a name.
	ErrNotFound = errors.New("img: entry not found")

	// ErrOverflow is returned when a payload does not fit the sectors
	// available to its entry.
	ErrOverflow = errors.New("img: sector overflow")

	// ErrIO is returned, wrapped together with the cause, when a read,
	// write or seek against the archive or a destination fails.
	ErrIO = errors.New("img: i/o failure")

	// ErrNameTooLong is returned when a name does not fit the 24-byte field.
	ErrNameTooLong = errors.New("img: name too long")
)

// IOError wraps err so that it matches both ErrIO and err.
func IOError(err error) error {
	if err == nil || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
