package img

import (
	"errors"

	"github.com/meigma/img/core/internal/backup"
	"github.com/meigma/img/core/internal/imgtype"
)

// Entry describes one asset in the archive directory.
type Entry = imgtype.Entry

// Format constants re-exported from internal/imgtype.
const (
	Marker     = imgtype.Marker
	HeaderSize = imgtype.HeaderSize
	RecordSize = imgtype.RecordSize
	NameSize   = imgtype.NameSize
	SectorSize = imgtype.SectorSize
)

// Sentinel errors re-exported from internal/imgtype.
var (
	// ErrFormat is returned when a file is not a VER2 archive.
	ErrFormat = imgtype.ErrFormat

	// ErrBadMarker is returned when the header tag is not "VER2".
	// It wraps ErrFormat.
	ErrBadMarker = imgtype.ErrBadMarker

	// ErrTruncated is returned when the header or directory ends early.
	// It wraps ErrFormat.
	ErrTruncated = imgtype.ErrTruncated

	// ErrNotFound is returned when no entry matches a name.
	ErrNotFound = imgtype.ErrNotFound

	// ErrOverflow is returned when a payload would not fit the sectors
	// available to its entry.
	ErrOverflow = imgtype.ErrOverflow

	// ErrIO is returned together with the underlying error when a read,
	// write or seek fails.
	ErrIO = imgtype.ErrIO

	// ErrNameTooLong is returned when a name does not fit the 24-byte field.
	ErrNameTooLong = imgtype.ErrNameTooLong

	// ErrCorruptBackup is returned when a backup snapshot cannot be decoded.
	ErrCorruptBackup = backup.ErrCorrupt

	// ErrBackupMismatch is returned when a snapshot does not belong to the
	// entry found in its record slot.
	ErrBackupMismatch = errors.New("img: backup does not match archive")
)
