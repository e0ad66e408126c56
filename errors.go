package img

import (
	"errors"

	imgcore "github.com/meigma/img/core"
)

// Errors re-exported from core.
var (
	// ErrFormat is returned when a file is not a VER2 archive.
	ErrFormat = imgcore.ErrFormat

	// ErrBadMarker is returned when the header tag is not "VER2".
	ErrBadMarker = imgcore.ErrBadMarker

	// ErrTruncated is returned when the header or directory ends early.
	ErrTruncated = imgcore.ErrTruncated

	// ErrNotFound is returned when no entry matches a name.
	ErrNotFound = imgcore.ErrNotFound

	// ErrOverflow is returned when a payload does not fit the sectors
	// available to its entry.
	ErrOverflow = imgcore.ErrOverflow

	// ErrIO is returned together with the underlying error when a read or
	// write fails.
	ErrIO = imgcore.ErrIO

	// ErrCorruptBackup is returned when a backup snapshot cannot be decoded.
	ErrCorruptBackup = imgcore.ErrCorruptBackup

	// ErrBackupMismatch is returned when a snapshot does not belong to the
	// archive entry it is applied to.
	ErrBackupMismatch = imgcore.ErrBackupMismatch
)

var (
	// ErrSymlink is returned when a source file is a symbolic link.
	ErrSymlink = errors.New("img: source is a symlink")

	// ErrInvalidAsset is returned when a file does not carry the RenderWare
	// chunk type expected for its role.
	ErrInvalidAsset = errors.New("img: invalid asset")

	// ErrInvalidName is returned when a skin name is empty or is not a
	// plain file name.
	ErrInvalidName = errors.New("img: invalid skin name")

	// ErrGameDirNotFound is returned when none of the candidate game
	// directories exist.
	ErrGameDirNotFound = errors.New("img: game directory not found")
)
