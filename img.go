package img

import imgcore "github.com/meigma/img/core"

// --- Re-exports from core ---

// Archive is an opened VER2 archive.
type Archive = imgcore.Archive

// Entry describes one asset in the archive directory.
type Entry = imgcore.Entry

// Option configures an Archive.
type Option = imgcore.Option

// ExtractOption configures Archive.ExtractAll.
type ExtractOption = imgcore.ExtractOption

// ExtractStats reports what Archive.ExtractAll did.
type ExtractStats = imgcore.ExtractStats

// Progress types re-exported from core.
type (
	// ProgressEvent represents a progress update during extraction or
	// skin installation.
	ProgressEvent = imgcore.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = imgcore.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// Implementations must be safe for concurrent calls.
	ProgressFunc = imgcore.ProgressFunc
)

// Progress stage constants.
const (
	StageExtracting = imgcore.StageExtracting
	StageVerifying  = imgcore.StageVerifying
	StageReplacing  = imgcore.StageReplacing
	StageInstalling = imgcore.StageInstalling
)

// Format constants.
const (
	SectorSize = imgcore.SectorSize
	NameSize   = imgcore.NameSize
)

// Archive options re-exported from core.
var (
	WithLogger           = imgcore.WithLogger
	WithAdvisoryLock     = imgcore.WithAdvisoryLock
	WithSync             = imgcore.WithSync
	WithBackupDir        = imgcore.WithBackupDir
	ExtractWithWorkers   = imgcore.ExtractWithWorkers
	ExtractWithOverwrite = imgcore.ExtractWithOverwrite
	ExtractWithProgress  = imgcore.ExtractWithProgress
)

// Name helpers re-exported from core.
var (
	EntryName = imgcore.EntryName
	ValidName = imgcore.ValidName
)

// Open parses the archive at path. See core.Open.
func Open(path string, opts ...Option) (*Archive, error) {
	return imgcore.Open(path, opts...)
}
