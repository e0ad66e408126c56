package img

// ProgressEvent represents a progress update during extraction or skin
// installation.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Name is the entry or file currently being processed, if applicable.
	Name string

	// BytesDone is the number of bytes completed so far.
	BytesDone uint64

	// FilesDone is the number of files completed.
	FilesDone int

	// FilesTotal is the total number of files.
	// Zero indicates the total is unknown.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageExtracting indicates entries are being written out of the archive.
	StageExtracting ProgressStage = iota

	// StageVerifying indicates asset signatures are being checked.
	StageVerifying

	// StageReplacing indicates an entry is being replaced in the archive.
	StageReplacing

	// StageInstalling indicates a file is being copied next to the archive.
	StageInstalling
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageVerifying:
		return "verifying"
	case StageReplacing:
		return "replacing"
	case StageInstalling:
		return "installing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
