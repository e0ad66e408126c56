package img

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for operation events.
// A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// WithAdvisoryLock makes every operation hold an advisory lock on
// "<archive>.lock": shared while reading, exclusive while writing.
// Only processes that use the same lock file are serialized.
func WithAdvisoryLock(enabled bool) Option {
	return func(a *Archive) {
		a.lock = enabled
	}
}

// WithSync flushes file data to stable storage before a write operation
// returns.
func WithSync(enabled bool) Option {
	return func(a *Archive) {
		a.sync = enabled
	}
}

// WithBackupDir makes Replace snapshot the entry's record and payload into
// dir before writing. Snapshots can be applied with Archive.Restore.
// An empty dir disables backups.
func WithBackupDir(dir string) Option {
	return func(a *Archive) {
		a.backupDir = dir
	}
}

// ExtractOption configures ExtractAll.
type ExtractOption func(*extractConfig)

// defaultExtractWorkers is used when no ExtractWithWorkers option is set.
const defaultExtractWorkers = 4

type extractConfig struct {
	workers   int
	overwrite bool
	progress  ProgressFunc
}

// ExtractWithWorkers sets the number of concurrent extractions.
// Values < 1 force serial processing.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = max(n, 1)
	}
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithProgress sets a callback invoked after each entry is written.
// The callback may be called from several goroutines at once.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}
