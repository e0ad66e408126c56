package img

import "log/slog"

// SkinOption configures InstallSkin.
type SkinOption func(*skinConfig)

type skinConfig struct {
	logger      *slog.Logger
	archiveOpts []Option
	checks      bool
	progress    ProgressFunc
}

// SkinWithLogger sets the logger for the installation and the archive it
// opens. A nil logger discards output.
func SkinWithLogger(l *slog.Logger) SkinOption {
	return func(c *skinConfig) {
		c.logger = l
	}
}

// SkinWithArchiveOptions passes options to the archive opened by
// InstallSkin, for example WithBackupDir or WithAdvisoryLock.
func SkinWithArchiveOptions(opts ...Option) SkinOption {
	return func(c *skinConfig) {
		c.archiveOpts = append(c.archiveOpts, opts...)
	}
}

// SkinWithChecks controls whether the model and texture files must carry
// the expected RenderWare chunk type. Checks are enabled by default.
func SkinWithChecks(enabled bool) SkinOption {
	return func(c *skinConfig) {
		c.checks = enabled
	}
}

// SkinWithProgress sets a callback invoked as each step starts.
func SkinWithProgress(fn ProgressFunc) SkinOption {
	return func(c *skinConfig) {
		c.progress = fn
	}
}
