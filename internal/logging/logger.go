// Package logging builds the process-wide zap logger. The TUI owns the
// terminal, so logs go to a file under the user cache directory; when even
// that is impossible the logger degrades to a nop rather than failing
// startup.
package logging

import (
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"forgedeck/internal/config"
)

const logFile = "forgedeck.log"

// New returns a file-backed logger plus its flush function. debug widens
// the level from info to debug.
func New(debug bool) (*zap.Logger, func()) {
	dir, err := config.CacheDir()
	if err != nil {
		return zap.NewNop(), func() {}
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(dir, logFile)}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop(), func() {}
	}
	return log, func() { _ = log.Sync() }
}
