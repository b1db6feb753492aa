package main

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const debugLogName = "tally-debug.log"

// setupLogging builds the debug logger. Stdout belongs to the raw-mode
// prompt, so logs go to a file beside the counter file, and only when
// debug is enabled; otherwise a no-op logger is returned.
func setupLogging(enabled bool, counterPath string) (*zap.Logger, func(), error) {
	if !enabled {
		return zap.NewNop(), func() {}, nil
	}

	logPath := filepath.Join(filepath.Dir(counterPath), debugLogName)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}
