// Package logging builds the process logger. Packages log through zap.L(),
// which main replaces with the logger built here.
package logging

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a json logger for format "json" and a console logger for
// anything else, at the given level.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, eris.Wrapf(err, "logging: level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if strings.ToLower(strings.TrimSpace(format)) != "json" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "logging: build")
	}
	return logger, nil
}

// Install replaces the global logger and returns a func restoring it.
func Install(logger *zap.Logger) func() {
	return zap.ReplaceGlobals(logger)
}
