// Package observability builds the loggers shared by the battle engine, the
// controller and the binaries.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/monbattle/internal/config"
)

const serviceName = "monbattle"

// NewLogger builds the process logger for cfg. Every line carries the
// service name; battle and thread ids are added by callers.
//
// Precondition: cfg.Level is a zap level name and cfg.Format is "json" or "console".
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zapCfg.Level = level
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{"service": serviceName}
	// Dice audit lines repeat the same message every turn; sampling would
	// silently drop rolls from a replay.
	if level.Level() == zapcore.DebugLevel {
		zapCfg.Sampling = nil
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

// Component returns a child logger named for one engine component. A nil
// logger yields a no-op.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named(name)
}
