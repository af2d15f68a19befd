package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
	Level  string
}

// Logging bundles the application logger and its adjustable level.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// NewLogging constructs logging dependencies. A provided logger is reused
// and only named; otherwise one is built for the configured level.
func NewLogging(cfg LoggingConfig) (Logging, error) {
	if cfg.Logger != nil {
		return Logging{
			Logger: cfg.Logger.Named("app"),
			Level:  zap.NewAtomicLevelAt(cfg.Logger.Level()),
		}, nil
	}
	logger, level, err := BuildLogger(cfg.Level)
	if err != nil {
		return Logging{}, err
	}
	return Logging{
		Logger: logger.Named("app"),
		Level:  level,
	}, nil
}

// NewLogger returns the logger from a Logging bundle.
func NewLogger(logging Logging) *zap.Logger {
	return logging.Logger
}

// BuildLogger returns a production logger at level. The debug level switches
// to the development encoder.
func BuildLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	parsed, err := parseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	cfg := zap.NewProductionConfig()
	if parsed == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	logger, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, cfg.Level, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}
