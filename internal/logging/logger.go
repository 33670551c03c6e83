package logging

import (
	"fmt"

	"github.com/salmadev/dealer-chat/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package logging builds the zap loggers for both binaries. The server reads
// `logging.level` and `logging.format` (overridable via DEALER_CHAT_LOGGING_*
// env vars); the CLI maps its -verbose/-json-log flags onto the same setup.

func parseLevel(raw string) zapcore.Level {
	switch raw {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level, json bool) (*zap.Logger, error) {
	var logConfig zap.Config
	if json {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// InitLogger builds the server logger from the logging.* config keys
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	return build(parseLevel(cfg.GetString("logging.level")), cfg.GetString("logging.format") == "json")
}

// InitConsoleLogger builds a logger for the interactive CLI
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(level, jsonFormat)
}
