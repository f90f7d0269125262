// Package logging builds the zap logger used by the commission calculator binaries.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/commission-calculator/internal/config"
	"github.com/iwvelando/commission-calculator/pkg/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a configured level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// New creates a zap logger based on configuration and CLI override.
func New(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder
	switch format {
	case "console":
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	sink, err := newSink(loggingConfig)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(zapLevel))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// newSink writes to stderr, or to a size-rotated file when OutputFile is set.
func newSink(loggingConfig config.LoggingConfig) (zapcore.WriteSyncer, error) {
	if loggingConfig.OutputFile == "" {
		return zapcore.Lock(os.Stderr), nil
	}

	if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	maxSize := loggingConfig.MaxSizeMB
	if maxSize <= 0 {
		maxSize = constants.DefaultLogMaxSizeMB
	}
	maxBackups := loggingConfig.MaxBackups
	if maxBackups <= 0 {
		maxBackups = constants.DefaultLogMaxBackups
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   loggingConfig.OutputFile,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}), nil
}
