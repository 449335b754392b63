// Package observability provides structured logging and tracing setup.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/spellduel/internal/config"
)

// NewLogger creates a logger writing to stderr, so command output on stdout
// stays clean. Every entry carries a "component" field.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, component string) (*zap.Logger, error) {
	return newLogger(cfg, component, zapcore.Lock(os.Stderr))
}

func newLogger(cfg config.LoggingConfig, component string, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var (
		enc  zapcore.Encoder
		opts []zap.Option
	)
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
		opts = append(opts, zap.AddCaller())
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(ec)
		opts = append(opts, zap.AddCaller(), zap.Development())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level))
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	logger := zap.New(core, opts...)
	if component != "" {
		logger = logger.With(zap.String("component", component))
	}
	return logger, nil
}
