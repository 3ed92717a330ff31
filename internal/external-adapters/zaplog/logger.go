// Package zaplog implements the domain Logger on top of zap, one log file per engine.
package zaplog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ochairo/imgaudit/internal/domain/interfaces"
)

// Options controls where an engine log goes
type Options struct {
	Verbose bool // tee debug output to stderr
}

// Logger adapts a zap logger to interfaces.Logger
type Logger struct {
	zl   *zap.Logger
	file *os.File
	path string
}

// LogPath returns <logDir>/isafw_<engine>log
func LogPath(logDir, engine string) string {
	return filepath.Join(logDir, "isafw_"+engine+"log")
}

// New truncates the engine log file and returns a logger writing to it
//
//nolint:revive // unexported-return: returns concrete type so callers can Close it
func New(logDir, engine string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil { //nolint:gosec // log directory is shared with CI tooling
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := LogPath(logDir, engine)
	//nolint:gosec // G304: log path is derived from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "engine",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel),
	}
	if opts.Verbose {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zapcore.DebugLevel))
	}

	return &Logger{
		zl:   zap.New(zapcore.NewTee(cores...)).Named(engine),
		file: f,
		path: path,
	}, nil
}

// Path returns the log file location
func (l *Logger) Path() string { return l.path }

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interfaces.Field) { l.zl.Debug(msg, toZap(fields)...) }

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interfaces.Field) { l.zl.Info(msg, toZap(fields)...) }

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interfaces.Field) { l.zl.Warn(msg, toZap(fields)...) }

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interfaces.Field) { l.zl.Error(msg, toZap(fields)...) }

// Close flushes and closes the log file
func (l *Logger) Close() error {
	_ = l.zl.Sync() // stderr sync fails on terminals
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

func toZap(fields []interfaces.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
