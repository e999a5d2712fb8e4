// Package logsink owns the run's structured logger: a JSON-lines file plus an
// optional human-readable console stream. Open and Close bracket the run.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures Open.
type Options struct {
	// Path of the JSON log file, opened in append mode. Empty disables it.
	Path string
	// Level is a zap level name ("debug", "info", "warn", "error"); empty means info.
	Level string
	// Console also writes console-encoded lines to Stderr.
	Console bool
	// Stderr overrides os.Stderr for the console stream.
	Stderr io.Writer
}

// Sink holds the logger and the file behind it.
type Sink struct {
	logger *zap.Logger
	file   *os.File

	once     sync.Once
	closeErr error
}

// Open builds the logger. Parent directories of Path are created.
func Open(opt Options) (*Sink, error) {
	level := zapcore.InfoLevel
	if opt.Level != "" {
		l, err := zapcore.ParseLevel(opt.Level)
		if err != nil {
			return nil, fmt.Errorf("logsink: %w", err)
		}
		level = l
	}

	var (
		cores []zapcore.Core
		file  *os.File
	)
	if opt.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
			return nil, fmt.Errorf("logsink: create dir: %w", err)
		}
		f, err := os.OpenFile(opt.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logsink: open %s: %w", opt.Path, err)
		}
		file = f
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
	}
	if opt.Console {
		w := opt.Stderr
		if w == nil {
			w = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level))
	}

	var logger *zap.Logger
	if len(cores) == 0 {
		logger = zap.NewNop()
	} else {
		logger = zap.New(zapcore.NewTee(cores...))
	}
	return &Sink{logger: logger, file: file}, nil
}

// Logger returns the run logger.
func (s *Sink) Logger() *zap.Logger { return s.logger }

// Close flushes and closes the log file. Later calls return the first result.
func (s *Sink) Close() error {
	s.once.Do(func() {
		_ = s.logger.Sync()
		if s.file != nil {
			s.closeErr = s.file.Close()
		}
	})
	return s.closeErr
}
