// Package file implements the file sink plugin.
// Records are appended to a size-rotated file; "-" writes to stdout instead.
package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/evelog/pkg/plugin"
)

const (
	defaultFilename = "eve.json"
	stdoutFilename  = "-"
)

// Config represents file sink configuration.
type Config struct {
	Filename   string `mapstructure:"filename"`     // optional, default eve.json
	Dir        string `mapstructure:"dir"`          // optional, prepended to relative filenames
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // optional, 0 uses the lumberjack default
	MaxBackups int    `mapstructure:"max_backups"`  // optional, 0 keeps all
	MaxAgeDays int    `mapstructure:"max_age_days"` // optional, 0 keeps all
	Compress   bool   `mapstructure:"compress"`     // optional, gzip rotated files
}

// Path returns the file the sink writes to.
func (c Config) Path() string {
	if c.Filename == stdoutFilename || filepath.IsAbs(c.Filename) || c.Dir == "" {
		return c.Filename
	}
	return filepath.Join(c.Dir, c.Filename)
}

// Sink appends records to a file.
type Sink struct {
	name   string
	config Config
	logger *lumberjack.Logger
	out    io.Writer

	writtenCount atomic.Uint64
}

// NewSink creates a new file sink.
func NewSink() plugin.Sink {
	return &Sink{name: "file"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration.
func (s *Sink) Init(config map[string]any) error {
	cfg := Config{Filename: defaultFilename}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	if cfg.Filename == "" {
		cfg.Filename = defaultFilename
	}
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits must not be negative")
	}
	s.config = cfg

	if cfg.Path() == stdoutFilename {
		s.out = os.Stdout
		return nil
	}
	s.logger = &lumberjack.Logger{
		Filename:   cfg.Path(),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	s.out = s.logger
	return nil
}

// Start opens the file so that an unwritable path fails at startup.
func (s *Sink) Start(ctx context.Context) error {
	if s.logger != nil {
		if dir := filepath.Dir(s.logger.Filename); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
		}
		if _, err := s.logger.Write(nil); err != nil {
			return fmt.Errorf("open %s: %w", s.logger.Filename, err)
		}
	}
	slog.Info("file sink started",
		"path", s.config.Path(),
		"max_size_mb", s.config.MaxSizeMB,
		"max_backups", s.config.MaxBackups,
	)
	return nil
}

// Stop closes the file.
func (s *Sink) Stop(ctx context.Context) error {
	if s.logger != nil {
		if err := s.logger.Close(); err != nil {
			slog.Error("error closing eve log file", "error", err)
			return err
		}
	}
	slog.Info("file sink stopped", "total_written", s.writtenCount.Load())
	return nil
}

// Write appends one record.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	if _, err := s.out.Write(record); err != nil {
		return err
	}
	s.writtenCount.Add(1)
	return nil
}

// Rotate closes the current file and starts a new one.
func (s *Sink) Rotate() error {
	if s.logger == nil {
		return nil
	}
	return s.logger.Rotate()
}
