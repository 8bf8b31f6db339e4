// Package kafka implements the Kafka sink plugin.
// Each record is produced as one message, optionally compressed. Synchronous
// writes flush every message at once; async mode batches in the background
// and reports failed batches as drops.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/evelog/pkg/plugin"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
)

// Config represents Kafka sink configuration.
type Config struct {
	Brokers      []string      `mapstructure:"brokers"`       // required
	Topic        string        `mapstructure:"topic"`         // required
	Async        bool          `mapstructure:"async"`         // optional, default false
	BatchSize    int           `mapstructure:"batch_size"`    // optional, default 100, async only
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // optional, default 100ms, async only
	Compression  string        `mapstructure:"compression"`   // optional: none|gzip|snappy|lz4|zstd, default snappy
	MaxAttempts  int           `mapstructure:"max_attempts"`  // optional, default 3
}

// Sink produces records to a Kafka topic.
type Sink struct {
	name   string
	writer *kafka.Writer
	config Config

	onDrop func(n int)

	writtenCount atomic.Uint64
	errorCount   atomic.Uint64
}

// NewSink creates a new Kafka sink.
func NewSink() plugin.Sink {
	return &Sink{name: "kafka"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration.
func (s *Sink) Init(config map[string]any) error {
	if config == nil {
		return fmt.Errorf("kafka sink requires configuration")
	}

	cfg := Config{
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
	}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}

	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("brokers is required")
	}
	for i, b := range cfg.Brokers {
		if _, _, err := net.SplitHostPort(b); err != nil {
			return fmt.Errorf("invalid broker at index %d: %w", i, err)
		}
	}
	if cfg.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if cfg.BatchSize <= 0 || cfg.MaxAttempts <= 0 || cfg.BatchTimeout <= 0 {
		return fmt.Errorf("batch_size, batch_timeout and max_attempts must be positive")
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Async:        cfg.Async,
	}
	if !cfg.Async {
		// A synchronous write carries one message; a larger batch would
		// only wait out BatchTimeout.
		writerConfig.BatchSize = 1
	}

	switch cfg.Compression {
	case "none", "":
		writerConfig.CompressionCodec = nil
	case "gzip":
		writerConfig.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		writerConfig.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		writerConfig.CompressionCodec = compress.Lz4.Codec()
	case "zstd":
		writerConfig.CompressionCodec = compress.Zstd.Codec()
	default:
		return fmt.Errorf("invalid compression type: %s", cfg.Compression)
	}

	s.config = cfg
	s.writer = kafka.NewWriter(writerConfig)
	if cfg.Async {
		s.writer.Completion = s.completion
	}
	return nil
}

// OnDrop registers the callback for messages lost in async mode.
func (s *Sink) OnDrop(fn func(n int)) {
	s.onDrop = fn
}

func (s *Sink) completion(messages []kafka.Message, err error) {
	if err == nil {
		s.writtenCount.Add(uint64(len(messages)))
		return
	}
	s.errorCount.Add(uint64(len(messages)))
	slog.Debug("kafka batch failed", "messages", len(messages), "error", err)
	if s.onDrop != nil {
		s.onDrop(len(messages))
	}
}

// Start starts the sink.
func (s *Sink) Start(ctx context.Context) error {
	slog.Info("kafka sink started",
		"brokers", s.config.Brokers,
		"topic", s.config.Topic,
		"async", s.config.Async,
		"batch_size", s.writer.BatchSize,
		"batch_timeout", s.config.BatchTimeout,
		"compression", s.config.Compression,
	)
	return nil
}

// Stop flushes pending messages and closes the writer.
func (s *Sink) Stop(ctx context.Context) error {
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			slog.Error("error closing kafka writer", "error", err)
			return err
		}
	}
	slog.Info("kafka sink stopped",
		"total_written", s.writtenCount.Load(),
		"total_errors", s.errorCount.Load(),
	)
	return nil
}

// Write produces one record. The record is copied since the caller reuses
// its buffer.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	msg := kafka.Message{
		Value: append([]byte(nil), record...),
		Time:  time.Now(),
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("kafka write failed: %w", err)
	}
	if !s.config.Async {
		s.writtenCount.Add(1)
	}
	return nil
}
