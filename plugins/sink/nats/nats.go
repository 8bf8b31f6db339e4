// Package nats implements the NATS sink plugin.
// Each record is published as one message on a fixed subject.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"firestige.xyz/evelog/pkg/plugin"
)

const (
	defaultSubject        = "evelog"
	defaultConnectTimeout = 2 * time.Second
)

// Config represents NATS sink configuration.
type Config struct {
	URL            string        `mapstructure:"url"`             // optional, default nats://127.0.0.1:4222
	Subject        string        `mapstructure:"subject"`         // optional, default evelog
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // optional, default 2s
}

// Sink publishes records to NATS.
type Sink struct {
	name   string
	config Config
	nc     *nats.Conn

	writtenCount atomic.Uint64
	errorCount   atomic.Uint64
}

// NewSink creates a new NATS sink.
func NewSink() plugin.Sink {
	return &Sink{name: "nats"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration.
func (s *Sink) Init(config map[string]any) error {
	cfg := Config{
		URL:            nats.DefaultURL,
		Subject:        defaultSubject,
		ConnectTimeout: defaultConnectTimeout,
	}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	if cfg.Subject == "" {
		return fmt.Errorf("subject must not be empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	s.config = cfg
	return nil
}

// Start connects to the NATS server.
func (s *Sink) Start(ctx context.Context) error {
	nc, err := nats.Connect(s.config.URL,
		nats.Name("evelog"),
		nats.Timeout(s.config.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect nats %s: %w", s.config.URL, err)
	}
	s.nc = nc

	slog.Info("nats sink started", "url", s.config.URL, "subject", s.config.Subject)
	return nil
}

// Stop drains pending messages and closes the connection.
func (s *Sink) Stop(ctx context.Context) error {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			slog.Error("error draining nats connection", "error", err)
			s.nc.Close()
			return err
		}
	}
	slog.Info("nats sink stopped",
		"total_written", s.writtenCount.Load(),
		"total_errors", s.errorCount.Load(),
	)
	return nil
}

// Write publishes one record.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	if err := s.nc.Publish(s.config.Subject, record); err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("nats publish failed: %w", err)
	}
	s.writtenCount.Add(1)
	return nil
}
