// Package unixsock implements the unix_dgram and unix_stream sink plugins.
// A lost connection is re-established on the next write.
package unixsock

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"firestige.xyz/evelog/pkg/plugin"
)

const defaultSendTimeout = 100 * time.Millisecond

// Config represents unix socket sink configuration.
type Config struct {
	Filename    string        `mapstructure:"filename"`     // required, socket path
	SendTimeout time.Duration `mapstructure:"send_timeout"` // optional, default 100ms
}

// Sink writes records to a unix domain socket.
type Sink struct {
	name    string
	network string // "unixgram" or "unix"
	config  Config
	conn    net.Conn

	writtenCount   atomic.Uint64
	reconnectCount atomic.Uint64
}

// NewDgramSink creates a datagram socket sink.
func NewDgramSink() plugin.Sink {
	return &Sink{name: "unix_dgram", network: "unixgram"}
}

// NewStreamSink creates a stream socket sink.
func NewStreamSink() plugin.Sink {
	return &Sink{name: "unix_stream", network: "unix"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration.
func (s *Sink) Init(config map[string]any) error {
	cfg := Config{SendTimeout: defaultSendTimeout}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	if cfg.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	s.config = cfg
	return nil
}

// Start connects to the socket. A missing listener is not fatal; the
// connection is retried on every write until it succeeds.
func (s *Sink) Start(ctx context.Context) error {
	if err := s.connect(); err != nil {
		slog.Warn("unix socket not connected, will retry on write",
			"sink", s.name,
			"path", s.config.Filename,
			"error", err,
		)
	}
	slog.Info("unix socket sink started",
		"sink", s.name,
		"path", s.config.Filename,
		"send_timeout", s.config.SendTimeout,
	)
	return nil
}

// Stop closes the connection.
func (s *Sink) Stop(ctx context.Context) error {
	s.disconnect()
	slog.Info("unix socket sink stopped",
		"sink", s.name,
		"total_written", s.writtenCount.Load(),
		"reconnects", s.reconnectCount.Load(),
	)
	return nil
}

// Write sends one record. On failure the connection is dropped so the next
// write reconnects.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return err
		}
		s.reconnectCount.Add(1)
	}

	deadline := time.Now().Add(s.config.SendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.disconnect()
		return err
	}
	if _, err := s.conn.Write(record); err != nil {
		s.disconnect()
		return err
	}
	s.writtenCount.Add(1)
	return nil
}

func (s *Sink) connect() error {
	conn, err := net.DialTimeout(s.network, s.config.Filename, s.config.SendTimeout)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *Sink) disconnect() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
