// Package redis implements the redis sink plugin.
// Records are pushed onto a list or published on a channel.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"firestige.xyz/evelog/pkg/plugin"
)

const (
	defaultServer = "127.0.0.1"
	defaultPort   = 6379
	defaultKey    = "evelog"
	defaultMode   = "list"
)

// Mode selects the redis command used per record.
type Mode int

const (
	ModeLPush Mode = iota
	ModeRPush
	ModePublish
)

// ParseMode parses a configured mode; "list" is an alias of lpush and
// "channel" of publish.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "list", "lpush":
		return ModeLPush, nil
	case "rpush":
		return ModeRPush, nil
	case "channel", "publish":
		return ModePublish, nil
	default:
		return 0, fmt.Errorf("invalid redis mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeLPush:
		return "lpush"
	case ModeRPush:
		return "rpush"
	case ModePublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Config represents redis sink configuration.
type Config struct {
	Server       string        `mapstructure:"server"`        // optional, default 127.0.0.1
	Port         int           `mapstructure:"port"`          // optional, default 6379
	Password     string        `mapstructure:"password"`      // optional
	DB           int           `mapstructure:"db"`            // optional
	Mode         string        `mapstructure:"mode"`          // optional: list|lpush|rpush|channel|publish, default list
	Key          string        `mapstructure:"key"`           // optional, list key or channel, default evelog
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // optional, 0 uses the client default
}

// Addr returns the server address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Sink pushes records to redis.
type Sink struct {
	name   string
	config Config
	mode   Mode
	client *redis.Client

	writtenCount atomic.Uint64
	errorCount   atomic.Uint64
}

// NewSink creates a new redis sink.
func NewSink() plugin.Sink {
	return &Sink{name: "redis"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration.
func (s *Sink) Init(config map[string]any) error {
	cfg := Config{
		Server: defaultServer,
		Port:   defaultPort,
		Mode:   defaultMode,
		Key:    defaultKey,
	}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid redis port %d", cfg.Port)
	}
	if cfg.Key == "" {
		return fmt.Errorf("key must not be empty")
	}

	s.config = cfg
	s.mode = mode
	s.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		WriteTimeout: cfg.WriteTimeout,
	})
	return nil
}

// Start checks the connection. An unreachable server is logged and retried
// by the client on every write.
func (s *Sink) Start(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		slog.Warn("failed to connect to redis", "addr", s.config.Addr(), "error", err)
	}
	slog.Info("redis sink started",
		"addr", s.config.Addr(),
		"mode", s.mode.String(),
		"key", s.config.Key,
	)
	return nil
}

// Stop closes the client.
func (s *Sink) Stop(ctx context.Context) error {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
			return err
		}
	}
	slog.Info("redis sink stopped",
		"total_written", s.writtenCount.Load(),
		"total_errors", s.errorCount.Load(),
	)
	return nil
}

// Write sends one record with the configured command.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	var err error
	switch s.mode {
	case ModeLPush:
		err = s.client.LPush(ctx, s.config.Key, record).Err()
	case ModeRPush:
		err = s.client.RPush(ctx, s.config.Key, record).Err()
	case ModePublish:
		err = s.client.Publish(ctx, s.config.Key, record).Err()
	}
	if err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("redis %s failed: %w", s.mode, err)
	}
	s.writtenCount.Add(1)
	return nil
}
