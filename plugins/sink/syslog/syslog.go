//go:build !windows && !plan9

// Package syslog implements the syslog sink plugin on top of the logrus
// syslog hook. Each record becomes one syslog message.
package syslog

import (
	"context"
	"fmt"
	"log/slog"
	lsyslog "log/syslog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	logrussyslog "github.com/sirupsen/logrus/hooks/syslog"

	"firestige.xyz/evelog/pkg/plugin"
)

const (
	defaultFacility = "local0"
	defaultLevel    = "info"
	defaultIdentity = "evelog"
)

var facilities = map[string]lsyslog.Priority{
	"kern":     lsyslog.LOG_KERN,
	"user":     lsyslog.LOG_USER,
	"mail":     lsyslog.LOG_MAIL,
	"daemon":   lsyslog.LOG_DAEMON,
	"auth":     lsyslog.LOG_AUTH,
	"syslog":   lsyslog.LOG_SYSLOG,
	"lpr":      lsyslog.LOG_LPR,
	"news":     lsyslog.LOG_NEWS,
	"uucp":     lsyslog.LOG_UUCP,
	"cron":     lsyslog.LOG_CRON,
	"authpriv": lsyslog.LOG_AUTHPRIV,
	"ftp":      lsyslog.LOG_FTP,
	"local0":   lsyslog.LOG_LOCAL0,
	"local1":   lsyslog.LOG_LOCAL1,
	"local2":   lsyslog.LOG_LOCAL2,
	"local3":   lsyslog.LOG_LOCAL3,
	"local4":   lsyslog.LOG_LOCAL4,
	"local5":   lsyslog.LOG_LOCAL5,
	"local6":   lsyslog.LOG_LOCAL6,
	"local7":   lsyslog.LOG_LOCAL7,
}

// Syslog severities mapped onto the logrus levels the hook understands.
// The hook has no notice, alert or emergency; they fold into info and crit.
var levels = map[string]logrus.Level{
	"emergency": logrus.PanicLevel,
	"alert":     logrus.PanicLevel,
	"critical":  logrus.PanicLevel,
	"error":     logrus.ErrorLevel,
	"warning":   logrus.WarnLevel,
	"warn":      logrus.WarnLevel,
	"notice":    logrus.InfoLevel,
	"info":      logrus.InfoLevel,
	"debug":     logrus.DebugLevel,
}

// Config represents syslog sink configuration.
type Config struct {
	Facility string `mapstructure:"facility"` // optional, default local0
	Level    string `mapstructure:"level"`    // optional, default info
	Identity string `mapstructure:"identity"` // optional, default evelog
	Network  string `mapstructure:"network"`  // optional, empty for the local daemon
	Address  string `mapstructure:"address"`  // optional, remote daemon address
}

// messageFormatter renders only the entry message, which already is a
// complete record.
type messageFormatter struct{}

func (messageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(entry.Message), nil
}

// Sink sends records to syslog.
type Sink struct {
	name     string
	config   Config
	facility lsyslog.Priority
	level    logrus.Level
	logger   *logrus.Logger
	hook     *logrussyslog.SyslogHook

	writtenCount atomic.Uint64
}

// NewSink creates a new syslog sink.
func NewSink() plugin.Sink {
	return &Sink{name: "syslog"}
}

// Name returns the plugin name.
func (s *Sink) Name() string {
	return s.name
}

// Init initializes the sink with configuration. An unknown facility falls
// back to local0 with a warning; an unknown level is an error.
func (s *Sink) Init(config map[string]any) error {
	cfg := Config{
		Facility: defaultFacility,
		Level:    defaultLevel,
		Identity: defaultIdentity,
	}
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}

	facility, ok := facilities[strings.ToLower(cfg.Facility)]
	if !ok {
		slog.Warn("invalid syslog facility, using default",
			"facility", cfg.Facility,
			"default", defaultFacility,
		)
		cfg.Facility = defaultFacility
		facility = lsyslog.LOG_LOCAL0
	}

	level, ok := levels[strings.ToLower(cfg.Level)]
	if !ok {
		return fmt.Errorf("invalid syslog level %q", cfg.Level)
	}
	if cfg.Address != "" && cfg.Network == "" {
		cfg.Network = "udp"
	}

	s.config = cfg
	s.facility = facility
	s.level = level

	s.logger = logrus.New()
	s.logger.SetFormatter(messageFormatter{})
	s.logger.SetLevel(logrus.TraceLevel)
	return nil
}

// Start connects to the syslog daemon.
func (s *Sink) Start(ctx context.Context) error {
	hook, err := logrussyslog.NewSyslogHook(s.config.Network, s.config.Address, s.facility|lsyslog.LOG_INFO, s.config.Identity)
	if err != nil {
		return fmt.Errorf("connect syslog: %w", err)
	}
	s.hook = hook

	slog.Info("syslog sink started",
		"facility", s.config.Facility,
		"level", s.config.Level,
		"identity", s.config.Identity,
		"address", s.config.Address,
	)
	return nil
}

// Stop closes the syslog connection.
func (s *Sink) Stop(ctx context.Context) error {
	if s.hook != nil {
		if err := s.hook.Writer.Close(); err != nil {
			slog.Error("error closing syslog writer", "error", err)
			return err
		}
	}
	slog.Info("syslog sink stopped", "total_written", s.writtenCount.Load())
	return nil
}

// Write sends one record as a syslog message.
func (s *Sink) Write(ctx context.Context, record []byte) error {
	entry := &logrus.Entry{
		Logger:  s.logger,
		Time:    time.Now(),
		Level:   s.level,
		Message: string(record),
		Data:    logrus.Fields{},
	}
	if err := s.hook.Fire(entry); err != nil {
		return err
	}
	s.writtenCount.Add(1)
	return nil
}
