// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/membuf"
	"firestige.xyz/evelog/internal/sink"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `evelog:` root key in YAML.
type GlobalConfig struct {
	SensorName string        `mapstructure:"sensor_name" yaml:"sensor_name"`
	EveLog     EveLogConfig  `mapstructure:"eve_log" yaml:"eve_log"`
	Replay     ReplayConfig  `mapstructure:"replay" yaml:"replay"`
	Metrics    MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log        LogConfig     `mapstructure:"log" yaml:"log"`
}

// ─── EVE Output ───

// EveLogConfig configures event serialization and the sink.
type EveLogConfig struct {
	Sink            string         `mapstructure:"sink" yaml:"sink"`     // file (regular) | syslog | unix_dgram | unix_stream | redis | kafka | nats
	Prefix          string         `mapstructure:"prefix" yaml:"prefix"` // written before every record
	SensorID        string         `mapstructure:"sensor_id" yaml:"sensor_id"`
	Metadata        bool           `mapstructure:"metadata" yaml:"metadata"`
	CommunityID     bool           `mapstructure:"community_id" yaml:"community_id"`
	CommunityIDSeed string         `mapstructure:"community_id_seed" yaml:"community_id_seed"`
	PcapFile        bool           `mapstructure:"pcap_file" yaml:"pcap_file"` // add pcap_filename in offline mode
	BufferSize      int            `mapstructure:"buffer_size" yaml:"buffer_size"`
	Options         map[string]any `mapstructure:"options" yaml:"options"` // sink plugin options

	// Resolved by ValidateAndApplyDefaults.
	Kind      sink.Kind `mapstructure:"-" yaml:"-"`
	SensorIDN int64     `mapstructure:"-" yaml:"-"` // -1 when unset
	SeedN     uint16    `mapstructure:"-" yaml:"-"`
}

// ─── Offline Replay ───

// ReplayConfig configures offline capture replay.
type ReplayConfig struct {
	Workers         int                 `mapstructure:"workers" yaml:"workers"`
	FlowTimeout     time.Duration       `mapstructure:"flow_timeout" yaml:"flow_timeout"`
	LogPacket       bool                `mapstructure:"log_packet" yaml:"log_packet"`
	PacketMaxLength int                 `mapstructure:"packet_max_length" yaml:"packet_max_length"` // 0 = whole packet
	PortLabels      map[string][]string `mapstructure:"port_labels" yaml:"port_labels"`             // port -> flow-bit names

	// Resolved by ValidateAndApplyDefaults.
	Labels map[uint16][]string `mapstructure:"-" yaml:"-"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `evelog: ...`.
type configRoot struct {
	Evelog GlobalConfig `mapstructure:"evelog"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"sink":              "evelog.eve_log.sink",
	"prefix":            "evelog.eve_log.prefix",
	"sensor-name":       "evelog.sensor_name",
	"sensor-id":         "evelog.eve_log.sensor_id",
	"community-id":      "evelog.eve_log.community_id",
	"community-id-seed": "evelog.eve_log.community_id_seed",
	"pcap-file":         "evelog.eve_log.pcap_file",
}

// Load loads configuration from path, which may be empty to run on defaults.
// Environment variables use the EVELOG_ prefix (e.g. EVELOG_EVE_LOG_SINK) and
// flags, when given, take precedence over both.
func Load(path string, flags *pflag.FlagSet) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `evelog.` key prefix maps to `EVELOG_` via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Evelog

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	// --no-metadata is the inverse of the metadata key.
	if flags.Changed("no-metadata") {
		off, err := flags.GetBool("no-metadata")
		if err != nil {
			return err
		}
		v.Set("evelog.eve_log.metadata", !off)
	}
	return nil
}

// setDefaults sets default values for configuration.
// All keys use "evelog." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("evelog.sensor_name", "")

	// EVE output defaults
	v.SetDefault("evelog.eve_log.sink", "file")
	v.SetDefault("evelog.eve_log.prefix", "")
	v.SetDefault("evelog.eve_log.sensor_id", "")
	v.SetDefault("evelog.eve_log.metadata", true)
	v.SetDefault("evelog.eve_log.community_id", false)
	v.SetDefault("evelog.eve_log.community_id_seed", "0")
	v.SetDefault("evelog.eve_log.pcap_file", false)
	v.SetDefault("evelog.eve_log.buffer_size", membuf.DefaultSize)

	// Replay defaults
	v.SetDefault("evelog.replay.workers", 1)
	v.SetDefault("evelog.replay.flow_timeout", "60s")
	v.SetDefault("evelog.replay.log_packet", false)
	v.SetDefault("evelog.replay.packet_max_length", 0)

	// Log defaults
	v.SetDefault("evelog.log.level", "info")
	v.SetDefault("evelog.log.format", "json")
	v.SetDefault("evelog.log.outputs.file.enabled", false)
	v.SetDefault("evelog.log.outputs.file.path", "/var/log/evelog/evelog.log")
	v.SetDefault("evelog.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("evelog.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("evelog.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("evelog.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("evelog.metrics.enabled", false)
	v.SetDefault("evelog.metrics.listen", ":9091")
	v.SetDefault("evelog.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and resolves the parsed
// fields. Every error wraps core.ErrConfigInvalid or core.ErrInvalidSinkKind.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	if err := cfg.EveLog.resolve(); err != nil {
		return err
	}

	// ── Redis events are tagged with the host name unless one is configured ──
	if cfg.SensorName == "" && cfg.EveLog.Kind == sink.KindRedis {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.SensorName = hostname
	}

	if err := cfg.Replay.resolve(); err != nil {
		return err
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// WritesStdout reports whether events are written to standard output, in
// which case nothing else may write there.
func (e *EveLogConfig) WritesStdout() bool {
	if e.Kind != sink.KindFile {
		return false
	}
	name, _ := e.Options["filename"].(string)
	return strings.TrimSpace(name) == "-"
}

func (e *EveLogConfig) resolve() error {
	kind, err := sink.ParseKind(e.Sink)
	if err != nil {
		return err
	}
	e.Kind = kind
	e.Sink = kind.String()

	e.SensorIDN = -1
	if s := strings.TrimSpace(e.SensorID); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid sensor_id %q", core.ErrConfigInvalid, e.SensorID)
		}
		e.SensorIDN = int64(id)
	}

	e.SeedN = 0
	if s := strings.TrimSpace(e.CommunityIDSeed); s != "" {
		seed, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: invalid community_id_seed %q (must be 0-65535)", core.ErrConfigInvalid, e.CommunityIDSeed)
		}
		e.SeedN = uint16(seed)
	}

	if e.BufferSize <= 0 {
		e.BufferSize = membuf.DefaultSize
	}
	return nil
}

func (r *ReplayConfig) resolve() error {
	if r.Workers <= 0 {
		return fmt.Errorf("%w: replay.workers must be positive", core.ErrConfigInvalid)
	}
	if r.FlowTimeout <= 0 {
		return fmt.Errorf("%w: replay.flow_timeout must be positive", core.ErrConfigInvalid)
	}
	if r.PacketMaxLength < 0 {
		return fmt.Errorf("%w: replay.packet_max_length must not be negative", core.ErrConfigInvalid)
	}

	r.Labels = make(map[uint16][]string, len(r.PortLabels))
	for port, names := range r.PortLabels {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: replay.port_labels: invalid port %q", core.ErrConfigInvalid, port)
		}
		for _, name := range names {
			if name == "" {
				return fmt.Errorf("%w: replay.port_labels: empty label for port %s", core.ErrConfigInvalid, port)
			}
		}
		r.Labels[uint16(p)] = names
	}
	return nil
}
