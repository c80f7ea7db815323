// Package config loads hanreader's runtime configuration from a YAML
// file with command-line flag overrides, following the layering the
// rest of the example pack uses: defaults, then file, then flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the complete set of options enumerated in the
// specification's configuration table, plus transport and sink wiring.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	HDLC      HDLCConfig      `yaml:"hdlc"`
	Backoff   BackoffConfig   `yaml:"backoff"`
	Redis     RedisConfig     `yaml:"redis"`
}

// TransportConfig selects and configures the byte source.
type TransportConfig struct {
	Kind    string `yaml:"kind"`    // "tcp" or "serial"
	Addr    string `yaml:"addr"`    // host:port for tcp, device path for serial
	Framing string `yaml:"framing"` // "hdlc" or "moded"

	SerialBaudRate int `yaml:"serial_baud_rate"`
}

// HDLCConfig mirrors the HDLC Reader's immutable per-reader options.
type HDLCConfig struct {
	UseOctetStuffing bool `yaml:"use_octet_stuffing"`
	UseAbortSequence bool `yaml:"use_abort_sequence"`
}

// BackoffConfig mirrors the connection manager's back-off and
// circuit-breaker tuning.
type BackoffConfig struct {
	ConnectErrorMaxDelaySec           int `yaml:"connect_error_max_delay_sec"`
	ConnectionLostBackOffThresholdSec int `yaml:"connection_lost_back_off_threshold_sec"`
	ConnectionLostBackOffSleepSec     int `yaml:"connection_lost_back_off_sleep_sec"`
}

// RedisConfig configures the Redis sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Default returns the configuration with every documented default
// applied.
func Default() Config {
	return Config{
		Transport: TransportConfig{Kind: "serial", Framing: "moded", SerialBaudRate: 2400},
		HDLC:      HDLCConfig{UseOctetStuffing: false, UseAbortSequence: true},
		Backoff: BackoffConfig{
			ConnectErrorMaxDelaySec:           60,
			ConnectionLostBackOffThresholdSec: 5,
			ConnectionLostBackOffSleepSec:     5,
		},
		Redis: RedisConfig{Addr: "localhost:6379", DB: 0, Key: "meter"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies flag
// overrides from fs (already parsed by the caller).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyFlags(&cfg, fs)
	return cfg, nil
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	if v, err := fs.GetString("transport"); err == nil && fs.Changed("transport") {
		cfg.Transport.Kind = v
	}
	if v, err := fs.GetString("addr"); err == nil && fs.Changed("addr") {
		cfg.Transport.Addr = v
	}
	if v, err := fs.GetInt("baud"); err == nil && fs.Changed("baud") {
		cfg.Transport.SerialBaudRate = v
	}
	if v, err := fs.GetString("framing"); err == nil && fs.Changed("framing") {
		cfg.Transport.Framing = v
	}
	if v, err := fs.GetBool("octet-stuffing"); err == nil && fs.Changed("octet-stuffing") {
		cfg.HDLC.UseOctetStuffing = v
	}
	if v, err := fs.GetBool("abort-sequence"); err == nil && fs.Changed("abort-sequence") {
		cfg.HDLC.UseAbortSequence = v
	}
	if v, err := fs.GetString("redis-addr"); err == nil && fs.Changed("redis-addr") {
		cfg.Redis.Addr = v
	}
	if v, err := fs.GetString("redis-key"); err == nil && fs.Changed("redis-key") {
		cfg.Redis.Key = v
	}
}

// RegisterFlags adds the flags applyFlags reads to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("transport", "serial", "transport kind: tcp or serial")
	fs.String("addr", "", "tcp host:port or serial device path")
	fs.String("framing", "moded", "framing profile: hdlc or moded")
	fs.Int("baud", 2400, "serial baud rate")
	fs.Bool("octet-stuffing", false, "enable HDLC octet stuffing")
	fs.Bool("abort-sequence", true, "treat trailing 7D 7E as an HDLC abort")
	fs.String("redis-addr", "localhost:6379", "redis address")
	fs.String("redis-key", "meter", "redis hash key for published records")
}

// ConnectErrorMaxDelay returns the configured cap as a time.Duration.
func (c BackoffConfig) ConnectErrorMaxDelay() time.Duration {
	return time.Duration(c.ConnectErrorMaxDelaySec) * time.Second
}

// ConnectionLostThreshold returns the configured window as a
// time.Duration.
func (c BackoffConfig) ConnectionLostThreshold() time.Duration {
	return time.Duration(c.ConnectionLostBackOffThresholdSec) * time.Second
}

// ConnectionLostSleep returns the configured sleep as a time.Duration.
func (c BackoffConfig) ConnectionLostSleep() time.Duration {
	return time.Duration(c.ConnectionLostBackOffSleepSec) * time.Second
}
