// Package config reads settings of the evaluation core from YAML
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	SubstrateTimer       = "timer"
	SubstrateWaitingRoom = "waitingroom"
	SubstrateEventLoop   = "eventloop"
)

type Config struct {
	Cache    Cache    `yaml:"cache"`
	Debounce Debounce `yaml:"debounce"`
	Log      Log      `yaml:"log"`
}

type Cache struct {
	// Capacity is the maximum number of compiled functions kept
	Capacity int `yaml:"capacity"`
}

type Debounce struct {
	// RateLimit is the maximum number of executions per second
	RateLimit float64 `yaml:"rate_limit"`
	// Substrate is one of "timer", "waitingroom", "eventloop"
	Substrate string `yaml:"substrate"`
	// PollPeriod is the polling period of the waiting room, e.g. "10ms"
	PollPeriod string `yaml:"poll_period"`
}

type Log struct {
	Debug bool `yaml:"debug"`
	// Color is "auto", "always" or "never". Auto colors levels when stderr is a terminal
	Color string `yaml:"color"`
}

func Default() *Config {
	return &Config{
		Cache: Cache{
			Capacity: 256,
		},
		Debounce: Debounce{
			RateLimit:  10,
			Substrate:  SubstrateTimer,
			PollPeriod: "10ms",
		},
		Log: Log{
			Color: "auto",
		},
	}
}

// Load reads the file at path. Settings missing in the file keep default values
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses YAML content. The path is used only in error messages
func Parse(data []byte, path string) (*Config, error) {
	ret := Default()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

func (c *Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if !(c.Debounce.RateLimit > 0) {
		return fmt.Errorf("debounce.rate_limit must be positive, got %v", c.Debounce.RateLimit)
	}
	switch c.Debounce.Substrate {
	case SubstrateTimer, SubstrateWaitingRoom, SubstrateEventLoop:
	default:
		return fmt.Errorf("debounce.substrate: unknown substrate '%s'", c.Debounce.Substrate)
	}
	if _, err := c.Debounce.Poll(); err != nil {
		return err
	}
	switch c.Log.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("log.color: expected auto, always or never, got '%s'", c.Log.Color)
	}
	return nil
}

func (d Debounce) Poll() (time.Duration, error) {
	ret, err := time.ParseDuration(d.PollPeriod)
	if err != nil {
		return 0, fmt.Errorf("debounce.poll_period: %w", err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("debounce.poll_period must be positive, got %v", ret)
	}
	return ret, nil
}

func (l Log) colored() bool {
	switch l.Color {
	case "always":
		return true
	case "never":
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Build creates the runtime logger
func (l Log) Build() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("04:05.000")
	if l.colored() {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if l.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log.Sugar(), nil
}
