package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/icosphere/pkg/engine"
	"github.com/chazu/icosphere/pkg/sphere"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config holds the command line tool's settings. Values come from an
// optional TOML file and are then overridden by flags.
type Config struct {
	MaxLevel    int    `toml:"max_level"`   // deepest level the cache may build, negative means engine.DefaultMaxLevel
	Parallelism int    `toml:"parallelism"` // concurrent neighbor table builds, 0 means GOMAXPROCS
	LogLevel    string `toml:"log_level"`   // logrus level name, default "warning"
	LogFormat   string `toml:"log_format"`  // "text" or "json", default "text"
	Metrics     bool   `toml:"metrics"`     // print collected metrics to stderr on exit
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxLevel:  engine.DefaultMaxLevel,
		LogLevel:  "warning",
		LogFormat: "text",
	}
}

// OrDefault returns DefaultConfig if c is nil, otherwise normalizes c.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}
	switch {
	case c.MaxLevel < 0:
		c.MaxLevel = engine.DefaultMaxLevel
	case c.MaxLevel > sphere.MaxLevel:
		c.MaxLevel = sphere.MaxLevel
	}
	if c.Parallelism < 0 {
		c.Parallelism = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = "warning"
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return c
}

// LoadConfig reads a TOML file over the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.OrDefault(), nil
}

// NewLogger builds a logrus logger writing to w from the configured level
// and format.
func (c *Config) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	l := logrus.New()
	if w == nil {
		w = os.Stderr
	}
	l.SetOutput(w)
	l.SetLevel(level)
	switch c.LogFormat {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return l, nil
}

// CacheOptions translates the configuration into sphere options. A nil
// reg disables metrics.
func (c *Config) CacheOptions(l logrus.FieldLogger, reg prometheus.Registerer) []sphere.Option {
	opts := []sphere.Option{
		sphere.WithMaxLevel(c.MaxLevel),
		sphere.WithParallelism(c.Parallelism),
		sphere.WithLogger(l),
	}
	if reg != nil {
		opts = append(opts, sphere.WithMetrics(sphere.NewMetrics(reg)))
	}
	return opts
}
