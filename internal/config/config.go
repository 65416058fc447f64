// Package config loads construction-time options for a bishop Instance.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MatchOrder selects the tie-breaking policy used by the pattern index
// when more than one registered pattern matches a request.
type MatchOrder string

const (
	// MatchOrderDepth prefers the entry with the most non-meta keys,
	// breaking ties by earlier insertion.
	MatchOrderDepth MatchOrder = "depth"
	// MatchOrderInsertion prefers the entry inserted earliest.
	MatchOrderInsertion MatchOrder = "insertion"
)

// Config holds the options accepted at Instance construction time (spec §6).
type Config struct {
	MatchOrder           MatchOrder    `mapstructure:"match_order"`
	Timeout              time.Duration `mapstructure:"timeout"`
	Debug                bool          `mapstructure:"debug"`
	SlowPatternTimeout   time.Duration `mapstructure:"slow_pattern_timeout"`
	ForbidSameRouteNames bool          `mapstructure:"forbid_same_route_names"`
	TerminateOn          []string      `mapstructure:"terminate_on"`

	RegexCacheSize int `mapstructure:"regex_cache_size"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig holds logging-related configuration, adapted from pkg/logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultTerminateOn mirrors the source's default classifier name list:
// the closest Go analogues to ReferenceError/RangeError/SyntaxError/TypeError.
var DefaultTerminateOn = []string{
	"runtime.Error",
	"*runtime.TypeAssertionError",
}

// Load reads configuration from an optional YAML file plus environment
// variables (prefixed BISHOP_, nested keys joined with underscores),
// applying the same defaults-then-override order as LoadConfig in the
// teacher's internal/config package.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("bishop")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("match_order", string(MatchOrderDepth))
	v.SetDefault("timeout", "500ms")
	v.SetDefault("debug", false)
	v.SetDefault("slow_pattern_timeout", 0)
	v.SetDefault("forbid_same_route_names", false)
	v.SetDefault("terminate_on", DefaultTerminateOn)
	v.SetDefault("regex_cache_size", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.filename", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	switch c.MatchOrder {
	case MatchOrderDepth, MatchOrderInsertion:
	default:
		return fmt.Errorf("invalid match_order: %q", c.MatchOrder)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}

	if c.SlowPatternTimeout < 0 {
		return fmt.Errorf("slow_pattern_timeout must be >= 0, got %s", c.SlowPatternTimeout)
	}

	if c.RegexCacheSize <= 0 {
		return fmt.Errorf("regex_cache_size must be > 0, got %d", c.RegexCacheSize)
	}

	return nil
}

// Default returns a Config populated with the same defaults Load would
// apply to an empty file, for callers constructing an Instance in-process
// (e.g. tests) without a config file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
