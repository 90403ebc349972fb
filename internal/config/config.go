package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/carr-o-t/pollgate/internal/netinfo"
	"github.com/carr-o-t/pollgate/internal/scanloop"
)

// Config is read by viper from pollgate.yaml and POLLGATE_* environment
// variables.
type Config struct {
	LogLevel  string        `mapstructure:"log_level"`
	Interface string        `mapstructure:"interface"`
	Scan      ScanConfig    `mapstructure:"scan"`
	Manager   ManagerConfig `mapstructure:"manager"`
	Serve     ServeConfig   `mapstructure:"serve"`
	Gates     []GateConfig  `mapstructure:"gates"`
}

type ScanConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

// ManagerConfig controls idle cleanup of per-key gates.
type ManagerConfig struct {
	GateTTL         time.Duration `mapstructure:"gate_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ServeConfig is the HTTP status endpoint; each client gets its own gate.
type ServeConfig struct {
	Addr     string        `mapstructure:"addr"`
	Interval time.Duration `mapstructure:"interval"`
}

type GateConfig struct {
	Name     string        `mapstructure:"name"`
	Interval time.Duration `mapstructure:"interval"`
	Mode     string        `mapstructure:"mode"`
}

// Load reads the config file at path, or pollgate.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("interface", netinfo.DefaultInterface)
	v.SetDefault("scan.tick", "10ms")
	v.SetDefault("manager.gate_ttl", "10m")
	v.SetDefault("manager.cleanup_interval", "1m")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.interval", "1s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pollgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("POLLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Scan.Tick <= 0 {
		return errors.New("scan.tick must be greater than 0")
	}
	if c.Manager.GateTTL <= 0 {
		return errors.New("manager.gate_ttl must be greater than 0")
	}
	if c.Manager.CleanupInterval <= 0 {
		return errors.New("manager.cleanup_interval must be greater than 0")
	}
	if c.Serve.Interval <= 0 {
		return errors.New("serve.interval must be greater than 0")
	}

	seen := make(map[string]struct{}, len(c.Gates))
	for i, g := range c.Gates {
		if g.Name == "" {
			return fmt.Errorf("gates[%d]: name is required", i)
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("gates[%d]: duplicate name %q", i, g.Name)
		}
		seen[g.Name] = struct{}{}
		if g.Interval <= 0 {
			return fmt.Errorf("gate %q: interval must be greater than 0", g.Name)
		}
		if _, err := scanloop.ParseMode(g.Mode); err != nil {
			return fmt.Errorf("gate %q: %w", g.Name, err)
		}
	}
	return nil
}

// GateSpecs converts the configured gates for the scan loop runner.
func (c *Config) GateSpecs() []scanloop.GateSpec {
	specs := make([]scanloop.GateSpec, 0, len(c.Gates))
	for _, g := range c.Gates {
		mode, _ := scanloop.ParseMode(g.Mode)
		specs = append(specs, scanloop.GateSpec{
			Name:     g.Name,
			Interval: g.Interval,
			Mode:     mode,
		})
	}
	return specs
}
