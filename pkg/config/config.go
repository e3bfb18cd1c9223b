package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "SMBGYM"

type Config struct {
	Rollout RolloutConfig `mapstructure:"rollout" yaml:"rollout"`
	Smoke   SmokeConfig   `mapstructure:"smoke" yaml:"smoke"`
	Logging LogConfig     `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Source is the config file that was read, if any.
	Source string `mapstructure:"-" yaml:"-"`
}

type RolloutConfig struct {
	EnvID     string `mapstructure:"env_id" yaml:"env_id"`
	NumEnvs   int    `mapstructure:"num_envs" yaml:"num_envs"`
	Steps     int    `mapstructure:"steps" yaml:"steps"`
	LogEvery  int    `mapstructure:"log_every" yaml:"log_every"`
	Seed      int64  `mapstructure:"seed" yaml:"seed"`
	ActionSet string `mapstructure:"action_set" yaml:"action_set"`
	Sync      bool   `mapstructure:"sync" yaml:"sync"`
	StatsPath string `mapstructure:"stats_path" yaml:"stats_path"`
}

type SmokeConfig struct {
	EnvID     string   `mapstructure:"env_id" yaml:"env_id"`
	ActionSet string   `mapstructure:"action_set" yaml:"action_set"`
	Steps     int      `mapstructure:"steps" yaml:"steps"`
	NumEnvs   int      `mapstructure:"num_envs" yaml:"num_envs"`
	IDs       []string `mapstructure:"ids" yaml:"ids"`
	Strict    bool     `mapstructure:"strict" yaml:"strict"`
}

type LogConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

type MetricsConfig struct {
	// Addr serves /metrics and /healthz when set, e.g. ":9090".
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every key with its default value. Keys without a
// default are invisible to environment variable lookup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("rollout.env_id", "SuperMarioBros-v0")
	v.SetDefault("rollout.num_envs", 4)
	v.SetDefault("rollout.steps", 100)
	v.SetDefault("rollout.log_every", 20)
	v.SetDefault("rollout.seed", 0)
	v.SetDefault("rollout.action_set", "simple")
	v.SetDefault("rollout.sync", false)
	v.SetDefault("rollout.stats_path", "")

	v.SetDefault("smoke.env_id", "SuperMarioBros-v0")
	v.SetDefault("smoke.action_set", "simple")
	v.SetDefault("smoke.steps", 10)
	v.SetDefault("smoke.num_envs", 2)
	v.SetDefault("smoke.ids", []string{"SuperMarioBros-v0", "SuperMarioBros-1-1-v0", "SuperMarioBros2-v0"})
	v.SetDefault("smoke.strict", false)

	v.SetDefault("logging.verbose", false)
	v.SetDefault("metrics.addr", "")
}

// DefaultPaths are searched in order when no config file is given.
func DefaultPaths() []string {
	paths := []string{"smbgym.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".smbgym", "config.yaml"))
	}
	return paths
}

// Prepare wires defaults, the config file and SMBGYM_ environment variables
// into v. An explicit path must exist; default paths are optional.
func Prepare(v *viper.Viper, path string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		for _, candidate := range DefaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Decode unmarshals a prepared viper instance and validates the result.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the configuration from defaults, an optional file and
// the environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if err := Prepare(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Rollout.EnvID == "" {
		errs = append(errs, errors.New("rollout.env_id is empty"))
	}
	if c.Rollout.NumEnvs < 1 {
		errs = append(errs, fmt.Errorf("rollout.num_envs must be positive, got %d", c.Rollout.NumEnvs))
	}
	if c.Rollout.Steps < 0 {
		errs = append(errs, fmt.Errorf("rollout.steps must not be negative, got %d", c.Rollout.Steps))
	}
	if c.Rollout.LogEvery < 1 {
		errs = append(errs, fmt.Errorf("rollout.log_every must be positive, got %d", c.Rollout.LogEvery))
	}
	if c.Smoke.NumEnvs < 1 {
		errs = append(errs, fmt.Errorf("smoke.num_envs must be positive, got %d", c.Smoke.NumEnvs))
	}
	if c.Smoke.Steps < 0 {
		errs = append(errs, fmt.Errorf("smoke.steps must not be negative, got %d", c.Smoke.Steps))
	}
	return errors.Join(errs...)
}

// Dump writes cfg as YAML.
func Dump(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
