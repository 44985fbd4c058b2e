// Package config resolves runtime settings from a config file, environment
// variables, and built-in defaults, in that order of increasing precedence
// for env over file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Defaults applied when neither the config file nor the environment says
// otherwise.
const (
	DefaultBinary       = "tailscale"
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Second
)

// Config is the resolved runtime configuration.
type Config struct {
	// Binary is the daemon CLI to invoke. Can be an absolute path.
	Binary string

	// Dir holds meshctl's own files: the profile document and the state
	// cache.
	Dir string

	// PollInterval is how often the scheduler polls the daemon.
	PollInterval time.Duration

	// Timeout bounds each daemon command invocation.
	Timeout time.Duration
}

// Load reads .meshctl.yaml from the working directory or the config dir,
// then applies MESHCTL_* environment overrides. A missing config file is
// fine; defaults cover everything.
func Load() (*Config, error) {
	dir, err := defaultDir()
	if err != nil {
		return nil, err
	}

	viper.SetDefault("binary", DefaultBinary)
	viper.SetDefault("dir", dir)
	viper.SetDefault("poll-interval", DefaultPollInterval)
	viper.SetDefault("timeout", DefaultTimeout)

	viper.SetConfigName(".meshctl") // .yaml is implicit
	viper.SetEnvPrefix("MESHCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("./")
	viper.AddConfigPath(dir)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	c := &Config{
		Binary:       viper.GetString("binary"),
		Dir:          viper.GetString("dir"),
		PollInterval: viper.GetDuration("poll-interval"),
		Timeout:      viper.GetDuration("timeout"),
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c, nil
}

// ProfilesPath is the location of the profile document.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.Dir, "profiles.json")
}

// CachePath is the directory for the last-known-good state cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.Dir, "cache")
}

func defaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "meshctl"), nil
}
