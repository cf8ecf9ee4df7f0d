package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the
// environment, e.g. PIPESHELL_TOKEN_SECRET.
const EnvPrefix = "PIPESHELL"

// Settings is the resolved configuration.
type Settings struct {
	TokenSecret string       `mapstructure:"token_secret"`
	LogLevel    string       `mapstructure:"log_level"`
	LogFormat   string       `mapstructure:"log_format"`
	StageLogDir string       `mapstructure:"stage_log_dir"`
	HTTP        HTTPSettings `mapstructure:"http"`
}

type HTTPSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:  "warn",
		LogFormat: "text",
		HTTP: HTTPSettings{
			Timeout: 30 * time.Second,
			Retries: 2,
		},
	}
}

// defaultConfigPath is $XDG_CONFIG_HOME/pipeshell/config.yaml, or the
// platform equivalent.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pipeshell", "config.yaml")
}

// loadSettings layers defaults, the config file, PIPESHELL_* environment
// variables and explicitly set flags, in increasing priority.
func loadSettings(configFile string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("token_secret", defaults.TokenSecret)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("stage_log_dir", defaults.StageLogDir)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.retries", defaults.HTTP.Retries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"log_level":     "log-level",
		"log_format":    "log-format",
		"stage_log_dir": "stage-log-dir",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, err
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else if path := defaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Settings{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, err
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if settings.HTTP.Retries < 0 {
		return Settings{}, fmt.Errorf("http.retries must not be negative")
	}
	return settings, nil
}
