// Package config loads pgtyped settings from config files, .env files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration is read from and saved to.
var AppFs = afero.NewOsFs()

const (
	configName = ".pgtyped"
	envPrefix  = "PGTYPED"
)

// Keys understood in config files and as PGTYPED_* variables.
const (
	KeyDatabaseURL      = "database_url"
	KeyTransport        = "transport"
	KeyConnectTimeout   = "connect_timeout"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyMinServerVersion = "min_server_version"
	KeyOutputFormat     = "output_format"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL      string
	Transport        string
	ConnectTimeout   time.Duration
	LogLevel         string
	LogFormat        string
	MinServerVersion string
	OutputFormat     string

	// File is the config file that was read, empty when none was found.
	File string
}

// Loader reads configuration. The zero value is not usable; call NewLoader.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults applied.
func NewLoader() *Loader {
	v := viper.New()
	v.SetFs(AppFs)

	v.SetDefault(KeyTransport, "pgwire")
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "off")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyOutputFormat, "table")

	return &Loader{v: v}
}

// Viper exposes the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configuration from, lowest priority first: defaults, the config
// file, .env, .env.local, and the environment. An explicit file replaces the
// search of ".", $HOME and $HOME/.config/pgtyped.
func (l *Loader) Load(file string) (*Config, error) {
	if file != "" {
		l.v.SetConfigFile(file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}

		l.v.SetConfigName(configName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "pgtyped"))
	}

	l.v.SetEnvPrefix(envPrefix)
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadDotEnv(".env", false); err != nil {
		return nil, err
	}
	if err := loadDotEnv(".env.local", true); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:      l.v.GetString(KeyDatabaseURL),
		Transport:        l.v.GetString(KeyTransport),
		ConnectTimeout:   l.v.GetDuration(KeyConnectTimeout),
		LogLevel:         l.v.GetString(KeyLogLevel),
		LogFormat:        l.v.GetString(KeyLogFormat),
		MinServerVersion: l.v.GetString(KeyMinServerVersion),
		OutputFormat:     l.v.GetString(KeyOutputFormat),
		File:             l.v.ConfigFileUsed(),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Save writes cfg to $HOME/.config/pgtyped/.pgtyped.yaml and returns the path.
func (l *Loader) Save(cfg *Config) (string, error) {
	l.v.Set(KeyDatabaseURL, cfg.DatabaseURL)
	l.v.Set(KeyTransport, cfg.Transport)
	l.v.Set(KeyConnectTimeout, cfg.ConnectTimeout.String())
	l.v.Set(KeyLogLevel, cfg.LogLevel)
	l.v.Set(KeyLogFormat, cfg.LogFormat)
	l.v.Set(KeyMinServerVersion, cfg.MinServerVersion)
	l.v.Set(KeyOutputFormat, cfg.OutputFormat)

	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(home, ".config", "pgtyped")
	if err := AppFs.MkdirAll(configPath, 0755); err != nil {
		return "", err
	}

	configFile := filepath.Join(configPath, configName+".yaml")
	if err := l.v.WriteConfigAs(configFile); err != nil {
		return "", err
	}
	return configFile, nil
}

// loadDotEnv copies variables from a .env file into the process environment.
// Existing variables win unless override is set.
func loadDotEnv(name string, override bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if err != nil {
		// A missing file is normal.
		return nil
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists && !override {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
