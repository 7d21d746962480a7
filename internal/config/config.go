// Package config loads pgcored's configuration with viper, following
// the file-plus-environment-plus-defaults shape of
// hamzaKhattat-ara-production-system/internal/config.Load.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full process configuration (SPEC_FULL.md §2
// Configuration).
type Config struct {
	Listen     ListenConfig     `mapstructure:"listen"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ListenConfig controls the TCP accept address and optional TLS.
type ListenConfig struct {
	Address     string `mapstructure:"address"`
	TLSEnabled  bool   `mapstructure:"tls_enabled"`
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`
}

// AuthConfig selects the authentication backend (spec.md §4.2/§6) and
// carries the static credential table SCRAM needs.
type AuthConfig struct {
	Method      string            `mapstructure:"method"`
	Credentials map[string]string `mapstructure:"credentials"`
	KeytabFile  string            `mapstructure:"keytab_file"`
}

// SessionConfig bounds the connection-id/secret-key pool the
// Supervisor allocates from (spec.md §4.3).
type SessionConfig struct {
	MinConnID int32 `mapstructure:"min_conn_id"`
	MaxConnID int32 `mapstructure:"max_conn_id"`
}

// LoggingConfig mirrors internal/logging.Config, expressed in
// viper/mapstructure terms so it can come from file or environment.
type LoggingConfig struct {
	Level string          `mapstructure:"level"`
	Format string         `mapstructure:"format"`
	File  FileLogConfig   `mapstructure:"file"`
}

// FileLogConfig is the rotated-file sink, when enabled.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MonitoringConfig controls the /metrics HTTP endpoint.
type MonitoringConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// Load reads configFile (if non-empty), falling back to ./pgcored.yaml
// or /etc/pgcored/pgcored.yaml, then environment variables prefixed
// PGCORE_, then the defaults set below.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pgcored")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pgcored")
	}

	v.SetEnvPrefix("PGCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.address", "0.0.0.0:5432")
	v.SetDefault("listen.tls_enabled", false)

	v.SetDefault("auth.method", "cleartext")

	v.SetDefault("session.min_conn_id", 1)
	v.SetDefault("session.max_conn_id", 1<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 28)

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.metrics_address", "0.0.0.0:9100")
}

// Validate rejects configurations the rest of the engine can't run
// with.
func (c *Config) Validate() error {
	if c.Listen.Address == "" {
		return fmt.Errorf("listen.address is required")
	}
	switch c.Auth.Method {
	case "cleartext", "scram-sha-256", "gssapi":
	default:
		return fmt.Errorf("auth.method %q is not one of cleartext, scram-sha-256, gssapi", c.Auth.Method)
	}
	if c.Auth.Method == "gssapi" && c.Auth.KeytabFile == "" {
		return fmt.Errorf("auth.keytab_file is required when auth.method is gssapi")
	}
	if c.Session.MinConnID <= 0 || c.Session.MaxConnID <= c.Session.MinConnID {
		return fmt.Errorf("session.min_conn_id/max_conn_id must describe a non-empty positive range")
	}
	if c.Listen.TLSEnabled && (c.Listen.TLSCertFile == "" || c.Listen.TLSKeyFile == "") {
		return fmt.Errorf("listen.tls_cert_file and listen.tls_key_file are required when listen.tls_enabled")
	}
	return nil
}
