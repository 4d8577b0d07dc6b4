// Package config loads service settings from config.yaml, a .env file and
// the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

type Server struct {
	Addr            string        `mapstructure:"addr"`
	BasePath        string        `mapstructure:"base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level  string        `mapstructure:"level"`
	Dev    bool          `mapstructure:"dev"`
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type Users struct {
	File       string `mapstructure:"file"`
	Hasher     string `mapstructure:"hasher"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

type Auth struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

type Database struct {
	URL            string        `mapstructure:"url"`
	MaxConns       int           `mapstructure:"max_conns"`
	Timeout        time.Duration `mapstructure:"timeout"`
	TimeZone       string        `mapstructure:"timezone"`
	ClientEncoding string        `mapstructure:"client_encoding"`
}

type Scoring struct {
	DefaultTarget  int   `mapstructure:"default_target"`
	HistoryPeriods int   `mapstructure:"history_periods"`
	HistorySeed    int64 `mapstructure:"history_seed"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Log      Log      `mapstructure:"log"`
	Users    Users    `mapstructure:"users"`
	Auth     Auth     `mapstructure:"auth"`
	Database Database `mapstructure:"database"`
	Scoring  Scoring  `mapstructure:"scoring"`
}

// devTokenSecret signs tokens when no secret is configured; Load reports it
// through Config.InsecureSecret.
const devTokenSecret = "credit-dev-secret"

var defaults = map[string]any{
	"server.addr":              "0.0.0.0:8431",
	"server.base_path":         "/credit-api",
	"server.shutdown_timeout":  5 * time.Second,
	"log.level":                "info",
	"log.dev":                  false,
	"log.file":                 "",
	"log.max_age":              7 * 24 * time.Hour,
	"users.file":               "users.json",
	"users.hasher":             "sha256",
	"users.bcrypt_cost":        0,
	"auth.token_secret":        "",
	"auth.token_ttl":           8 * time.Hour,
	"database.url":             "",
	"database.max_conns":       5,
	"database.timeout":         5 * time.Second,
	"database.timezone":        "",
	"database.client_encoding": "",
	"scoring.default_target":   80,
	"scoring.history_periods":  12,
	"scoring.history_seed":     0,
}

// Load reads configuration. file may name a config file; when empty,
// config.yaml is looked up in ./configs and the working directory and is
// optional. Environment variables override file values with "." replaced
// by "_", e.g. AUTH_TOKEN_SECRET.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Users.Hasher {
	case "sha256", "bcrypt":
	default:
		return fmt.Errorf("users.hasher must be sha256 or bcrypt, got %q", c.Users.Hasher)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Scoring.DefaultTarget < 0 || c.Scoring.DefaultTarget > 100 {
		return fmt.Errorf("scoring.default_target must be within 0..100, got %d", c.Scoring.DefaultTarget)
	}
	if c.Scoring.HistoryPeriods < 0 {
		return fmt.Errorf("scoring.history_periods must not be negative")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

// InsecureSecret reports whether tokens are signed with the built-in
// development secret.
func (c *Config) InsecureSecret() bool { return c.Auth.TokenSecret == "" }

// TokenSecret is the configured signing secret, or the development one.
func (c *Config) TokenSecret() string {
	if c.Auth.TokenSecret == "" {
		return devTokenSecret
	}
	return c.Auth.TokenSecret
}

func (c *Config) Logger() utilities.Config {
	return utilities.Config{Level: c.Log.Level, Dev: c.Log.Dev, File: c.Log.File, MaxAge: c.Log.MaxAge}
}

func (c *Config) DB() database.Config {
	return database.Config{
		DSN:            c.Database.URL,
		MaxConns:       c.Database.MaxConns,
		Timeout:        c.Database.Timeout,
		TimeZone:       c.Database.TimeZone,
		ClientEncoding: c.Database.ClientEncoding,
	}
}
