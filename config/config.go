// Package config loads process settings from the environment.
//
// An optional .env file in the working directory is loaded first; variables
// already set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by the rpcwrap commands.
type Config struct {
	Host           string   `env:"RPC_HOST,default=127.0.0.1"`
	Port           int      `env:"RPC_PORT,default=7080"`
	Path           string   `env:"RPC_PATH,default=/rpc"`
	MaxBody        int64    `env:"RPC_MAX_BODY,default=1048576"`
	LogLevel       string   `env:"RPC_LOG_LEVEL,default=info"`
	Gzip           bool     `env:"RPC_GZIP,default=true"`
	AllowedOrigins []string `env:"RPC_ALLOWED_ORIGINS"`
	Journal        string   `env:"RPC_JOURNAL,default=rpcwrap.log"`
}

// Load reads the files named (".env" when none are given), then decodes the
// environment into a Config. Missing files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: RPC_PORT %d out of range", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("config: RPC_PATH %q must start with /", c.Path)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: RPC_LOG_LEVEL: %w", err)
	}
	return l, nil
}
