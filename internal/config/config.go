package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Client ClientConfig
	Log    LogConfig
}

type ServerConfig struct {
	// Addr is the listen address of the dashboard service.
	Addr string
	// DSN selects storage: postgres:// URLs open Postgres, anything else is
	// treated as a SQLite path.
	DSN string
	// CORSOrigins defaults to "*" for dev, matching the backend it replaces.
	CORSOrigins []string
}

type ClientConfig struct {
	// BaseURL is the dashboard service the watch client talks to.
	BaseURL string
	// WSURL is the live channel endpoint; derived from BaseURL when empty.
	WSURL string
	// Range is the default snapshot window: 24h, 7d, 30d or all.
	Range string
	// ReconnectDelay is the fixed pause between reconnect attempts.
	ReconnectDelay time.Duration
	// PrefsPath overrides the preference file location (tests, containers).
	PrefsPath string
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load reads configuration from the environment (JOBDECK_ prefix), with an
// optional .env file for development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("jobdeck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.dsn", "jobdeck.db")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.ws_url", "")
	v.SetDefault("client.range", "24h")
	v.SetDefault("client.reconnect_delay", "3s")
	v.SetDefault("client.prefs_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	cfg := &Config{
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			DSN:         v.GetString("server.dsn"),
			CORSOrigins: splitOrigins(v.GetString("server.cors_origins")),
		},
		Client: ClientConfig{
			BaseURL:        v.GetString("client.base_url"),
			WSURL:          v.GetString("client.ws_url"),
			Range:          v.GetString("client.range"),
			ReconnectDelay: v.GetDuration("client.reconnect_delay"),
			PrefsPath:      v.GetString("client.prefs_path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if cfg.Client.WSURL == "" {
		cfg.Client.WSURL = deriveWSURL(cfg.Client.BaseURL)
	}
	if cfg.Client.ReconnectDelay <= 0 {
		cfg.Client.ReconnectDelay = 3 * time.Second
	}
	return cfg, nil
}

func splitOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// deriveWSURL turns the REST base URL into the live channel URL.
func deriveWSURL(base string) string {
	ws := base
	switch {
	case strings.HasPrefix(base, "https://"):
		ws = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		ws = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimSuffix(ws, "/") + "/ws"
}
