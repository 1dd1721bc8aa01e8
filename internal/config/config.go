package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	APIBaseURL string `yaml:"api_base_url"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	// Timezone decides where an owner's day starts; empty means the host zone.
	Timezone string `yaml:"timezone"`

	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
}

type Storage struct {
	Mode   string      `yaml:"mode"`
	Local  LocalStore  `yaml:"local"`
	Remote RemoteStore `yaml:"remote"`
}

// LocalStore names the bbolt file and the two documents kept per owner.
type LocalStore struct {
	Path      string `yaml:"path"`
	HabitsKey string `yaml:"habits_key"`
	LogKey    string `yaml:"log_key"`
}

type RemoteStore struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	HabitsTable string `yaml:"habits_table"`
	LogTable    string `yaml:"log_table"`
}

type Auth struct {
	Enabled bool `yaml:"enabled"`
	// DefaultOwner is used for every request when auth is disabled.
	DefaultOwner string         `yaml:"default_owner"`
	HashKey      string         `yaml:"hash_key"`
	BlockKey     string         `yaml:"block_key"`
	Providers    []OIDCProvider `yaml:"providers"`

	// Client side. SessionToken is sent as-is; otherwise IDToken is traded
	// for a session with Provider.
	SessionToken string `yaml:"session_token"`
	Provider     string `yaml:"provider"`
	IDToken      string `yaml:"id_token"`
}

// OIDCProvider is an identity provider whose ID tokens the server accepts.
// The owner id is derived from the token's issuer and subject.
type OIDCProvider struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

func Default() Config {
	return Config{
		ListenAddr: ":8080",
		APIBaseURL: "http://localhost:8080",
		LogLevel:   "info",
		LogFormat:  "text",
		Storage: Storage{
			Mode: StorageLocal,
			Local: LocalStore{
				Path:      "habits.db",
				HabitsKey: "habit-tracker-habits",
				LogKey:    "habit-tracker-log",
			},
			Remote: RemoteStore{
				Driver:      "sqlite",
				DSN:         "habits.sqlite",
				HabitsTable: "habits",
				LogTable:    "habit_log",
			},
		},
		Auth: Auth{
			DefaultOwner: "default",
		},
	}
}

// Load reads the YAML file named by $HABITS_CONFIG (config.yaml by default)
// over the defaults, then applies environment overrides. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := getenv("HABITS_CONFIG", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getenv("HABITS_API_BASE", c.APIBaseURL)
	c.ListenAddr = getenv("HABITS_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getenv("HABITS_LOG_LEVEL", c.LogLevel)
	c.Storage.Mode = getenv("HABITS_STORAGE_MODE", c.Storage.Mode)
	c.Storage.Local.Path = getenv("HABITS_DB_PATH", c.Storage.Local.Path)
	c.Storage.Remote.Driver = getenv("HABITS_REMOTE_DRIVER", c.Storage.Remote.Driver)
	c.Storage.Remote.DSN = getenv("HABITS_REMOTE_DSN", c.Storage.Remote.DSN)
	c.Auth.DefaultOwner = getenv("HABITS_OWNER", c.Auth.DefaultOwner)
	c.Auth.SessionToken = getenv("HABITS_SESSION_TOKEN", c.Auth.SessionToken)
	c.Auth.IDToken = getenv("HABITS_ID_TOKEN", c.Auth.IDToken)
}

func (c *Config) Validate() error {
	c.Storage.Mode = strings.ToLower(c.Storage.Mode)
	switch c.Storage.Mode {
	case StorageLocal:
		if c.Storage.Local.HabitsKey == "" || c.Storage.Local.LogKey == "" {
			return fmt.Errorf("storage.local: habits_key and log_key are required")
		}
		if c.Storage.Local.HabitsKey == c.Storage.Local.LogKey {
			return fmt.Errorf("storage.local: habits_key and log_key must differ")
		}
	case StorageRemote:
		if c.Storage.Remote.HabitsTable == "" || c.Storage.Remote.LogTable == "" {
			return fmt.Errorf("storage.remote: habits_table and log_table are required")
		}
	default:
		return fmt.Errorf("unsupported storage mode %q", c.Storage.Mode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if !c.Auth.Enabled && c.Auth.DefaultOwner == "" {
		return fmt.Errorf("auth.default_owner is required when auth is disabled")
	}
	seen := make(map[string]bool, len(c.Auth.Providers))
	for i, p := range c.Auth.Providers {
		if p.ID == "" || p.IssuerURL == "" || p.ClientID == "" {
			return fmt.Errorf("auth.providers[%d]: id, issuer_url and client_id are required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("auth.providers: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Location resolves Timezone, falling back to the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
