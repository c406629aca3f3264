package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Profile   ProfileConfig
	Assistant AssistantConfig
	Storage   StorageConfig
	Contact   ContactConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int `validate:"min=1,max=65535"`
	MaxConnections int `validate:"min=0"`
	AdminToken     string
}

type ProfileConfig struct {
	// Path to a YAML profile record. Empty uses the built-in record.
	Path string
}

type AssistantConfig struct {
	ReplyDelay time.Duration `validate:"min=0"`
	Greeting   string        `validate:"required"`
	Fallback   string        `validate:"required"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

type ContactConfig struct {
	// RateLimit is the number of submissions allowed per client per minute.
	// Zero disables limiting.
	RateLimit int `validate:"min=0"`
	// Retention is how long inbox entries are kept. Zero keeps them forever.
	Retention time.Duration `validate:"min=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           4000,
			MaxConnections: 256,
		},
		Assistant: AssistantConfig{
			ReplyDelay: 500 * time.Millisecond,
			Greeting:   "Hi! I'm Zakir's assistant. Ask me about his skills, education, or experience.",
			Fallback:   "I can tell you about Zakir's skills, experience, or education.",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Contact: ContactConfig{
			RateLimit: 5,
			Retention: 90 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/folio/config.json, then a .env file in the working
// directory, then FOLIO_* environment variables. Later layers win, and
// variables already set in the environment win over .env.
//
// The admin token is a secret and is only read from FOLIO_ADMIN_TOKEN.
func Load() (Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return Config{}, err
	}
	return loadWith(newFileBackend(configFilePath()))
}

func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "folio-data"
		}
	}
	return filepath.Join(dir, "folio")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "folio", "config.json")
}
