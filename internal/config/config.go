package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned when the API credentials are missing or
// still hold the placeholder values from the sample configuration.
var ErrInvalidCredentials = errors.New("telegram API credentials are missing or invalid")

const (
	DefaultMessageDelay = 60
	DefaultGroupDelay   = 30
	DefaultLoopDelay    = 300
)

var placeholders = map[string]bool{
	"your_api_id":   true,
	"your_api_hash": true,
}

type Config struct {
	Telegram   TelegramConfig `yaml:"telegram"`
	SessionDir string         `yaml:"session_dir"`
	LogLevel   string         `yaml:"log_level"`
	Delays     Delays         `yaml:"delays"`
}

type TelegramConfig struct {
	APIID   int    `yaml:"api_id"`
	APIHash string `yaml:"api_hash"`
}

// UnmarshalYAML reads api_id as text so that a placeholder such as
// "your_api_id" is reported as bad credentials rather than a parse error.
func (t *TelegramConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		APIID   string `yaml:"api_id"`
		APIHash string `yaml:"api_hash"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	t.APIHash = raw.APIHash

	// A placeholder stays zero so API_ID can still supply the value.
	id := strings.TrimSpace(raw.APIID)
	if id == "" || placeholders[id] {
		return nil
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("api_id %q: %w", id, ErrInvalidCredentials)
	}
	t.APIID = n
	return nil
}

// Delays are the default pauses in whole seconds.
type Delays struct {
	Message int `yaml:"message"`
	Group   int `yaml:"group"`
	Loop    int `yaml:"loop"`
}

func (d Delays) MessageDuration() time.Duration { return time.Duration(d.Message) * time.Second }
func (d Delays) GroupDuration() time.Duration   { return time.Duration(d.Group) * time.Second }
func (d Delays) LoopDuration() time.Duration    { return time.Duration(d.Loop) * time.Second }

func Dir() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		cfgDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(cfgDir, "groupcast")
}

// Load reads the optional YAML file at path, applies .env and environment
// overrides, fills defaults and validates the credentials. A missing file is
// not an error; credentials may come from the environment alone.
func Load(path string) (*Config, error) {
	cfg := Config{
		Delays: Delays{
			Message: DefaultMessageDelay,
			Group:   DefaultGroupDelay,
			Loop:    DefaultLoopDelay,
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(Dir(), "sessions")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.SessionDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("API_ID")); v != "" {
		if placeholders[v] {
			return fmt.Errorf("API_ID: %w", ErrInvalidCredentials)
		}
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_ID %q: %w", v, ErrInvalidCredentials)
		}
		c.Telegram.APIID = id
	}
	if v := strings.TrimSpace(os.Getenv("API_HASH")); v != "" {
		c.Telegram.APIHash = v
	}
	if v := os.Getenv("GROUPCAST_SESSION_DIR"); v != "" {
		c.SessionDir = v
	}
	if v := os.Getenv("GROUPCAST_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate fails closed on missing or placeholder credentials and on
// negative delays.
func (c *Config) Validate() error {
	if c.Telegram.APIID <= 0 {
		return fmt.Errorf("api_id: %w", ErrInvalidCredentials)
	}
	if c.Telegram.APIHash == "" || placeholders[c.Telegram.APIHash] {
		return fmt.Errorf("api_hash: %w", ErrInvalidCredentials)
	}
	if c.Delays.Message < 0 || c.Delays.Group < 0 || c.Delays.Loop < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}
