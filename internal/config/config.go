package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Dify  DifyConfig  `toml:"dify"`
	DB    DBConfig    `toml:"db"`
	Trace TraceConfig `toml:"trace"`
}

type DifyConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

// Load reads the config file from the user config dir, if present, then
// applies environment overrides. A missing file is not an error; missing
// credentials are caught by Validate.
func Load() (*Config, error) {
	cfg := &Config{
		Dify: DifyConfig{
			TimeoutSeconds: 60,
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
	}

	path := configPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	if v := os.Getenv("DIFY_API_KEY"); v != "" {
		cfg.Dify.APIKey = v
	}
	if v := os.Getenv("DIFY_BASE_URL"); v != "" {
		cfg.Dify.BaseURL = v
	}
	if v := os.Getenv("DIFY_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dify.TimeoutSeconds = n
		}
	}

	return cfg, nil
}

// Validate reports configuration errors that must stop the process.
func (c *Config) Validate() error {
	if c.Dify.APIKey == "" {
		return errors.New("dify api key is not configured (set dify.api_key or DIFY_API_KEY)")
	}
	if c.Dify.TimeoutSeconds < 0 {
		return errors.New("dify timeout must not be negative")
	}
	return nil
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "scribe", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "scribe", "scribe.db")
}
