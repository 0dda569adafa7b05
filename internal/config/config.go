package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvServer    = "TRIAGE_SERVER"
	EnvExportDir = "TRIAGE_EXPORT_DIR"
	EnvS3Bucket  = "TRIAGE_S3_BUCKET"
)

// Config is the client configuration.
type Config struct {
	Server struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"server"`

	Game struct {
		RevealDelay time.Duration `yaml:"reveal_delay"`
	} `yaml:"game"`

	Export ExportConfig `yaml:"export"`

	Window struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"window"`
}

// ExportConfig selects where downloaded summaries go.
type ExportConfig struct {
	Dir string   `yaml:"dir"`
	S3  S3Config `yaml:"s3"`
}

// S3Config enables the S3 upload sink when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Enabled reports whether an S3 bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	cfg.Server.BaseURL = "http://127.0.0.1:5000"
	cfg.Server.Timeout = 10 * time.Second
	cfg.Game.RevealDelay = 600 * time.Millisecond
	cfg.Export.Dir = "./downloads"
	cfg.Export.S3.Prefix = "triage"
	cfg.Window.Width = 1280
	cfg.Window.Height = 800
	return cfg
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv(EnvExportDir); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.Export.S3.Bucket = v
	}
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q must be an http(s) url", c.Server.BaseURL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Game.RevealDelay < 0 {
		return fmt.Errorf("game.reveal_delay must not be negative, got %s", c.Game.RevealDelay)
	}
	if c.Export.Dir == "" {
		return errors.New("export.dir must be set")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	return nil
}
