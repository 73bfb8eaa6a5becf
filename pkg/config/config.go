package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of knobs of the refresh pipeline and its server.
type Config struct {
	Sources         []jurisdictions.Source `mapstructure:"sources"`
	RefreshInterval time.Duration          `mapstructure:"refresh_interval"`
	// Schedule is an optional cron spec; when set it replaces RefreshInterval as the trigger.
	Schedule     string        `mapstructure:"schedule"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries int           `mapstructure:"fetch_retries"`
	Concurrency  int           `mapstructure:"concurrency"`
	Proxy        string        `mapstructure:"proxy"`

	ListenAddr string  `mapstructure:"listen"`
	StaticDir  string  `mapstructure:"static_dir"`
	DBPath     string  `mapstructure:"db_path"`
	Username   string  `mapstructure:"username"`
	Password   string  `mapstructure:"password"`
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
}

func Default() Config {
	return Config{
		Sources:         jurisdictions.DefaultSources(),
		RefreshInterval: 6 * time.Hour,
		SnapshotPath:    "tax-data.json",
		FetchTimeout:    10 * time.Second,
		Concurrency:     5,
		ListenAddr:      ":8080",
		RateLimit:       10,
		RateBurst:       20,
	}
}

func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources configured", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source without id", ErrInvalid)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate source %s", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: source %s has bad url %q", ErrInvalid, s.ID, s.URL)
		}
	}
	if c.Schedule == "" && c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", ErrInvalid)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalid)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("%w: fetch retries must not be negative", ErrInvalid)
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("%w: snapshot path is empty", ErrInvalid)
	}
	return nil
}
