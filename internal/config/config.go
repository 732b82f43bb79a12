// Package config loads sift settings from defaults, an optional YAML file and
// SIFT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/extract"
	"github.com/FranksOps/sift/internal/fingerprint"
	"github.com/FranksOps/sift/internal/scraper"
	"github.com/FranksOps/sift/internal/storage"
	"github.com/FranksOps/sift/pkg/httpclient"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SIFT_FETCH_CONCURRENCY.
const EnvPrefix = "SIFT"

// Config holds every runtime setting.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Site       SiteConfig                `mapstructure:"site"`
	Fetch      FetchConfig               `mapstructure:"fetch"`
	Extract    ExtractConfig             `mapstructure:"extract"`
	Archive    ArchiveConfig             `mapstructure:"archive"`
	Log        LogConfig                 `mapstructure:"log"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Categories map[string]CategoryConfig `mapstructure:"categories"`
	// CategoriesFile is a YAML category table merged over the built-in one.
	CategoriesFile string `mapstructure:"categories_file"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type FetchConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	// RPS caps requests per second across a search; zero disables limiting.
	RPS         float64  `mapstructure:"rps"`
	Burst       int      `mapstructure:"burst"`
	Jitter      float64  `mapstructure:"jitter"`
	Fingerprint string   `mapstructure:"fingerprint"`
	UserAgents  []string `mapstructure:"user_agents"`
	RandomUA    bool     `mapstructure:"random_ua"`
	Proxies     []string `mapstructure:"proxies"`
	ProxyFile   string   `mapstructure:"proxy_file"`
}

type ExtractConfig struct {
	Mode string `mapstructure:"mode"`
}

type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics on a separate listener; empty keeps it on the
	// main router only.
	Addr string `mapstructure:"addr"`
}

type CategoryConfig struct {
	Path  string `mapstructure:"path"`
	Pages int    `mapstructure:"pages"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("site.base_url", catalog.DefaultBaseURL)

	v.SetDefault("fetch.concurrency", scraper.DefaultConcurrency)
	v.SetDefault("fetch.timeout", httpclient.DefaultTimeout.String())
	v.SetDefault("fetch.max_redirects", httpclient.DefaultMaxRedirects)
	v.SetDefault("fetch.rps", 0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.jitter", 0)
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.random_ua", false)
	v.SetDefault("fetch.proxies", []string{})
	v.SetDefault("fetch.proxy_file", "")

	v.SetDefault("extract.mode", string(extract.ModePattern))

	v.SetDefault("archive.backend", storage.BackendNone)
	v.SetDefault("archive.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("categories_file", "")
}

// Load builds a Config. path names an optional YAML file; an empty path
// skips the file, a path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make every search fail.
func (c *Config) Validate() error {
	var errs []error

	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.RPS < 0 {
		errs = append(errs, fmt.Errorf("fetch.rps must not be negative, got %v", c.Fetch.RPS))
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("fetch.fingerprint: %w", err))
	}
	if _, err := extract.New(extract.Mode(c.Extract.Mode), c.Site.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("extract.mode: %w", err))
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("site.base_url must be an http(s) URL, got %q", c.Site.BaseURL))
	}

	switch strings.ToLower(c.Archive.Backend) {
	case "", storage.BackendNone:
	case storage.BackendSQLite, storage.BackendPostgres, storage.BackendJSON, storage.BackendCSV:
		if c.Archive.DSN == "" {
			errs = append(errs, fmt.Errorf("archive.dsn is required for backend %q", c.Archive.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.backend: %w: %q", storage.ErrUnknownBackend, c.Archive.Backend))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Table returns the built-in categories overlaid with categories_file and
// then the categories map.
func (c *Config) Table() (catalog.Table, error) {
	table := catalog.DefaultTable()

	if c.CategoriesFile != "" {
		fromFile, err := catalog.LoadTable(c.CategoriesFile)
		if err != nil {
			return nil, err
		}
		table = table.Merge(fromFile)
	}

	inline := make(catalog.Table, len(c.Categories))
	for k, cc := range c.Categories {
		inline[k] = catalog.Category{Path: cc.Path, Pages: cc.Pages}
	}
	return table.Merge(inline), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
