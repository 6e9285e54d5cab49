// Package config assembles the run configuration from, lowest priority first: the
// scraper.json5 file, its scraper.local.json5 override, a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Hamza5/InteractiveCV/internal/scrapers/scraper"

	"github.com/joho/godotenv"
)

const (
	EnvConfigFile      = "SCRAPER_CONFIG"
	EnvGitHubToken     = "GITHUB_PROFILE_TOKEN"
	EnvRepository      = "GITHUB_REPOSITORY"
	EnvLinkedInUrl     = "LINKEDIN_PROFILE_URL"
	EnvHsoubUrl        = "HSOUB_ACADEMY_PROFILE_URL"
	EnvMostaqlUrl      = "MOSTAQL_REVIEWS_URL"
	EnvKhamsatUrl      = "KHAMSAT_REVIEWS_URL"
	EnvLinkedInCookies = "LINKEDIN_COOKIES"
	EnvLogLevel        = "LOG_LEVEL"
	EnvStore           = "SCRAPER_STORE"
	EnvSQLitePath      = "SCRAPER_SQLITE_PATH"
	EnvInlineAssets    = "SCRAPER_INLINE_ASSETS"
	EnvBrowserUrl      = "SCRAPER_BROWSER_URL"
	EnvOtlpEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvDumpDir         = "SCRAPER_DUMP_DIR"
)

// DefaultFile is read when SCRAPER_CONFIG is not set.
const DefaultFile = "scraper.json5"

const (
	StoreGitHub = "github"
	StoreSQLite = "sqlite"

	CookieStorageSecret   = "secret"
	CookieStorageVariable = "variable"
)

type GitHubConfig struct {
	BaseUrl    string `json:"base_url"`
	Token      string `json:"token"`
	Repository string `json:"repository"`
}

type StoreConfig struct {
	// Backend is "github" or "sqlite".
	Backend    string       `json:"backend"`
	GitHub     GitHubConfig `json:"github"`
	SQLitePath string       `json:"sqlite_path"`
}

type TargetConfig struct {
	URL string `json:"url"`
	// Variable is the store variable the record is written to.
	Variable string `json:"variable"`
}

type TargetsConfig struct {
	HsoubAcademy   TargetConfig `json:"hsoub_academy"`
	MostaqlReviews TargetConfig `json:"mostaql_reviews"`
	KhamsatReviews TargetConfig `json:"khamsat_reviews"`
	LinkedIn       TargetConfig `json:"linkedin"`
}

type LinkedInConfig struct {
	// CookieStorage is "secret" (the current cookies come from the LINKEDIN_COOKIES
	// environment variable and are written back as a repository secret) or "variable".
	CookieStorage string `json:"cookie_storage"`
	CookieName    string `json:"cookie_name"`
	// Cookies is the current cookie set when CookieStorage is "secret".
	Cookies string `json:"cookies"`
}

type BrowserConfig struct {
	// RemoteUrl is the websocket url of a running Chrome, a local headless one is
	// launched when empty.
	RemoteUrl                string `json:"remote_url"`
	Headful                  bool   `json:"headful"`
	NavigationTimeoutSeconds int    `json:"navigation_timeout_seconds"`
}

type TelemetryConfig struct {
	OtlpHttpEndpoint string `json:"otlp_http_endpoint"`
	// DumpDir receives a copy of every static page request and response.
	DumpDir string `json:"dump_dir"`
}

type Config struct {
	LogLevel string `json:"log_level"`
	// SkipAssets leaves images out of the records, only their urls are kept.
	SkipAssets bool            `json:"skip_assets"`
	Store      StoreConfig     `json:"store"`
	Targets    TargetsConfig   `json:"targets"`
	LinkedIn   LinkedInConfig  `json:"linkedin"`
	Browser    BrowserConfig   `json:"browser"`
	Telemetry  TelemetryConfig `json:"telemetry"`
}

// Inline tells whether asset inlining is on.
func (c Config) Inline() bool {
	return !c.SkipAssets
}

// Load reads the configuration. A missing config file is not an error, the
// environment alone is enough to run.
func Load(file, dotenv string) (Config, error) {
	if file == "" {
		file = DefaultFile
	}

	cfg, err := ReadConfig[Config](file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: read %s: %w", scraper.ErrConfiguration, file, err)
	}

	if dotenv != "" {
		// variables already in the environment win over the file
		err = godotenv.Load(dotenv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: read %s: %w", scraper.ErrConfiguration, dotenv, err)
		}
		if err == nil {
			slog.Debug("loaded environment file", "path", dotenv)
		}
	}

	err = applyEnv(&cfg, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvGitHubToken:     &cfg.Store.GitHub.Token,
		EnvRepository:      &cfg.Store.GitHub.Repository,
		EnvLinkedInUrl:     &cfg.Targets.LinkedIn.URL,
		EnvHsoubUrl:        &cfg.Targets.HsoubAcademy.URL,
		EnvMostaqlUrl:      &cfg.Targets.MostaqlReviews.URL,
		EnvKhamsatUrl:      &cfg.Targets.KhamsatReviews.URL,
		EnvLinkedInCookies: &cfg.LinkedIn.Cookies,
		EnvLogLevel:        &cfg.LogLevel,
		EnvStore:           &cfg.Store.Backend,
		EnvSQLitePath:      &cfg.Store.SQLitePath,
		EnvBrowserUrl:      &cfg.Browser.RemoteUrl,
		EnvOtlpEndpoint:    &cfg.Telemetry.OtlpHttpEndpoint,
		EnvDumpDir:         &cfg.Telemetry.DumpDir,
	}
	for name, dst := range strs {
		value, ok := lookup(name)
		if ok && value != "" {
			*dst = value
		}
	}

	value, ok := lookup(EnvInlineAssets)
	if ok && value != "" {
		inline, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", scraper.ErrConfiguration, EnvInlineAssets, value)
		}
		cfg.SkipAssets = !inline
	}
	return nil
}

func applyDefaults(cfg *Config) {
	setDefault := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}
	setDefault(&cfg.LogLevel, "INFO")
	setDefault(&cfg.Store.Backend, StoreGitHub)
	setDefault(&cfg.Store.GitHub.BaseUrl, "https://api.github.com")
	setDefault(&cfg.Store.SQLitePath, "scraper.db")
	setDefault(&cfg.Targets.HsoubAcademy.Variable, "HSOUB_ACADEMY_PROFILE")
	setDefault(&cfg.Targets.MostaqlReviews.Variable, "MOSTAQL_REVIEWS")
	setDefault(&cfg.Targets.KhamsatReviews.Variable, "KHAMSAT_REVIEWS")
	setDefault(&cfg.Targets.LinkedIn.Variable, "LINKEDIN_PROFILE")
	setDefault(&cfg.LinkedIn.CookieStorage, CookieStorageSecret)
	setDefault(&cfg.LinkedIn.CookieName, "LINKEDIN_COOKIES")
	if cfg.Browser.NavigationTimeoutSeconds <= 0 {
		cfg.Browser.NavigationTimeoutSeconds = 60
	}
}

// Validate checks the settings every target depends on. Target urls are checked when
// their target runs, so one missing url does not stop the others.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreGitHub:
		if c.Store.GitHub.Token == "" {
			errs = append(errs, fmt.Errorf("%s is not set", EnvGitHubToken))
		}
		owner, name, ok := strings.Cut(c.Store.GitHub.Repository, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("%s=%q is not an owner/name repository", EnvRepository, c.Store.GitHub.Repository))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("store.sqlite_path is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch c.LinkedIn.CookieStorage {
	case CookieStorageSecret, CookieStorageVariable:
	default:
		errs = append(errs, fmt.Errorf("unknown linkedin.cookie_storage %q", c.LinkedIn.CookieStorage))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", scraper.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
