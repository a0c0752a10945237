// Package config resolves server settings from .env files, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config is the resolved server configuration.
type Config struct {
	Backend string

	BaaSURL        string
	BaaSAnonKey    string
	BaaSServiceKey string
	Bucket         string

	// DatabaseURL switches listing reads to a direct Postgres connection.
	DatabaseURL string

	DBPath   string
	MediaDir string

	Addr    string
	BaseURL string

	LogPath    string
	LogLevel   string
	FluentHost string
	FluentPort int

	LocalesDir     string
	AllowedOrigins []string
	HTTPTimeout    time.Duration
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads KEY=value pairs from path into the process
// environment without overriding variables that are already set. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load parses args (without the program name) on top of defaults taken
// from the environment. It returns flag.ErrHelp when help was requested.
func Load(args []string, lookup LookupFunc, usageOut io.Writer) (*Config, error) {
	env := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	fs := flag.NewFlagSet("oglasnik", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	cfg := &Config{}

	// Secrets are only read from the environment.
	cfg.BaaSAnonKey = env("OGLASNIK_BAAS_ANON_KEY", "")
	cfg.BaaSServiceKey = env("OGLASNIK_BAAS_SERVICE_KEY", "")
	cfg.DatabaseURL = env("OGLASNIK_DATABASE_URL", "")
	cfg.FluentHost = env("OGLASNIK_FLUENT_HOST", "")

	backend := env("OGLASNIK_BACKEND", BackendLocal)
	fs.StringVar(&cfg.Backend, "backend", backend, "")
	fs.StringVar(&cfg.Backend, "b", backend, "")

	baasURL := env("OGLASNIK_BAAS_URL", "")
	fs.StringVar(&cfg.BaaSURL, "baas-url", baasURL, "")

	bucket := env("OGLASNIK_BUCKET", "product-images")
	fs.StringVar(&cfg.Bucket, "bucket", bucket, "")

	dbPath := env("OGLASNIK_DB", "oglasnik.sqlite3")
	fs.StringVar(&cfg.DBPath, "db", dbPath, "")
	fs.StringVar(&cfg.DBPath, "d", dbPath, "")

	mediaDir := env("OGLASNIK_MEDIA_DIR", "media")
	fs.StringVar(&cfg.MediaDir, "media", mediaDir, "")
	fs.StringVar(&cfg.MediaDir, "m", mediaDir, "")

	addr := env("OGLASNIK_ADDR", ":8080")
	fs.StringVar(&cfg.Addr, "addr", addr, "")
	fs.StringVar(&cfg.Addr, "a", addr, "")

	baseURL := env("OGLASNIK_BASE_URL", "")
	fs.StringVar(&cfg.BaseURL, "base-url", baseURL, "")

	logPath := env("OGLASNIK_LOG", "")
	fs.StringVar(&cfg.LogPath, "log", logPath, "")
	fs.StringVar(&cfg.LogPath, "l", logPath, "")

	logLevel := env("OGLASNIK_LOG_LEVEL", "info")
	fs.StringVar(&cfg.LogLevel, "log-level", logLevel, "")

	localesDir := env("OGLASNIK_LOCALES_DIR", "")
	fs.StringVar(&cfg.LocalesDir, "locales", localesDir, "")

	fluentPort, err := strconv.Atoi(env("OGLASNIK_FLUENT_PORT", "24224"))
	if err != nil {
		return nil, fmt.Errorf("OGLASNIK_FLUENT_PORT: %w", err)
	}
	cfg.FluentPort = fluentPort

	timeout, err := time.ParseDuration(env("OGLASNIK_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("OGLASNIK_HTTP_TIMEOUT: %w", err)
	}
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", timeout, "")

	origins := env("OGLASNIK_ALLOWED_ORIGINS", "*")

	fs.Usage = func() {
		fmt.Fprint(usageOut, `Usage: oglasnik [flags]

Flags:
  -b, -backend <mode>     local or remote (default: local, env OGLASNIK_BACKEND)
  -baas-url <url>         hosted backend URL (env OGLASNIK_BAAS_URL)
  -bucket <name>          image bucket (default: product-images)
  -d, -db <path>          SQLite database for the local backend (default: oglasnik.sqlite3)
  -m, -media <dir>        image directory for the local backend (default: media)
  -a, -addr <host:port>   listen address (default: :8080)
  -base-url <url>         public URL used in reset links (default: derived from -addr)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -log-level <level>      debug, info, warn or error (default: info)
  -locales <dir>          load translations from dir and reload on change
  -timeout <duration>     timeout for calls to the hosted backend (default: 10s)
  -h, -help               show this help and exit

Secrets are read from the environment or a .env file only:
  OGLASNIK_BAAS_ANON_KEY, OGLASNIK_BAAS_SERVICE_KEY, OGLASNIK_DATABASE_URL
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg.AllowedOrigins = splitList(origins)
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURLFromAddr(cfg.Addr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.BaaSURL == "" {
			return errors.New("OGLASNIK_BAAS_URL is required when the backend is remote")
		}
		if c.BaaSAnonKey == "" {
			return errors.New("OGLASNIK_BAAS_ANON_KEY is required when the backend is remote")
		}
		u, err := url.Parse(c.BaaSURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("OGLASNIK_BAAS_URL %q is not an http(s) URL", c.BaaSURL)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLocal, BackendRemote)
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP timeout must be positive")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func baseURLFromAddr(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}
