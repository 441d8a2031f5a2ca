// Package config provides configuration management for the Sleuth Agent.
// Values come from built-in defaults, then an optional YAML settings file in
// the data directory, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// Default values
	DefaultPort          = 8790
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".sleuth"
	DefaultUploadTimeout = 10 * time.Minute

	// Environment variable names
	EnvPort           = "SLEUTH_PORT"
	EnvLogLevel       = "SLEUTH_LOG_LEVEL"
	EnvDataDir        = "SLEUTH_DATA_DIR"
	EnvServiceURL     = "SLEUTH_SERVICE_URL"
	EnvPublicOrigin   = "SLEUTH_PUBLIC_ORIGIN"
	EnvUploadTimeout  = "SLEUTH_UPLOAD_TIMEOUT"
	EnvDropDir        = "SLEUTH_DROP_DIR"
	EnvHeadless       = "SLEUTH_HEADLESS"
	EnvAllowedOrigins = "SLEUTH_ALLOWED_ORIGINS"

	// Database filename
	DBFilename = "sleuth.db"

	// SettingsFilename is the YAML settings file inside the data directory.
	SettingsFilename = "sleuth.yaml"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	SettingsPath() string
	ServiceURL() string
	PublicOrigin() string
	UploadTimeout() time.Duration
	DropDir() string
	Headless() bool
	AllowedOrigins() []string
}

// Settings is the file-backed part of the configuration.
type Settings struct {
	Port           int      `koanf:"port"`
	LogLevel       string   `koanf:"log_level"`
	ServiceURL     string   `koanf:"service_url"`
	PublicOrigin   string   `koanf:"public_origin"`
	UploadTimeout  string   `koanf:"upload_timeout"`
	DropDir        string   `koanf:"drop_dir"`
	Headless       bool     `koanf:"headless"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DefaultSettings holds the values used when neither file nor env set one.
var DefaultSettings = Settings{
	Port:          DefaultPort,
	LogLevel:      DefaultLogLevel,
	UploadTimeout: DefaultUploadTimeout.String(),
}

// EnvConfig reads configuration from the settings file and environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	serviceURL     string
	publicOrigin   string
	uploadTimeout  time.Duration
	dropDir        string
	headless       bool
	allowedOrigins []string
}

// New creates a new EnvConfig with defaults, settings-file values and
// environment variable overrides
func New() (*EnvConfig, error) {
	dataDir := defaultDataDir()
	if dd := os.Getenv(EnvDataDir); dd != "" {
		dataDir = dd
	}

	s, err := LoadSettings(filepath.Join(dataDir, SettingsFilename))
	if err != nil {
		return nil, err
	}

	applyEnv(&s)

	cfg := &EnvConfig{
		port:           s.Port,
		logLevel:       s.LogLevel,
		dataDir:        dataDir,
		serviceURL:     strings.TrimRight(s.ServiceURL, "/"),
		publicOrigin:   strings.TrimRight(s.PublicOrigin, "/"),
		dropDir:        s.DropDir,
		headless:       s.Headless,
		allowedOrigins: s.AllowedOrigins,
	}

	if envPort := os.Getenv(EnvPort); envPort != "" {
		port, err := strconv.Atoi(envPort)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.port = port
	}
	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: port must be between 1 and 65535", cfg.port)
	}

	if hl := os.Getenv(EnvHeadless); hl != "" {
		headless, err := strconv.ParseBool(hl)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.uploadTimeout, err = time.ParseDuration(s.UploadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid upload timeout %q: %w", s.UploadTimeout, err)
	}
	if cfg.uploadTimeout < 0 {
		return nil, fmt.Errorf("invalid upload timeout %q: must not be negative", s.UploadTimeout)
	}

	if cfg.serviceURL != "" {
		if err := validateURL(cfg.serviceURL); err != nil {
			return nil, fmt.Errorf("invalid service URL: %w", err)
		}
	}
	if cfg.publicOrigin != "" {
		if err := validateURL(cfg.publicOrigin); err != nil {
			return nil, fmt.Errorf("invalid public origin: %w", err)
		}
	}

	return cfg, nil
}

// LoadSettings reads a YAML settings file over DefaultSettings. A missing
// file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultSettings, "koanf"), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load default settings: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes s to path as YAML, creating the directory if needed.
func SaveSettings(path string, s Settings) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(s, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	b, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}

// EnsureSettingsFile writes DefaultSettings to path when no file exists yet.
// It reports whether a file was created.
func EnsureSettingsFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := SaveSettings(path, DefaultSettings); err != nil {
		return false, err
	}
	return true, nil
}

func applyEnv(s *Settings) {
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		s.LogLevel = ll
	}
	if u := os.Getenv(EnvServiceURL); u != "" {
		s.ServiceURL = u
	}
	if o := os.Getenv(EnvPublicOrigin); o != "" {
		s.PublicOrigin = o
	}
	if t := os.Getenv(EnvUploadTimeout); t != "" {
		s.UploadTimeout = t
	}
	if d := os.Getenv(EnvDropDir); d != "" {
		s.DropDir = d
	}
	if ao := os.Getenv(EnvAllowedOrigins); ao != "" {
		s.AllowedOrigins = splitList(ao)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *EnvConfig) SettingsPath() string {
	return filepath.Join(c.dataDir, SettingsFilename)
}

// ServiceURL returns the analysis service base URL; empty selects the stub client.
func (c *EnvConfig) ServiceURL() string {
	return c.serviceURL
}

// PublicOrigin is prefixed to frame paths for reverse-image-search links.
// It falls back to the service URL.
func (c *EnvConfig) PublicOrigin() string {
	if c.publicOrigin != "" {
		return c.publicOrigin
	}
	return c.serviceURL
}

func (c *EnvConfig) UploadTimeout() time.Duration {
	return c.uploadTimeout
}

// DropDir returns the watched drop folder, or empty when disabled.
func (c *EnvConfig) DropDir() string {
	return c.dropDir
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// AllowedOrigins lists browser origins granted CORS access to the local API.
// It defaults to the public origin.
func (c *EnvConfig) AllowedOrigins() []string {
	if len(c.allowedOrigins) == 0 && c.PublicOrigin() != "" {
		return []string{c.PublicOrigin()}
	}
	return c.allowedOrigins
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
