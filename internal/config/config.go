package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/output"
	"github.com/pfrederiksen/dasny-bids/internal/pagecache"
	"github.com/pfrederiksen/dasny-bids/internal/scraper"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by viper
const EnvPrefix = "DASNY"

// DefaultConfigName is the config file looked up in the working directory
const DefaultConfigName = "dasny-bids"

// DefaultTimeout bounds each HTTP request
const DefaultTimeout = 30 * time.Second

// Setting keys
const (
	KeySite      = "site"
	KeyUserAgent = "user_agent"
	KeyTimeout   = "timeout"
	KeyCacheDir  = "cache.dir"
	KeyCacheTTL  = "cache.ttl"
	KeyOutputDir = "output_dir"
	KeyURLsDir   = "urls_dir"
	KeyLogLevel  = "log.level"
	KeyLogFile   = "log.file"
	KeyVerbose   = "verbose"
)

// Settings holds the resolved process settings
type Settings struct {
	Site      string
	UserAgent string
	Timeout   time.Duration
	CacheDir  string // empty disables the page cache
	CacheTTL  time.Duration
	OutputDir string
	URLsDir   string
	LogLevel  logger.Level
	LogFile   string
	Verbose   bool
}

// ValidationError reports a setting with an unusable value
type ValidationError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid setting %q with value %v: %s", e.Key, e.Value, e.Reason)
}

// LoadEnvFile loads a .env file from the working directory if one exists.
// Variables already present in the environment are not overwritten.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// New returns a viper instance with defaults and environment lookup configured
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySite, scraper.DefaultSiteURL)
	v.SetDefault(KeyUserAgent, scraper.UserAgent)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyCacheTTL, pagecache.DefaultTTL)
	v.SetDefault(KeyOutputDir, output.DefaultDir)
	v.SetDefault(KeyURLsDir, "urls")
	v.SetDefault(KeyLogLevel, "") // info, or debug when verbose
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyVerbose, false)
}

// ReadFile reads the config file into v. An explicit path must exist; with
// an empty path ./dasny-bids.yaml is read when present.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// Load resolves Settings from v
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Site:      strings.TrimSpace(v.GetString(KeySite)),
		UserAgent: v.GetString(KeyUserAgent),
		Timeout:   v.GetDuration(KeyTimeout),
		CacheDir:  v.GetString(KeyCacheDir),
		CacheTTL:  v.GetDuration(KeyCacheTTL),
		OutputDir: v.GetString(KeyOutputDir),
		URLsDir:   v.GetString(KeyURLsDir),
		LogFile:   v.GetString(KeyLogFile),
		Verbose:   v.GetBool(KeyVerbose),
	}

	rawLevel := strings.TrimSpace(v.GetString(KeyLogLevel))
	if rawLevel == "" {
		rawLevel = "info"
		if s.Verbose {
			rawLevel = "debug"
		}
	}
	level, err := logger.ParseLevel(rawLevel)
	if err != nil {
		return nil, &ValidationError{Key: KeyLogLevel, Value: rawLevel, Reason: err.Error()}
	}
	s.LogLevel = level

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	u, err := url.Parse(s.Site)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Key: KeySite, Value: s.Site, Reason: "must be an absolute URL"}
	}
	if s.Timeout < 0 {
		return &ValidationError{Key: KeyTimeout, Value: s.Timeout, Reason: "must not be negative"}
	}
	if s.CacheTTL < 0 {
		return &ValidationError{Key: KeyCacheTTL, Value: s.CacheTTL, Reason: "must not be negative"}
	}
	if s.UserAgent == "" {
		return &ValidationError{Key: KeyUserAgent, Value: s.UserAgent, Reason: "must not be empty"}
	}
	return nil
}

// CacheEnabled reports whether a page cache directory is configured
func (s *Settings) CacheEnabled() bool {
	return s.CacheDir != ""
}
