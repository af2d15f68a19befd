package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"composer/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. COMPOSER_FETCH_RETRYMAX.
const EnvPrefix = "COMPOSER"

// Config is the resolved application configuration.
type Config struct {
	File           string
	DataDir        string
	IndexPath      string
	ManifestsDir   string
	LogLevel       string
	WatchManifests bool
	Fetch          FetchConfig
	Observability  ObservabilityConfig
}

type FetchConfig struct {
	CacheTTL     time.Duration
	Timeout      time.Duration
	RetryMax     int
	UserAgent    string
	MaxBodyBytes int64
}

type ObservabilityConfig struct {
	ListenAddress string
	EnableMetrics bool
}

type rawConfig struct {
	DataDir        string           `mapstructure:"dataDir"`
	IndexPath      string           `mapstructure:"indexPath"`
	ManifestsDir   string           `mapstructure:"manifestsDir"`
	LogLevel       string           `mapstructure:"logLevel"`
	WatchManifests bool             `mapstructure:"watchManifests"`
	Fetch          rawFetchConfig   `mapstructure:"fetch"`
	Observability  rawObservability `mapstructure:"observability"`
}

type rawFetchConfig struct {
	CacheTTLSeconds int    `mapstructure:"cacheTTLSeconds"`
	TimeoutSeconds  int    `mapstructure:"timeoutSeconds"`
	RetryMax        int    `mapstructure:"retryMax"`
	UserAgent       string `mapstructure:"userAgent"`
	MaxBodyBytes    int64  `mapstructure:"maxBodyBytes"`
}

type rawObservability struct {
	ListenAddress string `mapstructure:"listenAddress"`
	EnableMetrics bool   `mapstructure:"enableMetrics"`
}

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataDir", DefaultDataDir())
	v.SetDefault("indexPath", "")
	v.SetDefault("manifestsDir", "")
	v.SetDefault("logLevel", domain.DefaultLogLevel)
	v.SetDefault("watchManifests", domain.DefaultWatchManifests)
	v.SetDefault("fetch.cacheTTLSeconds", domain.DefaultFetchCacheTTLSeconds)
	v.SetDefault("fetch.timeoutSeconds", domain.DefaultFetchTimeoutSeconds)
	v.SetDefault("fetch.retryMax", domain.DefaultFetchRetryMax)
	v.SetDefault("fetch.userAgent", domain.DefaultUserAgent())
	v.SetDefault("fetch.maxBodyBytes", domain.DefaultFetchMaxBodyBytes)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.enableMetrics", domain.DefaultObservabilityMetrics)
}

// DefaultDataDir is the per-user data directory.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, domain.DefaultAppDirName)
}

// DefaultConfigPath is where Load looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, domain.DefaultAppDirName, domain.DefaultConfigFile)
}

// Load reads path, or the default config file when path is empty. A missing
// default file yields the defaults; a missing explicit file is an error.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	v := newViper()

	file := strings.TrimSpace(path)
	explicit := file != ""
	if !explicit {
		file = DefaultConfigPath()
	}

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", file), zap.Strings("missing", missing))
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		file = ""
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return Config{}, domain.E(domain.CodeInvalidArgument, "load config", strings.Join(errs, "; "), nil)
	}
	cfg.File = file
	return cfg, nil
}

func normalizeConfig(raw rawConfig) (Config, []string) {
	var errs []string

	dataDir := expandHome(strings.TrimSpace(raw.DataDir))
	if dataDir == "" {
		errs = append(errs, "dataDir is required")
	}
	indexPath := expandHome(strings.TrimSpace(raw.IndexPath))
	if indexPath == "" {
		indexPath = filepath.Join(dataDir, domain.DefaultIndexFile)
	}
	manifestsDir := expandHome(strings.TrimSpace(raw.ManifestsDir))
	if manifestsDir == "" {
		manifestsDir = filepath.Join(dataDir, domain.DefaultManifestsDirName)
	}

	if raw.Fetch.CacheTTLSeconds < 0 {
		errs = append(errs, "fetch.cacheTTLSeconds must be >= 0")
	}
	if raw.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, "fetch.timeoutSeconds must be > 0")
	}
	if raw.Fetch.RetryMax < 0 {
		errs = append(errs, "fetch.retryMax must be >= 0")
	}
	if raw.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, "fetch.maxBodyBytes must be > 0")
	}

	logLevel := strings.ToLower(strings.TrimSpace(raw.LogLevel))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logLevel %q must be one of debug, info, warn, error", raw.LogLevel))
	}

	userAgent := strings.TrimSpace(raw.Fetch.UserAgent)
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent()
	}

	return Config{
		DataDir:        dataDir,
		IndexPath:      indexPath,
		ManifestsDir:   manifestsDir,
		LogLevel:       logLevel,
		WatchManifests: raw.WatchManifests,
		Fetch: FetchConfig{
			CacheTTL:     time.Duration(raw.Fetch.CacheTTLSeconds) * time.Second,
			Timeout:      time.Duration(raw.Fetch.TimeoutSeconds) * time.Second,
			RetryMax:     raw.Fetch.RetryMax,
			UserAgent:    userAgent,
			MaxBodyBytes: raw.Fetch.MaxBodyBytes,
		},
		Observability: ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			EnableMetrics: raw.Observability.EnableMetrics,
		},
	}, errs
}
