// Package config loads Nexus daemon configuration from defaults, an optional
// config file, and NEXUS_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nexusdaemon/nexus/internal/common/logger"
)

// Config aggregates every sub-component's configuration.
type Config struct {
	Daemon       DaemonConfig       `mapstructure:"daemon"`
	Data         DataConfig         `mapstructure:"data"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Watcher      WatcherConfig      `mapstructure:"watcher"`
	Healer       HealerConfig       `mapstructure:"healer"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	Logging      logger.LoggingConfig `mapstructure:"logging"`
	Watchdog     WatchdogConfig     `mapstructure:"watchdog"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// DaemonConfig controls the request-serving loop.
type DaemonConfig struct {
	DefaultTimeoutSec     int `mapstructure:"defaultTimeoutSec"`
	MaxConcurrentRequests int `mapstructure:"maxConcurrentRequests"`
}

func (d DaemonConfig) DefaultTimeout() time.Duration {
	return time.Duration(d.DefaultTimeoutSec) * time.Second
}

// DataConfig locates the daemon's persisted state.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

func (d DataConfig) CacheDir() string        { return filepath.Join(d.Dir, "cache") }
func (d DataConfig) TrajectoryDir() string   { return filepath.Join(d.Dir, "trajectories") }
func (d DataConfig) KnowledgeDir() string    { return filepath.Join(d.Dir, "knowledge") }
func (d DataConfig) CurrentTaskFile() string { return filepath.Join(d.Dir, ".current_task.json") }
func (d DataConfig) MemoryIndexPath() string { return filepath.Join(d.Dir, "knowledge", "index.db") }

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTLSeconds      float64 `mapstructure:"ttlSeconds"`
	MemoryCacheSize int     `mapstructure:"memoryCacheSize"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds * float64(time.Second))
}

// WatcherConfig controls the accessibility event watcher.
type WatcherConfig struct {
	QueueSize  int `mapstructure:"queueSize"`
	DebounceMS int `mapstructure:"debounceMs"`
}

func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// HealerConfig controls the self-healing retry loop.
type HealerConfig struct {
	MaxRetries int `mapstructure:"maxRetries"`
}

// CapabilitiesConfig locates the daemon's optional perception backends.
type CapabilitiesConfig struct {
	VisionURL string `mapstructure:"visionUrl"`
	CDPPort   int    `mapstructure:"cdpPort"`
}

// WatchdogConfig controls the force-exit safety net.
type WatchdogConfig struct {
	TimeoutSec int `mapstructure:"timeoutSec"`
}

func (w WatchdogConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSec) * time.Second
}

// TelemetryConfig controls optional OpenTelemetry tracing of daemon requests.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlpEndpoint"`
	ServiceName    string `mapstructure:"serviceName"`
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("daemon.defaultTimeoutSec", 30)
	v.SetDefault("daemon.maxConcurrentRequests", 8)

	v.SetDefault("data.dir", defaultDataDir())

	v.SetDefault("cache.ttlSeconds", 5.0)
	v.SetDefault("cache.memoryCacheSize", 256)

	v.SetDefault("watcher.queueSize", 500)
	v.SetDefault("watcher.debounceMs", 150)

	v.SetDefault("healer.maxRetries", 2)

	v.SetDefault("capabilities.visionUrl", "http://127.0.0.1:8500")
	v.SetDefault("capabilities.cdpPort", 9222)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stderr")

	v.SetDefault("watchdog.timeoutSec", 30)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlpEndpoint", "")
	v.SetDefault("telemetry.serviceName", "nexusd")
}

// defaultDataDir resolves the platform-appropriate home for persisted state.
// NEXUS_DATA_DIR overrides this, matching the original daemon's env override.
func defaultDataDir() string {
	if dir := os.Getenv("NEXUS_DATA_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "nexus")
}

// detectDefaultLogFormat mirrors the ambient logger's environment detection.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("NEXUS_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// Load reads configuration from environment variables, config file, and defaults.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("NEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.dir", "NEXUS_DATA_DIR")
	_ = v.BindEnv("logging.level", "NEXUS_LOG_LEVEL")
	_ = v.BindEnv("capabilities.visionUrl", "NEXUS_VISION_URL")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/nexus/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that configuration values are internally consistent.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Daemon.DefaultTimeoutSec <= 0 {
		errs = append(errs, "daemon.defaultTimeoutSec must be positive")
	}
	if cfg.Daemon.MaxConcurrentRequests <= 0 {
		errs = append(errs, "daemon.maxConcurrentRequests must be positive")
	}
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttlSeconds must not be negative")
	}
	if cfg.Watcher.QueueSize <= 0 {
		errs = append(errs, "watcher.queueSize must be positive")
	}
	if cfg.Healer.MaxRetries < 0 {
		errs = append(errs, "healer.maxRetries must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
