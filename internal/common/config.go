package common

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Browser     BrowserConfig   `toml:"browser"`
	Broker      BrokerConfig    `toml:"broker"`
	Publish     PublishConfig   `toml:"publish"`
	Platforms   PlatformsConfig `toml:"platforms"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`

	// SessionKey is the hex-encoded 32-byte key used to seal cookie jars at
	// rest. Required outside development.
	SessionKey string `toml:"session_key"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// BrowserConfig controls browser acquisition and isolation
type BrowserConfig struct {
	Headless   bool   `toml:"headless"`
	DisableGPU bool   `toml:"disable_gpu"`
	NoSandbox  bool   `toml:"no_sandbox"`
	UserAgent  string `toml:"user_agent"`

	// MaxPerPlatform bounds concurrent automated sessions against one
	// platform. Requests beyond the bound queue rather than spawning
	// unbounded browser processes.
	MaxPerPlatform int `toml:"max_per_platform" validate:"min=1"`

	// RequestDelay paces successive operations against the same platform
	RequestDelay string `toml:"request_delay"`

	// OperationTimeout is the hard wall-clock bound on any single browser
	// operation; teardown is forced when it fires
	OperationTimeout string `toml:"operation_timeout"`

	// NavigationTimeout bounds a single page navigation
	NavigationTimeout string `toml:"navigation_timeout"`

	// SelectorTimeout bounds a single selector-resolution attempt
	SelectorTimeout string `toml:"selector_timeout"`

	// RemoteDebuggingHost is the address handed out in broker live-view URLs
	RemoteDebuggingHost string `toml:"remote_debugging_host"`

	// RemoteDebuggingPortBase is the first port allocated for interactive
	// sessions; each live session takes the next free offset
	RemoteDebuggingPortBase int `toml:"remote_debugging_port_base" validate:"min=1024"`
}

// BrokerConfig controls the interactive session broker
type BrokerConfig struct {
	SessionTTL    string `toml:"session_ttl"`    // e.g. "10m" - idle sessions older than this are reaped
	SweepSchedule string `toml:"sweep_schedule"` // cron schedule for the reaping sweep
	MaxSessions   int    `toml:"max_sessions" validate:"min=1"`
}

// PublishConfig controls pipeline retry behavior
type PublishConfig struct {
	// InfraRetryLimit bounds automatic retries of the whole operation after
	// an infrastructure failure. Non-infrastructure failures never retry.
	InfraRetryLimit int `toml:"infra_retry_limit" validate:"min=0,max=3"`
}

// PlatformsConfig contains configuration for platform definition overrides
type PlatformsConfig struct {
	OverridesDir string `toml:"overrides_dir"` // Directory containing platform definition TOML files
}

type WebSocketConfig struct {
	AllowedEvents     []string          `toml:"allowed_events"`
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// DefaultConfig returns the baseline configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8190,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/scribo",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Browser: BrowserConfig{
			Headless:                true,
			DisableGPU:              true,
			NoSandbox:               false,
			UserAgent:               "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxPerPlatform:          2,
			RequestDelay:            "2s",
			OperationTimeout:        "3m",
			NavigationTimeout:       "30s",
			SelectorTimeout:         "5s",
			RemoteDebuggingHost:     "localhost",
			RemoteDebuggingPortBase: 9300,
		},
		Broker: BrokerConfig{
			SessionTTL:    "10m",
			SweepSchedule: "@every 1m",
			MaxSessions:   5,
		},
		Publish: PublishConfig{
			InfraRetryLimit: 1,
		},
		Platforms: PlatformsConfig{
			OverridesDir: "./platforms",
		},
	}
}

// LoadConfig loads configuration in priority order: defaults -> files (later
// files override earlier ones) -> environment variables.
func LoadConfig(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(content, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies SCRIBO_* environment variables over file config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SCRIBO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("SCRIBO_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("SCRIBO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SCRIBO_DATA_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("SCRIBO_SESSION_KEY"); v != "" {
		config.Storage.SessionKey = v
	}
	if v := os.Getenv("SCRIBO_HEADLESS"); v != "" {
		config.Browser.Headless = v != "false" && v != "0"
	}
}

var configValidator = validator.New()

// Validate checks structural validity plus the cross-field rules the tags
// cannot express
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, value := range map[string]string{
		"browser.request_delay":      c.Browser.RequestDelay,
		"browser.operation_timeout":  c.Browser.OperationTimeout,
		"browser.navigation_timeout": c.Browser.NavigationTimeout,
		"browser.selector_timeout":   c.Browser.SelectorTimeout,
		"broker.session_ttl":         c.Broker.SessionTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Storage.SessionKey != "" {
		key, err := hex.DecodeString(c.Storage.SessionKey)
		if err != nil {
			return fmt.Errorf("invalid configuration: storage.session_key must be hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("invalid configuration: storage.session_key must decode to 32 bytes, got %d", len(key))
		}
	} else if c.Environment == "production" {
		return fmt.Errorf("invalid configuration: storage.session_key is required in production")
	}

	return nil
}

// SessionKeyBytes returns the decoded session encryption key, or nil when no
// key is configured (development only - jars are stored unsealed)
func (c *Config) SessionKeyBytes() []byte {
	if c.Storage.SessionKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.Storage.SessionKey)
	if err != nil {
		return nil
	}
	return key
}

// Duration helpers. Values were validated at load time; the default covers
// hand-built configs in tests.

func (c *BrowserConfig) RequestDelayDuration() time.Duration {
	return parseDurationOr(c.RequestDelay, 2*time.Second)
}

func (c *BrowserConfig) OperationTimeoutDuration() time.Duration {
	return parseDurationOr(c.OperationTimeout, 3*time.Minute)
}

func (c *BrowserConfig) NavigationTimeoutDuration() time.Duration {
	return parseDurationOr(c.NavigationTimeout, 30*time.Second)
}

func (c *BrowserConfig) SelectorTimeoutDuration() time.Duration {
	return parseDurationOr(c.SelectorTimeout, 5*time.Second)
}

func (c *BrokerConfig) SessionTTLDuration() time.Duration {
	return parseDurationOr(c.SessionTTL, 10*time.Minute)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
