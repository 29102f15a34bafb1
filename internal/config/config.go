package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDataDirName    = "chanvault-data"
	DefaultLogLevel       = "info"
	DefaultSnapshotFormat = "json"
	DefaultBaseURL        = "https://2ch.hk"
	DefaultTimeout        = "30s"
	DefaultUserAgent      = "chanvault/0.1"
	DefaultConcurrency    = 8
	DefaultLedgerEnabled  = true

	configFileName           = ".chanvault.toml"
	configDirEnvKey          = "CHANVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "CHANVAULT_TRUST_PROJECT_CONFIG"

	dataDirEnvKey     = "CHANVAULT_DATA_DIR"
	baseURLEnvKey     = "CHANVAULT_BASE_URL"
	timeoutEnvKey     = "CHANVAULT_HTTP_TIMEOUT"
	concurrencyEnvKey = "CHANVAULT_CONCURRENCY"
)

// RemoteConfig configures the imageboard HTTP client.
type RemoteConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// SyncConfig configures board fan-out and the sync ledger.
type SyncConfig struct {
	Concurrency int  `toml:"concurrency"`
	Ledger      bool `toml:"ledger"`
}

// MetricsConfig configures the Prometheus endpoint served while monitoring.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Config defines runtime configuration for chanvault.
type Config struct {
	DataDir                  string        `toml:"data_dir"`
	LogLevel                 string        `toml:"log_level"`
	LogFile                  string        `toml:"log_file"`
	SnapshotFormat           string        `toml:"snapshot_format"`
	Remote                   RemoteConfig  `toml:"remote"`
	Sync                     SyncConfig    `toml:"sync"`
	Metrics                  MetricsConfig `toml:"metrics"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		LogLevel:       DefaultLogLevel,
		SnapshotFormat: DefaultSnapshotFormat,
		Remote: RemoteConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Sync: SyncConfig{
			Concurrency: DefaultConcurrency,
			Ledger:      DefaultLedgerEnabled,
		},
	}
}

// AttachmentsDir is where blobs live.
func (c *Config) AttachmentsDir() string {
	return filepath.Join(c.DataDir, "attachments")
}

// BoardsDir is where thread snapshots live.
func (c *Config) BoardsDir() string {
	return filepath.Join(c.DataDir, "boards")
}

// LedgerPath is the sync ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// RemoteTimeout parses remote.timeout. Bare integers are seconds.
func (c *Config) RemoteTimeout() (time.Duration, error) {
	return parseTimeout(c.Remote.Timeout)
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"data_dir",
	"log_level",
	"log_file",
	"snapshot_format",
	"remote.base_url",
	"remote.timeout",
	"remote.user_agent",
	"sync.concurrency",
	"sync.ledger",
	"metrics.addr",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	case "snapshot_format":
		return c.SnapshotFormat, nil
	case "remote.base_url":
		return c.Remote.BaseURL, nil
	case "remote.timeout":
		return c.Remote.Timeout, nil
	case "remote.user_agent":
		return c.Remote.UserAgent, nil
	case "sync.concurrency":
		return strconv.Itoa(c.Sync.Concurrency), nil
	case "sync.ledger":
		return strconv.FormatBool(c.Sync.Ledger), nil
	case "metrics.addr":
		return c.Metrics.Addr, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if dataDir := strings.TrimSpace(os.Getenv(dataDirEnvKey)); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if baseURL := strings.TrimSpace(os.Getenv(baseURLEnvKey)); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}
	if raw := strings.TrimSpace(os.Getenv(timeoutEnvKey)); raw != "" {
		if _, err := parseTimeout(raw); err == nil {
			cfg.Remote.Timeout = raw
		}
	}
	if raw := strings.TrimSpace(os.Getenv(concurrencyEnvKey)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.Sync.Concurrency = parsed
		}
	}

	if cfg.DataDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DataDir = filepath.Join(cwd, DefaultDataDirName)
		}
	}
	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "sync.concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "sync.ledger":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "remote.timeout":
		if _, err := parseTimeout(value); err != nil {
			return nil, fmt.Errorf("%s must be a positive duration such as 30s", key)
		}
		return value, nil
	case "snapshot_format":
		switch strings.ToLower(value) {
		case "json", "yaml", "yml":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("%s must be json or yaml", key)
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return d, nil
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.SnapshotFormat) == "" {
		c.SnapshotFormat = DefaultSnapshotFormat
	}
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		c.Remote.BaseURL = DefaultBaseURL
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	if _, err := parseTimeout(c.Remote.Timeout); err != nil {
		c.Remote.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(c.Remote.UserAgent) == "" {
		c.Remote.UserAgent = DefaultUserAgent
	}
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = DefaultConcurrency
	}
}
