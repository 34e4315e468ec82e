package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBolt   = "bolt"
)

// Config holds the client configuration, persisted as YAML.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	Network         string        `yaml:"network"`
	RPCURL          string        `yaml:"rpc_url"`
	FallbackRPCURL  string        `yaml:"fallback_rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	ChainID         uint64        `yaml:"chain_id"`
	ListenAddr      string        `yaml:"listen"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RateLimit       float64       `yaml:"rate_limit"` // reads per second, 0 = unlimited
	Cache           string        `yaml:"cache"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		Network:      "bsc",
		ListenAddr:   "127.0.0.1:8645",
		LogLevel:     "info",
		PollInterval: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		MaxAttempts:  3,
		RetryDelay:   time.Second,
		Cache:        CacheMemory,
	}
}

// DefaultDataDir returns ~/.speedtrack, or .speedtrack in the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".speedtrack"
	}
	return filepath.Join(home, ".speedtrack")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig reads the YAML file at path on top of DefaultConfig. Keys absent
// from the file keep their defaults; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data := append([]byte("# Speed Track client configuration\n"), body...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
