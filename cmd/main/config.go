package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/natefinch/atomic"
)

const (
	sourceDir    = "dir"
	sourceSQLite = "sqlite"
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	ApiAddr         string `json:"api_addr"`
	LogLevel        string `json:"log_level"`
	EnableMetrics   bool   `json:"enable_metrics"`
	ShutdownTimeout int    `json:"shutdown_timeout_sec"`
}

// ModelConfig holds the settings used to find, build and load models.
type ModelConfig struct {
	// Source is either "dir" (one <name>.dat file per corpus in DataDir) or
	// "sqlite" (corpora stored in DatabasePath).
	Source           string             `json:"source"`
	DataDir          string             `json:"data_dir"`
	DatabasePath     string             `json:"database_path"`
	CacheDir         string             `json:"cache_dir"` // Empty disables the compiled model cache.
	MaxOrder         int                `json:"max_order"` // 0 trains every word up to its full length.
	Workers          int                `json:"workers"`
	PruneMinWeight   int                `json:"prune_min_weight"`
	DefaultIntensity float64            `json:"default_intensity"`
	Preload          []string           `json:"preload"`
	PreloadIntensity map[string]float64 `json:"preload_intensity"`
}

// GenerateConfig holds the parameters used when a generation request leaves
// them out.
type GenerateConfig struct {
	MaxN         int     `json:"max_n"`
	NbTry        int     `json:"nb_try"`
	Randomness   float64 `json:"randomness"`
	ReduceRandom bool    `json:"reduce_random"`
	MaxLength    int     `json:"max_length"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server   *ServerConfig   `json:"server_config"`
	Models   *ModelConfig    `json:"model_config"`
	Generate *GenerateConfig `json:"generate_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:         "127.0.0.1:5000",
		LogLevel:        "info",
		EnableMetrics:   true,
		ShutdownTimeout: 10,
	}
}

// DefaultModelConfig creates a model configuration with default values.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Source:           sourceDir,
		DataDir:          "./data",
		DatabasePath:     "./data/wordsmith.db",
		CacheDir:         "./data/cache",
		MaxOrder:         0,
		Workers:          0,
		PruneMinWeight:   0,
		DefaultIntensity: ngram.DefaultIntensity,
		Preload:          []string{},
		PreloadIntensity: map[string]float64{},
	}
}

// DefaultGenerateConfig creates the default generation parameters.
func DefaultGenerateConfig() *GenerateConfig {
	req := ngram.DefaultRequest()
	return &GenerateConfig{
		MaxN:         req.MaxN,
		NbTry:        req.NbTry,
		Randomness:   req.Randomness,
		ReduceRandom: req.ReduceRandom,
		MaxLength:    ngram.DefaultMaxLength,
	}
}

// DefaultConfig returns a configuration with every section at its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServerConfig(),
		Models:   DefaultModelConfig(),
		Generate: DefaultGenerateConfig(),
	}
}

// Validate checks the values that would otherwise only fail at request time.
func (c *Config) Validate() error {
	if c.Server == nil || c.Models == nil || c.Generate == nil {
		return errors.New("every config section must be present")
	}
	if c.Models.Source != sourceDir && c.Models.Source != sourceSQLite {
		return fmt.Errorf("model source must be %q or %q, got %q", sourceDir, sourceSQLite, c.Models.Source)
	}
	if c.Generate.MaxLength <= 0 {
		return fmt.Errorf("max_length must be positive, got %d", c.Generate.MaxLength)
	}
	req := ngram.Request{
		MaxN:         c.Generate.MaxN,
		NbTry:        c.Generate.NbTry,
		Randomness:   c.Generate.Randomness,
		ReduceRandom: c.Generate.ReduceRandom,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid generate defaults: %w", err)
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration. Generation
// defaults take effect immediately; the other sections on the next restart.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{config: cfg, configPath: path}, nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Generate returns a copy of the current generation defaults.
func (cm *ConfigManager) Generate() GenerateConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config.Generate
}

// Update validates the new configuration, saves it to disk and applies it.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(&newConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if cm.configPath != "" {
		if err := atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	*cm.config = newConfig
	return nil
}
