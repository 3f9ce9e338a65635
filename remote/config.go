package remote

import (
	"encoding/json"
	"fmt"
	"os"
)

const defaultTopic = "ledger.storage"

// Config holds the settings of a remote storage backend.
type Config struct {
	Topic    string `json:"topic,omitempty" mapstructure:"topic"`
	MaxRetry int    `json:"max_retry,omitempty" mapstructure:"max_retry"`
}

// DefaultConfig returns a Config addressing the default executor topic with
// no retries.
func DefaultConfig() Config {
	return Config{
		Topic:    defaultTopic,
		MaxRetry: 0,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Topic != "" {
		c.Topic = source.Topic
	}
	if source.MaxRetry > 0 {
		c.MaxRetry = source.MaxRetry
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Topic == "" {
		return ErrEmptyTopic
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeRetry, c.MaxRetry)
	}
	return nil
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
