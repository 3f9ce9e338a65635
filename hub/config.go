package hub

import (
	"log/slog"
	"time"
)

// Config defines configuration for a Hub instance.
type Config struct {
	// Hub identity
	Name string

	// Communication settings
	ChannelBufferSize int
	DefaultTimeout    time.Duration

	// Observability
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		ChannelBufferSize: 100,
		DefaultTimeout:    30 * time.Second,
		Logger:            slog.Default(),
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.ChannelBufferSize > 0 {
		c.ChannelBufferSize = source.ChannelBufferSize
	}

	if source.DefaultTimeout > 0 {
		c.DefaultTimeout = source.DefaultTimeout
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
