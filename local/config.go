package local

// Config holds local store initialization parameters.
type Config struct {
	Path   string `json:"path,omitempty" mapstructure:"path"`       // Pebble data directory.
	NoSync bool   `json:"no_sync,omitempty" mapstructure:"no_sync"` // Skip the WAL fsync on commit.
}

// DefaultConfig returns the default local configuration. Path must still be
// set before Open.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.NoSync {
		c.NoSync = true
	}
}
