package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/storageproxy/local"
	"github.com/tailored-agentic-units/storageproxy/remote"
)

const (
	KindRemote = "remote"
	KindLocal  = "local"

	defaultTimeout = 10 * time.Second
)

// Config selects a storage backend and carries the settings of each kind.
// Only the section matching Kind is used.
type Config struct {
	Kind     string        `json:"kind,omitempty" mapstructure:"kind"`
	Endpoint string        `json:"endpoint,omitempty" mapstructure:"endpoint"`
	Timeout  time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
	Remote   remote.Config `json:"remote" mapstructure:"remote"`
	Local    local.Config  `json:"local" mapstructure:"local"`

	// RemoteFile names a JSON file holding shared remote settings. It is
	// applied before the inline remote section; a relative path resolves
	// against the directory of the file that names it.
	RemoteFile string `json:"remote_file,omitempty" mapstructure:"remote_file"`
}

// DefaultConfig returns a Config for the remote backend.
func DefaultConfig() Config {
	return Config{
		Kind:    KindRemote,
		Timeout: defaultTimeout,
		Remote:  remote.DefaultConfig(),
		Local:   local.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// section's Merge method.
func (c *Config) Merge(source *Config) {
	c.Remote.Merge(&source.Remote)
	c.Local.Merge(&source.Local)

	if source.Kind != "" {
		c.Kind = source.Kind
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.RemoteFile != "" {
		c.RemoteFile = source.RemoteFile
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// resulting Config. The format follows the file extension (JSON, YAML or
// TOML); durations are written as strings such as "5s".
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if loaded.RemoteFile != "" {
		path := loaded.RemoteFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(filename), path)
		}
		shared, err := remote.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("remote_file: %w", err)
		}
		cfg.Remote.Merge(shared)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// ApplyEnv overlays environment variables that start with prefix onto cfg.
// The remainder of the variable name selects the setting, with a leading
// REMOTE_ or LOCAL_ addressing that section:
//
//	STORAGEPROXY_KIND=local
//	STORAGEPROXY_TIMEOUT=3s
//	STORAGEPROXY_REMOTE_MAX_RETRY=3
//	STORAGEPROXY_LOCAL_PATH=/var/lib/ledger
func ApplyEnv(prefix string, cfg *Config) error {
	v := viper.New()

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}

		propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
		propKey = strings.TrimPrefix(propKey, "_")
		for _, section := range []string{KindRemote, KindLocal} {
			if rest, found := strings.CutPrefix(propKey, section+"_"); found {
				propKey = section + "." + rest
				break
			}
		}

		v.Set(propKey, value)
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return fmt.Errorf("failed to unmarshal environment: %w", err)
	}

	cfg.Merge(&loaded)
	return nil
}
