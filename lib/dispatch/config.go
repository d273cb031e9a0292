package dispatch

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/kvmux/rpc/common"
	"gopkg.in/yaml.v3"
)

// StoreType selects the backend a store name is served by.
type StoreType string

const (
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeMemory StoreType = "memory"
	StoreTypeRemote StoreType = "remote"
)

// StoreConfig configures a single store name.
type StoreConfig struct {
	Type StoreType `yaml:"type"`
	// Path of the sqlite database file. Only used by sqlite stores.
	Path string `yaml:"path,omitempty"`
	// Namespace on the remote service. Only used by remote stores, defaults to "default".
	Namespace string `yaml:"namespace,omitempty"`
}

// RemoteConfig configures the client shared by all remote stores.
type RemoteConfig struct {
	Endpoints              []string `yaml:"endpoints"`
	Transport              string   `yaml:"transport"`
	Serializer             string   `yaml:"serializer"`
	ShardID                uint64   `yaml:"shard_id"`
	TimeoutSecond          int      `yaml:"timeout_second,omitempty"`
	RetryCount             int      `yaml:"retry_count,omitempty"`
	ConnectionsPerEndpoint int      `yaml:"connections_per_endpoint,omitempty"`
	RateLimit              float64  `yaml:"rate_limit,omitempty"`
	RateBurst              int      `yaml:"rate_burst,omitempty"`
}

// ClientConfig converts the remote section into the rpc client configuration.
func (r RemoteConfig) ClientConfig() common.ClientConfig {
	timeout := r.TimeoutSecond
	if timeout <= 0 {
		timeout = 5
	}
	return common.ClientConfig{
		TimeoutSecond: timeout,
		RateLimit:     r.RateLimit,
		RateBurst:     r.RateBurst,
		Transport: common.ClientTransportConfig{
			Endpoints:              r.Endpoints,
			RetryCount:             max(1, r.RetryCount),
			ConnectionsPerEndpoint: max(1, r.ConnectionsPerEndpoint),
			TCPNoDelay:             true,
		},
	}
}

// Config is the store configuration of a façade: a fixed set of store names,
// each bound to one backend.
type Config struct {
	Stores map[string]StoreConfig `yaml:"stores"`
	Remote RemoteConfig           `yaml:"remote,omitempty"`
}

// DefaultConfig configures the single store "default" as the sqlite file kvmux.db.
func DefaultConfig() Config {
	return Config{
		Stores: map[string]StoreConfig{
			"default": {Type: StoreTypeSQLite, Path: "kvmux.db"},
		},
		Remote: RemoteConfig{
			Transport:  "tcp",
			Serializer: "binary",
			ShardID:    100,
		},
	}
}

// LoadConfig reads a YAML store configuration from path.
// Store types are case-insensitive.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	config := Config{Remote: DefaultConfig().Remote}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	for name, sc := range config.Stores {
		sc.Type = StoreType(strings.ToLower(string(sc.Type)))
		config.Stores[name] = sc
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks that every store has a known type and the settings it needs.
func (c Config) Validate() error {
	remote := false
	for name, sc := range c.Stores {
		switch sc.Type {
		case StoreTypeSQLite:
			if sc.Path == "" {
				return fmt.Errorf("store %q: sqlite stores need a path", name)
			}
		case StoreTypeMemory:
		case StoreTypeRemote:
			remote = true
		default:
			return fmt.Errorf("store %q: unknown store type %q", name, sc.Type)
		}
	}

	if remote && len(c.Remote.Endpoints) == 0 {
		return fmt.Errorf("remote stores are configured but no remote endpoint is set")
	}
	return nil
}
