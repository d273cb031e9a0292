package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/kvmux/lib/dispatch"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/registry"
	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes every flag settable as KVMUX_<FLAG>
// (e.g. KVMUX_LOG_LEVEL=debug)
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("kvmux")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetSerializer creates the serializer selected by the global --serializer flag
func GetSerializer() (serializer.IRPCSerializer, error) {
	return registry.NewSerializer(viper.GetString("serializer"))
}

// GetServerTransport creates the server transport selected by the global --transport flag
func GetServerTransport() (transport.IRPCServerTransport, error) {
	return registry.NewServerTransport(viper.GetString("transport"))
}

// --------------------------------------------------------------------------
// Store configuration (kv commands)
// --------------------------------------------------------------------------

// SetupStoreFlags adds the flags that select and override the store configuration
func SetupStoreFlags(cmd *cobra.Command) {
	key := "config"
	cmd.PersistentFlags().String(key, "", WrapString("Path of the YAML store configuration. Without it, the store \"default\" is a sqlite file kvmux.db in the working directory"))

	key = "store"
	cmd.PersistentFlags().String(key, "default", WrapString("Name of the store to operate on"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("Timeout in seconds of a single operation"))

	key = "remote-endpoints"
	cmd.PersistentFlags().String(key, "", WrapString("Overrides the endpoints of the remote service for remote stores (comma separated)"))

	key = "remote-shard"
	cmd.PersistentFlags().Uint64(key, 100, WrapString("Overrides the shard id used by remote stores"))

	key = "remote-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("Overrides how many times a remote request is tried"))
}

// GetStoreConfig loads the store configuration named by --config and applies
// the remote overrides that were set explicitly (by flag or environment)
func GetStoreConfig() (dispatch.Config, error) {
	config := dispatch.DefaultConfig()
	if path := viper.GetString("config"); path != "" {
		var err error
		if config, err = dispatch.LoadConfig(path); err != nil {
			return dispatch.Config{}, err
		}
	}

	if viper.IsSet("remote-endpoints") && viper.GetString("remote-endpoints") != "" {
		config.Remote.Endpoints = strings.Split(viper.GetString("remote-endpoints"), ",")
	}
	if viper.IsSet("remote-shard") {
		config.Remote.ShardID = viper.GetUint64("remote-shard")
	}
	if viper.IsSet("remote-retries") {
		config.Remote.RetryCount = viper.GetInt("remote-retries")
	}
	if viper.IsSet("timeout") {
		config.Remote.TimeoutSecond = viper.GetInt("timeout")
	}
	if viper.IsSet("transport") {
		config.Remote.Transport = viper.GetString("transport")
	}
	if viper.IsSet("serializer") {
		config.Remote.Serializer = viper.GetString("serializer")
	}

	return config, config.Validate()
}

// --------------------------------------------------------------------------
// Server configuration (serve command)
// --------------------------------------------------------------------------

// ParseShards parses a shard list of the form "100=memory,200=sqlite(data/200.db)"
func ParseShards(s string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	for _, shardConfig := range strings.Split(s, ",") {
		shardConfig = strings.TrimSpace(shardConfig)
		if shardConfig == "" {
			continue
		}

		parts := strings.SplitN(shardConfig, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		typeName, path := strings.TrimSpace(parts[1]), ""
		if open := strings.Index(typeName, "("); open >= 0 {
			if !strings.HasSuffix(typeName, ")") {
				return nil, fmt.Errorf("invalid shard type: %s (missing ')')", typeName)
			}
			path = typeName[open+1 : len(typeName)-1]
			typeName = typeName[:open]
		}

		shardType, err := common.ParseShardType(typeName)
		if err != nil {
			return nil, err
		}
		switch {
		case shardType == common.ShardTypeSQLite && path == "":
			return nil, fmt.Errorf("shard %d: sqlite shards need a path, e.g. %d=sqlite(data/%d.db)", shardID, shardID, shardID)
		case shardType == common.ShardTypeMemory && path != "":
			return nil, fmt.Errorf("shard %d: memory shards take no path", shardID)
		}

		shards = append(shards, common.ServerShard{
			ShardID: shardID,
			Type:    shardType,
			Path:    path,
		})
	}

	if len(shards) == 0 {
		return nil, fmt.Errorf("no shards configured")
	}
	return shards, nil
}
