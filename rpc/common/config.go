package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeSQLite ServerShardType = "sqlite" // key-value shard in a sqlite file
	ShardTypeMemory ServerShardType = "memory" // key-value shard in an in-memory sqlite database
)

// ParseShardType converts a string to a ServerShardType.
func ParseShardType(s string) (ServerShardType, error) {
	switch ServerShardType(strings.ToLower(s)) {
	case ShardTypeSQLite:
		return ShardTypeSQLite, nil
	case ShardTypeMemory:
		return ShardTypeMemory, nil
	default:
		return "", fmt.Errorf("unknown shard type %q (must be sqlite or memory)", s)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type is the storage type of the shard
	Type ServerShardType
	// Path is the database file of a sqlite shard
	Path string
}

// ServerTransportConfig holds the transport settings of the server.
type ServerTransportConfig struct {
	Endpoint        string
	WorkersPerConn  int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// ServerConfig holds all configuration parameters of the remote key-value service.
type ServerConfig struct {
	Shards []ServerShard

	// Timeout for writing a single response
	TimeoutSecond int64

	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(max(1, c.Transport.WorkersPerConn)))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		desc := string(shard.Type)
		if shard.Type == ShardTypeSQLite {
			desc += " (" + shard.Path + ")"
		}
		addField(strconv.FormatUint(shard.ShardID, 10), desc)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport settings of a client.
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	TCPNoDelay             bool
	TCPKeepAliveSec        int
}

type ClientConfig struct {
	TimeoutSecond int

	// RateLimit caps the requests per second sent by a client. Zero disables the limit.
	RateLimit float64
	RateBurst int

	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	if c.RateLimit > 0 {
		addField("Rate Limit", fmt.Sprintf("%.1f req/s (burst %d)", c.RateLimit, max(1, c.RateBurst)))
	} else {
		addField("Rate Limit", "none")
	}

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
