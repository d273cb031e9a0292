package serve

import (
	"github.com/ValentinKolb/kvmux/cmd/util"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the remote key-value service",
		Long:    `Start the remote key-value service with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVMUX_<flag> (e.g. KVMUX_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=memory", util.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: memory, sqlite(PATH)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, util.WrapString("Timeout in seconds for processing a single request"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", util.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/kvmux.sock, ...)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 8, util.WrapString("Requests processed in parallel per connection (ignored for http)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, util.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, util.WrapString("The keepalive interval in seconds (only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, util.WrapString("The linger time in seconds (only for tcp)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	shards, err := util.ParseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}

	serveCmdConfig.Shards = shards
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		WorkersPerConn:  viper.GetInt("workers"),
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the service and blocks until it stops
func run(_ *cobra.Command, _ []string) error {
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetServerTransport()
	if err != nil {
		return err
	}

	return server.NewRPCServer(*serveCmdConfig, t, s).Serve()
}
