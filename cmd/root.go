package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvmux/cmd/kv"
	"github.com/ValentinKolb/kvmux/cmd/serve"
	"github.com/ValentinKolb/kvmux/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvmux",
		Short: "multiplexed key-value stores",
		Long: fmt.Sprintf(`kvmux (v%s)

Named key-value stores on top of sqlite files, in-memory databases
or a remote key-value service, addressed through one handle based API.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvmux",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvmux v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use for the remote service (binary, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use for the remote service (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
