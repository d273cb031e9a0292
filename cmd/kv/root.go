package kv

import (
	"context"
	"time"

	"github.com/ValentinKolb/kvmux/cmd/util"
	"github.com/ValentinKolb/kvmux/lib/dispatch"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	stores    dispatch.IDispatch
	handle    dispatch.Handle
	storeName string

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: shutdownStore,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupStoreFlags(KeyValueCommands)

	KeyValueCommands.PersistentFlags().String("log-level", "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore builds the façade from the store configuration and opens the selected store
func setupStore(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	config, err := util.GetStoreConfig()
	if err != nil {
		return err
	}

	d, err := dispatch.New(config)
	if err != nil {
		return err
	}
	stores = dispatch.NewLocked(d)

	ctx, cancel := opContext()
	defer cancel()

	storeName = viper.GetString("store")
	handle, err = stores.Open(ctx, storeName)
	if err != nil {
		_ = stores.Shutdown()
		return err
	}
	return nil
}

func shutdownStore(_ *cobra.Command, _ []string) error {
	if stores == nil {
		return nil
	}
	stores.Close(handle)
	return stores.Shutdown()
}

// opContext returns the context for a single store operation
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(max(1, viper.GetInt("timeout")))*time.Second)
}
