package kv

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext()
			defer cancel()

			if err := stores.Set(ctx, handle, args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext()
			defer cancel()

			key := args[0]
			resp, err := stores.Get(ctx, handle, key)
			switch {
			case errors.Is(err, store.ErrNoSuchKey):
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			case err != nil:
				return err
			}
			fmt.Printf("key=%s, found=true, resp=%s\n", key, resp)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext()
			defer cancel()

			if err := stores.Delete(ctx, handle, args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext()
			defer cancel()

			found, err := stores.Exists(ctx, handle, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opContext()
			defer cancel()

			keys, err := stores.GetKeys(ctx, handle)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			fmt.Printf("%d keys in store %s\n", len(keys), storeName)
			return nil
		},
	}
)
