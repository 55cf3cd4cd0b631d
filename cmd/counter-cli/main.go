// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "counter-cli",
	Short: "Delegatable counter node and client",
	Long: `Runs a base ledger with an attached rollup and drives the counter
program against it, either in process or over JSON-RPC.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func init() {
	// Every flag can also be set as COUNTER_<FLAG>, e.g. COUNTER_ENDPOINT.
	viper.SetEnvPrefix("counter")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format (text or json)")
	rootCmd.PersistentFlags().String("endpoint", "", "URI of a running counter node")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON node config")
}

func main() {
	Execute()
}
