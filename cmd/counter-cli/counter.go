// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/rpc"
	"github.com/ava-labs/hypercounter/runtime"
)

type receiptResponse struct {
	*client.Receipt
}

func (r receiptResponse) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "executed on %s: %d instructions, %d accounts changed", r.Layer, r.Instructions, r.Changed)
	for _, l := range r.Logs {
		fmt.Fprintf(&b, "\n  %s", l)
	}
	return b.String()
}

type counterResponse struct {
	*client.CounterState
}

func (r counterResponse) String() string {
	if !r.Initialized {
		return fmt.Sprintf("counter %s is not initialized", r.Address)
	}
	return fmt.Sprintf("base=%d rollup=%d custody=%s delegated=%t", r.Base, r.Rollup, r.Custody, r.Delegated)
}

type statusResponse struct {
	*client.DelegationStatus
}

func (r statusResponse) String() string {
	if !r.Delegated {
		return fmt.Sprintf("%s is not delegated", r.Address)
	}
	var nonce uint64
	if r.Metadata != nil {
		nonce = r.Metadata.LastNonce
	}
	return fmt.Sprintf(
		"%s delegated to %s at %d (time limit %dms, commit every %dms, last nonce %d)",
		r.Address,
		r.Record.Authority,
		r.Record.DelegatedAt,
		r.Record.TimeLimit,
		r.Record.CommitFrequencyMs,
		nonce,
	)
}

type trackedResponse []rollup.Tracked

func (r trackedResponse) String() string {
	if len(r) == 0 {
		return "no accounts tracked"
	}
	lines := make([]string, 0, len(r))
	for _, t := range r {
		lines = append(lines, fmt.Sprintf("%s last commit %s", t.Address, t.LastCommit))
	}
	return strings.Join(lines, "\n")
}

type commitsResponse []*rollup.Commit

func (r commitsResponse) String() string {
	if len(r) == 0 {
		return "no commits"
	}
	lines := make([]string, 0, len(r))
	for _, c := range r {
		kind := "commit"
		if c.Undelegated {
			kind = "undelegate"
		}
		lines = append(lines, fmt.Sprintf("%s nonce=%d %s (%d bytes) at %s", c.Account, c.Nonce, kind, c.Size, c.Time))
	}
	return strings.Join(lines, "\n")
}

// txCommand submits [f] with the payer given by --payer.
func txCommand(use string, short string, f func(*rpc.JSONRPCClient, context.Context, codec.Address) (*client.Receipt, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			payer, err := getAddress("payer", true)
			if err != nil {
				return err
			}
			receipt, err := f(cli, cmd.Context(), payer)
			if err != nil {
				return err
			}
			return printValue(receiptResponse{receipt})
		},
	}
	cmd.Flags().String("payer", "", "Address signing and paying for the transaction")
	return cmd
}

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Read the counter from both layers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := newClient()
		if err != nil {
			return err
		}
		state, err := cli.Counter(cmd.Context())
		if err != nil {
			return err
		}
		return printValue(counterResponse{state})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the delegation record of the counter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := newClient()
		if err != nil {
			return err
		}
		status, err := cli.DelegationStatus(cmd.Context())
		if err != nil {
			return err
		}
		return printValue(statusResponse{status})
	},
}

var trackedCmd = &cobra.Command{
	Use:   "tracked",
	Short: "List the accounts held by the rollup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := newClient()
		if err != nil {
			return err
		}
		tracked, err := cli.Tracked(cmd.Context())
		if err != nil {
			return err
		}
		return printValue(trackedResponse(tracked))
	},
}

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "List the latest commits accepted by the base ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := newClient()
		if err != nil {
			return err
		}
		commits, err := cli.Commits(cmd.Context(), viper.GetInt("limit"))
		if err != nil {
			return err
		}
		return printValue(commitsResponse(commits))
	},
}

var incrementCmd = &cobra.Command{
	Use:   "increment",
	Short: "Increment the counter on the layer holding it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := newClient()
		if err != nil {
			return err
		}
		layer, err := getConfigValue("layer", false)
		if err != nil {
			return err
		}
		var receipt *client.Receipt
		if layer == "" {
			receipt, err = cli.Increment(cmd.Context())
		} else {
			var custody runtime.Custody
			if err := custody.UnmarshalText([]byte(layer)); err != nil {
				return err
			}
			receipt, err = cli.IncrementOn(cmd.Context(), custody)
		}
		if err != nil {
			return err
		}
		return printValue(receiptResponse{receipt})
	},
}

func init() {
	incrementCmd.Flags().String("layer", "", "Force the layer (base-ledger or rollup)")
	commitsCmd.Flags().Int("limit", 10, "Maximum number of commits to list (0 for all)")
	rootCmd.AddCommand(
		counterCmd,
		statusCmd,
		trackedCmd,
		commitsCmd,
		incrementCmd,
		txCommand("initialize", "Create the counter on the base ledger", (*rpc.JSONRPCClient).Initialize),
		txCommand("delegate", "Delegate the counter to the rollup", (*rpc.JSONRPCClient).Delegate),
		txCommand("commit", "Increment on the rollup and commit to the base ledger", (*rpc.JSONRPCClient).IncrementAndCommit),
		txCommand("undelegate", "Commit and return the counter to the base ledger", (*rpc.JSONRPCClient).Undelegate),
		txCommand("increment-and-undelegate", "Increment on the rollup, commit and undelegate", (*rpc.JSONRPCClient).IncrementAndUndelegate),
	)
}
