// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/raulk/clock"
	"github.com/spf13/cobra"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/config"
	"github.com/ava-labs/hypercounter/plan"
	"github.com/ava-labs/hypercounter/rpc"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
)

// payerFunds is airdropped to the payer of an in-process run.
const payerFunds uint64 = 1_000_000_000

var errPayerRequired = errors.New("a payer is required when running against an endpoint")

var runCmd = &cobra.Command{
	Use:   "run <plan>",
	Short: "Execute a plan in process, or against --endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		payer, err := getAddress("payer", false)
		if err != nil {
			return err
		}
		if payer == codec.EmptyAddress {
			payer = p.Payer
		}

		var (
			ctx    = cmd.Context()
			runner *plan.Runner
		)
		endpoint, err := getConfigValue("endpoint", false)
		if err != nil {
			return err
		}
		if endpoint != "" {
			if payer == codec.EmptyAddress {
				return errPayerRequired
			}
			runner = plan.NewRunner(logging.NoLog{}, rpc.NewJSONRPCClient(endpoint), nil)
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner, payer, err = newLocalRunner(ctx, cfg, payer)
			if err != nil {
				return err
			}
		}

		report, runErr := runner.Run(ctx, p, payer)
		if err := printValue(report); err != nil {
			return err
		}
		return runErr
	},
}

// newLocalRunner runs plans against an in-memory node driven by a mock
// clock. An empty [payer] is replaced with a fresh key.
func newLocalRunner(ctx context.Context, cfg config.Config, payer codec.Address) (*plan.Runner, codec.Address, error) {
	clk := clock.NewMock()
	v, err := vm.New(
		ctx,
		logging.NoLog{},
		trace.Noop("counter-cli"),
		clk,
		cfg.VM,
		state.NewDatabase(memdb.New()),
		state.NewDatabase(memdb.New()),
	)
	if err != nil {
		return nil, codec.EmptyAddress, err
	}
	if payer == codec.EmptyAddress {
		payer = codec.CreateAddress(codec.KeyAddressTypeID, ids.ID(hashing.ComputeHash256Array([]byte("counter-cli-payer"))))
	}
	if err := v.Base().Airdrop(ctx, payer, payerFunds); err != nil {
		return nil, codec.EmptyAddress, err
	}
	runner := plan.NewRunner(logging.NoLog{}, v.Client(), &plan.MockAdvancer{
		Clock:     clk,
		Scheduler: v.Scheduler(),
	})
	return runner, payer, nil
}

func init() {
	runCmd.Flags().String("payer", "", "Address signing and paying for every step")
	rootCmd.AddCommand(runCmd)
}
