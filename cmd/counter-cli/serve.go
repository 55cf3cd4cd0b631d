// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/hypercounter/config"
	"github.com/ava-labs/hypercounter/genesis"
	"github.com/ava-labs/hypercounter/pebble"
	"github.com/ava-labs/hypercounter/rpc"
	"github.com/ava-labs/hypercounter/server"
	"github.com/ava-labs/hypercounter/state"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"

	logfactory "github.com/ava-labs/hypercounter/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the base ledger and rollup behind a JSON-RPC server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	logConfig, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	factory := logfactory.NewFactory(logConfig)
	defer factory.Close()
	log, err := factory.Make("counter")
	if err != nil {
		return err
	}

	tracer, err := trace.New(&cfg.Trace)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			log.Warn("failed to close tracer", zap.Error(err))
		}
	}()

	db, dbRegistry, err := pebble.New(cfg.BaseDir(), cfg.Pebble)
	if err != nil {
		return fmt.Errorf("failed to open base ledger: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close base ledger", zap.Error(err))
		}
	}()
	baseDB := state.NewDatabase(db)

	// The rollup is ephemeral: everything it holds is either committed to
	// the base ledger or cloned again after a restart.
	v, err := vm.New(ctx, log, tracer, clock.New(), cfg.VM, baseDB, state.NewDatabase(memdb.New()))
	if err != nil {
		return err
	}
	defer func() {
		if err := v.Close(); err != nil {
			log.Warn("failed to close node", zap.Error(err))
		}
	}()

	if cfg.Genesis != "" {
		b, err := os.ReadFile(cfg.Genesis)
		if err != nil {
			return err
		}
		g, err := genesis.Load(b)
		if err != nil {
			return fmt.Errorf("invalid genesis %s: %w", cfg.Genesis, err)
		}
		applied, err := g.Apply(ctx, tracer, baseDB, v.Base())
		if err != nil {
			return err
		}
		log.Info("loaded genesis",
			zap.String("path", cfg.Genesis),
			zap.Int("allocations", len(g.Allocations)),
			zap.Bool("applied", applied),
		)
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddress)
	if err != nil {
		return err
	}
	srv := server.New(
		"",
		log,
		listener,
		cfg.HTTP,
		cfg.AllowedOrigins,
		cfg.AllowedHosts,
		cfg.ShutdownTimeout,
	)
	handler, err := rpc.NewJSONRPCHandler(rpc.Name, rpc.NewJSONRPCServer(log, tracer, v))
	if err != nil {
		return err
	}
	if err := srv.AddRoute(handler, rpc.JSONRPCEndpoint); err != nil {
		return err
	}
	gatherer := prometheus.Gatherers{v.Gatherer(), dbRegistry}
	if err := srv.AddRoute(server.NewMetricsHandler(gatherer), server.MetricsEndpoint); err != nil {
		return err
	}

	log.Info("starting node",
		zap.Stringer("validator", v.Config().Validator),
		zap.String("dataDir", cfg.DataDir),
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Dispatch)
	g.Go(func() error {
		return v.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return srv.Shutdown()
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
