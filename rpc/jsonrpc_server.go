// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/runtime"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
)

type JSONRPCServer struct {
	log    logging.Logger
	tracer trace.Tracer
	vm     *vm.VM
}

func NewJSONRPCServer(log logging.Logger, tracer trace.Tracer, v *vm.VM) *JSONRPCServer {
	return &JSONRPCServer{log: log, tracer: tracer, vm: v}
}

func (j *JSONRPCServer) start(req *http.Request, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return j.tracer.Start(req.Context(), "JSONRPCServer."+name, oteltrace.WithAttributes(attrs...))
}

type PingReply struct {
	Success bool `json:"success"`
}

func (j *JSONRPCServer) Ping(_ *http.Request, _ *struct{}, reply *PingReply) error {
	j.log.Info("ping")
	reply.Success = true
	return nil
}

type NetworkReply struct {
	Validator codec.Address `json:"validator"`
	Counter   codec.Address `json:"counter"`
}

func (j *JSONRPCServer) Network(_ *http.Request, _ *struct{}, reply *NetworkReply) error {
	reply.Validator = j.vm.Rollup().Validator()
	reply.Counter = j.vm.Client().CounterAddress()
	return nil
}

type TxReply struct {
	Receipt *client.Receipt `json:"receipt"`
}

type InitializeArgs struct {
	User codec.Address `json:"user"`
}

func (j *JSONRPCServer) Initialize(req *http.Request, args *InitializeArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "Initialize", attribute.Stringer("user", args.User))
	defer span.End()

	reply.Receipt, err = j.vm.Client().Initialize(ctx, args.User)
	return err
}

type IncrementArgs struct {
	// Layer forces the counter to be incremented on one layer. When unset
	// the counter is incremented wherever it is writable.
	Layer *runtime.Custody `json:"layer,omitempty"`
}

func (j *JSONRPCServer) Increment(req *http.Request, args *IncrementArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "Increment")
	defer span.End()

	if args.Layer != nil {
		reply.Receipt, err = j.vm.Client().IncrementOn(ctx, *args.Layer)
		return err
	}
	reply.Receipt, err = j.vm.Client().Increment(ctx)
	return err
}

type PayerArgs struct {
	Payer codec.Address `json:"payer"`
}

func (j *JSONRPCServer) Delegate(req *http.Request, args *PayerArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "Delegate", attribute.Stringer("payer", args.Payer))
	defer span.End()

	reply.Receipt, err = j.vm.Client().Delegate(ctx, args.Payer)
	return err
}

func (j *JSONRPCServer) IncrementAndCommit(req *http.Request, args *PayerArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "IncrementAndCommit", attribute.Stringer("payer", args.Payer))
	defer span.End()

	reply.Receipt, err = j.vm.Client().IncrementAndCommit(ctx, args.Payer)
	return err
}

func (j *JSONRPCServer) Undelegate(req *http.Request, args *PayerArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "Undelegate", attribute.Stringer("payer", args.Payer))
	defer span.End()

	reply.Receipt, err = j.vm.Client().Undelegate(ctx, args.Payer)
	return err
}

func (j *JSONRPCServer) IncrementAndUndelegate(req *http.Request, args *PayerArgs, reply *TxReply) (err error) {
	ctx, span := j.start(req, "IncrementAndUndelegate", attribute.Stringer("payer", args.Payer))
	defer span.End()

	reply.Receipt, err = j.vm.Client().IncrementAndUndelegate(ctx, args.Payer)
	return err
}

type CounterReply struct {
	Counter *client.CounterState `json:"counter"`
}

func (j *JSONRPCServer) Counter(req *http.Request, _ *struct{}, reply *CounterReply) (err error) {
	ctx, span := j.start(req, "Counter")
	defer span.End()

	reply.Counter, err = j.vm.Client().Counter(ctx)
	return err
}

type DelegationStatusReply struct {
	Status *client.DelegationStatus `json:"status"`
}

func (j *JSONRPCServer) DelegationStatus(req *http.Request, _ *struct{}, reply *DelegationStatusReply) (err error) {
	ctx, span := j.start(req, "DelegationStatus")
	defer span.End()

	reply.Status, err = j.vm.Client().DelegationStatus(ctx)
	return err
}

type AccountArgs struct {
	Address codec.Address   `json:"address"`
	Layer   runtime.Custody `json:"layer"`
}

type AccountReply struct {
	Exists  bool             `json:"exists"`
	Account *runtime.Account `json:"account,omitempty"`
}

func (j *JSONRPCServer) Account(req *http.Request, args *AccountArgs, reply *AccountReply) (err error) {
	ctx, span := j.start(req, "Account",
		attribute.Stringer("address", args.Address),
		attribute.Stringer("layer", args.Layer),
	)
	defer span.End()

	reply.Account, reply.Exists, err = j.vm.Client().Account(ctx, args.Layer, args.Address)
	return err
}

type TrackedReply struct {
	Accounts []rollup.Tracked `json:"accounts"`
}

func (j *JSONRPCServer) Tracked(_ *http.Request, _ *struct{}, reply *TrackedReply) error {
	reply.Accounts = j.vm.Rollup().Tracked()
	j.log.Debug("tracked accounts", zap.Int("count", len(reply.Accounts)))
	return nil
}

type CommitsArgs struct {
	// Limit bounds the number of commits returned. Zero returns every commit
	// the node remembers.
	Limit int `json:"limit"`
}

type CommitsReply struct {
	Commits []*rollup.Commit `json:"commits"`
}

func (j *JSONRPCServer) Commits(_ *http.Request, args *CommitsArgs, reply *CommitsReply) error {
	reply.Commits = j.vm.Rollup().Commits(args.Limit)
	return nil
}
