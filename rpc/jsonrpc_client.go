// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"strings"

	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/hypercounter/client"
	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/rollup"
	"github.com/ava-labs/hypercounter/runtime"
)

type JSONRPCClient struct {
	requester rpc.EndpointRequester
}

func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	uri += JSONRPCEndpoint
	return &JSONRPCClient{requester: rpc.NewEndpointRequester(uri)}
}

func (cli *JSONRPCClient) send(ctx context.Context, method string, args any, reply any) error {
	if args == nil {
		args = struct{}{}
	}
	return parseError(cli.requester.SendRequest(ctx, Name+"."+method, args, reply))
}

func (cli *JSONRPCClient) Ping(ctx context.Context) (bool, error) {
	resp := new(PingReply)
	err := cli.send(ctx, "ping", nil, resp)
	return resp.Success, err
}

func (cli *JSONRPCClient) Network(ctx context.Context) (validator codec.Address, counter codec.Address, err error) {
	resp := new(NetworkReply)
	err = cli.send(ctx, "network", nil, resp)
	return resp.Validator, resp.Counter, err
}

func (cli *JSONRPCClient) Initialize(ctx context.Context, user codec.Address) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "initialize", &InitializeArgs{User: user}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) Increment(ctx context.Context) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "increment", &IncrementArgs{}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) IncrementOn(ctx context.Context, layer runtime.Custody) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "increment", &IncrementArgs{Layer: &layer}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) Delegate(ctx context.Context, payer codec.Address) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "delegate", &PayerArgs{Payer: payer}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) IncrementAndCommit(ctx context.Context, payer codec.Address) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "incrementAndCommit", &PayerArgs{Payer: payer}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) Undelegate(ctx context.Context, payer codec.Address) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "undelegate", &PayerArgs{Payer: payer}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) IncrementAndUndelegate(ctx context.Context, payer codec.Address) (*client.Receipt, error) {
	resp := new(TxReply)
	err := cli.send(ctx, "incrementAndUndelegate", &PayerArgs{Payer: payer}, resp)
	return resp.Receipt, err
}

func (cli *JSONRPCClient) Counter(ctx context.Context) (*client.CounterState, error) {
	resp := new(CounterReply)
	err := cli.send(ctx, "counter", nil, resp)
	return resp.Counter, err
}

func (cli *JSONRPCClient) DelegationStatus(ctx context.Context) (*client.DelegationStatus, error) {
	resp := new(DelegationStatusReply)
	err := cli.send(ctx, "delegationStatus", nil, resp)
	return resp.Status, err
}

func (cli *JSONRPCClient) Account(ctx context.Context, layer runtime.Custody, addr codec.Address) (*runtime.Account, bool, error) {
	resp := new(AccountReply)
	err := cli.send(ctx, "account", &AccountArgs{Address: addr, Layer: layer}, resp)
	return resp.Account, resp.Exists, err
}

func (cli *JSONRPCClient) Tracked(ctx context.Context) ([]rollup.Tracked, error) {
	resp := new(TrackedReply)
	err := cli.send(ctx, "tracked", nil, resp)
	return resp.Accounts, err
}

// Commits returns up to [limit] of the latest commits, newest first.
func (cli *JSONRPCClient) Commits(ctx context.Context, limit int) ([]*rollup.Commit, error) {
	resp := new(CommitsReply)
	err := cli.send(ctx, "commits", &CommitsArgs{Limit: limit}, resp)
	return resp.Commits, err
}
