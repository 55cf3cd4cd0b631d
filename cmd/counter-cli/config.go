// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/config"
	"github.com/ava-labs/hypercounter/rpc"
)

func getConfigValue(key string, required bool) (string, error) {
	// Flags are bound into viper, so this covers flags and environment.
	if value := viper.GetString(key); value != "" {
		return value, nil
	}
	if required {
		return "", fmt.Errorf("required value for %s not found", key)
	}
	return "", nil
}

func loadConfig() (config.Config, error) {
	path, err := getConfigValue("config", false)
	if err != nil || path == "" {
		c := config.NewDefault()
		return c, c.Verify()
	}
	return config.Load(path)
}

func getAddress(key string, required bool) (codec.Address, error) {
	value, err := getConfigValue(key, required)
	if err != nil || value == "" {
		return codec.EmptyAddress, err
	}
	addr, err := codec.StringToAddress(value)
	if err != nil {
		return codec.EmptyAddress, fmt.Errorf("invalid %s: %w", key, err)
	}
	return addr, nil
}

func newClient() (*rpc.JSONRPCClient, error) {
	endpoint, err := getConfigValue("endpoint", true)
	if err != nil {
		return nil, err
	}
	return rpc.NewJSONRPCClient(endpoint), nil
}

func isJSONOutputRequested() bool {
	output, _ := getConfigValue("output", false)
	return strings.ToLower(output) == "json"
}

func printValue(v fmt.Stringer) error {
	if isJSONOutputRequested() {
		jsonBytes, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}
	fmt.Println(v.String())
	return nil
}
