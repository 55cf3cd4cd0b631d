// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	"github.com/ava-labs/hypercounter/codec"
	"github.com/ava-labs/hypercounter/sdk"
)

// DefaultValidator is the rollup validator used when none is configured.
var DefaultValidator = codec.CreateAddress(
	codec.KeyAddressTypeID,
	ids.ID(hashing.ComputeHash256Array([]byte("hypercounter-validator"))),
)

type Config struct {
	// Validator holds custody of the accounts delegated to the rollup.
	Validator codec.Address `json:"validator" yaml:"validator"`
	// Delegate parameterizes the delegations requested by the counter. An
	// empty validator delegates to [Validator].
	Delegate sdk.DelegateConfig `json:"delegate" yaml:"delegate"`
	// SchedulerInterval is how often the rollup looks for accounts to
	// commit or undelegate.
	SchedulerInterval time.Duration `json:"schedulerInterval" yaml:"schedulerInterval"`
}

func NewConfig() Config {
	return Config{
		Validator:         DefaultValidator,
		Delegate:          sdk.DefaultDelegateConfig(),
		SchedulerInterval: time.Second,
	}
}
