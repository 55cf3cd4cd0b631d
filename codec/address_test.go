// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/json"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestAddress(t *testing.T) {
	require := require.New(t)
	addrID := ids.GenerateTestID()

	addr := CreateAddress(KeyAddressTypeID, addrID)
	addrStr, err := addr.MarshalText()
	require.NoError(err)

	var parsedAddr Address
	require.NoError(parsedAddr.UnmarshalText(addrStr))
	require.Equal(addr, parsedAddr)
	require.Equal(KeyAddressTypeID, parsedAddr.TypeID())
}

func TestAddressJSON(t *testing.T) {
	require := require.New(t)
	addr := CreateAddress(KeyAddressTypeID, ids.GenerateTestID())

	addrJSONBytes, err := json.Marshal(addr)
	require.NoError(err)

	var parsedAddr Address
	require.NoError(json.Unmarshal(addrJSONBytes, &parsedAddr))
	require.Equal(addr, parsedAddr)
}

func TestAddressYAML(t *testing.T) {
	require := require.New(t)
	addr := CreateAddress(KeyAddressTypeID, ids.GenerateTestID())

	b, err := yaml.Marshal(map[string]Address{"payer": addr})
	require.NoError(err)
	require.Contains(string(b), addr.String())

	var parsed map[string]Address
	require.NoError(yaml.Unmarshal(b, &parsed))
	require.Equal(addr, parsed["payer"])

	require.Error(yaml.Unmarshal([]byte("payer: 0x1234\n"), &parsed))
}

func TestAddressString(t *testing.T) {
	require := require.New(t)
	addr := CreateAddress(KeyAddressTypeID, ids.GenerateTestID())

	originalAddr, err := StringToAddress(addr.String())
	require.NoError(err)
	require.Equal(addr, originalAddr)
}

func TestAddressChecksum(t *testing.T) {
	require := require.New(t)
	addr := CreateAddress(KeyAddressTypeID, ids.GenerateTestID())

	s := []byte(addr.String())
	// flip one hex digit of the payload
	if s[4] == '0' {
		s[4] = '1'
	} else {
		s[4] = '0'
	}
	_, err := StringToAddress(string(s))
	require.Error(err)
}

func TestToAddressSize(t *testing.T) {
	require := require.New(t)
	_, err := ToAddress(make([]byte, AddressLen-1))
	require.ErrorIs(err, ErrInvalidSize)
}
