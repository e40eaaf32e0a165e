// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Envelopes are Solidity ABI encodings so that they can be produced and
// consumed by contracts with abi.encode / abi.decode.
var (
	bytesType     = mustNewType("bytes")
	bytes32Type   = mustNewType("bytes32")
	bytes4Type    = mustNewType("bytes4")
	signatureType = mustNewType("bytes32[2]")
	addressType   = mustNewType("address")
	uint256Type   = mustNewType("uint256")

	plainArgs = abi.Arguments{
		{Name: "payload", Type: bytesType},
	}
	uniqueArgs = abi.Arguments{
		{Name: "tag", Type: bytes32Type},
		{Name: "payload", Type: bytesType},
	}
	signedArgs = abi.Arguments{
		{Name: "signature", Type: signatureType},
		{Name: "payload", Type: bytesType},
	}
	signedUniqueArgs = abi.Arguments{
		{Name: "tag", Type: bytes32Type},
		{Name: "signature", Type: signatureType},
		{Name: "payload", Type: bytesType},
	}
	signedUniqueMessageArgs = abi.Arguments{
		{Name: "tag", Type: bytes32Type},
		{Name: "signature", Type: signatureType},
		{Name: "selector", Type: bytes4Type},
		{Name: "data", Type: bytesType},
	}
	uniqueMessageArgs = abi.Arguments{
		{Name: "tag", Type: bytes32Type},
		{Name: "selector", Type: bytes4Type},
		{Name: "data", Type: bytesType},
	}
	tagArgs = abi.Arguments{
		{Name: "domain", Type: addressType},
		{Name: "nonce", Type: uint256Type},
		{Name: "payloadHash", Type: bytes32Type},
	}
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type %q: %v", t, err))
	}
	return typ
}

// pack ABI encodes values. A nil byte slice is packed as an empty one.
func pack(args abi.Arguments, values ...interface{}) ([]byte, error) {
	for i, v := range values {
		if b, ok := v.([]byte); ok && b == nil {
			values[i] = []byte{}
		}
	}
	b, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return b, nil
}

// unpack decodes data and rejects any encoding that is not the canonical one
// for the decoded values: trailing bytes, stray offsets, declared lengths
// that do not match the remaining input and dirty padding all fail.
func unpack(args abi.Arguments, data []byte) ([]interface{}, error) {
	values, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	canonical, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if !bytes.Equal(canonical, data) {
		return nil, fmt.Errorf("%w: non-canonical encoding of %d bytes", ErrMalformedMessage, len(data))
	}
	return values, nil
}

// Codec encodes and decodes the ABI types used in payloads outside the root
// package.
type Codec struct {
	args abi.Arguments
}

// NewCodec returns a codec for the given ABI type names, e.g. "address", "uint256"
func NewCodec(types ...string) (*Codec, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid abi type %q: %w", t, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return &Codec{args: args}, nil
}

// MustNewCodec is NewCodec for package level variables
func MustNewCodec(types ...string) *Codec {
	c, err := NewCodec(types...)
	if err != nil {
		panic(err)
	}
	return c
}

// Marshal ABI encodes values
func (c *Codec) Marshal(values ...interface{}) ([]byte, error) {
	return pack(c.args, values...)
}

// Unmarshal strictly ABI decodes data
func (c *Codec) Unmarshal(data []byte) ([]interface{}, error) {
	return unpack(c.args, data)
}
