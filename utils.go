// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Constants
const (
	// TagLen is the length of a uniqueness tag
	TagLen = 32

	// SelectorLen is the length of a message selector
	SelectorLen = 4
)

// Tag identifies a unique message for replay protection
type Tag [TagLen]byte

func (t Tag) String() string {
	return hexutil.Encode(t[:])
}

// Selector routes a message to a receive handler
type Selector [SelectorLen]byte

// SelectorOf returns the first four bytes of the keccak256 hash of a
// function signature such as "ping(bytes32)".
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature)))
	return s
}

// SelectorFromBytes parses a four byte selector
func SelectorFromBytes(b []byte) (Selector, error) {
	if len(b) != SelectorLen {
		return Selector{}, fmt.Errorf("%w: selector must be %d bytes, got %d", ErrMalformedMessage, SelectorLen, len(b))
	}
	var s Selector
	copy(s[:], b)
	return s, nil
}

func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

// ceil32 rounds n up to the next ABI word boundary
func ceil32(n int) int {
	return (n + 31) / 32 * 32
}
