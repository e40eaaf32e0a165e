// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package xmsg_test

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/xmsg"
)

type onceGuard map[xmsg.Tag]bool

func (g onceGuard) Consume(tag xmsg.Tag) error {
	if g[tag] {
		return xmsg.ErrDuplicateMessage
	}
	g[tag] = true
	return nil
}

func Example() {
	signer, err := xmsg.LocalSignerFromHex("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		panic(err)
	}
	sender := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	// Send a selector-routed message from chain A
	enc := xmsg.NewEncoder(signer, sender)
	selector := xmsg.Selector{0xde, 0xad, 0xbe, 0xef}
	encoded, _, err := enc.SignedUniqueMessage(selector, []byte("Hello from chain A to chain B!"))
	if err != nil {
		panic(err)
	}
	fmt.Printf("Envelope size: %d\n", len(encoded))

	// Receive it on chain B, which only trusts the sender's signing key
	dec := xmsg.NewDecoder(signer.Address(), onceGuard{})
	msg, err := dec.SignedUniqueMessage(encoded)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Selector: %s\n", msg.Selector)
	fmt.Printf("Payload: %s\n", msg.Data)

	_, err = dec.SignedUniqueMessage(encoded)
	fmt.Printf("Replay: %v\n", err)

	// Output:
	// Envelope size: 224
	// Selector: 0xdeadbeef
	// Payload: Hello from chain A to chain B!
	// Replay: duplicate message
}
