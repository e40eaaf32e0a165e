// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var _ MessageBus = (*FakeMessageBus)(nil)

// FakeMessageBus is a test implementation of MessageBus that records every
// send and never delivers. When Err is set every send fails with it.
type FakeMessageBus struct {
	Fee *uint256.Int
	Err error

	lock sync.Mutex
	sent [][]byte
}

func (b *FakeMessageBus) SendMessage(
	_ common.Address,
	_ common.Address,
	_ uint64,
	message []byte,
	_ *uint256.Int,
) (*uint256.Int, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.sent = append(b.sent, append([]byte(nil), message...))
	return b.CalcFee(message), nil
}

func (b *FakeMessageBus) CalcFee([]byte) *uint256.Int {
	if b.Fee == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(b.Fee)
}

// Sent returns the messages sent so far, oldest first
func (b *FakeMessageBus) Sent() [][]byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([][]byte(nil), b.sent...)
}
