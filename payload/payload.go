// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/xmsg"
)

// Selectors of the messages exchanged between endpoints
var (
	PingSelector     = xmsg.SelectorOf("ping(bytes32)")
	PongSelector     = xmsg.SelectorOf("pong(bytes32)")
	DepositSelector  = xmsg.SelectorOf("deposit(address,uint256)")
	WithdrawSelector = xmsg.SelectorOf("withdraw(address,uint256)")
)

var (
	// ErrInvalidPayload is returned when a payload is invalid
	ErrInvalidPayload = errors.New("invalid payload")

	pingCodec     = xmsg.MustNewCodec("bytes32")
	transferCodec = xmsg.MustNewCodec("address", "uint256")
)

// Payload is an interface for message payloads
type Payload interface {
	// Selector returns the selector the payload is sent under
	Selector() xmsg.Selector

	// Bytes returns the byte representation of the payload
	Bytes() []byte

	// Verify verifies the payload
	Verify() error
}

// Ping carries liveness randomness. Pong echoes it back unchanged.
type Ping struct {
	Randomness [32]byte
	pong       bool
}

// NewPing creates a new ping payload
func NewPing(randomness [32]byte) *Ping {
	return &Ping{Randomness: randomness}
}

// NewPong creates a pong payload echoing randomness
func NewPong(randomness [32]byte) *Ping {
	return &Ping{Randomness: randomness, pong: true}
}

func (p *Ping) Selector() xmsg.Selector {
	if p.pong {
		return PongSelector
	}
	return PingSelector
}

// Verify verifies the ping payload
func (*Ping) Verify() error {
	return nil
}

// Bytes returns the byte representation of the payload
func (p *Ping) Bytes() []byte {
	b, _ := pingCodec.Marshal(p.Randomness)
	return b
}

// ParsePing parses a ping or pong payload
func ParsePing(b []byte) (*Ping, error) {
	values, err := pingCodec.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &Ping{Randomness: values[0].([32]byte)}, nil
}

// Transfer moves Amount to Recipient on the receiving chain. It is sent as a
// deposit towards the wrapped side and as a withdraw back to the native side.
type Transfer struct {
	Recipient common.Address
	Amount    *uint256.Int
	withdraw  bool
}

// NewDeposit creates a deposit payload
func NewDeposit(recipient common.Address, amount *uint256.Int) (*Transfer, error) {
	return newTransfer(recipient, amount, false)
}

// NewWithdraw creates a withdraw payload
func NewWithdraw(recipient common.Address, amount *uint256.Int) (*Transfer, error) {
	return newTransfer(recipient, amount, true)
}

func newTransfer(recipient common.Address, amount *uint256.Int, withdraw bool) (*Transfer, error) {
	t := &Transfer{
		Recipient: recipient,
		Amount:    amount,
		withdraw:  withdraw,
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transfer) Selector() xmsg.Selector {
	if t.withdraw {
		return WithdrawSelector
	}
	return DepositSelector
}

// Verify verifies the transfer payload
func (t *Transfer) Verify() error {
	if t.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: zero recipient", ErrInvalidPayload)
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
	}
	return nil
}

// Bytes returns the byte representation of the payload
func (t *Transfer) Bytes() []byte {
	b, _ := transferCodec.Marshal(t.Recipient, t.Amount.ToBig())
	return b
}

// ParseTransfer parses a deposit or withdraw payload
func ParseTransfer(b []byte) (*Transfer, error) {
	values, err := transferCodec.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	amount, overflow := uint256.FromBig(values[1].(*big.Int))
	if overflow {
		return nil, fmt.Errorf("%w: amount overflows uint256", ErrInvalidPayload)
	}
	t := &Transfer{
		Recipient: values[0].(common.Address),
		Amount:    amount,
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}
