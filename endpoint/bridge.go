// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/payload"
)

// transferPayloadLen is the ABI size of (address, uint256)
const transferPayloadLen = 64

// DepositCost returns the amount withheld from every deposit
func (e *Endpoint) DepositCost() *uint256.Int {
	if !e.depositCost.IsZero() {
		return new(uint256.Int).Set(e.depositCost)
	}
	return e.bus.CalcFee(make([]byte, xmsg.EncodedLength(e.outgoingVariant(), transferPayloadLen)))
}

// Deposit locks value minus the deposit cost and asks the remote endpoint to
// mint the same amount to recipient. A zero recipient means sender.
func (e *Endpoint) Deposit(sender, recipient common.Address, value *uint256.Int) (*uint256.Int, error) {
	if recipient == (common.Address{}) {
		recipient = sender
	}
	cost := e.DepositCost()
	if value == nil || !value.Gt(cost) {
		paid := "0"
		if value != nil {
			paid = value.Dec()
		}
		return nil, fmt.Errorf("%w: %s does not exceed cost %s", xmsg.ErrInsufficientDeposit, paid, cost.Dec())
	}
	amount := new(uint256.Int).Sub(value, cost)
	deposit, err := payload.NewDeposit(recipient, amount)
	if err != nil {
		return nil, err
	}

	e.lock.Lock()
	tag, _, err := e.send(deposit, cost)
	if err != nil {
		e.lock.Unlock()
		return nil, err
	}
	e.locked.Add(e.locked, amount)
	e.lock.Unlock()

	e.log.Info(
		"Locked deposit.",
		zap.Stringer("sender", sender),
		zap.Stringer("recipient", recipient),
		zap.String("amount", amount.Dec()),
	)
	e.emit(Event{Kind: EventDeposited, Tag: tag, Selector: payload.DepositSelector, Recipient: recipient, Amount: amount})
	return amount, nil
}

// Burn destroys amount wrapped tokens held by holder and asks the remote
// endpoint to release the same amount to recipient. value pays the bus fee.
// A zero recipient means holder.
func (e *Endpoint) Burn(holder, recipient common.Address, amount, value *uint256.Int) error {
	if recipient == (common.Address{}) {
		recipient = holder
	}
	withdraw, err := payload.NewWithdraw(recipient, amount)
	if err != nil {
		return err
	}

	e.lock.Lock()
	if balance := e.token.BalanceOf(holder); balance.Lt(amount) {
		e.lock.Unlock()
		return fmt.Errorf("%w: %s holds %s, burning %s", xmsg.ErrInsufficientBalance, holder, balance.Dec(), amount.Dec())
	}
	if value == nil {
		value = new(uint256.Int)
	}
	tag, _, err := e.send(withdraw, value)
	if err != nil {
		e.lock.Unlock()
		return err
	}
	// Balance was checked under the endpoint lock, which guards every mint
	// and burn.
	if err := e.token.Burn(holder, amount); err != nil {
		e.lock.Unlock()
		return err
	}
	e.lock.Unlock()

	e.emit(Event{Kind: EventBurned, Tag: tag, Selector: payload.WithdrawSelector, Recipient: recipient, Amount: amount})
	return nil
}

// Locked returns the value held against wrapped tokens on the remote chain
func (e *Endpoint) Locked() *uint256.Int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return new(uint256.Int).Set(e.locked)
}

// Withdrawn returns the total value released to recipient
func (e *Endpoint) Withdrawn(recipient common.Address) *uint256.Int {
	e.lock.Lock()
	defer e.lock.Unlock()
	if amount, ok := e.withdrawn[recipient]; ok {
		return new(uint256.Int).Set(amount)
	}
	return new(uint256.Int)
}

// Token returns the ledger of tokens minted by deposits from the remote chain
func (e *Endpoint) Token() *WrappedToken {
	return e.token
}

func (e *Endpoint) handleDeposit(msg *xmsg.Message) (func() ([]Event, error), error) {
	deposit, err := payload.ParseTransfer(msg.Data)
	if err != nil {
		return nil, err
	}
	return func() ([]Event, error) {
		if err := e.token.Mint(deposit.Recipient, deposit.Amount); err != nil {
			return nil, err
		}
		return []Event{{
			Kind:      EventMinted,
			Tag:       msg.Tag,
			Selector:  msg.Selector,
			Recipient: deposit.Recipient,
			Amount:    deposit.Amount,
		}}, nil
	}, nil
}

func (e *Endpoint) handleWithdraw(msg *xmsg.Message) (func() ([]Event, error), error) {
	withdraw, err := payload.ParseTransfer(msg.Data)
	if err != nil {
		return nil, err
	}
	if e.locked.Lt(withdraw.Amount) {
		return nil, fmt.Errorf(
			"%w: releasing %s, %s locked",
			xmsg.ErrInsufficientLocked, withdraw.Amount.Dec(), e.locked.Dec(),
		)
	}
	return func() ([]Event, error) {
		e.locked.Sub(e.locked, withdraw.Amount)
		released := new(uint256.Int)
		if prev, ok := e.withdrawn[withdraw.Recipient]; ok {
			released.Set(prev)
		}
		e.withdrawn[withdraw.Recipient] = released.Add(released, withdraw.Amount)
		return []Event{{
			Kind:      EventWithdrawn,
			Tag:       msg.Tag,
			Selector:  msg.Selector,
			Recipient: withdraw.Recipient,
			Amount:    withdraw.Amount,
		}}, nil
	}, nil
}
