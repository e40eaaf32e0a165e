// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/xmsg"
)

// WrappedToken is the ledger of tokens minted against value locked on the
// remote chain
type WrappedToken struct {
	mu       sync.RWMutex
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
}

func NewWrappedToken() *WrappedToken {
	return &WrappedToken{
		balances: make(map[common.Address]*uint256.Int),
		supply:   new(uint256.Int),
	}
}

// Mint credits amount to holder
func (w *WrappedToken) Mint(holder common.Address, amount *uint256.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(w.supply, amount)
	if overflow {
		return fmt.Errorf("mint of %s overflows total supply", amount.Dec())
	}
	balance := w.balanceOf(holder)
	w.balances[holder] = new(uint256.Int).Add(balance, amount)
	w.supply = supply
	return nil
}

// Burn debits amount from holder
func (w *WrappedToken) Burn(holder common.Address, amount *uint256.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balanceOf(holder)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, burning %s", xmsg.ErrInsufficientBalance, holder, balance.Dec(), amount.Dec())
	}
	remaining := new(uint256.Int).Sub(balance, amount)
	if remaining.IsZero() {
		delete(w.balances, holder)
	} else {
		w.balances[holder] = remaining
	}
	w.supply = new(uint256.Int).Sub(w.supply, amount)
	return nil
}

func (w *WrappedToken) BalanceOf(holder common.Address) *uint256.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return new(uint256.Int).Set(w.balanceOf(holder))
}

func (w *WrappedToken) TotalSupply() *uint256.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return new(uint256.Int).Set(w.supply)
}

func (w *WrappedToken) balanceOf(holder common.Address) *uint256.Int {
	if balance, ok := w.balances[holder]; ok {
		return balance
	}
	return new(uint256.Int)
}
