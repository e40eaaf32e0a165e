// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/xmsg"
)

type EventKind uint8

const (
	EventPingSent EventKind = iota
	EventPong
	EventPongReceived
	EventDeposited
	EventMinted
	EventBurned
	EventWithdrawn
	EventDecoded
	EventRejected
)

func (k EventKind) String() string {
	switch k {
	case EventPingSent:
		return "ping_sent"
	case EventPong:
		return "pong"
	case EventPongReceived:
		return "pong_received"
	case EventDeposited:
		return "deposited"
	case EventMinted:
		return "minted"
	case EventBurned:
		return "burned"
	case EventWithdrawn:
		return "withdrawn"
	case EventDecoded:
		return "decoded"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers after an endpoint operation completes.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	Tag        xmsg.Tag
	Selector   xmsg.Selector
	Randomness [32]byte
	Recipient  common.Address
	Amount     *uint256.Int
	Err        error
}

// Subscribe registers fn for every event emitted by the endpoint. Handlers run
// synchronously on the emitting goroutine, after the endpoint lock is released.
func (e *Endpoint) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.subsLock.Lock()
	defer e.subsLock.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn
	return func() {
		e.subsLock.Lock()
		defer e.subsLock.Unlock()
		delete(e.subs, id)
	}
}

func (e *Endpoint) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	e.subsLock.RLock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subsLock.RUnlock()

	for _, event := range events {
		for _, fn := range subs {
			fn(event)
		}
	}
}
