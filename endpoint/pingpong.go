// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/payload"
)

// PingState tracks a ping by its randomness
type PingState uint8

const (
	PingIdle PingState = iota
	PingSent
	PongReceived
)

func (s PingState) String() string {
	switch s {
	case PingIdle:
		return "idle"
	case PingSent:
		return "ping_sent"
	case PongReceived:
		return "pong_received"
	default:
		return "unknown"
	}
}

// Ping sends randomness to the remote endpoint. value pays the bus fee and
// must cover CalcFee of the encoded message.
func (e *Endpoint) Ping(randomness [32]byte, value *uint256.Int) (*uint256.Int, error) {
	e.lock.Lock()
	tag, fee, err := e.send(payload.NewPing(randomness), value)
	if err != nil {
		e.lock.Unlock()
		return nil, err
	}
	e.pings[randomness] = PingSent
	e.lock.Unlock()

	e.emit(Event{Kind: EventPingSent, Tag: tag, Selector: payload.PingSelector, Randomness: randomness})
	return fee, nil
}

// PingState returns the state of the ping sent with randomness
func (e *Endpoint) PingState(randomness [32]byte) PingState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.pings[randomness]
}

func (e *Endpoint) handlePing(msg *xmsg.Message) (func() ([]Event, error), error) {
	ping, err := payload.ParsePing(msg.Data)
	if err != nil {
		return nil, err
	}
	return func() ([]Event, error) {
		events := []Event{{Kind: EventPong, Tag: msg.Tag, Selector: msg.Selector, Randomness: ping.Randomness}}
		if !e.echoPong {
			return events, nil
		}
		// The ping is already executed; a failed reply does not undo it.
		if _, _, err := e.send(payload.NewPong(ping.Randomness), nil); err != nil {
			e.log.Warn("Failed to send pong.", zap.Error(err))
		}
		return events, nil
	}, nil
}

func (e *Endpoint) handlePong(msg *xmsg.Message) (func() ([]Event, error), error) {
	pong, err := payload.ParsePing(msg.Data)
	if err != nil {
		return nil, err
	}
	return func() ([]Event, error) {
		if e.pings[pong.Randomness] == PingSent {
			e.pings[pong.Randomness] = PongReceived
			e.metrics.pongsReceived.Inc()
		} else {
			e.log.Debug("Received pong for unknown ping.")
		}
		return []Event{{Kind: EventPongReceived, Tag: msg.Tag, Selector: msg.Selector, Randomness: pong.Randomness}}, nil
	}, nil
}
