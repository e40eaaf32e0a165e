// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package endpoint implements the per-chain actor that sends authenticated,
// replay-protected messages to its remote peer over a message bus and
// executes the messages the peer sends back.
package endpoint

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/payload"
	"github.com/luxfi/xmsg/relayer"
	"github.com/luxfi/xmsg/replay"
)

var (
	_ relayer.Receiver = (*Endpoint)(nil)

	errZeroAddress = errors.New("zero address")
)

// Config describes one side of an endpoint pair
type Config struct {
	LocalChainID   uint64
	RemoteChainID  uint64
	Address        common.Address
	RemoteContract common.Address

	// Signer signs outgoing messages. Without one the endpoint sends unsigned
	// unique messages.
	Signer xmsg.Signer

	// RemoteSignerPublicKey, when set, is the only key inbound messages may be
	// signed by. Both compressed and uncompressed keys are accepted. Without
	// one the endpoint accepts unsigned unique messages.
	RemoteSignerPublicKey []byte

	// DepositCost is withheld from every deposit. Zero means the bus fee.
	DepositCost *uint256.Int

	// EchoPong makes the endpoint answer every ping with a pong.
	EchoPong bool
}

func (c *Config) Validate() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("invalid endpoint address: %w", errZeroAddress)
	}
	if c.RemoteContract == (common.Address{}) {
		return fmt.Errorf("invalid remote contract: %w", errZeroAddress)
	}
	return nil
}

type Option func(*Endpoint)

func WithLogger(log *zap.Logger) Option {
	return func(e *Endpoint) {
		e.log = log
	}
}

func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(e *Endpoint) {
		e.registerer = registerer
	}
}

// WithReplayGuard sets the guard inbound tags are consumed from. It defaults
// to an in-memory guard.
func WithReplayGuard(guard *replay.Guard) Option {
	return func(e *Endpoint) {
		e.guard = guard
	}
}

// handler validates an inbound message without side effects and returns the
// function that applies it
type handler func(msg *xmsg.Message) (apply func() ([]Event, error), err error)

type Endpoint struct {
	log        *zap.Logger
	registerer prometheus.Registerer
	metrics    *endpointMetrics

	localChainID   uint64
	remoteChainID  uint64
	address        common.Address
	remoteContract common.Address
	remoteSigner   common.Address
	depositCost    *uint256.Int
	echoPong       bool

	bus      relayer.MessageBus
	encoder  *xmsg.Encoder
	guard    *replay.Guard
	handlers map[xmsg.Selector]handler

	lock      sync.Mutex
	pings     map[[32]byte]PingState
	locked    *uint256.Int
	withdrawn map[common.Address]*uint256.Int
	token     *WrappedToken

	subsLock  sync.RWMutex
	subs      map[uint64]func(Event)
	nextSubID uint64
}

// New creates an endpoint sending through bus. The caller registers it with
// the bus as the receiver for cfg.Address.
func New(cfg Config, bus relayer.MessageBus, opts ...Option) (*Endpoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var remoteSigner common.Address
	if len(cfg.RemoteSignerPublicKey) != 0 {
		addr, err := xmsg.AddressFromPublicKey(cfg.RemoteSignerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid remote signer public key: %w", err)
		}
		remoteSigner = addr
	}
	depositCost := new(uint256.Int)
	if cfg.DepositCost != nil {
		depositCost.Set(cfg.DepositCost)
	}

	e := &Endpoint{
		localChainID:   cfg.LocalChainID,
		remoteChainID:  cfg.RemoteChainID,
		address:        cfg.Address,
		remoteContract: cfg.RemoteContract,
		remoteSigner:   remoteSigner,
		depositCost:    depositCost,
		echoPong:       cfg.EchoPong,
		bus:            bus,
		encoder:        xmsg.NewEncoder(cfg.Signer, cfg.Address),
		pings:          make(map[[32]byte]PingState),
		locked:         new(uint256.Int),
		withdrawn:      make(map[common.Address]*uint256.Int),
		token:          NewWrappedToken(),
		subs:           make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.With(
		zap.Uint64("chainID", e.localChainID),
		zap.Stringer("endpoint", e.address),
	)
	if e.registerer == nil {
		e.registerer = prometheus.NewRegistry()
	}
	if e.guard == nil {
		e.guard = replay.NewMemoryGuard(e.log)
	}
	e.metrics = newEndpointMetrics(e.registerer, e.localChainID)
	e.handlers = map[xmsg.Selector]handler{
		payload.PingSelector:     e.handlePing,
		payload.PongSelector:     e.handlePong,
		payload.DepositSelector:  e.handleDeposit,
		payload.WithdrawSelector: e.handleWithdraw,
	}
	return e, nil
}

func (e *Endpoint) Address() common.Address {
	return e.address
}

func (e *Endpoint) ChainID() uint64 {
	return e.localChainID
}

// RemoteSigner returns the address inbound messages must be signed by. It is
// the zero address when the endpoint accepts unsigned messages.
func (e *Endpoint) RemoteSigner() common.Address {
	return e.remoteSigner
}

// Signed reports whether outgoing messages carry a signature
func (e *Endpoint) Signed() bool {
	return e.encoder.Signer() != nil
}

// ExecuteMessage is the bus-facing receive handler. The message must come from
// the remote contract on the remote chain, authenticate, carry an unseen tag
// and a known selector. A rejected message leaves the endpoint unchanged.
func (e *Endpoint) ExecuteMessage(sender common.Address, srcChainID uint64, message []byte) error {
	e.lock.Lock()
	msg, events, err := e.execute(sender, srcChainID, message)
	e.lock.Unlock()

	if err != nil {
		e.metrics.rejectedMessages.WithLabelValues(relayer.FailureReason(err)).Inc()
		e.log.Warn(
			"Rejected message.",
			zap.Stringer("sender", sender),
			zap.Uint64("sourceChainID", srcChainID),
			zap.Error(err),
		)
		e.emit(Event{Kind: EventRejected, Err: err})
		return err
	}

	e.metrics.receivedMessages.WithLabelValues(msg.Selector.String()).Inc()
	e.log.Debug(
		"Executed message.",
		zap.Stringer("tag", msg.Tag),
		zap.Stringer("selector", msg.Selector),
	)
	e.emit(append(events, Event{Kind: EventDecoded, Tag: msg.Tag, Selector: msg.Selector})...)
	return nil
}

func (e *Endpoint) execute(sender common.Address, srcChainID uint64, message []byte) (*xmsg.Message, []Event, error) {
	if sender != e.remoteContract || srcChainID != e.remoteChainID {
		return nil, nil, fmt.Errorf(
			"%w: %s on chain %d, expected %s on chain %d",
			xmsg.ErrUnauthorizedSender, sender, srcChainID, e.remoteContract, e.remoteChainID,
		)
	}

	// Decode against a non-consuming guard so that a message rejected by its
	// handler can still be delivered again.
	staged := &stagedGuard{guard: e.guard}
	var (
		msg *xmsg.Message
		err error
	)
	if e.remoteSigner != (common.Address{}) {
		msg, err = xmsg.DecodeSignedUniqueMessage(message, e.remoteSigner, staged)
	} else {
		msg, err = xmsg.DecodeUniqueMessage(message, staged)
	}
	if err != nil {
		return nil, nil, err
	}

	h, ok := e.handlers[msg.Selector]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", xmsg.ErrUnknownSelector, msg.Selector)
	}
	apply, err := h(msg)
	if err != nil {
		return nil, nil, err
	}
	if err := e.guard.Consume(msg.Tag); err != nil {
		return nil, nil, err
	}
	events, err := apply()
	if err != nil {
		return nil, nil, err
	}
	return msg, events, nil
}

// send encodes p for the remote endpoint and hands it to the bus. A nil value
// pays exactly the quoted fee. The caller holds e.lock.
func (e *Endpoint) send(p payload.Payload, value *uint256.Int) (xmsg.Tag, *uint256.Int, error) {
	var (
		encoded []byte
		tag     xmsg.Tag
		err     error
	)
	if e.Signed() {
		encoded, tag, err = e.encoder.SignedUniqueMessage(p.Selector(), p.Bytes())
	} else {
		encoded, tag, err = e.encoder.UniqueMessage(p.Selector(), p.Bytes())
	}
	if err != nil {
		return xmsg.Tag{}, nil, err
	}
	if value == nil {
		value = e.bus.CalcFee(encoded)
	}
	fee, err := e.bus.SendMessage(e.address, e.remoteContract, e.remoteChainID, encoded, value)
	if err != nil {
		return xmsg.Tag{}, nil, err
	}

	e.metrics.sentMessages.WithLabelValues(p.Selector().String()).Inc()
	e.log.Debug(
		"Sent message.",
		zap.Stringer("tag", tag),
		zap.Stringer("selector", p.Selector()),
		zap.String("fee", fee.Dec()),
	)
	return tag, fee, nil
}

// outgoingVariant is the envelope this endpoint sends
func (e *Endpoint) outgoingVariant() xmsg.Variant {
	if e.Signed() {
		return xmsg.VariantSignedUniqueMessage
	}
	return xmsg.VariantUniqueMessage
}

// stagedGuard checks tags without consuming them
type stagedGuard struct {
	guard *replay.Guard
}

func (s *stagedGuard) Consume(tag xmsg.Tag) error {
	unseen, err := s.guard.Check(tag)
	if err != nil {
		return err
	}
	if !unseen {
		return fmt.Errorf("%w: tag %s", xmsg.ErrDuplicateMessage, tag)
	}
	return nil
}
