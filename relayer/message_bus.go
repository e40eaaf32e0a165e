// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer provides the transport endpoints send through and an
// in-process bus that queues messages until a caller explicitly delivers them.
package relayer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
)

var (
	_ MessageBus = (*MockMessageBus)(nil)

	ErrNoPendingMessages = errors.New("no pending messages")
	ErrUnknownContract   = errors.New("unknown contract")
)

// MessageBus is the transport endpoints send cross-chain messages through
type MessageBus interface {
	// SendMessage queues message from sender to receiver on dstChainID.
	// value pays the fee and must be at least CalcFee(message).
	SendMessage(
		sender common.Address,
		receiver common.Address,
		dstChainID uint64,
		message []byte,
		value *uint256.Int,
	) (*uint256.Int, error)

	// CalcFee quotes the fee for message. It is non-decreasing in len(message).
	CalcFee(message []byte) *uint256.Int
}

// Receiver handles messages delivered by the bus
type Receiver interface {
	ExecuteMessage(sender common.Address, srcChainID uint64, message []byte) error
}

// PendingMessage is a queued message. It is immutable once delivered.
type PendingMessage struct {
	ID                 ids.ID
	Sender             common.Address
	SourceChainID      uint64
	Receiver           common.Address
	DestinationChainID uint64
	Payload            []byte
	Fee                *uint256.Int
	Delivered          bool
}

// Delivery is the outcome of delivering one message. Err is the receiver's
// rejection, if any; a rejected message is still consumed.
type Delivery struct {
	Message PendingMessage
	Err     error
}

// Accepted reports whether the receiver accepted the message
func (d *Delivery) Accepted() bool {
	return d.Err == nil
}

// Config holds the fee schedule of the bus
type Config struct {
	FeeBase    *uint256.Int
	FeePerByte *uint256.Int
}

type contractKey struct {
	contract common.Address
	chainID  uint64
}

// MockMessageBus simulates the relay network: messages are queued in send
// order and each DeliverOneMessage call hands the oldest one to its receiver.
type MockMessageBus struct {
	log        *zap.Logger
	metrics    *MessageBusMetrics
	feeBase    *uint256.Int
	feePerByte *uint256.Int

	mu        sync.Mutex
	chains    map[common.Address]uint64
	receivers map[contractKey]Receiver
	queue     []*PendingMessage
	next      int
	fees      *uint256.Int
}

// NewMockMessageBus creates an empty bus. A nil log discards output and a nil
// registerer keeps metrics in a private registry.
func NewMockMessageBus(log *zap.Logger, registerer prometheus.Registerer, cfg Config) *MockMessageBus {
	if log == nil {
		log = zap.NewNop()
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	feeBase, feePerByte := cfg.FeeBase, cfg.FeePerByte
	if feeBase == nil {
		feeBase = new(uint256.Int)
	}
	if feePerByte == nil {
		feePerByte = new(uint256.Int)
	}
	return &MockMessageBus{
		log:        log,
		metrics:    NewMessageBusMetrics(registerer),
		feeBase:    feeBase,
		feePerByte: feePerByte,
		chains:     make(map[common.Address]uint64),
		receivers:  make(map[contractKey]Receiver),
		fees:       new(uint256.Int),
	}
}

// AddContract maps contract to the chain it lives on
func (b *MockMessageBus) AddContract(contract common.Address, chainID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chains[contract] = chainID
}

// Register maps contract to chainID and routes its deliveries to receiver
func (b *MockMessageBus) Register(contract common.Address, chainID uint64, receiver Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chains[contract] = chainID
	b.receivers[contractKey{contract: contract, chainID: chainID}] = receiver
}

func (b *MockMessageBus) CalcFee(message []byte) *uint256.Int {
	fee := new(uint256.Int).Mul(b.feePerByte, uint256.NewInt(uint64(len(message))))
	return fee.Add(fee, b.feeBase)
}

// SendMessage queues message. Any overpayment is kept by the bus.
func (b *MockMessageBus) SendMessage(
	sender common.Address,
	receiver common.Address,
	dstChainID uint64,
	message []byte,
	value *uint256.Int,
) (*uint256.Int, error) {
	fee := b.CalcFee(message)
	if value == nil {
		value = new(uint256.Int)
	}
	if value.Lt(fee) {
		return nil, fmt.Errorf("%w: paid %s, fee is %s", xmsg.ErrInsufficientFee, value.Dec(), fee.Dec())
	}

	b.mu.Lock()
	srcChainID, ok := b.chains[sender]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: sender %s has no chain mapping", ErrUnknownContract, sender)
	}
	msg := &PendingMessage{
		Sender:             sender,
		SourceChainID:      srcChainID,
		Receiver:           receiver,
		DestinationChainID: dstChainID,
		Payload:            append([]byte(nil), message...),
		Fee:                fee,
	}
	msg.ID = messageID(msg, uint64(len(b.queue)))
	b.queue = append(b.queue, msg)
	b.fees.Add(b.fees, value)
	b.mu.Unlock()

	b.metrics.sent(msg)
	b.log.Debug(
		"Queued message",
		zap.Stringer("messageID", msg.ID),
		zap.Stringer("sender", sender),
		zap.Uint64("sourceChainID", srcChainID),
		zap.Stringer("receiver", receiver),
		zap.Uint64("destinationChainID", dstChainID),
		zap.Int("size", len(message)),
	)
	return fee, nil
}

// DeliverOneMessage hands the oldest undelivered message to its receiver.
// The message is marked delivered before the receiver runs and is never
// requeued, whatever the receiver returns. The receiver runs without the bus
// lock held so that it may send replies.
func (b *MockMessageBus) DeliverOneMessage() (*Delivery, error) {
	b.mu.Lock()
	if b.next == len(b.queue) {
		b.mu.Unlock()
		return nil, ErrNoPendingMessages
	}
	msg := b.queue[b.next]
	b.next++
	msg.Delivered = true
	receiver := b.receivers[contractKey{contract: msg.Receiver, chainID: msg.DestinationChainID}]
	b.mu.Unlock()

	var err error
	if receiver == nil {
		err = fmt.Errorf("%w: no receiver for %s on chain %d", ErrUnknownContract, msg.Receiver, msg.DestinationChainID)
	} else {
		err = receiver.ExecuteMessage(msg.Sender, msg.SourceChainID, msg.Payload)
	}
	b.metrics.delivered(msg, err)

	log := b.log.With(
		zap.Stringer("messageID", msg.ID),
		zap.Uint64("destinationChainID", msg.DestinationChainID),
	)
	if err != nil {
		log.Warn("Receiver rejected message", zap.Error(err))
	} else {
		log.Debug("Delivered message")
	}
	return &Delivery{Message: *msg, Err: err}, nil
}

// DeliverAll delivers until the queue is empty, including messages sent by
// receivers while draining.
func (b *MockMessageBus) DeliverAll() []*Delivery {
	var deliveries []*Delivery
	for {
		d, err := b.DeliverOneMessage()
		if err != nil {
			return deliveries
		}
		deliveries = append(deliveries, d)
	}
}

func (b *MockMessageBus) DeliveredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

func (b *MockMessageBus) UndeliveredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue) - b.next
}

// Pending returns copies of the undelivered messages, oldest first
func (b *MockMessageBus) Pending() []PendingMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	pending := make([]PendingMessage, 0, len(b.queue)-b.next)
	for _, msg := range b.queue[b.next:] {
		pending = append(pending, *msg)
	}
	return pending
}

// FeesCollected returns the total value paid to the bus
func (b *MockMessageBus) FeesCollected() *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(uint256.Int).Set(b.fees)
}

func messageID(msg *PendingMessage, sequence uint64) ids.ID {
	var header []byte
	header = binary.BigEndian.AppendUint64(header, sequence)
	header = binary.BigEndian.AppendUint64(header, msg.SourceChainID)
	header = binary.BigEndian.AppendUint64(header, msg.DestinationChainID)
	return ids.ID(crypto.Keccak256Hash(header, msg.Sender[:], msg.Receiver[:], msg.Payload))
}
