// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/xmsg"
)

type MessageBusMetrics struct {
	sentMessageCount      *prometheus.CounterVec
	deliveredMessageCount *prometheus.CounterVec
	failedDeliveryCount   *prometheus.CounterVec
	undeliveredMessages   prometheus.Gauge
}

func NewMessageBusMetrics(registerer prometheus.Registerer) *MessageBusMetrics {
	m := MessageBusMetrics{
		sentMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sent_message_count",
				Help: "Number of messages enqueued on the bus",
			},
			[]string{"destination_chain_id", "source_chain_id"},
		),
		deliveredMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivered_message_count",
				Help: "Number of messages accepted by their receiver",
			},
			[]string{"destination_chain_id", "source_chain_id"},
		),
		failedDeliveryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_delivery_count",
				Help: "Number of messages rejected by their receiver",
			},
			[]string{"destination_chain_id", "source_chain_id", "failure_reason"},
		),
		undeliveredMessages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "undelivered_messages",
				Help: "Number of queued messages awaiting delivery",
			},
		),
	}

	registerer.MustRegister(m.sentMessageCount)
	registerer.MustRegister(m.deliveredMessageCount)
	registerer.MustRegister(m.failedDeliveryCount)
	registerer.MustRegister(m.undeliveredMessages)

	return &m
}

func (m *MessageBusMetrics) sent(msg *PendingMessage) {
	m.sentMessageCount.
		WithLabelValues(chainLabel(msg.DestinationChainID), chainLabel(msg.SourceChainID)).
		Inc()
	m.undeliveredMessages.Inc()
}

func (m *MessageBusMetrics) delivered(msg *PendingMessage, err error) {
	m.undeliveredMessages.Dec()
	if err != nil {
		m.failedDeliveryCount.
			WithLabelValues(chainLabel(msg.DestinationChainID), chainLabel(msg.SourceChainID), FailureReason(err)).
			Inc()
		return
	}
	m.deliveredMessageCount.
		WithLabelValues(chainLabel(msg.DestinationChainID), chainLabel(msg.SourceChainID)).
		Inc()
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

// FailureReason maps a delivery error to a low-cardinality metric label
func FailureReason(err error) string {
	switch {
	case errors.Is(err, xmsg.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, xmsg.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, xmsg.ErrDuplicateMessage):
		return "duplicate_message"
	case errors.Is(err, xmsg.ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, xmsg.ErrUnauthorizedSender):
		return "unauthorized_sender"
	case errors.Is(err, xmsg.ErrUnknownSelector):
		return "unknown_selector"
	case errors.Is(err, ErrUnknownContract):
		return "unknown_contract"
	default:
		return "other"
	}
}
