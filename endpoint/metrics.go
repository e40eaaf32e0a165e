// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type endpointMetrics struct {
	sentMessages     *prometheus.CounterVec
	receivedMessages *prometheus.CounterVec
	rejectedMessages *prometheus.CounterVec
	pongsReceived    prometheus.Counter
}

func newEndpointMetrics(registerer prometheus.Registerer, chainID uint64) *endpointMetrics {
	labels := prometheus.Labels{"chain_id": strconv.FormatUint(chainID, 10)}
	m := endpointMetrics{
		sentMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "endpoint_sent_messages",
				Help:        "Number of messages sent by the endpoint",
				ConstLabels: labels,
			},
			[]string{"selector"},
		),
		receivedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "endpoint_received_messages",
				Help:        "Number of messages accepted by the endpoint",
				ConstLabels: labels,
			},
			[]string{"selector"},
		),
		rejectedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "endpoint_rejected_messages",
				Help:        "Number of messages rejected by the endpoint",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		pongsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "endpoint_pongs_received",
				Help:        "Number of completed ping round trips",
				ConstLabels: labels,
			},
		),
	}

	registerer.MustRegister(m.sentMessages)
	registerer.MustRegister(m.receivedMessages)
	registerer.MustRegister(m.rejectedMessages)
	registerer.MustRegister(m.pongsReceived)

	return &m
}
