// Package stats provides prometheus instrumentation for the skal runtime.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MsgsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skal",
		Name:      "messages_sent_total",
		Help:      "Messages accepted by the send entry point.",
	})
	MsgsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skal",
		Name:      "messages_delivered_total",
		Help:      "Messages delivered to a local worker queue.",
	})
	MsgsRouted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skal",
		Name:      "messages_routed_total",
		Help:      "Messages handed to the router port.",
	})
	MsgsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skal",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped (no recipient, ttl expired, or drop-ok under pressure).",
	})
	XoffEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skal",
		Name:      "xoff_events_total",
		Help:      "skal-xoff notifications generated by full queues.",
	})
	WorkersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "skal",
		Name:      "workers_live",
		Help:      "Workers currently registered.",
	})
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "skal",
		Name:      "queue_depth",
		Help:      "Per-worker message queue depth.",
	}, []string{"worker"})
)
