/*
 * Copyright 2025 The HiveNote Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rohan-kumar-006/HiveNote/internal/version"
)

const (
	namespace   = "hivenote"
	resultLabel = "result"
)

// Metrics manages the metric information that HiveNote is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	connectionsTotal          prometheus.Gauge
	receivedUpdatesTotal      prometheus.Counter
	broadcastUpdatesTotal     prometheus.Counter
	docStateRequestsTotal     prometheus.Counter
	compactionsTotal          *prometheus.CounterVec
	compactionDurationSeconds prometheus.Histogram
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		connectionsTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "connections",
			Help:      "The current number of connected sessions.",
		}),
		receivedUpdatesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "received_updates_total",
			Help:      "The total count of deltas received from sessions.",
		}),
		broadcastUpdatesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "broadcast_updates_total",
			Help:      "The total count of deltas relayed to other sessions.",
		}),
		docStateRequestsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "state_requests_total",
			Help:      "The total count of full state reconstructions served.",
		}),
		compactionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compaction",
			Name:      "runs_total",
			Help:      "The total count of compaction runs, labeled by result.",
		}, []string{resultLabel}),
		compactionDurationSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compaction",
			Name:      "duration_seconds",
			Help:      "The time spent folding an update log into a snapshot.",
		}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddConnection increases the number of connected sessions.
func (m *Metrics) AddConnection() {
	m.connectionsTotal.Inc()
}

// RemoveConnection decreases the number of connected sessions.
func (m *Metrics) RemoveConnection() {
	m.connectionsTotal.Dec()
}

// AddReceivedUpdate adds the number of deltas received from sessions.
func (m *Metrics) AddReceivedUpdate() {
	m.receivedUpdatesTotal.Inc()
}

// AddBroadcastUpdates adds the number of deltas relayed to other sessions.
func (m *Metrics) AddBroadcastUpdates(count int) {
	m.broadcastUpdatesTotal.Add(float64(count))
}

// AddDocStateRequest adds the number of full state reconstructions served.
func (m *Metrics) AddDocStateRequest() {
	m.docStateRequestsTotal.Inc()
}

// AddCompactionResult adds the number of compaction runs with the given result.
func (m *Metrics) AddCompactionResult(result string) {
	m.compactionsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// ObserveCompactionDurationSeconds records the time spent on a compaction run.
func (m *Metrics) ObserveCompactionDurationSeconds(seconds float64) {
	m.compactionDurationSeconds.Observe(seconds)
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
