// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics reports the updater's reconciliation activity.
type Metrics struct {
	Polls          *prometheus.CounterVec
	NodeInfoOps    *prometheus.CounterVec
	PublishRetries prometheus.Counter
	AckRetries     prometheus.Counter
	PendingUpdate  prometheus.Gauge
}

// NewMetrics creates the updater metrics and registers them with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netmap_polls_total",
			Help: "Total number of network map poll iterations.",
		}, []string{"result"}),
		NodeInfoOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netmap_nodeinfo_ops_total",
			Help: "Total number of node info cache mutations during reconciliation.",
		}, []string{"op"}),
		PublishRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "netmap_publish_retries_total",
			Help: "Total number of node info publish attempts that will be retried.",
		}),
		AckRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "netmap_ack_retries_total",
			Help: "Total number of parameters ack attempts that will be retried.",
		}),
		PendingUpdate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netmap_pending_update",
			Help: "Whether a network parameters update is pending operator acceptance.",
		}),
	}
}

func (m *Metrics) pollResult(result string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(result).Inc()
}

func (m *Metrics) nodeInfoOp(op string) {
	if m == nil {
		return
	}
	m.NodeInfoOps.WithLabelValues(op).Inc()
}

func (m *Metrics) publishRetry() {
	if m == nil {
		return
	}
	m.PublishRetries.Inc()
}

func (m *Metrics) ackRetry() {
	if m == nil {
		return
	}
	m.AckRetries.Inc()
}

func (m *Metrics) pendingUpdate(pending bool) {
	if m == nil {
		return
	}
	if pending {
		m.PendingUpdate.Set(1)
	} else {
		m.PendingUpdate.Set(0)
	}
}
