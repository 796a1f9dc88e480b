/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package commitment

import (
	"time"

	"github.com/bbva/commitd/merkle"
	"github.com/bbva/commitd/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const subSystem = "commitment"

type storeMetrics struct {
	AddTotal              prometheus.Counter
	RejectedTotal         prometheus.Counter
	ProofTotal            prometheus.Counter
	DigestsTotal          prometheus.Counter
	Leaves                prometheus.Gauge
	RebuildDurationSecond prometheus.Summary
}

func newStoreMetrics(backend string) *storeMetrics {
	labels := prometheus.Labels{"backend": backend}
	return &storeMetrics{
		AddTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "add_total",
				Help:        "Number of commitments added.",
				ConstLabels: labels,
			},
		),
		RejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "rejected_total",
				Help:        "Number of values rejected by validation.",
				ConstLabels: labels,
			},
		),
		ProofTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "proof_total",
				Help:        "Number of inclusion proofs generated.",
				ConstLabels: labels,
			},
		),
		DigestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "digests_total",
				Help:        "Number of hashes computed rebuilding trees.",
				ConstLabels: labels,
			},
		),
		Leaves: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "leaves",
				Help:        "Number of leaves of the current tree.",
				ConstLabels: labels,
			},
		),
		RebuildDurationSecond: prometheus.NewSummary(
			prometheus.SummaryOpts{
				Namespace:   metrics.Namespace,
				Subsystem:   subSystem,
				Name:        "rebuild_duration_seconds",
				Help:        "Duration of a full tree rebuild.",
				ConstLabels: labels,
			},
		),
	}
}

func (m *storeMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AddTotal,
		m.RejectedTotal,
		m.ProofTotal,
		m.DigestsTotal,
		m.Leaves,
		m.RebuildDurationSecond,
	}
}

func (m *storeMetrics) observeRebuild(tree *merkle.Tree, elapsed time.Duration) {
	m.DigestsTotal.Add(float64(tree.Digests()))
	m.RebuildDurationSecond.Observe(elapsed.Seconds())
}
