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

package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bbva/commitd/metrics"
)

// subsystem associated with metrics for server
const subsystem = "server"

type serverMetrics struct {
	Instances prometheus.Gauge
	Info      prometheus.Gauge
}

func newServerMetrics(conf *Config) *serverMetrics {
	return &serverMetrics{
		Instances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "instances",
				Help:      "Number of commitment servers currently running",
			},
		),
		Info: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "info",
				Help:      "Configuration of the commitment server, always 1.",
				ConstLabels: prometheus.Labels{
					"version": conf.Version,
					"hasher":  conf.Hasher,
					"storage": conf.Storage,
				},
			},
		),
	}
}

// collectors satisfies the prom.PrometheusCollector interface.
func (m *serverMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Instances,
		m.Info,
	}
}

func (m *serverMetrics) RegisterMetrics(r metrics.Registry) {
	m.Info.Set(1)
	r.MustRegister(m.collectors()...)
}
