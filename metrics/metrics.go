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

// Package metrics holds the prometheus plumbing shared by every component
// that publishes metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the leading part of all published metrics.
const Namespace = "commitd"

// Registry is where components register their collectors and where the
// metrics server gathers them from.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Registerer is implemented by components publishing metrics.
type Registerer interface {
	RegisterMetrics(Registry)
}

// NewRegistry returns an empty registry with the process and Go runtime
// collectors already registered.
func NewRegistry() Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: Namespace}),
		prometheus.NewGoCollector(),
	)
	return r
}
