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

package apihttp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bbva/commitd/metrics"
)

// subsystem associated with metrics for API HTTP
const subSystem = "api_http"

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	})
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	})
}

var (
	HealthCheckRequest   = newGauge("health_check_requests", "Number of current HTTP HealthCheck requests.")
	AddRequest           = newGauge("add_requests", "Number of current HTTP Add requests.")
	ListRequest          = newGauge("list_requests", "Number of current HTTP List requests.")
	GetCommitmentRequest = newGauge("get_commitment_requests", "Number of current HTTP GetCommitment requests.")
	ProofRequest         = newGauge("proof_requests", "Number of current HTTP Proof requests.")
	VerifyRequest        = newGauge("verify_requests", "Number of current HTTP Verify requests.")
	RootRequest          = newGauge("root_requests", "Number of current HTTP Root requests.")
	InfoRequest          = newGauge("info_requests", "Number of current HTTP Info requests.")

	RateLimitedTotal = newCounter("rate_limited_total", "Number of adds rejected by the rate limiter.")
	ProofCacheHits   = newCounter("proof_cache_hits_total", "Number of proofs served from the cache.")
	ProofCacheMisses = newCounter("proof_cache_misses_total", "Number of proofs missing from the cache.")
)

// Metrics publishes the API metrics. The collectors are shared by every
// mux of the process, so each registry must register them only once.
type Metrics struct{}

func (Metrics) RegisterMetrics(registry metrics.Registry) {
	if registry != nil {
		registry.MustRegister(
			HealthCheckRequest,
			AddRequest,
			ListRequest,
			GetCommitmentRequest,
			ProofRequest,
			VerifyRequest,
			RootRequest,
			InfoRequest,
			RateLimitedTotal,
			ProofCacheHits,
			ProofCacheMisses,
		)
	}
}

var _ metrics.Registerer = Metrics{}
