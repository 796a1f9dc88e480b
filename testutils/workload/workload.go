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

// Package workload drives a constant rate load against a commitment server.
package workload

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/bbva/commitd/client"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/metrics"
	"github.com/bbva/commitd/protocol"
	"github.com/bbva/commitd/testutils/rand"
)

type Workload struct {
	config *Config
	log    log.Logger

	requestsOK     prometheus.Counter
	requestsFailed prometheus.Counter
}

func NewWorkload(conf *Config, logger log.Logger) *Workload {
	return &Workload{
		config: conf,
		log:    logger.Named("workload"),
		requestsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metrics.Namespace,
			Subsystem:   "workload",
			Name:        "requests_ok_total",
			Help:        "Number of successful requests of the attack.",
			ConstLabels: prometheus.Labels{"kind": conf.Kind},
		}),
		requestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metrics.Namespace,
			Subsystem:   "workload",
			Name:        "requests_failed_total",
			Help:        "Number of failed requests of the attack.",
			ConstLabels: prometheus.Labels{"kind": conf.Kind},
		}),
	}
}

func (w *Workload) RegisterMetrics(r metrics.Registry) {
	r.MustRegister(w.requestsOK, w.requestsFailed)
}

func (w *Workload) validate() error {
	switch {
	case w.config.Kind != KindAdd && w.config.Kind != KindProof:
		return errors.Errorf("unknown kind %q", w.config.Kind)
	case w.config.Rate <= 0:
		return errors.New("the rate must be positive")
	case w.config.Duration <= 0:
		return errors.New("the duration must be positive")
	case w.config.ValueSize <= 0:
		return errors.New("the value size must be positive")
	}
	return nil
}

func (w *Workload) header() http.Header {
	hdr := http.Header{}
	hdr.Set("Content-Type", protocol.ContentTypeJSON)
	if w.config.APIKey != "" {
		hdr.Set("Api-Key", w.config.APIKey)
	}
	return hdr
}

// addTargeter posts a fresh random value on every hit.
func (w *Workload) addTargeter() vegeta.Targeter {
	url := strings.TrimRight(w.config.Endpoint, "/") + "/api/v1/commitments"
	hdr := w.header()
	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}
		tgt.Method = http.MethodPost
		tgt.URL = url
		tgt.Header = hdr
		tgt.Body = []byte(fmt.Sprintf(`{"value":"%s"}`, protocol.HexBytes(rand.Bytes(w.config.ValueSize))))
		return nil
	}
}

// proofTargeter cycles over the count commitments already in the server.
func (w *Workload) proofTargeter(count uint64) vegeta.Targeter {
	var mu sync.Mutex
	var next uint64
	base := strings.TrimRight(w.config.Endpoint, "/") + "/api/v1/proof/"
	hdr := w.header()
	return func(tgt *vegeta.Target) error {
		mu.Lock()
		defer mu.Unlock()

		if tgt == nil {
			return vegeta.ErrNilTarget
		}
		tgt.Method = http.MethodGet
		tgt.URL = fmt.Sprintf("%s%d", base, next%count)
		tgt.Header = hdr
		next++
		return nil
	}
}

func (w *Workload) targeter(ctx context.Context) (vegeta.Targeter, error) {
	if w.config.Kind == KindAdd {
		return w.addTargeter(), nil
	}

	c, err := client.NewHTTPClient(
		client.SetURL(w.config.Endpoint),
		client.SetAPIKey(w.config.APIKey),
		client.SetLogger(w.log),
	)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	health, err := c.Health(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to reach the server")
	}
	if health.CommitmentCount == 0 {
		return nil, errors.New("the server holds no commitments to prove")
	}
	return w.proofTargeter(health.CommitmentCount), nil
}

// Run attacks the server until the configured duration elapses or ctx is
// done, and returns the aggregated metrics of the attack.
func (w *Workload) Run(ctx context.Context) (*vegeta.Metrics, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	targeter, err := w.targeter(ctx)
	if err != nil {
		return nil, err
	}

	attacker := vegeta.NewAttacker(
		vegeta.Workers(w.config.Workers),
		vegeta.Connections(w.config.Connections),
		vegeta.Timeout(w.config.Timeout),
		vegeta.TLSConfig(&tls.Config{InsecureSkipVerify: w.config.Insecure}),
	)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			attacker.Stop()
		case <-done:
		}
	}()

	w.log.Infof("Attacking %s with %d %s requests per second during %v", w.config.Endpoint, w.config.Rate, w.config.Kind, w.config.Duration)

	rate := vegeta.Rate{Freq: w.config.Rate, Per: time.Second}
	var m vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, w.config.Duration, w.config.Kind) {
		m.Add(res)
		if res.Error == "" && res.Code >= 200 && res.Code < 300 {
			w.requestsOK.Inc()
		} else {
			w.requestsFailed.Inc()
			w.log.Debugf("Request %d failed with status %d: %s", res.Seq, res.Code, res.Error)
		}
	}
	m.Close()

	return &m, nil
}

// Report writes a text report of m.
func Report(m *vegeta.Metrics, out io.Writer) error {
	return vegeta.NewTextReporter(m).Report(out)
}
