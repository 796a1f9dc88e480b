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

package workload

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/bbva/commitd/api/apihttp"
	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/metrics"
)

func setupServer(t *testing.T, apiKey string) (string, commitment.Store) {
	t.Helper()
	logger := log.New(&log.LoggerOptions{Level: log.Off})
	store := commitment.NewMemoryStore(commitment.WithLogger(logger))
	server := httptest.NewServer(apihttp.NewApiHttp(store, apihttp.Options{APIKey: apiKey, Logger: logger}))
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server.URL, store
}

func testConfig(endpoint, kind string) *Config {
	conf := DefaultConfig()
	conf.Endpoint = endpoint
	conf.Kind = kind
	conf.Rate = 50
	conf.Duration = 200 * time.Millisecond
	conf.Workers = 2
	conf.Timeout = 5 * time.Second
	return conf
}

func TestAddWorkload(t *testing.T) {
	endpoint, store := setupServer(t, "key")
	conf := testConfig(endpoint, KindAdd)
	conf.APIKey = "key"

	w := NewWorkload(conf, log.New(&log.LoggerOptions{Level: log.Off}))
	registry := metrics.NewRegistry()
	w.RegisterMetrics(registry)

	m, err := w.Run(context.Background())
	require.NoError(t, err)
	require.True(t, m.Requests > 0, "The attack should send requests")
	require.Equal(t, 1.0, m.Success, "Every add should succeed: %v", m.Errors)

	count, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, m.Requests, count)
	require.Equal(t, float64(m.Requests), testutil.ToFloat64(w.requestsOK))
	require.Equal(t, 0.0, testutil.ToFloat64(w.requestsFailed))

	var out bytes.Buffer
	require.NoError(t, Report(m, &out))
	require.Contains(t, out.String(), "Requests")
}

func TestProofWorkload(t *testing.T) {
	endpoint, store := setupServer(t, "")

	w := NewWorkload(testConfig(endpoint, KindProof), log.New(&log.LoggerOptions{Level: log.Off}))
	_, err := w.Run(context.Background())
	require.Error(t, err, "There is nothing to prove yet")

	for _, v := range []string{"a", "b", "c"} {
		_, _, err := store.Add([]byte(v))
		require.NoError(t, err)
	}

	m, err := w.Run(context.Background())
	require.NoError(t, err)
	require.True(t, m.Requests > 0)
	require.Equal(t, 1.0, m.Success)
}

func TestWorkloadRejectsInvalidConfig(t *testing.T) {
	testCases := []func(*Config){
		func(c *Config) { c.Kind = "membership" },
		func(c *Config) { c.Rate = 0 },
		func(c *Config) { c.Duration = 0 },
		func(c *Config) { c.ValueSize = 0 },
	}

	for i, modify := range testCases {
		conf := testConfig("http://127.0.0.1:1", KindAdd)
		modify(conf)
		_, err := NewWorkload(conf, log.New(&log.LoggerOptions{Level: log.Off})).Run(context.Background())
		require.Errorf(t, err, "Config should be rejected in test case %d", i)
	}
}

func TestWorkloadStopsWithContext(t *testing.T) {
	endpoint, _ := setupServer(t, "")
	conf := testConfig(endpoint, KindAdd)
	conf.Duration = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewWorkload(conf, log.New(&log.LoggerOptions{Level: log.Off})).Run(ctx)
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Minute)
}
