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

package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbva/commitd/api/apihttp"
	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

func TestMain(m *testing.M) {
	log.SetDefault(log.New(&log.LoggerOptions{
		IncludeLocation: true,
		Level:           log.Off,
	}))
	os.Exit(m.Run())
}

type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestHttpClient returns *http.Client with Transport replaced to avoid making real calls
func newTestHttpClient(fn RoundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func response(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", protocol.ContentTypeJSON)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     header,
	}
}

func setupServer(t *testing.T, opts apihttp.Options) string {
	t.Helper()
	store := commitment.NewMemoryStore()
	mux := apihttp.NewApiHttp(store, opts)
	mux.HandleFunc("/info", apihttp.InfoHandler(protocol.Info{Version: "test", Hasher: hashing.SHA256, Storage: "memory"}))
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server.URL
}

func setupClient(t *testing.T, url string, options ...HTTPClientOptionF) *HTTPClient {
	t.Helper()
	options = append([]HTTPClientOptionF{
		SetURL(url),
		SetAPIKey("my-awesome-api-key"),
		SetBackoff(NewConstantBackoff(time.Millisecond)),
	}, options...)
	client, err := NewHTTPClient(options...)
	require.NoError(t, err, "Cannot create http client")
	t.Cleanup(client.Close)
	return client
}

func TestAddAndRead(t *testing.T) {
	ctx := context.Background()
	client := setupClient(t, setupServer(t, apihttp.Options{Version: "test"}))

	for i, v := range []string{"aaa", "bbb", "ccc"} {
		res, err := client.Add(ctx, []byte(v))
		require.NoError(t, err)
		require.Equal(t, uint64(i), res.Index)
	}

	root, err := client.Root(ctx)
	require.NoError(t, err)
	require.Equal(t, "ec1b9828bcc1e13ea8e998121fc508f892d30e4633c3e2b460ce4f640d96e058", root.Root.String())
	require.Equal(t, uint64(3), root.CommitmentCount)

	c, err := client.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, protocol.HexBytes("bbb"), c.Value)

	all, err := client.List(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), all.Count)
	require.Equal(t, root.Root, all.Commitments[2].MerkleRoot)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "test", health.Version)
	require.Equal(t, uint64(3), health.CommitmentCount)

	info, err := client.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, "memory", info.Storage)
}

func TestProofAndVerify(t *testing.T) {
	for _, format := range []string{"json", "cbor"} {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			client := setupClient(t, setupServer(t, apihttp.Options{}), SetFormat(format))

			for _, v := range []string{"data0", "data1", "data2", "data3", "data4"} {
				_, err := client.Add(ctx, []byte(v))
				require.NoError(t, err)
			}

			p, err := client.Proof(ctx, 2)
			require.NoError(t, err)
			require.Equal(t, protocol.HexBytes("data2"), p.Value)
			require.True(t, client.VerifyLocally(p))

			valid, err := client.Verify(ctx, p)
			require.NoError(t, err)
			require.True(t, valid)

			p.Value = protocol.HexBytes("wrong_data")
			require.False(t, client.VerifyLocally(p))
			valid, err = client.Verify(ctx, p)
			require.NoError(t, err, "A proof that does not verify is not an error")
			require.False(t, valid)
		})
	}
}

func TestAddAndVerify(t *testing.T) {
	ctx := context.Background()
	client := setupClient(t, setupServer(t, apihttp.Options{}))

	for _, v := range []string{"a", "b", "c"} {
		p, err := client.AddAndVerify(ctx, []byte(v))
		require.NoError(t, err)
		require.Equal(t, protocol.HexBytes(v), p.Value)
	}
}

func TestVerifyLocallyNeedsTheServerHasher(t *testing.T) {
	ctx := context.Background()
	url := setupServer(t, apihttp.Options{})
	client := setupClient(t, url)
	_, err := client.Add(ctx, []byte("a"))
	require.NoError(t, err)
	_, err = client.Add(ctx, []byte("b"))
	require.NoError(t, err)

	p, err := client.Proof(ctx, 0)
	require.NoError(t, err)

	other := setupClient(t, url, SetHasher(hashing.NewBlake3Hasher()))
	require.False(t, other.VerifyLocally(p))
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	url := setupServer(t, apihttp.Options{APIKey: "my-awesome-api-key"})
	client := setupClient(t, url)

	_, err := client.Root(ctx)
	require.True(t, commitment.IsNotFound(err), "An empty log has no root: %v", err)

	_, err = client.Add(ctx, nil)
	require.True(t, commitment.IsInvalidInput(err), "Empty values are rejected: %v", err)

	_, err = client.Get(ctx, 7)
	require.True(t, commitment.IsNotFound(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, protocol.ErrorNotFound, apiErr.Code)

	_, err = client.Proof(ctx, 7)
	require.True(t, commitment.IsNotFound(err))

	unauthorized := setupClient(t, url, SetAPIKey("wrong"))
	_, err = unauthorized.List(ctx)
	require.True(t, errors.Is(err, ErrUnauthorized), "Wrong keys are rejected: %v", err)
}

func TestRetriesTransientFailures(t *testing.T) {
	var numRequests int
	httpClient := newTestHttpClient(func(req *http.Request) (*http.Response, error) {
		numRequests++
		if numRequests < 3 {
			return response(http.StatusServiceUnavailable, ""), nil
		}
		return response(http.StatusOK, `{"status":"healthy","version":"test","commitment_count":0}`), nil
	})

	client := setupClient(t, "http://primary.foo", SetHttpClient(httpClient), SetMaxRetries(3))
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, 3, numRequests, "The number of requests should match")
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var numRequests int
	httpClient := newTestHttpClient(func(req *http.Request) (*http.Response, error) {
		numRequests++
		return response(http.StatusServiceUnavailable, ""), nil
	})

	client := setupClient(t, "http://primary.foo", SetHttpClient(httpClient), SetMaxRetries(2))
	_, err := client.Health(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, 3, numRequests, "The first attempt plus two retries")
}

func TestDoesNotRetryInternalErrors(t *testing.T) {
	var numRequests int
	httpClient := newTestHttpClient(func(req *http.Request) (*http.Response, error) {
		numRequests++
		return response(http.StatusInternalServerError, `{"error":"TREE_BUILD_ERROR","message":"boom"}`), nil
	})

	client := setupClient(t, "http://primary.foo", SetHttpClient(httpClient), SetMaxRetries(3))
	_, err := client.Add(context.Background(), []byte("a"))
	require.True(t, commitment.IsTreeBuild(err))
	require.Equal(t, 1, numRequests)
}

func TestUnreachableServer(t *testing.T) {
	var numRequests int
	httpClient := newTestHttpClient(func(req *http.Request) (*http.Response, error) {
		numRequests++
		return nil, errors.New("connection refused")
	})

	client := setupClient(t, "http://primary.foo", SetHttpClient(httpClient), SetMaxRetries(1))
	_, err := client.Root(context.Background())
	require.True(t, errors.Is(err, ErrUnavailable), "Unexpected error: %v", err)
	require.Equal(t, 2, numRequests)
}

func TestRateLimited(t *testing.T) {
	ctx := context.Background()
	url := setupServer(t, apihttp.Options{AddRateLimit: 0.001, AddBurst: 1})
	client := setupClient(t, url, SetMaxRetries(1))

	_, err := client.Add(ctx, []byte("a"))
	require.NoError(t, err)
	_, err = client.Add(ctx, []byte("b"))
	require.True(t, errors.Is(err, ErrRateLimited), "Unexpected error: %v", err)

	all, err := client.List(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), all.Count)
}

func TestCanceledContext(t *testing.T) {
	client := setupClient(t, setupServer(t, apihttp.Options{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Health(ctx)
	require.True(t, errors.Is(err, context.Canceled), "Unexpected error: %v", err)
}

func TestOptionsValidation(t *testing.T) {
	_, err := NewHTTPClient(SetURL(""))
	assert.Error(t, err)
	_, err = NewHTTPClient(SetFormat("xml"))
	assert.Error(t, err)
	_, err = NewHTTPClient(SetRetryWait(time.Second, time.Millisecond))
	assert.Error(t, err)
	_, err = NewHTTPClient(SetHasher(nil))
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	conf, err := (&Config{Endpoint: "http://example.com:9000", MaxRetries: 5}).WithDefaults()
	require.NoError(t, err)
	require.Equal(t, "http://example.com:9000", conf.Endpoint)
	require.Equal(t, 5, conf.MaxRetries)
	require.Equal(t, DefaultTimeout, conf.Timeout)
	require.Equal(t, DefaultRetryWaitMax, conf.RetryWaitMax)
	require.Equal(t, DefaultFormat, conf.Format)
	require.Equal(t, hashing.SHA256, conf.Hasher)
}

func TestNewHTTPClientFromConfig(t *testing.T) {
	url := setupServer(t, apihttp.Options{})
	client, err := NewHTTPClientFromConfig(&Config{Endpoint: url, Format: "cbor", MaxRetries: -1})
	require.NoError(t, err)
	defer client.Close()

	res, err := client.Add(context.Background(), []byte("a"))
	require.NoError(t, err)
	require.Equal(t, "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb", res.MerkleRoot.String())

	_, err = NewHTTPClientFromConfig(&Config{Hasher: "md5"})
	require.Error(t, err)
}
