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

// Package client implements the client of the commitment service HTTP API.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

// HTTPClient talks to a commitment service, retrying requests that fail
// for transient reasons.
type HTTPClient struct {
	retryClient *retryablehttp.Client
	url         string
	apiKey      string
	contentType string
	hasher      hashing.Hasher
	log         log.Logger
}

// NewHTTPClient creates a client configured by options. Without options
// it talks JSON to a local server and verifies proofs with SHA256.
func NewHTTPClient(options ...HTTPClientOptionF) (*HTTPClient, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = DefaultMaxRetries
	retryClient.RetryWaitMin = DefaultRetryWaitMin
	retryClient.RetryWaitMax = DefaultRetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &HTTPClient{
		retryClient: retryClient,
		url:         DefaultEndpoint,
		contentType: protocol.ContentTypeJSON,
		hasher:      hashing.NewSha256Hasher(),
		log:         log.L(),
	}

	for _, option := range options {
		if err := option(client); err != nil {
			return nil, err
		}
	}

	client.log = client.log.Named("client")
	retryClient.Logger = log.Hclog(client.log)
	return client, nil
}

// NewHTTPClientFromConfig initializes a client from a configuration. Zero
// fields of conf take their default value.
func NewHTTPClientFromConfig(conf *Config) (*HTTPClient, error) {
	options, err := configToOptions(conf)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(options...)
}

// retryPolicy retries connection errors, throttled requests and
// unavailable servers. A 500 is the outcome of the request itself and is
// returned as is.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusInternalServerError {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Close releases the idle connections of the client.
func (c *HTTPClient) Close() {
	c.retryClient.HTTPClient.CloseIdleConnections()
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string, in, out interface{}) error {
	var body interface{}
	if in != nil {
		encoded, err := protocol.Encode(c.contentType, in)
		if err != nil {
			return errors.Wrap(err, "unable to encode request")
		}
		body = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", c.contentType)
	req.Header.Set("Accept", c.contentType)
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.retryClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read response")
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp.StatusCode, contentType, data)
		c.log.Debugf("%s %s failed: %v", method, path, apiErr)
		return apiErr
	}

	if out != nil {
		if err := protocol.Decode(contentType, data, out); err != nil {
			return errors.Wrap(err, "unable to decode response")
		}
	}
	return nil
}

// Health asks the server for its status.
func (c *HTTPClient) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	var res protocol.HealthResponse
	if err := c.doReq(ctx, http.MethodGet, "/health", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Info returns the configuration of the server.
func (c *HTTPClient) Info(ctx context.Context) (*protocol.Info, error) {
	var res protocol.Info
	if err := c.doReq(ctx, http.MethodGet, "/info", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Add commits value and returns its index and the new root.
func (c *HTTPClient) Add(ctx context.Context, value []byte) (*protocol.AddCommitmentResponse, error) {
	var res protocol.AddCommitmentResponse
	req := &protocol.AddCommitmentRequest{Value: protocol.HexBytes(value)}
	if err := c.doReq(ctx, http.MethodPost, "/api/v1/commitments", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Get returns the commitment at index.
func (c *HTTPClient) Get(ctx context.Context, index uint64) (*protocol.CommitmentResponse, error) {
	var res protocol.CommitmentResponse
	if err := c.doReq(ctx, http.MethodGet, fmt.Sprintf("/api/v1/commitments/%d", index), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns every commitment.
func (c *HTTPClient) List(ctx context.Context) (*protocol.CommitmentsResponse, error) {
	var res protocol.CommitmentsResponse
	if err := c.doReq(ctx, http.MethodGet, "/api/v1/commitments", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Root returns the current root.
func (c *HTTPClient) Root(ctx context.Context) (*protocol.RootResponse, error) {
	var res protocol.RootResponse
	if err := c.doReq(ctx, http.MethodGet, "/api/v1/root", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Proof returns the inclusion proof of the commitment at index.
func (c *HTTPClient) Proof(ctx context.Context, index uint64) (*protocol.Proof, error) {
	var res protocol.Proof
	if err := c.doReq(ctx, http.MethodGet, fmt.Sprintf("/api/v1/proof/%d", index), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Verify asks the server to verify p.
func (c *HTTPClient) Verify(ctx context.Context, p *protocol.Proof) (bool, error) {
	var res protocol.VerifyResponse
	if err := c.doReq(ctx, http.MethodPost, "/api/v1/proof/verify", p, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}

// VerifyLocally verifies p without contacting the server.
func (c *HTTPClient) VerifyLocally(p *protocol.Proof) bool {
	return p.ToMerkleProof(c.hasher).Verify()
}

// AddAndVerify commits value, then fetches and checks its proof against
// the root returned by the add. The proof is requested right after the
// add, so concurrent adds may move the root in between; in that case the
// proof is checked under the newer root.
func (c *HTTPClient) AddAndVerify(ctx context.Context, value []byte) (*protocol.Proof, error) {
	added, err := c.Add(ctx, value)
	if err != nil {
		return nil, err
	}
	p, err := c.Proof(ctx, added.Index)
	if err != nil {
		return nil, err
	}
	if string(p.Value) != string(value) {
		return nil, errors.Errorf("server returned a proof of another value for index %d", added.Index)
	}
	if !c.VerifyLocally(p) {
		return nil, errors.Errorf("proof of commitment %d does not verify", added.Index)
	}
	return p, nil
}
