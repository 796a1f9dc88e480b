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
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

// HTTPClientOptionF is a function that configures an HTTPClient.
type HTTPClientOptionF func(*HTTPClient) error

func configToOptions(conf *Config) ([]HTTPClientOptionF, error) {
	conf, err := conf.WithDefaults()
	if err != nil {
		return nil, err
	}

	hasher, err := hashing.NewHasher(conf.Hasher)
	if err != nil {
		return nil, err
	}

	defaultTransport := http.DefaultTransport.(*http.Transport)
	options := []HTTPClientOptionF{
		SetURL(conf.Endpoint),
		SetAPIKey(conf.APIKey),
		SetMaxRetries(conf.MaxRetries),
		SetRetryWait(conf.RetryWaitMin, conf.RetryWaitMax),
		SetBackoff(NewExponentialBackoff(conf.RetryWaitMin, conf.RetryWaitMax)),
		SetFormat(conf.Format),
		SetHasher(hasher),
		SetHttpClient(&http.Client{
			Timeout: conf.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: conf.DialTimeout,
				}).DialContext,
				Proxy:                 defaultTransport.Proxy,
				MaxIdleConns:          defaultTransport.MaxIdleConns,
				IdleConnTimeout:       defaultTransport.IdleConnTimeout,
				ExpectContinueTimeout: defaultTransport.ExpectContinueTimeout,
				TLSClientConfig:       &tls.Config{InsecureSkipVerify: conf.Insecure},
				TLSHandshakeTimeout:   conf.HandshakeTimeout,
			},
		}),
	}
	return options, nil
}

// SetHttpClient sets the client performing every attempt.
func SetHttpClient(client *http.Client) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if client == nil {
			return errors.New("The http client cannot be nil")
		}
		c.retryClient.HTTPClient = client
		return nil
	}
}

func SetURL(url string) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if len(url) == 0 {
			return errors.New("Cannot use empty string for the url")
		}
		c.url = strings.TrimRight(url, "/")
		return nil
	}
}

func SetAPIKey(key string) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		c.apiKey = key
		return nil
	}
}

// SetMaxRetries sets the retries after the first attempt. A negative value
// disables retries.
func SetMaxRetries(retries int) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if retries < 0 {
			retries = 0
		}
		c.retryClient.RetryMax = retries
		return nil
	}
}

func SetRetryWait(min, max time.Duration) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if min > max {
			return errors.Errorf("The minimum retry wait %v exceeds the maximum %v", min, max)
		}
		c.retryClient.RetryWaitMin = min
		c.retryClient.RetryWaitMax = max
		return nil
	}
}

func SetBackoff(backoff Backoff) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if backoff == nil {
			return errors.New("The backoff cannot be nil")
		}
		c.retryClient.Backoff = retryableBackoff(backoff)
		return nil
	}
}

// SetFormat selects the wire format, json or cbor.
func SetFormat(format string) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		switch strings.ToLower(format) {
		case "", "json":
			c.contentType = protocol.ContentTypeJSON
		case "cbor":
			c.contentType = protocol.ContentTypeCBOR
		default:
			return errors.Errorf("Unknown format %q", format)
		}
		return nil
	}
}

// SetHasher sets the hash function used to verify proofs locally. It must
// match the one of the server.
func SetHasher(hasher hashing.Hasher) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		if hasher == nil {
			return errors.New("The hasher cannot be nil")
		}
		c.hasher = hasher
		return nil
	}
}

func SetLogger(logger log.Logger) HTTPClientOptionF {
	return func(c *HTTPClient) error {
		c.log = logger
		return nil
	}
}
