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
	"time"

	"github.com/imdario/mergo"
)

const (
	// DefaultEndpoint is the address of a local commitment service.
	DefaultEndpoint = "http://127.0.0.1:8800"

	// DefaultTimeout is the default number of seconds to wait for a request.
	DefaultTimeout = 10 * time.Second

	// DefaultDialTimeout is the default number of seconds to wait for the connection
	// to be established.
	DefaultDialTimeout = 5 * time.Second

	// DefaultHandshakeTimeout is the default number of seconds to wait for a handshake
	// negotiation.
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultMaxRetries sets the default maximum number of retries before giving up
	// when performing an HTTP request.
	DefaultMaxRetries = 2

	// DefaultRetryWaitMin and DefaultRetryWaitMax bound the wait between
	// two attempts.
	DefaultRetryWaitMin = 100 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second

	// DefaultFormat is the wire format of requests and responses.
	DefaultFormat = "json"
)

// Config sets the HTTP client configuration
type Config struct {
	// Log level
	Log string `desc:"Set log level to info, error or debug"`

	// Endpoint of the commitment service.
	Endpoint string `desc:"REST commitment service endpoint http://ip:port"`

	// ApiKey to query the server endpoint.
	APIKey string `desc:"Set API Key to talk to the commitment service"`

	// Insecure disables the verification of the server's certificate chain
	// and host name, allowing MiTM vector attacks.
	Insecure bool `desc:"Set it to true to disable the verification of the server's certificate chain"`

	// Timeout is the time to wait for a request.
	Timeout time.Duration `desc:"Time to wait for a request"`

	// DialTimeout is the time to wait for the connection to be established.
	DialTimeout time.Duration `desc:"Time to wait for the connection to be established"`

	// HandshakeTimeout is the time to wait for a handshake negotiation.
	HandshakeTimeout time.Duration `desc:"Time to wait for a handshake negotiation"`

	// MaxRetries sets the maximum number of retries before giving up
	// when performing an HTTP request. A negative value disables retries.
	MaxRetries int `desc:"Sets the maximum number of retries before giving up, negative to disable"`

	// RetryWaitMin is the first wait between two attempts.
	RetryWaitMin time.Duration `desc:"Minimum time to wait between retries"`

	// RetryWaitMax is the longest wait between two attempts.
	RetryWaitMax time.Duration `desc:"Maximum time to wait between retries"`

	// Format is the wire format used to talk to the server.
	Format string `desc:"Wire format: json or cbor"`

	// Hasher is the hash function used to verify proofs locally.
	Hasher string `desc:"Hash function used to verify proofs: sha256, blake2b or blake3"`
}

// DefaultConfig creates a Config structures with default values.
func DefaultConfig() *Config {
	return &Config{
		Log:              "info",
		Endpoint:         DefaultEndpoint,
		APIKey:           "",
		Insecure:         false,
		Timeout:          DefaultTimeout,
		DialTimeout:      DefaultDialTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		MaxRetries:       DefaultMaxRetries,
		RetryWaitMin:     DefaultRetryWaitMin,
		RetryWaitMax:     DefaultRetryWaitMax,
		Format:           DefaultFormat,
		Hasher:           "sha256",
	}
}

// WithDefaults returns a copy of conf whose zero fields are taken from
// DefaultConfig.
func (conf *Config) WithDefaults() (*Config, error) {
	merged := *conf
	if err := mergo.Merge(&merged, DefaultConfig()); err != nil {
		return nil, err
	}
	return &merged, nil
}
