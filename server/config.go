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
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageBPlus  = "bplus"
	StorageBadger = "badger"
)

type Config struct {
	// Log level
	Log string `desc:"Set log level to info, error or debug"`

	// API server bind address/port.
	APIAddr string `desc:"Endpoint for the REST API (host:port)"`

	// Metrics bind address/port. Metrics are not served when empty.
	MetricsAddr string `desc:"Endpoint for the metrics server (host:port), empty to disable"`

	// APIKey required in the Api-Key header of every API request. No key
	// is required when empty.
	APIKey string `desc:"API key required by the REST API, empty to disable"`

	// Hash function of the tree.
	Hasher string `desc:"Hash function: sha256, blake2b or blake3"`

	// Storage backend of the commitments.
	Storage string `desc:"Storage backend: memory, bplus or badger"`

	// Directory where the badger backend creates its scratch directory,
	// removed on stop. Badger runs in memory when empty.
	DBPath string `desc:"Parent directory of the badger scratch directory, removed on stop"`

	// Largest value accepted, in bytes.
	MaxValueSize int `desc:"Maximum value size in bytes"`

	// Sustained adds per second. Zero disables the limit.
	AddRateLimit float64 `desc:"Maximum adds per second, 0 to disable"`

	// Adds allowed above the sustained rate.
	AddBurst int `desc:"Adds allowed above the rate limit"`

	// Size in bytes of the proof cache. Zero disables it.
	ProofCacheSize int `desc:"Proof cache size in bytes, 0 to disable"`

	// Time to wait for in flight requests on shutdown.
	ShutdownTimeout time.Duration `desc:"Time to wait for in flight requests on shutdown"`

	// Version reported by the health check.
	Version string `flag:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:             "info",
		APIAddr:         "127.0.0.1:8800",
		MetricsAddr:     "127.0.0.1:8600",
		APIKey:          "",
		Hasher:          hashing.SHA256,
		Storage:         StorageBPlus,
		DBPath:          "",
		MaxValueSize:    commitment.DefaultMaxValueSize,
		AddRateLimit:    0,
		AddBurst:        100,
		ProofCacheSize:  32 * 1024 * 1024,
		ShutdownTimeout: 10 * time.Second,
		Version:         "dev",
	}
}

// Validate checks the configuration before a server is created.
func (c *Config) Validate() error {
	if log.LevelFromString(c.Log) == log.NotSet {
		return errors.Errorf("unknown log level %q", c.Log)
	}
	if _, _, err := addrParts(c.APIAddr); err != nil {
		return errors.Wrapf(err, "invalid api address %q", c.APIAddr)
	}
	if c.MetricsAddr != "" {
		if _, _, err := addrParts(c.MetricsAddr); err != nil {
			return errors.Wrapf(err, "invalid metrics address %q", c.MetricsAddr)
		}
	}
	if _, err := hashing.NewHasher(c.Hasher); err != nil {
		return err
	}
	switch c.Storage {
	case StorageMemory, StorageBPlus, StorageBadger:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.MaxValueSize <= 0 {
		return errors.Errorf("the maximum value size must be positive, got %d", c.MaxValueSize)
	}
	if c.AddRateLimit < 0 {
		return errors.Errorf("the add rate limit cannot be negative, got %v", c.AddRateLimit)
	}
	return nil
}

// addrParts returns the parts of and address/port.
func addrParts(address string) (string, int, error) {
	_, _, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}

	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return "", 0, err
	}

	return addr.IP.String(), addr.Port, nil
}
