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

// Package server implements the server initialization for the api.apihttp
// and the commitment store against a storage engine.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bbva/commitd/api/apihttp"
	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/metrics"
	"github.com/bbva/commitd/protocol"
	"github.com/bbva/commitd/storage"
	"github.com/bbva/commitd/storage/badger"
	"github.com/bbva/commitd/storage/bplus"
	"github.com/bbva/commitd/util"
)

// Server encapsulates the data and logic to start/stop a commitment server
type Server struct {
	conf *Config
	log  log.Logger

	store         commitment.Store
	scratchDir    string
	httpServer    *http.Server
	listener      net.Listener
	metricsServer *metrics.Server
	registry      metrics.Registry
	metrics       *serverMetrics

	stopOnce sync.Once
	stopErr  error
}

// NewServer creates a new Server based on the parameters it receives.
func NewServer(conf *Config, logger log.Logger) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.L()
	}

	server := &Server{
		conf: conf,
		log:  logger.Named("server"),
	}

	hasher, err := hashing.NewHasher(conf.Hasher)
	if err != nil {
		return nil, err
	}

	server.store, server.scratchDir, err = openStore(conf, hasher, logger)
	if err != nil {
		return nil, err
	}

	// create metrics server and register default metrics
	if conf.MetricsAddr != "" {
		server.metricsServer = metrics.NewServer(conf.MetricsAddr, logger)
		server.registry = server.metricsServer.Registry()
	} else {
		server.registry = metrics.NewRegistry()
	}
	server.metrics = newServerMetrics(conf)
	server.register(server.metrics, apihttp.Metrics{})
	if r, ok := server.store.(metrics.Registerer); ok {
		server.register(r)
	}

	// Create http endpoints
	httpMux := apihttp.NewApiHttp(server.store, apihttp.Options{
		APIKey:         conf.APIKey,
		Version:        conf.Version,
		MaxValueSize:   conf.MaxValueSize,
		AddRateLimit:   conf.AddRateLimit,
		AddBurst:       conf.AddBurst,
		ProofCacheSize: conf.ProofCacheSize,
		Logger:         logger,
	})
	httpMux.HandleFunc("/info", apihttp.LogHandler(server.log, server.serverInfo))

	server.httpServer = &http.Server{
		Addr:              conf.APIAddr,
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, nil
}

func (s *Server) register(rs ...metrics.Registerer) {
	for _, r := range rs {
		r.RegisterMetrics(s.registry)
	}
}

// openStore creates the commitment store on the configured backend. An on
// disk badger store lives in a fresh scratch directory created under
// DBPath, which is returned so it can be removed on stop.
func openStore(conf *Config, hasher hashing.Hasher, logger log.Logger) (commitment.Store, string, error) {
	opts := []commitment.Option{
		commitment.WithHasher(hasher),
		commitment.WithMaxValueSize(conf.MaxValueSize),
		commitment.WithLogger(logger),
	}

	switch conf.Storage {
	case StorageMemory:
		return commitment.NewMemoryStore(opts...), "", nil

	case StorageBPlus:
		store, err := commitment.NewKVStore(bplus.NewBPlusTreeStore(), opts...)
		return store, "", err

	case StorageBadger:
		if conf.DBPath == "" {
			kv, err := badger.NewInMemoryBadgerStore(logger)
			if err != nil {
				return nil, "", err
			}
			store, err := newKVStore(kv, opts)
			return store, "", err
		}

		if err := os.MkdirAll(conf.DBPath, 0755); err != nil {
			return nil, "", err
		}
		dir, err := os.MkdirTemp(conf.DBPath, "badger-")
		if err != nil {
			return nil, "", err
		}
		logger.Infof("Using scratch directory %s", dir)
		kv, err := badger.NewBadgerStore(dir, logger)
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, "", err
		}
		store, err := newKVStore(kv, opts)
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, "", err
		}
		return store, dir, nil
	}

	return nil, "", errors.Errorf("unknown storage %q", conf.Storage)
}

func newKVStore(kv storage.Store, opts []commitment.Option) (commitment.Store, error) {
	store, err := commitment.NewKVStore(kv, opts...)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return store, nil
}

// Info describes the configuration of the server.
func (s *Server) Info() protocol.Info {
	info := protocol.Info{
		Version:      s.conf.Version,
		Hasher:       s.conf.Hasher,
		Storage:      s.conf.Storage,
		MaxValueSize: s.conf.MaxValueSize,
		APIAddr:      s.conf.APIAddr,
		MetricsAddr:  s.conf.MetricsAddr,
	}
	if s.listener != nil {
		info.APIAddr = s.listener.Addr().String()
	}
	if s.metricsServer != nil && s.metricsServer.Addr() != nil {
		info.MetricsAddr = s.metricsServer.Addr().String()
	}
	return info
}

func (s *Server) serverInfo(w http.ResponseWriter, r *http.Request) {
	apihttp.InfoHandler(s.Info())(w, r)
}

// Store returns the commitment store served by s.
func (s *Server) Store() commitment.Store {
	return s.store
}

// Registry returns the registry holding the metrics of s.
func (s *Server) Registry() metrics.Registry {
	return s.registry
}

// Addr returns the address the API is listening on, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start will start the server in a non-blockable fashion.
func (s *Server) Start() error {
	s.log.Infof("Starting commitment server with %s storage and %s hasher", s.conf.Storage, s.conf.Hasher)

	if s.metricsServer != nil {
		s.log.Debugf("	* Starting metrics HTTP server in addr: %s", s.conf.MetricsAddr)
		if err := s.metricsServer.Start(); err != nil {
			return errors.Wrap(err, "can't start metrics HTTP server")
		}
	}

	l, err := net.Listen("tcp", s.conf.APIAddr)
	if err != nil {
		return errors.Wrap(err, "can't start API HTTP server")
	}
	s.listener = l

	go func() {
		s.log.Debugf("	* Starting API HTTP server in addr: %s", l.Addr())
		if err := s.httpServer.Serve(l); err != http.ErrServerClosed {
			s.log.Errorf("Can't start API HTTP server: %s", err)
		}
	}()

	s.metrics.Instances.Inc()
	s.log.Infof("Ready on %s", l.Addr())
	return nil
}

// Run starts the server and blocks until a termination signal arrives.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	util.AwaitTermSignal(s.Stop)
	s.log.Debug("Stopping server, about to exit...")
	return nil
}

// Stop will close the HTTP servers and the store. It is safe to call more
// than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.stop()
	})
	return s.stopErr
}

func (s *Server) stop() error {
	s.log.Info("Shutting down commitment server")

	ctx, cancel := context.WithTimeout(context.Background(), s.conf.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.listener != nil {
		s.log.Debug("Stopping API HTTP server...")
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error(err.Error())
			errs = append(errs, err)
		}
		s.metrics.Instances.Dec()
	}

	if s.metricsServer != nil && s.metricsServer.Addr() != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.log.Error(err.Error())
			errs = append(errs, err)
		}
	}

	s.log.Debug("Closing store...")
	if err := s.store.Close(); err != nil {
		s.log.Error(err.Error())
		errs = append(errs, err)
	}

	if s.scratchDir != "" {
		s.log.Debugf("Removing scratch directory %s", s.scratchDir)
		if err := os.RemoveAll(s.scratchDir); err != nil {
			s.log.Error(err.Error())
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	s.log.Debug("Done. Exiting...")
	return nil
}
