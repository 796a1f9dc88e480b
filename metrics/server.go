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

package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bbva/commitd/api/metricshttp"
	"github.com/bbva/commitd/log"
)

// Server exposes a registry over HTTP at /metrics.
type Server struct {
	registry Registry
	server   *http.Server
	listener net.Listener
	log      log.Logger
}

// NewServer creates a metrics server bound to addr. Nothing is served
// until Start is called.
func NewServer(addr string, logger log.Logger) *Server {
	registry := NewRegistry()
	return &Server{
		registry: registry,
		server: &http.Server{
			Addr:              addr,
			Handler:           metricshttp.NewMetricsHTTP(registry),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.Named("metrics"),
	}
}

// Register adds the collectors of every registerer to the server registry.
func (m *Server) Register(rs ...Registerer) {
	for _, r := range rs {
		r.RegisterMetrics(m.registry)
	}
}

// Registry returns the registry served by m.
func (m *Server) Registry() Registry {
	return m.registry
}

// Start listens on the configured address and serves in the background.
func (m *Server) Start() error {
	l, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return err
	}
	m.listener = l
	m.log.Infof("Metrics enabled on %s", l.Addr())
	go func() {
		if err := m.server.Serve(l); err != http.ErrServerClosed {
			m.log.Errorf("Can't start metrics HTTP server: %s", err)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on, nil before Start.
func (m *Server) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Shutdown stops the server waiting at most for the context deadline.
func (m *Server) Shutdown(ctx context.Context) error {
	m.log.Debug("Stopping metrics server...")
	return m.server.Shutdown(ctx)
}
