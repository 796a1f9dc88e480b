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
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/pborman/uuid"

	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "Request-Id"

// AuthHandlerMiddleware rejects requests whose Api-Key header does not
// match apiKey. An empty apiKey disables the check.
func AuthHandlerMiddleware(apiKey string, handler http.HandlerFunc) http.HandlerFunc {
	if apiKey == "" {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Api-Key")
		if key == "" {
			writeErrorResponse(w, r, http.StatusUnauthorized, protocol.ErrorInvalidInput, "missing Api-Key header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			writeErrorResponse(w, r, http.StatusUnauthorized, protocol.ErrorInvalidInput, "invalid Api-Key header")
			return
		}
		handler.ServeHTTP(w, r)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.length += n
	return n, err
}

// LogHandler assigns a request id to every request, returns it in the
// Request-Id header and logs the outcome of the request.
func LogHandler(l log.Logger, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewUUID().String()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		writer := &statusWriter{ResponseWriter: w}
		handler.ServeHTTP(writer, r)
		latency := time.Since(start)

		if writer.status >= 400 {
			l.Infof("Request %s failed: %s %s status %d latency %v", id, r.Method, r.URL.Path, writer.status, latency)
			return
		}
		l.Debugf("Request %s: %s %s status %d bytes %d latency %v", id, r.Method, r.URL.Path, writer.status, writer.length, latency)
	}
}
