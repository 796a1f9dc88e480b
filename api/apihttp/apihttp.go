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

// Package apihttp implements the HTTP API public interface of the
// commitment service.
package apihttp

import (
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/protocol"
)

// Options configures the API handlers.
type Options struct {
	// APIKey is required in the Api-Key header when not empty.
	APIKey string
	// Version is reported by the health check.
	Version string
	// MaxValueSize is the largest value accepted by the add handler.
	MaxValueSize int
	// AddRateLimit is the sustained number of adds per second. Zero
	// disables the limit.
	AddRateLimit float64
	// AddBurst is the number of adds allowed above the sustained rate.
	AddBurst int
	// ProofCacheSize is the size in bytes of the proof cache. Zero
	// disables it.
	ProofCacheSize int
	Logger         log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxValueSize <= 0 {
		o.MaxValueSize = commitment.DefaultMaxValueSize
	}
	if o.AddRateLimit > 0 && o.AddBurst <= 0 {
		o.AddBurst = 1
	}
	if o.Logger == nil {
		o.Logger = log.L()
	}
	o.Logger = o.Logger.Named("api")
	return o
}

// maxBodySize bounds request bodies: a value of the maximum size in its
// largest accepted JSON form, an array of numbers of up to four bytes per
// value byte ("255,"), plus room for the proof path of a verify request.
func maxBodySize(maxValueSize int) int64 {
	return int64(4*maxValueSize) + 64*1024
}

// NewApiHttp returns a mux with every API endpoint registered on it.
func NewApiHttp(store commitment.Store, opts Options) *http.ServeMux {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.AddRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.AddRateLimit), opts.AddBurst)
	}
	cache := newProofCache(opts.ProofCacheSize)
	bodySize := maxBodySize(opts.MaxValueSize)

	secured := func(h http.HandlerFunc) http.HandlerFunc {
		return LogHandler(opts.Logger, AuthHandlerMiddleware(opts.APIKey, h))
	}

	api := http.NewServeMux()
	api.HandleFunc("/health", LogHandler(opts.Logger, HealthCheckHandler(store, opts.Version)))
	api.HandleFunc("/api/v1/commitments", secured(Commitments(store, opts.MaxValueSize, bodySize, limiter)))
	api.HandleFunc("/api/v1/commitments/{index}", secured(GetCommitment(store)))
	api.HandleFunc("/api/v1/proof/verify", secured(VerifyProof(store, bodySize)))
	api.HandleFunc("/api/v1/proof/{index}", secured(GetProof(store, cache)))
	api.HandleFunc("/api/v1/root", secured(Root(store)))

	return api
}

// This handler checks the system status and returns it accordingly.
// The http call it answers is:
//
//	GET /health
//
// If everything is alright, the HTTP status is 200 and the body contains:
//
//	{"status": "healthy", "version": "0.1.0", "commitment_count": 2}
func HealthCheckHandler(store commitment.Store, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		HealthCheckRequest.Inc()
		defer HealthCheckRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		count, err := store.Count()
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeResponse(w, r, http.StatusOK, &protocol.HealthResponse{
			Status:          "healthy",
			Version:         version,
			CommitmentCount: count,
		})
	}
}

// Commitments dispatches adds and listings on the commitments collection.
func Commitments(store commitment.Store, maxValueSize int, bodySize int64, limiter *rate.Limiter) http.HandlerFunc {
	add := Add(store, maxValueSize, bodySize, limiter)
	list := ListCommitments(store)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			add(w, r)
		case http.MethodGet:
			list(w, r)
		default:
			methodNotAllowed(w, http.MethodGet+", "+http.MethodPost)
		}
	}
}

// This handler commits a value into the system.
// The http post url is:
//
//	POST /api/v1/commitments
//
// With a body like {"value": "6869"}. If everything is alright, the HTTP
// status is 201 and the body contains:
//
//	{"index": 0, "merkle_root": "ca9781..."}
//
// Empty or oversized values are rejected with a 400 and nothing is
// committed. Adds over the rate limit get a 429.
func Add(store commitment.Store, maxValueSize int, bodySize int64, limiter *rate.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		AddRequest.Inc()
		defer AddRequest.Dec()

		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}

		if limiter != nil && !limiter.Allow() {
			RateLimitedTotal.Inc()
			writeErrorResponse(w, r, http.StatusTooManyRequests, protocol.ErrorInvalidInput, "too many adds, slow down")
			return
		}

		var req protocol.AddCommitmentRequest
		if !readRequest(w, r, bodySize, &req) {
			return
		}
		if err := req.Validate(maxValueSize); err != nil {
			writeError(w, r, err)
			return
		}

		index, root, err := store.Add(req.Value)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeResponse(w, r, http.StatusCreated, &protocol.AddCommitmentResponse{
			Index:      index,
			MerkleRoot: protocol.HexBytes(root),
		})
	}
}

// ListCommitments returns every commitment in index order.
//
//	GET /api/v1/commitments
func ListCommitments(store commitment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ListRequest.Inc()
		defer ListRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		all, err := store.GetAll()
		if err != nil {
			writeError(w, r, err)
			return
		}

		res := &protocol.CommitmentsResponse{
			Commitments: make([]*protocol.CommitmentResponse, len(all)),
			Count:       uint64(len(all)),
		}
		for i, c := range all {
			res.Commitments[i] = protocol.ToCommitmentResponse(c)
		}
		writeResponse(w, r, http.StatusOK, res)
	}
}

// GetCommitment returns a single commitment, or a 404 if the index was
// never assigned.
//
//	GET /api/v1/commitments/{index}
func GetCommitment(store commitment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		GetCommitmentRequest.Inc()
		defer GetCommitmentRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		index, ok := pathIndex(w, r)
		if !ok {
			return
		}

		c, err := store.Get(index)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeResponse(w, r, http.StatusOK, protocol.ToCommitmentResponse(c))
	}
}

// This handler returns the inclusion proof of a commitment under the
// current root.
// The http call it answers is:
//
//	GET /api/v1/proof/{index}
//
// The proof is encoded as CBOR when the Accept header asks for
// application/cbor and as JSON otherwise:
//
//	{"index": 2, "value": "...", "proof": [{"hash": "...", "is_left": false}], "root": "..."}
func GetProof(store commitment.Store, cache *proofCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ProofRequest.Inc()
		defer ProofRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		index, ok := pathIndex(w, r)
		if !ok {
			return
		}

		if root, err := store.Root(); err == nil {
			if cached, ok := cache.Get(root, index); ok {
				writeResponse(w, r, http.StatusOK, cached)
				return
			}
		}

		p, err := store.Proof(index)
		if err != nil {
			writeError(w, r, err)
			return
		}

		wire := protocol.ToProof(p)
		cache.Set(p.Root, index, wire)
		writeResponse(w, r, http.StatusOK, wire)
	}
}

// This handler verifies a proof submitted by the caller against the hash
// function of the store.
// The http post url is:
//
//	POST /api/v1/proof/verify
//
// Any well formed proof gets a 200 with {"valid": true} or
// {"valid": false}. A proof that does not verify is not an error.
func VerifyProof(store commitment.Store, bodySize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		VerifyRequest.Inc()
		defer VerifyRequest.Dec()

		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}

		var req protocol.Proof
		if !readRequest(w, r, bodySize, &req) {
			return
		}

		tree, err := store.Tree()
		if err != nil {
			writeError(w, r, err)
			return
		}

		valid := req.ToMerkleProof(tree.Hasher()).Verify()
		writeResponse(w, r, http.StatusOK, &protocol.VerifyResponse{Valid: valid})
	}
}

// Root returns the current root and the number of commitments under it,
// or a 404 while nothing is committed.
//
//	GET /api/v1/root
func Root(store commitment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RootRequest.Inc()
		defer RootRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		tree, err := store.Tree()
		if err != nil {
			writeError(w, r, err)
			return
		}
		root, err := tree.RootDigest()
		if err != nil {
			writeError(w, r, errors.Wrap(commitment.ErrNotFound, "no commitments yet"))
			return
		}

		writeResponse(w, r, http.StatusOK, &protocol.RootResponse{
			Root:            protocol.HexBytes(root),
			CommitmentCount: tree.LeafCount(),
		})
	}
}

// InfoHandler returns the configuration of the running server.
//
//	GET /info
func InfoHandler(info protocol.Info) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		InfoRequest.Inc()
		defer InfoRequest.Dec()

		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeResponse(w, r, http.StatusOK, &info)
	}
}

func pathIndex(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, protocol.ErrorInvalidInput, "index must be a non negative integer")
		return 0, false
	}
	return index, true
}

// readRequest decodes the body of r into v, writing the error response
// itself when the body is missing, too large or malformed.
func readRequest(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	if r.Body == nil {
		writeErrorResponse(w, r, http.StatusBadRequest, protocol.ErrorInvalidInput, "please send a request body")
		return false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, protocol.ErrorInvalidInput, "request body too large")
			return false
		}
		writeErrorResponse(w, r, http.StatusBadRequest, protocol.ErrorInvalidInput, "unable to read request body")
		return false
	}

	if err := protocol.Decode(r.Header.Get("Content-Type"), body, v); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, protocol.ErrorInvalidInput, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// writeResponse encodes v in the content type negotiated from the Accept
// header of r.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	contentType := protocol.Negotiate(r.Header.Get("Accept"))
	out, err := protocol.Encode(contentType, v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// writeError maps err to its HTTP status and error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case commitment.IsNotFound(err):
		writeErrorResponse(w, r, http.StatusNotFound, protocol.ErrorNotFound, err.Error())
	case commitment.IsInvalidInput(err):
		writeErrorResponse(w, r, http.StatusBadRequest, protocol.ErrorInvalidInput, err.Error())
	case commitment.IsTreeBuild(err):
		writeErrorResponse(w, r, http.StatusInternalServerError, protocol.ErrorTreeBuild, err.Error())
	default:
		writeErrorResponse(w, r, http.StatusInternalServerError, protocol.ErrorInternal, err.Error())
	}
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeResponse(w, r, status, &protocol.ErrorResponse{Error: code, Message: message})
}
