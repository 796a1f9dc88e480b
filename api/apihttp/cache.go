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
	"github.com/VictoriaMetrics/fastcache"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/protocol"
	"github.com/bbva/commitd/util"
)

// proofCache keeps encoded proofs by root and index. A tree never changes
// once built, so an entry stays valid for as long as it is cached.
type proofCache struct {
	c *fastcache.Cache
}

// newProofCache returns a cache of maxBytes. A nil cache is returned when
// maxBytes is not positive, and every method of a nil cache is a no-op.
func newProofCache(maxBytes int) *proofCache {
	if maxBytes <= 0 {
		return nil
	}
	return &proofCache{c: fastcache.New(maxBytes)}
}

func cacheKey(root hashing.Digest, index uint64) []byte {
	key := make([]byte, 0, len(root)+8)
	key = append(key, root...)
	return append(key, util.Uint64AsBytes(index)...)
}

func (pc *proofCache) Get(root hashing.Digest, index uint64) (*protocol.Proof, bool) {
	if pc == nil {
		return nil, false
	}
	encoded, ok := pc.c.HasGet(nil, cacheKey(root, index))
	if !ok {
		ProofCacheMisses.Inc()
		return nil, false
	}
	var p protocol.Proof
	if err := protocol.Decode(protocol.ContentTypeCBOR, encoded, &p); err != nil {
		ProofCacheMisses.Inc()
		return nil, false
	}
	ProofCacheHits.Inc()
	return &p, true
}

func (pc *proofCache) Set(root hashing.Digest, index uint64, p *protocol.Proof) {
	if pc == nil {
		return
	}
	encoded, err := protocol.Encode(protocol.ContentTypeCBOR, p)
	if err != nil {
		return
	}
	// fastcache drops entries of 64KB or more
	pc.c.Set(cacheKey(root, index), encoded)
}
