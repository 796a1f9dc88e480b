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

// Package hashing implements the 256 bit digest functions used to hash
// commitment tree leaves and interior nodes.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of every digest produced by this package.
const Size = 32

// Names of the supported hashing algorithms.
const (
	SHA256  = "sha256"
	BLAKE2b = "blake2b"
	BLAKE3  = "blake3"
)

// Digest is the output of a Hasher.
type Digest []byte

// Equal reports whether both digests hold exactly the same bytes.
func (d Digest) Equal(o Digest) bool {
	return bytes.Equal(d, o)
}

func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Hasher computes fixed length digests. Implementations must be safe for
// concurrent use.
type Hasher interface {
	// Do hashes the concatenation of the given byte slices, in order.
	Do(...[]byte) Digest
	// Len returns the size of the resulting hash in bits.
	Len() uint16
	// Name returns the algorithm name.
	Name() string
}

// KeyHasher builds a new underlying hash.Hash for every digest, so one
// instance can be shared between goroutines.
type KeyHasher struct {
	name       string
	underlying func() hash.Hash
}

// NewSha256Hasher implements the Hasher interface and computes a 256 bit hash
// function using the SHA256 hashing algorithm.
func NewSha256Hasher() Hasher {
	return &KeyHasher{name: SHA256, underlying: sha256.New}
}

// NewBlake2bHasher implements the Hasher interface and computes a 256 bit hash
// function using the Blake2b hashing algorithm.
func NewBlake2bHasher() Hasher {
	return &KeyHasher{
		name: BLAKE2b,
		underlying: func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				panic(fmt.Sprintf("Error creating BLAKE2b hasher %v", err))
			}
			return h
		},
	}
}

// NewBlake3Hasher implements the Hasher interface and computes a 256 bit hash
// function using the Blake3 hashing algorithm.
func NewBlake3Hasher() Hasher {
	return &KeyHasher{
		name: BLAKE3,
		underlying: func() hash.Hash {
			return blake3.New()
		},
	}
}

// NewHasher returns the hasher registered under the given name. An empty
// name selects SHA256.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SHA256:
		return NewSha256Hasher(), nil
	case BLAKE2b:
		return NewBlake2bHasher(), nil
	case BLAKE3:
		return NewBlake3Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown hashing algorithm %q", name)
	}
}

// Do function hashes input data using the hashing function given by the KeyHasher.
func (s *KeyHasher) Do(data ...[]byte) Digest {
	h := s.underlying()
	for i := 0; i < len(data); i++ {
		_, _ = h.Write(data[i])
	}
	return h.Sum(nil)
}

// Len function returns the size of the resulting hash.
func (s KeyHasher) Len() uint16 { return uint16(256) }

// Name returns the algorithm name.
func (s KeyHasher) Name() string { return s.name }
