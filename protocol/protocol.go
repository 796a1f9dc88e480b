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

// Package protocol defines the information types required and expected when
// interacting with the commitment service.
package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/bbva/commitd/commitment"
	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/merkle"
)

// Error codes carried by ErrorResponse.
const (
	ErrorNotFound     = "NOT_FOUND"
	ErrorInvalidInput = "INVALID_INPUT"
	ErrorTreeBuild    = "TREE_BUILD_ERROR"
	ErrorInternal     = "INTERNAL_ERROR"
)

// HexBytes is a byte slice transmitted as a hex string in JSON and as a
// byte string in CBOR. A JSON array of numbers is accepted on input.
type HexBytes []byte

// MarshalJSON encodes b as a hex string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

// UnmarshalJSON decodes a hex string or an array of bytes.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid hex string: %v", err)
		}
		*b = decoded
		return nil
	}
	var numbers []uint8
	if err := json.Unmarshal(data, &numbers); err != nil {
		return fmt.Errorf("expected a hex string or an array of bytes: %v", err)
	}
	*b = numbers
	return nil
}

// String returns the hex encoding of b.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// AddCommitmentRequest is the public struct that the add handler uses to
// parse the post params.
type AddCommitmentRequest struct {
	Value HexBytes `json:"value" cbor:"value"`
}

// Validate checks the value before it reaches the store.
func (r *AddCommitmentRequest) Validate(maxSize int) error {
	return commitment.ValidateValue(r.Value, maxSize)
}

// AddCommitmentResponse is returned once a value is committed.
type AddCommitmentResponse struct {
	Index      uint64   `json:"index" cbor:"index"`
	MerkleRoot HexBytes `json:"merkle_root" cbor:"merkle_root"`
}

// CommitmentResponse describes a single commitment.
type CommitmentResponse struct {
	Index      uint64   `json:"index" cbor:"index"`
	Value      HexBytes `json:"value" cbor:"value"`
	MerkleRoot HexBytes `json:"merkle_root" cbor:"merkle_root"`
}

// ToCommitmentResponse converts a stored commitment.
func ToCommitmentResponse(c *commitment.Commitment) *CommitmentResponse {
	return &CommitmentResponse{
		Index:      c.Index,
		Value:      HexBytes(c.Value),
		MerkleRoot: HexBytes(c.MerkleRoot),
	}
}

// CommitmentsResponse lists every commitment in index order.
type CommitmentsResponse struct {
	Commitments []*CommitmentResponse `json:"commitments" cbor:"commitments"`
	Count       uint64                `json:"count" cbor:"count"`
}

// RootResponse is the current root of the tree.
type RootResponse struct {
	Root            HexBytes `json:"root" cbor:"root"`
	CommitmentCount uint64   `json:"commitment_count" cbor:"commitment_count"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status          string `json:"status" cbor:"status"`
	Version         string `json:"version" cbor:"version"`
	CommitmentCount uint64 `json:"commitment_count" cbor:"commitment_count"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error" cbor:"error"`
	Message string `json:"message" cbor:"message"`
}

// ProofElement is a sibling digest on the path to the root.
type ProofElement struct {
	Hash   HexBytes `json:"hash" cbor:"hash"`
	IsLeft bool     `json:"is_left" cbor:"is_left"`
}

// Proof is the transferable form of an inclusion proof. It is both
// returned by the proof endpoint and accepted by the verify endpoint.
type Proof struct {
	Index uint64         `json:"index" cbor:"index"`
	Value HexBytes       `json:"value" cbor:"value"`
	Proof []ProofElement `json:"proof" cbor:"proof"`
	Root  HexBytes       `json:"root" cbor:"root"`
}

// ToProof converts a merkle proof to its wire form.
func ToProof(p *merkle.Proof) *Proof {
	path := make([]ProofElement, len(p.Path))
	for i, e := range p.Path {
		path[i] = ProofElement{Hash: HexBytes(e.Hash), IsLeft: e.IsLeft}
	}
	return &Proof{
		Index: p.Index,
		Value: HexBytes(p.Value),
		Proof: path,
		Root:  HexBytes(p.Root),
	}
}

// ToMerkleProof converts p back into a proof verifiable with hasher.
func (p *Proof) ToMerkleProof(hasher hashing.Hasher) *merkle.Proof {
	path := make([]merkle.ProofElement, len(p.Proof))
	for i, e := range p.Proof {
		path[i] = merkle.ProofElement{Hash: hashing.Digest(e.Hash), IsLeft: e.IsLeft}
	}
	return merkle.NewProof(p.Index, []byte(p.Value), path, hashing.Digest(p.Root), hasher)
}

// VerifyResponse is the outcome of a proof verification.
type VerifyResponse struct {
	Valid bool `json:"valid" cbor:"valid"`
}

// Info describes the configuration of a running server.
type Info struct {
	Version      string `json:"version" cbor:"version"`
	Hasher       string `json:"hasher" cbor:"hasher"`
	Storage      string `json:"storage" cbor:"storage"`
	MaxValueSize int    `json:"max_value_size" cbor:"max_value_size"`
	APIAddr      string `json:"api_addr" cbor:"api_addr"`
	MetricsAddr  string `json:"metrics_addr,omitempty" cbor:"metrics_addr,omitempty"`
}
